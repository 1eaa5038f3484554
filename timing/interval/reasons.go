package interval

import (
	"strings"

	"github.com/sarchlab/uopsim/insts"
	"github.com/sarchlab/uopsim/timing/uop"
)

// StopReason is the set of conditions that ended a dispatch round.
type StopReason uint8

// Stop reasons.
const (
	StopWindowEmpty StopReason = 1 << iota
	StopDispatchWidth
	StopDispatchRate
	StopICacheMiss
	StopBranchMispredict

	NumStopReasons = 1 << iota
)

var stopReasonNames = []string{
	"WindowEmpty", "DispatchWidth", "DispatchRate", "ICacheMiss", "BranchMispredict",
}

// String joins the names of the set reasons with "+".
func (r StopReason) String() string {
	return joinFlags(uint8(r), stopReasonNames)
}

// WindowStopReason is the set of functional unit families whose usage in
// the old window exceeds the critical path length.
type WindowStopReason uint8

// Window stop reasons.
const (
	WindowStopFpAddSub WindowStopReason = 1 << iota
	WindowStopFpMulDiv
	WindowStopLoad
	WindowStopStore
	WindowStopGeneric
	WindowStopBranch

	NumWindowStopReasons = 1 << iota
)

var windowStopReasonNames = []string{
	"FpAddSub", "FpMulDiv", "Load", "Store", "Generic", "Branch",
}

func (r WindowStopReason) String() string {
	return joinFlags(uint8(r), windowStopReasonNames)
}

func joinFlags(bits uint8, names []string) string {
	if bits == 0 {
		return "NoReason"
	}

	var set []string
	for i, name := range names {
		if bits&(1<<i) != 0 {
			set = append(set, name)
		}
	}
	return strings.Join(set, "+")
}

// CpContrType classifies critical path contributions.
type CpContrType uint8

// Critical path contribution types.
const (
	CpContrFpAddSub CpContrType = iota
	CpContrFpMulDiv
	CpContrLoadL1
	CpContrLoadL2
	CpContrLoadL3
	CpContrLoadOther
	CpContrStore
	CpContrGeneric
	CpContrBranch

	NumCpContrTypes
)

var cpContrNames = [NumCpContrTypes]string{
	"fp_addsub", "fp_muldiv", "load_l1", "load_l2", "load_l3", "load_other",
	"store", "generic", "branch",
}

func (t CpContrType) String() string {
	if t < NumCpContrTypes {
		return cpContrNames[t]
	}
	return "unknown"
}

func cpContrType(op *uop.DynamicMicroOp) CpContrType {
	switch op.MicroOp().Subtype {
	case insts.SubtypeFpAddSub:
		return CpContrFpAddSub
	case insts.SubtypeFpMulDiv:
		return CpContrFpMulDiv
	case insts.SubtypeLoad:
		switch op.DCacheHitWhere {
		case uop.HitL1:
			return CpContrLoadL1
		case uop.HitL2:
			return CpContrLoadL2
		case uop.HitL3:
			return CpContrLoadL3
		default:
			return CpContrLoadOther
		}
	case insts.SubtypeStore:
		return CpContrStore
	case insts.SubtypeBranch:
		return CpContrBranch
	default:
		return CpContrGeneric
	}
}
