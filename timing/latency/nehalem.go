package latency

import "github.com/sarchlab/uopsim/insts"

// Intel Nehalem, after Agner Fog's instruction tables.
type nehalemTable struct{}

func (nehalemTable) baseLatencies() [insts.NumOps]uint64 {
	var l [insts.NumOps]uint64
	for i := range l {
		l[i] = 1
	}

	l[insts.OpMUL] = 3
	l[insts.OpMULH] = 3
	l[insts.OpDIV] = 28 // 32-bit: 17-28, 64-bit: 28-90
	l[insts.OpFADD] = 3
	l[insts.OpFMINMAX] = 3
	l[insts.OpFCMP] = 3 // 1 + 2 flags bypass
	l[insts.OpFMUL] = 4
	l[insts.OpFMA] = 5
	l[insts.OpFDIV] = 11
	l[insts.OpFSQRT] = 18
	l[insts.OpFRSQRT] = 3
	l[insts.OpFCVT] = 5 // 3 + 2 bypass

	return l
}

func (nehalemTable) adjustLatency(u *insts.MicroOp, base uint64) uint64 {
	if u.OperandSize <= 32 {
		return base
	}

	// Double precision.
	switch u.Op {
	case insts.OpFMUL:
		return 5
	case insts.OpFDIV:
		return 17
	case insts.OpFSQRT:
		return 32
	default:
		return base
	}
}

func (nehalemTable) aluLatency(u *insts.MicroOp, instLatency uint64) uint64 {
	if u.Op == insts.OpDIV {
		if u.OperandSize > 32 {
			return 28
		}
		return 9
	}
	return instLatency
}

func (nehalemTable) port(u *insts.MicroOp) Port {
	switch u.Subtype {
	case insts.SubtypeFpAddSub:
		return NehalemPort1
	case insts.SubtypeFpMulDiv:
		return NehalemPort0
	case insts.SubtypeLoad:
		return NehalemPort2
	case insts.SubtypeStore:
		return NehalemPort34
	case insts.SubtypeBranch:
		return NehalemPort5
	}

	switch u.Op {
	case insts.OpMUL, insts.OpMULH:
		if u.OperandSize == 64 {
			return NehalemPort0
		}
		return NehalemPort1
	case insts.OpLEA, insts.OpCRC, insts.OpFCVT, insts.OpFRSQRT:
		return NehalemPort1
	case insts.OpFMOV:
		return NehalemPort5
	default:
		return NehalemPort015
	}
}

func (nehalemTable) alu(u *insts.MicroOp) AluClass {
	if !u.IsExecute() {
		return AluNone
	}

	switch u.Op {
	case insts.OpDIV, insts.OpFDIV, insts.OpFSQRT:
		return AluTrig
	default:
		return AluNone
	}
}

func (nehalemTable) issueSlot(*insts.MicroOp) IssueSlot {
	return IssueSlot11
}

func (nehalemTable) bypassLatencies() [NumBypasses]uint64 {
	return [NumBypasses]uint64{
		BypassNone:    0,
		BypassLoadFP:  2,
		BypassFPStore: 1,
	}
}
