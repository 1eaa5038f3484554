package latency

import "github.com/sarchlab/uopsim/insts"

// ARM Cortex-A53, from published cycle timings and the Cortex-A55 software
// optimization guide.
type cortexA53Table struct{}

func (cortexA53Table) baseLatencies() [insts.NumOps]uint64 {
	var l [insts.NumOps]uint64
	for i := range l {
		l[i] = 1
	}

	l[insts.OpDIV] = 3 // 5-22, data dependent
	l[insts.OpMUL] = 3
	l[insts.OpMULH] = 3
	l[insts.OpExtract] = 3
	l[insts.OpBitfield] = 2
	l[insts.OpFADD] = 4
	l[insts.OpFDIV] = 18
	l[insts.OpFMUL] = 6
	l[insts.OpFMA] = 8
	l[insts.OpFSQRT] = 17
	l[insts.OpFCVT] = 4
	l[insts.OpFMOV] = 4
	l[insts.OpSIMD] = 4

	return l
}

func (cortexA53Table) adjustLatency(u *insts.MicroOp, base uint64) uint64 {
	if u.Op == insts.OpALU && u.OperandSize > 64 {
		return 2
	}
	return base
}

// aluLatency is the issue interval of the functional unit, not the result
// latency. Most units are pipelined and report zero.
func (cortexA53Table) aluLatency(u *insts.MicroOp, _ uint64) uint64 {
	if u.IsLoad() {
		if u.OperandSize > 64 {
			return 2
		}
		return 0
	}

	switch u.Op {
	case insts.OpDIV:
		return 3
	case insts.OpFMA:
		if u.OperandSize > 32 {
			return 5
		}
		return 0
	case insts.OpFDIV:
		if u.OperandSize > 32 {
			return 29
		}
		return 15
	case insts.OpFSQRT:
		if u.OperandSize > 32 {
			return 28
		}
		return 14
	case insts.OpMUL, insts.OpFADD:
		switch {
		case u.OperandSize > 64:
			return 4
		case u.OperandSize > 32:
			return 2
		default:
			return 0
		}
	case insts.OpExtract:
		if u.OperandSize > 64 {
			return 2
		}
		return 0
	case insts.OpSIMD:
		return 2
	default:
		return 0
	}
}

func (cortexA53Table) port(u *insts.MicroOp) Port {
	switch u.Subtype {
	case insts.SubtypeFpAddSub, insts.SubtypeFpMulDiv:
		return A53PortSIMD
	case insts.SubtypeLoad, insts.SubtypeStore:
		if u.IsWriteback {
			return A53PortLdStInt
		}
		return A53PortLdSt
	case insts.SubtypeBranch:
		if u.Op == insts.OpCall {
			return A53PortBranchInt
		}
		return A53PortBranch
	}

	switch u.Op {
	case insts.OpALU:
		if u.OperandSize > 64 {
			return A53PortSIMD
		}
		return A53PortInt
	case insts.OpCall:
		return A53PortBranchInt
	case insts.OpDIV:
		return A53PortInt1
	case insts.OpMUL, insts.OpMULH:
		return A53PortInt0
	case insts.OpFCVT, insts.OpFMOV, insts.OpSIMD, insts.OpFRSQRT:
		return A53PortSIMD
	default:
		return A53PortInt
	}
}

// The unit is chosen by the contention model when the micro-op issues.
func (cortexA53Table) alu(*insts.MicroOp) AluClass {
	return AluNone
}

func (cortexA53Table) issueSlot(u *insts.MicroOp) IssueSlot {
	switch {
	case u.Op == insts.OpFCVT:
		return IssueSlot01
	case u.IsLoad() && u.MemSize >= 16:
		// Load pair.
		return IssueSlot00
	case u.Op == insts.OpALU && u.OperandSize > 64:
		return IssueSlot01
	default:
		return IssueSlot11
	}
}

func (cortexA53Table) bypassLatencies() [NumBypasses]uint64 {
	return [NumBypasses]uint64{}
}
