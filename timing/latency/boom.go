package latency

import "github.com/sarchlab/uopsim/insts"

// Berkeley BOOM v1, after its execute unit definitions.
type boomV1Table struct{}

const (
	boomFMALatency  = 4
	boomIMulLatency = 3
	boomDivLatency  = 32
)

func (boomV1Table) baseLatencies() [insts.NumOps]uint64 {
	var l [insts.NumOps]uint64
	for i := range l {
		op := insts.Op(i)
		switch {
		case op.IsFP():
			l[i] = boomFMALatency
		case op == insts.OpMUL || op == insts.OpMULH:
			l[i] = boomIMulLatency
		default:
			l[i] = 1
		}
	}
	return l
}

func (boomV1Table) adjustLatency(_ *insts.MicroOp, base uint64) uint64 {
	return base
}

func (boomV1Table) aluLatency(u *insts.MicroOp, instLatency uint64) uint64 {
	switch u.Op {
	case insts.OpDIV, insts.OpFDIV:
		return boomDivLatency
	default:
		return instLatency
	}
}

func (boomV1Table) port(u *insts.MicroOp) Port {
	switch {
	case u.IsLoad() || u.IsStore():
		return BoomPort2
	case u.Op.IsFP() || u.Op == insts.OpMUL || u.Op == insts.OpMULH:
		return BoomPort0
	case u.Op == insts.OpDIV:
		return BoomPort1
	default:
		return BoomPort012
	}
}

func (boomV1Table) alu(u *insts.MicroOp) AluClass {
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

func (boomV1Table) issueSlot(*insts.MicroOp) IssueSlot {
	return IssueSlot11
}

func (boomV1Table) bypassLatencies() [NumBypasses]uint64 {
	return [NumBypasses]uint64{}
}
