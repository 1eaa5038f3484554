package contention

import (
	"github.com/sarchlab/uopsim/timing/latency"
	"github.com/sarchlab/uopsim/timing/uop"
)

const boomIssueWidth = 3

// Boom models BOOM v1 with three issue ports that also share one width-3
// issue budget.
type Boom struct {
	model *latency.CoreModel
	now   uint64

	port0, port1, port2 bool
	generic             int

	alus aluBusy
}

// NewBoom creates a BOOM v1 contention model.
func NewBoom(model *latency.CoreModel) *Boom {
	return &Boom{model: model}
}

// InitCycle clears the per-cycle port state.
func (b *Boom) InitCycle(now uint64) {
	b.now = now
	b.port0, b.port1, b.port2 = false, false, false
	b.generic = 0
}

// TryIssue reserves an issue port for op.
func (b *Boom) TryIssue(op *uop.DynamicMicroOp) bool {
	if !b.alus.free(op.Alu, b.now) {
		return false
	}

	if b.generic >= boomIssueWidth {
		return false
	}

	var flag *bool
	switch op.Port {
	case latency.BoomPort0:
		flag = &b.port0
	case latency.BoomPort1:
		flag = &b.port1
	case latency.BoomPort2:
		flag = &b.port2
	}

	if flag != nil {
		if *flag {
			return false
		}
		*flag = true
	}
	b.generic++

	return true
}

// DoIssue occupies the op's functional unit.
func (b *Boom) DoIssue(op *uop.DynamicMicroOp) {
	b.alus.occupy(op.Alu, b.now, b.model.AluLatency(op.MicroOp()))
}

// NoMore reports whether the memory port and the shared width are used up.
func (b *Boom) NoMore() bool {
	return b.port2 && b.generic >= boomIssueWidth
}
