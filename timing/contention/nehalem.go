package contention

import (
	"github.com/sarchlab/uopsim/timing/latency"
	"github.com/sarchlab/uopsim/timing/uop"
)

const (
	nehalemGenericWidth = 3
	nehalemP05Width     = 2
)

// Nehalem has three ALU ports (0, 1, 5), one load port (2) and one store
// port (3+4).
type Nehalem struct {
	model *latency.CoreModel
	now   uint64

	port0, port1, port2, port34, port5 bool
	generic                            int
	generic05                          int

	alus aluBusy
}

// NewNehalem creates a Nehalem contention model.
func NewNehalem(model *latency.CoreModel) *Nehalem {
	return &Nehalem{model: model}
}

// InitCycle clears the per-cycle port state.
func (n *Nehalem) InitCycle(now uint64) {
	n.now = now
	n.port0, n.port1, n.port2, n.port34, n.port5 = false, false, false, false, false
	n.generic = 0
	n.generic05 = 0
}

// TryIssue reserves an issue port for op.
func (n *Nehalem) TryIssue(op *uop.DynamicMicroOp) bool {
	if !n.alus.free(op.Alu, n.now) {
		return false
	}

	switch op.Port {
	case latency.NehalemPort015:
		if n.generic >= nehalemGenericWidth {
			return false
		}
		n.generic++
	case latency.NehalemPort05:
		if n.generic05 >= nehalemP05Width || n.generic >= nehalemGenericWidth {
			return false
		}
		n.generic05++
		n.generic++
	case latency.NehalemPort2:
		if n.port2 {
			return false
		}
		n.port2 = true
	case latency.NehalemPort34:
		if n.port34 {
			return false
		}
		n.port34 = true
	case latency.NehalemPort0, latency.NehalemPort1, latency.NehalemPort5:
		if !n.takeALUPort(op.Port) {
			return false
		}
	}

	return true
}

func (n *Nehalem) takeALUPort(p latency.Port) bool {
	var flag *bool
	switch p {
	case latency.NehalemPort0:
		flag = &n.port0
	case latency.NehalemPort1:
		flag = &n.port1
	default:
		flag = &n.port5
	}

	if *flag || n.generic >= nehalemGenericWidth {
		return false
	}
	if p != latency.NehalemPort1 && n.generic05 >= nehalemP05Width {
		return false
	}

	*flag = true
	n.generic++
	if p != latency.NehalemPort1 {
		n.generic05++
	}
	return true
}

// DoIssue occupies the op's functional unit.
func (n *Nehalem) DoIssue(op *uop.DynamicMicroOp) {
	n.alus.occupy(op.Alu, n.now, n.model.AluLatency(op.MicroOp()))
}

// NoMore reports whether every port is taken for this cycle.
func (n *Nehalem) NoMore() bool {
	return n.port2 && n.port34 && n.generic >= nehalemGenericWidth
}
