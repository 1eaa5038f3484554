// Package contention models per-cycle issue port and functional unit
// limits, and the occupancy of the load and store queues.
package contention

import (
	"github.com/sarchlab/uopsim/timing/latency"
	"github.com/sarchlab/uopsim/timing/uop"
)

// Model decides which ready micro-ops may issue in a cycle.
//
// TryIssue reserves resources for op. It must only be called for an op that
// will be issued if it returns true, after which DoIssue is called.
type Model interface {
	InitCycle(now uint64)
	TryIssue(op *uop.DynamicMicroOp) bool
	DoIssue(op *uop.DynamicMicroOp)
	NoMore() bool
}

// New returns the contention model of the core model's microarchitecture.
func New(model *latency.CoreModel) Model {
	switch model.Microarch() {
	case latency.CortexA53:
		return NewCortexA53(model)
	case latency.BoomV1:
		return NewBoom(model)
	default:
		return NewNehalem(model)
	}
}

// aluBusy tracks until when each multi-cycle functional unit is occupied.
type aluBusy struct {
	until [latency.NumAluClasses]uint64
}

func (a *aluBusy) free(alu latency.AluClass, now uint64) bool {
	return alu == latency.AluNone || a.until[alu] <= now
}

func (a *aluBusy) occupy(alu latency.AluClass, now, cycles uint64) {
	if alu == latency.AluNone {
		return
	}
	a.until[alu] = now + cycles
}
