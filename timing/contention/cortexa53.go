package contention

import (
	"github.com/sarchlab/uopsim/timing/latency"
	"github.com/sarchlab/uopsim/timing/uop"
)

type a53Ports struct {
	branch       bool
	int0, int1   bool
	simd0, simd1 bool
	ldst         bool
	slot0, slot1 bool
}

// CortexA53 models the dual-issue in-order A53 pipeline. Each micro-op
// needs an issue slot and a port; the functional unit is chosen when the
// port is.
type CortexA53 struct {
	model *latency.CoreModel
	now   uint64
	ports a53Ports
	alus  aluBusy
}

// NewCortexA53 creates a Cortex-A53 contention model.
func NewCortexA53(model *latency.CoreModel) *CortexA53 {
	return &CortexA53{model: model}
}

// InitCycle clears the per-cycle slot and port state.
func (a *CortexA53) InitCycle(now uint64) {
	a.now = now
	a.ports = a53Ports{}
}

// TryIssue reserves an issue slot, a port and a functional unit for op.
// Nothing is reserved when it returns false.
func (a *CortexA53) TryIssue(op *uop.DynamicMicroOp) bool {
	saved := a.ports

	if !a.takeSlot(op.IssueSlot) {
		return false
	}

	alu, ok := a.takePort(op.Port)
	if !ok || !a.alus.free(alu, a.now) {
		a.ports = saved
		return false
	}

	if cycles := a.model.AluLatency(op.MicroOp()); cycles > 0 {
		a.alus.occupy(alu, a.now, cycles)
	}

	return true
}

func (a *CortexA53) takeSlot(slot latency.IssueSlot) bool {
	p := &a.ports

	switch slot {
	case latency.IssueSlot00:
		if p.slot0 || p.slot1 {
			return false
		}
		// Nothing dual-issues with this op.
		p.slot0, p.slot1 = true, true
	case latency.IssueSlot01:
		if p.slot0 {
			return false
		}
		p.slot0 = true
	case latency.IssueSlot10:
		if p.slot1 {
			return false
		}
		p.slot1 = true
	default:
		switch {
		case !p.slot0:
			p.slot0 = true
		case !p.slot1:
			p.slot1 = true
		default:
			return false
		}
	}

	return true
}

func (a *CortexA53) takePort(port latency.Port) (latency.AluClass, bool) {
	p := &a.ports
	intFull := p.int0 && p.int1

	switch port {
	case latency.A53PortBranch:
		if p.branch {
			return latency.AluNone, false
		}
		p.branch = true
	case latency.A53PortBranchInt:
		if p.branch || intFull {
			return latency.AluNone, false
		}
		p.branch = true
		return a.takeIntegerPort(), true
	case latency.A53PortInt:
		if intFull {
			return latency.AluNone, false
		}
		return a.takeIntegerPort(), true
	case latency.A53PortInt0:
		if p.int0 {
			return latency.AluNone, false
		}
		p.int0 = true
		return latency.AluMul, true
	case latency.A53PortInt1:
		if p.int1 {
			return latency.AluNone, false
		}
		p.int1 = true
		return latency.AluDiv, true
	case latency.A53PortSIMD0:
		if p.simd0 {
			return latency.AluNone, false
		}
		p.simd0 = true
		return latency.AluFPNEON0, true
	case latency.A53PortSIMD1:
		if p.simd1 {
			return latency.AluNone, false
		}
		p.simd1 = true
		return latency.AluFPNEON1, true
	case latency.A53PortSIMD:
		if p.simd0 && p.simd1 {
			return latency.AluNone, false
		}
		return a.takeSIMDPort(), true
	case latency.A53PortLdSt:
		if p.ldst {
			return latency.AluNone, false
		}
		p.ldst = true
	case latency.A53PortLdStInt:
		if p.ldst || intFull {
			return latency.AluNone, false
		}
		p.ldst = true
		return a.takeIntegerPort(), true
	}

	return latency.AluNone, true
}

// takeIntegerPort prefers the multiply pipe when both are free.
func (a *CortexA53) takeIntegerPort() latency.AluClass {
	p := &a.ports
	if p.int0 {
		p.int1 = true
		return latency.AluDiv
	}
	p.int0 = true
	return latency.AluMul
}

func (a *CortexA53) takeSIMDPort() latency.AluClass {
	p := &a.ports
	if p.simd0 {
		p.simd1 = true
		return latency.AluFPNEON1
	}
	p.simd0 = true
	return latency.AluFPNEON0
}

// DoIssue does nothing; units are reserved in TryIssue.
func (a *CortexA53) DoIssue(*uop.DynamicMicroOp) {}

// NoMore is always false.
func (a *CortexA53) NoMore() bool {
	return false
}
