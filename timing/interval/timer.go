// Package interval implements the interval timing engine. Instead of
// simulating every cycle, it estimates the dispatch rate of a window of
// micro-ops from the length of their dependency critical path, and charges
// miss events (cache misses, mispredicted branches, serializing
// instructions) as penalties on top.
package interval

import (
	"log"

	"github.com/sarchlab/uopsim/timing/contention"
	"github.com/sarchlab/uopsim/timing/latency"
	"github.com/sarchlab/uopsim/timing/uop"
)

// fixedOne is 1.0 in the fixed-point format of the dispatch bandwidth.
const fixedOne = 1 << 16

// UopTimes are the critical path state seen by a micro-op at dispatch.
type UopTimes struct {
	ExecTime         uint64
	CriticalPathHead uint64
	CriticalPathTail uint64
	MaxProducer      uint64
}

// Tracer observes micro-ops as they dispatch, in program order.
type Tracer interface {
	TraceUop(op *uop.DynamicMicroOp, times UopTimes)
}

// Option configures a Timer.
type Option func(*Timer)

// WithTracer registers a dispatch tracer.
func WithTracer(tracer Tracer) Option {
	return func(t *Timer) {
		t.tracer = tracer
	}
}

// Timer is the interval timing engine of one core.
type Timer struct {
	model  *latency.CoreModel
	memory uop.MemoryAccessor
	pool   *uop.Pool

	windows *Windows

	dispatchWidth     uint64
	mispredictPenalty uint64
	memDepMask        uint64
	lllDepMask        uint64

	remainingBandwidth uint64

	maxStoreCompletion uint64
	maxLoadCompletion  uint64
	loadStores         *contention.Queue

	lastAccountedMemCycle uint64
	now                   uint64

	tracer Tracer
	stats  Stats
}

// NewTimer creates a Timer for the core described by model.
func NewTimer(
	model *latency.CoreModel,
	memory uop.MemoryAccessor,
	pool *uop.Pool,
	opts ...Option,
) *Timer {
	config := model.Config()
	if err := config.Validate(); err != nil {
		log.Panicf("interval timer: %v", err)
	}

	t := &Timer{
		model:             model,
		memory:            memory,
		pool:              pool,
		windows:           NewWindows(model, pool),
		dispatchWidth:     config.DispatchWidth,
		mispredictPenalty: config.BranchMispredictPenalty,
		memDepMask:        ^(config.MemDepGranularity - 1),
		lllDepMask:        ^(config.LLLDepGranularity - 1),
		loadStores:        contention.NewQueue(int(config.OutstandingLoadStores)),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Windows exposes the timer's windows.
func (t *Timer) Windows() *Windows {
	return t.windows
}

// Now returns the cycles simulated so far.
func (t *Timer) Now() uint64 {
	return t.now
}

// Synchronize moves the clock forward to now. The windows keep their
// relative timing.
func (t *Timer) Synchronize(now uint64) {
	if now < t.now {
		log.Panicf("interval timer: cannot synchronize backwards from %d to %d", t.now, now)
	}
	t.now = now
}

// InFlight returns the number of micro-ops waiting to dispatch.
func (t *Timer) InFlight() int {
	return t.windows.Len()
}

// Stats returns a copy of the counters.
func (t *Timer) Stats() Stats {
	s := t.stats
	s.CpContrByPort = map[string]uint64{}

	arch := t.model.Microarch()
	for p, v := range t.windows.CpContrByPort() {
		if v > 0 {
			s.CpContrByPort[arch.PortName(latency.Port(p))] = v
		}
	}

	return s
}

// Simulate adds ops to the window. Each time the window fills up, one
// round of micro-ops is dispatched from it. It returns the instructions
// dispatched and the cycles they took.
func (t *Timer) Simulate(ops []*uop.DynamicMicroOp) (instructions, cycles uint64) {
	for _, op := range ops {
		if op.Squashed {
			t.stats.UopsSquashed++
			t.pool.Free(op.Handle())
			continue
		}

		if op.IsMemoryOp() {
			op.Address &= t.memDepMask
		}

		t.windows.Add(op)
		t.stats.Uops++
		t.stats.UopsBySubtype[op.MicroOp().Subtype]++

		// The window has to be full so that independent misses can be
		// found behind a long-latency load.
		for t.windows.Full() {
			n, lat := t.dispatchWindow()
			instructions += n
			cycles += lat
		}
	}

	return instructions, cycles
}

// Drain dispatches every micro-op left in the window and releases the old
// window.
func (t *Timer) Drain() (instructions, cycles uint64) {
	for !t.windows.Empty() {
		n, lat := t.dispatchWindow()
		instructions += n
		cycles += lat
	}
	t.windows.Drain()

	return instructions, cycles
}

func (t *Timer) dispatchWindow() (instructions, latency uint64) {
	var (
		uops   uint64
		reason StopReason
	)

	rate := t.dispatchRate()

	for !t.windows.Empty() && instructions < t.dispatchWidth && uops < rate && reason == 0 {
		e := t.windows.InstructionToDispatch()

		var lat uint64
		lat, reason = t.dispatchInstruction(e)
		latency += lat

		if stop := t.windows.DispatchInstruction(); stop != 0 {
			t.stats.WindowStops[stop]++
		}

		uops++
		if e.Op.Last {
			instructions++
		}
	}

	if latency == 0 {
		if t.windows.Empty() {
			reason |= StopWindowEmpty
		}
		if instructions >= t.dispatchWidth {
			reason |= StopDispatchWidth
		}
		if uops >= rate {
			reason |= StopDispatchRate
			t.accountCriticalPath()
		}

		latency = 1
		t.stats.CPIBase++
		t.stats.BaseStopReasons[reason]++
	}

	t.now += latency
	t.stats.Cycles += latency
	t.stats.Instructions += instructions

	return instructions, latency
}

// dispatchRate returns the number of micro-ops the critical path lets
// dispatch this round. Fractions carry over to the next round.
func (t *Timer) dispatchRate() uint64 {
	cp := t.windows.CriticalPathLength()
	if cp == 0 {
		t.remainingBandwidth = 0
		return t.dispatchWidth
	}

	effective := t.windows.EffectiveCriticalPathLength(cp, false)
	ipc := uint64(t.windows.OldLen())*fixedOne/effective + t.remainingBandwidth

	rate := ipc / fixedOne
	if rate < t.dispatchWidth {
		t.remainingBandwidth = ipc - rate*fixedOne
	} else {
		t.remainingBandwidth = 0
	}

	return rate
}

// accountCriticalPath attributes a dispatch-rate stall to the op types on
// the critical path.
func (t *Timer) accountCriticalPath() {
	cp := t.windows.CriticalPathLength()
	effective := t.windows.EffectiveCriticalPathLength(cp, true)

	for i := CpContrType(0); i < NumCpContrTypes; i++ {
		t.stats.CpContrByType[i] += t.windows.CpContrFraction(i, effective)
	}
}
