// Package rob implements the reorder-buffer timing engine. It steps through
// dispatch, issue and commit one cycle at a time, and skips ahead over
// cycles in which no stage can make progress.
package rob

import (
	"log"

	"github.com/sarchlab/uopsim/timing/contention"
	"github.com/sarchlab/uopsim/timing/deps"
	"github.com/sarchlab/uopsim/timing/latency"
	"github.com/sarchlab/uopsim/timing/uop"
)

// preROBEntries is the staging space beyond the window.
const preROBEntries = 255

// UopTimes are the pipeline timestamps of a committed micro-op. Done is
// the cycle the result is available to dependants. A micro-op commits no
// earlier than the cycle after Done, except stores, which commit once
// issued.
type UopTimes struct {
	Dispatched uint64
	Issued     uint64
	Done       uint64
	Committed  uint64
}

// Tracer observes micro-ops at commit, in program order.
type Tracer interface {
	TraceUop(op *uop.DynamicMicroOp, times UopTimes)
}

// Option configures a Timer.
type Option func(*Timer)

// WithSkipDisabled makes the timer advance one cycle at a time.
func WithSkipDisabled() Option {
	return func(t *Timer) {
		t.skipEnabled = false
	}
}

// WithContentionModel replaces the microarchitecture's issue contention
// model. A nil model removes issue contention.
func WithContentionModel(m contention.Model) Option {
	return func(t *Timer) {
		t.contention = m
	}
}

// WithTracer registers a commit tracer.
func WithTracer(tracer Tracer) Option {
	return func(t *Timer) {
		t.tracer = tracer
	}
}

// Timer is the reorder-buffer timing engine of one core.
type Timer struct {
	model  *latency.CoreModel
	memory uop.MemoryAccessor
	pool   *uop.Pool

	dispatchWidth           uint64
	commitWidth             uint64
	windowSize              int
	rsEntries               uint64
	mispredictPenalty       uint64
	storeToLoadForwarding   bool
	noAddressDisambiguation bool
	inOrder                 bool
	skipEnabled             bool

	rob        *buffer
	numInROB   int
	rsUsed     uint64
	contention contention.Model
	loadQueue  *contention.Queue
	storeQueue *contention.Queue

	registerDeps *deps.RegisterDependencies
	memoryDeps   *deps.MemoryDependencies

	now                  uint64
	frontendStalledUntil uint64
	inICacheMiss         bool
	lastStoreDone        uint64
	nextSeq              uint64

	frontendStallComponent *uint64
	lastAccountedMemCycle  uint64

	resolved []uint64

	tracer Tracer
	warn   warnings
	stats  Stats
}

// NewTimer creates a Timer for the core described by model. Loads and
// stores access memory through memory when they issue; committed ops are
// returned to pool.
func NewTimer(
	model *latency.CoreModel,
	memory uop.MemoryAccessor,
	pool *uop.Pool,
	opts ...Option,
) *Timer {
	config := model.Config()
	if err := config.Validate(); err != nil {
		log.Panicf("rob timer: %v", err)
	}

	t := &Timer{
		model:                   model,
		memory:                  memory,
		pool:                    pool,
		dispatchWidth:           config.DispatchWidth,
		commitWidth:             config.CommitWidth,
		windowSize:              int(config.WindowSize),
		rsEntries:               config.RSEntries,
		mispredictPenalty:       config.BranchMispredictPenalty,
		storeToLoadForwarding:   config.StoreToLoadForwarding,
		noAddressDisambiguation: !config.AddressDisambiguation,
		inOrder:                 config.InOrder,
		skipEnabled:             true,
		rob:                     newBuffer(int(config.WindowSize) + preROBEntries),
		loadQueue:               contention.NewQueue(int(config.OutstandingLoads)),
		storeQueue:              contention.NewQueue(int(config.OutstandingStores)),
		registerDeps:            deps.NewRegisterDependencies(),
		memoryDeps:              deps.NewMemoryDependencies(),
	}

	if config.IssueContention {
		t.contention = contention.New(model)
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Now returns the current cycle.
func (t *Timer) Now() uint64 {
	return t.now
}

// Stats returns a copy of the counters.
func (t *Timer) Stats() Stats {
	return t.stats
}

// InFlight returns the number of micro-ops in the ROB and its staging
// area.
func (t *Timer) InFlight() int {
	return t.rob.size
}

// Synchronize moves the clock forward to now, e.g. after the core was
// blocked on another component. Skipped cycles are not simulated.
func (t *Timer) Synchronize(now uint64) {
	if now < t.now {
		log.Panicf("rob timer: cannot synchronize backwards from %d to %d", t.now, now)
	}
	t.now = now
}

// Simulate inserts ops into the ROB and runs the pipeline until more ops
// are needed to keep dispatch busy. It returns the instructions committed
// and the cycles elapsed.
func (t *Timer) Simulate(ops []*uop.DynamicMicroOp) (instructions, cycles uint64) {
	for _, op := range ops {
		if op.Squashed {
			t.stats.UopsSquashed++
			t.pool.Free(op.Handle())
			continue
		}
		t.insert(op)
	}

	for {
		n, lat := t.execute(false)
		instructions += n
		cycles += lat
		if lat == 0 {
			break
		}
	}

	return instructions, cycles
}

// Drain runs the pipeline until every inserted op has committed.
func (t *Timer) Drain() (instructions, cycles uint64) {
	for t.rob.size > 0 {
		n, lat := t.execute(true)
		instructions += n
		cycles += lat
	}
	return instructions, cycles
}

func (t *Timer) insert(op *uop.DynamicMicroOp) {
	e := t.rob.next()
	e.init(op, t.nextSeq)
	t.nextSeq++

	static := op.MicroOp()
	lowestValid := t.rob.front().op.SequenceNumber

	if static.IsStore() {
		t.findAddressProducers(e, lowestValid)
	}

	t.registerDeps.SetDependencies(op, lowestValid)
	t.memoryDeps.SetDependencies(op, lowestValid)

	if t.storeToLoadForwarding && static.IsLoad() {
		t.forwardFromStore(e)
	}

	t.resolved = t.resolved[:0]
	for i := uint32(0); i < op.NumDependencies(); i++ {
		producer := t.rob.find(op.Dependency(i))
		if producer.done != MaxTime {
			t.resolved = append(t.resolved, producer.op.SequenceNumber)
			e.readyMax = max(e.readyMax, producer.done)
		} else {
			producer.addDependant(e)
		}
	}

	// Removal reorders the list, so it happens after the walk.
	for _, seq := range t.resolved {
		op.RemoveDependency(seq)
	}

	if op.NumDependencies() == 0 {
		e.ready = e.readyMax
	}

	t.stats.Uops++
	t.stats.UopsBySubtype[static.Subtype]++
}

func (t *Timer) findAddressProducers(e *entry, lowestValid uint64) {
	for _, reg := range e.op.MicroOp().AddressRegs {
		seq := t.registerDeps.PeekProducer(reg, lowestValid)
		if seq == uop.InvalidSeq {
			continue
		}

		producer := t.rob.find(seq)
		if producer.done != MaxTime {
			e.addressReadyMax = max(e.addressReadyMax, producer.done)
		} else {
			e.addressProducers = append(e.addressProducers, seq)
		}
	}

	if len(e.addressProducers) == 0 {
		e.addressReady = e.addressReadyMax
	}
}

// forwardFromStore replaces a load's dependency on a store with the
// store's own producers, since the store only executes at the ROB head.
func (t *Timer) forwardFromStore(e *entry) {
	op := e.op
	for i := uint32(0); i < op.NumDependencies(); i++ {
		producer := t.rob.find(op.Dependency(i))
		if !producer.op.MicroOp().IsStore() {
			continue
		}

		op.RemoveDependency(producer.op.SequenceNumber)
		for j := uint32(0); j < producer.op.NumDependencies(); j++ {
			op.AddDependency(producer.op.Dependency(j))
		}
		return
	}
}

// execute simulates one cycle, or a skip to the next event. It returns zero
// cycles when it needs more ops first, unless draining.
func (t *Timer) execute(draining bool) (instructions, cycles uint64) {
	if !draining && t.frontendStalledUntil <= t.now &&
		uint64(t.rob.size) < uint64(t.numInROB)+2*t.dispatchWidth {
		return 0, 0
	}

	nextDispatch, component := t.doDispatch()
	nextIssue := t.doIssue()
	nextCommit, instructions := t.doCommit()

	next := min(nextDispatch, nextIssue, nextCommit)

	cycles = 1
	if t.skipEnabled && next != MaxTime && next > t.now+1 {
		cycles = next - t.now
		t.stats.CyclesSkipped += cycles - 1
	}

	t.now += cycles
	t.stats.Cycles += cycles
	t.stats.Instructions += instructions
	*component += cycles
	if t.frontendStallComponent == &t.stats.CPIRSFull {
		t.stats.RSFullCycles += cycles
	}

	return instructions, cycles
}
