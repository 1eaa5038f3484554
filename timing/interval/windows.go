package interval

import (
	"log"

	"github.com/sarchlab/uopsim/insts"
	"github.com/sarchlab/uopsim/timing/deps"
	"github.com/sarchlab/uopsim/timing/latency"
	"github.com/sarchlab/uopsim/timing/uop"
)

type overlap uint8

const (
	overlapICache overlap = 1 << iota
	overlapBPred
	overlapDCache
)

type dependence uint8

const (
	dependenceUnknown dependence = iota
	dependenceDependent
	dependenceIndependent
)

// Entry is a micro-op in the windows.
type Entry struct {
	Op *uop.DynamicMicroOp

	// ExecTime is the cycle the op's result is available.
	ExecTime uint64
	// CpContr is how far the op extended the critical path.
	CpContr uint64

	seq        uint64
	index      int
	overlaps   overlap
	dependence dependence
}

func (e *Entry) hasOverlap(o overlap) bool {
	return e.overlaps&o != 0
}

// Windows is the current window of micro-ops waiting to dispatch and the
// old window of recently dispatched ones, held in one circular buffer of
// twice the window size.
//
//	oldHead ... head      : old window
//	head    ... tail      : current window
type Windows struct {
	pool *uop.Pool

	entries  []Entry
	execTime []uint64
	size     int

	oldHead, head, tail int
	length, oldLength   int
	nextSeq             uint64

	registerDeps *deps.RegisterDependencies
	memoryDeps   *deps.MemoryDependencies

	cpHead, cpTail uint64
	cutoff         uint64

	functionalUnitContention bool
	ports                    *portUsage
	countBySubtype           [insts.NumSubtypes]uint64
	cpContrByType            [NumCpContrTypes]uint64
	cpContrTotal             uint64

	warn warnings
}

// NewWindows creates windows of the configured size. Micro-ops leaving the
// old window are returned to pool.
func NewWindows(model *latency.CoreModel, pool *uop.Pool) *Windows {
	config := model.Config()
	size := int(config.WindowSize)

	w := &Windows{
		pool:                     pool,
		entries:                  make([]Entry, 2*size),
		execTime:                 make([]uint64, 2*size),
		size:                     size,
		registerDeps:             deps.NewRegisterDependencies(),
		memoryDeps:               deps.NewMemoryDependencies(),
		cutoff:                   model.LongLatencyCutoff(),
		functionalUnitContention: config.FunctionalUnitContention,
		ports:                    newPortUsage(model.Microarch()),
		warn:                     warnings{},
	}

	for i := range w.entries {
		w.entries[i].index = i
	}

	return w
}

func (w *Windows) increment(i int) int {
	return (i + 1) % len(w.entries)
}

func (w *Windows) wrap(i int) int {
	n := len(w.entries)
	return ((i % n) + n) % n
}

// Full returns true if the current window holds WindowSize micro-ops.
func (w *Windows) Full() bool {
	return w.length == w.size
}

// Empty returns true if no micro-op waits to dispatch.
func (w *Windows) Empty() bool {
	return w.length == 0
}

// Len returns the length of the current window.
func (w *Windows) Len() int {
	return w.length
}

// OldLen returns the length of the old window.
func (w *Windows) OldLen() int {
	return w.oldLength
}

// Add appends op to the current window and sets its register and memory
// dependencies.
func (w *Windows) Add(op *uop.DynamicMicroOp) {
	if w.Full() {
		log.Panicf("interval window is full")
	}

	e := &w.entries[w.tail]
	index := e.index
	*e = Entry{Op: op, seq: w.nextSeq, index: index}
	op.SequenceNumber = w.nextSeq

	w.tail = w.increment(w.tail)
	w.length++
	w.nextSeq++

	lowestValid := w.entries[w.head].seq
	if w.oldLength > 0 {
		lowestValid = w.entries[w.oldHead].seq
	}

	w.registerDeps.SetDependencies(op, lowestValid)
	w.memoryDeps.SetDependencies(op, lowestValid)
}

// InstructionToDispatch returns the head of the current window.
func (w *Windows) InstructionToDispatch() *Entry {
	if w.Empty() {
		log.Panicf("interval window is empty")
	}
	return &w.entries[w.head]
}

// Instruction returns the entry of a micro-op in either window.
func (w *Windows) Instruction(seq uint64) *Entry {
	var base *Entry
	switch {
	case w.OldWindowContains(seq):
		base = &w.entries[w.oldHead]
	case w.WindowContains(seq):
		base = &w.entries[w.head]
	default:
		log.Panicf("micro-op %d is not in the windows", seq)
	}

	e := &w.entries[w.wrap(base.index+int(seq-base.seq))]
	if e.seq != seq {
		log.Panicf("window slot holds micro-op %d, want %d", e.seq, seq)
	}
	return e
}

// WindowContains reports whether seq waits in the current window.
func (w *Windows) WindowContains(seq uint64) bool {
	if w.length == 0 {
		return false
	}
	lowest := w.entries[w.head].seq
	return seq >= lowest && seq < lowest+uint64(w.length)
}

// OldWindowContains reports whether seq is in the old window.
func (w *Windows) OldWindowContains(seq uint64) bool {
	if w.oldLength == 0 {
		return false
	}
	lowest := w.entries[w.oldHead].seq
	return seq >= lowest && seq < lowest+uint64(w.oldLength)
}

// DispatchInstruction moves the head of the current window into the old
// window, retiring the oldest op if the old window is full. With
// functional unit contention enabled it reports the unit families that
// now exceed the critical path.
func (w *Windows) DispatchInstruction() WindowStopReason {
	if w.oldLength == w.size {
		oldest := &w.entries[w.oldHead]
		w.removeFunctionalUnitStats(oldest)

		w.cpHead = max(w.cpHead, oldest.ExecTime)
		w.release(oldest)
		w.oldHead = w.increment(w.oldHead)
		w.oldLength--
	}

	w.addFunctionalUnitStats(&w.entries[w.head])

	w.head = w.increment(w.head)
	w.length--
	w.oldLength++

	if !w.functionalUnitContention {
		return 0
	}
	return w.shouldStopDispatch()
}

func (w *Windows) shouldStopDispatch() WindowStopReason {
	var r WindowStopReason
	cp := w.CriticalPathLength()

	if w.countBySubtype[insts.SubtypeLoad] > cp {
		r |= WindowStopLoad
	}
	if w.countBySubtype[insts.SubtypeStore] > cp {
		r |= WindowStopStore
	}
	if w.countBySubtype[insts.SubtypeFpAddSub] > cp {
		r |= WindowStopFpAddSub
	}
	if w.countBySubtype[insts.SubtypeFpMulDiv] > cp {
		r |= WindowStopFpMulDiv
	}
	if w.countBySubtype[insts.SubtypeBranch] > cp {
		r |= WindowStopBranch
	}

	alu := w.countBySubtype[insts.SubtypeFpAddSub] + w.countBySubtype[insts.SubtypeFpMulDiv] +
		w.countBySubtype[insts.SubtypeBranch] + w.countBySubtype[insts.SubtypeGeneric]
	if alu > 3*cp {
		r |= WindowStopGeneric
	}

	return r
}

// ClearOldWindow empties the old window and restarts the critical path at
// newHead.
func (w *Windows) ClearOldWindow(newHead uint64) {
	w.cpHead, w.cpTail = newHead, newHead

	for i := w.oldHead; i != w.head; i = w.increment(i) {
		w.release(&w.entries[i])
	}
	w.oldHead = w.head
	w.oldLength = 0

	w.clearFunctionalUnitStats()
}

func (w *Windows) release(e *Entry) {
	if e.Op != nil {
		w.pool.Free(e.Op.Handle())
		e.Op = nil
	}
}

func (w *Windows) addFunctionalUnitStats(e *Entry) {
	w.countBySubtype[e.Op.MicroOp().Subtype]++
	w.ports.add(e.Op.Port)
	w.cpContrByType[cpContrType(e.Op)] += e.CpContr
	w.cpContrTotal += e.CpContr
}

func (w *Windows) removeFunctionalUnitStats(e *Entry) {
	w.countBySubtype[e.Op.MicroOp().Subtype]--
	w.ports.remove(e.Op.Port)
	w.cpContrByType[cpContrType(e.Op)] -= e.CpContr
	w.cpContrTotal -= e.CpContr
}

func (w *Windows) clearFunctionalUnitStats() {
	w.countBySubtype = [insts.NumSubtypes]uint64{}
	w.cpContrByType = [NumCpContrTypes]uint64{}
	w.cpContrTotal = 0
	w.ports.clear()
}

// CriticalPathHead returns the cycle the critical path starts at.
func (w *Windows) CriticalPathHead() uint64 {
	return w.cpHead
}

// CriticalPathTail returns the completion time of the critical path.
func (w *Windows) CriticalPathTail() uint64 {
	return w.cpTail
}

// CriticalPathLength returns tail - head, or 0 if the head moved past the
// tail.
func (w *Windows) CriticalPathLength() uint64 {
	if w.cpHead > w.cpTail {
		w.warn.once("cp-order", "critical path head %d is past its tail %d", w.cpHead, w.cpTail)
		return 0
	}
	return w.cpTail - w.cpHead
}

// LongLatencyOperationLatency returns how far e would extend the critical
// path if that extension reaches the long-latency cutoff, and 0 otherwise.
func (w *Windows) LongLatencyOperationLatency(e *Entry) uint64 {
	if w.cutoff == 0 || e.ExecTime < w.cpTail {
		return 0
	}

	extension := e.ExecTime - w.cpTail
	if extension < w.cutoff {
		return 0
	}
	return extension
}

// UpdateCriticalPathTail extends the critical path to e's execution time.
func (w *Windows) UpdateCriticalPathTail(e *Entry) uint64 {
	if e.ExecTime > w.cpTail {
		extension := e.ExecTime - w.cpTail
		if w.cutoff > 0 && extension > w.cutoff {
			w.warn.once("cp-extension", "extending the critical path by %d > %d cycles",
				extension, w.cutoff)
		}

		e.CpContr = extension
		w.cpTail = e.ExecTime
	}
	return w.cpTail
}

// MinimalFlushLatency returns the cycles needed to drain the old window at
// the given width.
func (w *Windows) MinimalFlushLatency(width uint64) uint64 {
	return (uint64(w.oldLength) + width - 1) / width
}

// CpContrFraction returns the share of the effective critical path
// attributed to op type t, in millionths.
func (w *Windows) CpContrFraction(t CpContrType, effective uint64) uint64 {
	if w.cpContrByType[t] > w.cpContrTotal {
		log.Panicf("%s contributes %d of a %d cycle critical path",
			t, w.cpContrByType[t], w.cpContrTotal)
	}

	total := max(w.cpContrTotal, effective)
	if total == 0 {
		return 0
	}
	return 1000000 * w.cpContrByType[t] / total
}

// EffectiveCriticalPathLength inflates cp to what the issue ports allow
// for the old window. With updateReason set, the extension is attributed
// to the limiting port.
func (w *Windows) EffectiveCriticalPathLength(cp uint64, updateReason bool) uint64 {
	if !w.functionalUnitContention {
		return cp
	}
	return w.ports.effectiveCriticalPathLength(cp, updateReason)
}

// CpContrByPort returns the accumulated port attribution in millionths of
// a critical path.
func (w *Windows) CpContrByPort() []uint64 {
	out := make([]uint64, len(w.ports.cpContr))
	copy(out, w.ports.cpContr)
	return out
}

// BranchResolutionLatency returns the length of the longest chain of old
// window producers leading to the head of the current window.
func (w *Windows) BranchResolutionLatency() uint64 {
	op := w.InstructionToDispatch().Op
	var resolution uint64

	for i := uint32(0); i < op.NumDependencies(); i++ {
		if seq := op.Dependency(i); w.OldWindowContains(seq) {
			producer := w.Instruction(seq)
			w.execTime[producer.index] = producer.Op.ExecLatency
		}
	}

	i := w.wrap(w.head - 1)
	for j := 0; j < w.oldLength; j++ {
		if w.execTime[i] != 0 {
			e := &w.entries[i]
			for k := uint32(0); k < e.Op.NumDependencies(); k++ {
				seq := e.Op.Dependency(k)
				if !w.OldWindowContains(seq) {
					continue
				}

				producer := w.Instruction(seq)
				w.execTime[producer.index] = max(w.execTime[producer.index],
					producer.Op.ExecLatency+w.execTime[i])
			}

			resolution = max(resolution, w.execTime[i])
			w.execTime[i] = 0
		}
		i = w.wrap(i - 1)
	}

	return resolution
}

// window iterates the current window from its head.
func (w *Windows) window(yield func(*Entry) bool) {
	for i := w.head; i != w.tail; i = w.increment(i) {
		if !yield(&w.entries[i]) {
			return
		}
	}
}

// Drain releases the old window at the end of a trace.
func (w *Windows) Drain() {
	w.ClearOldWindow(w.cpTail)
}
