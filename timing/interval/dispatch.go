package interval

import "github.com/sarchlab/uopsim/timing/uop"

// issueMemOp sends a load or store to the memory hierarchy, unless its
// latency is already known.
func (t *Timer) issueMemOp(e *Entry) {
	op := e.Op
	static := op.MicroOp()
	if !op.IsMemoryOp() || op.DCacheHitWhere != uop.HitUnknown {
		return
	}

	kind := uop.AccessRead
	if static.IsStore() {
		kind = uop.AccessWrite
	}

	lat, hit := t.memory.AccessMemory(kind, op.Address, static.MemSize, t.now)
	// ExecLatency already holds the bypass latency.
	op.ExecLatency += lat
	op.DCacheHitWhere = hit
}

// maxProducerExecTime returns the latest completion time of e's producers
// in the old window.
func (t *Timer) maxProducerExecTime(e *Entry) uint64 {
	var latest uint64

	op := e.Op
	for i := uint32(0); i < op.NumDependencies(); i++ {
		seq := op.Dependency(i)
		if t.windows.OldWindowContains(seq) {
			latest = max(latest, t.windows.Instruction(seq).ExecTime)
		}
	}

	return latest
}

// dispatchInstruction computes e's execution time and the penalty cycles
// it adds on top of the critical path.
func (t *Timer) dispatchInstruction(e *Entry) (latency uint64, reason StopReason) {
	w := t.windows
	op := e.Op
	static := op.MicroOp()

	t.issueMemOp(e)

	maxProducer := t.maxProducerExecTime(e)
	cpHead, cpTail := w.CriticalPathHead(), w.CriticalPathTail()

	if op.ICacheHitWhere != uop.HitL1I && !e.hasOverlap(overlapICache) {
		lat := op.ICacheLatency
		latency += lat
		w.ClearOldWindow(cpTail + lat)

		reason = StopICacheMiss
		t.stats.CPIICache[op.ICacheHitWhere] += lat
	}

	if static.IsBranch && op.BranchMispredicted && !e.hasOverlap(overlapBPred) {
		lat := t.mispredictPenalty + w.BranchResolutionLatency()
		latency += lat
		w.ClearOldWindow(cpTail + lat)

		reason = StopBranchMispredict
		t.stats.CPIBranch += lat
	}

	switch {
	case static.IsSerializing:
		flush := max(w.CriticalPathLength(), w.MinimalFlushLatency(t.dispatchWidth))
		lat := flush + op.ExecLatency
		latency += lat

		t.stats.SerializationInsns++
		t.stats.SerializationLatency += lat
		t.stats.CPISerialization += lat

		e.ExecTime = w.CriticalPathTail()
		w.ClearOldWindow(e.ExecTime)

	case static.IsExecute() && static.IsMemBarrier:
		t.stats.MemFenceInsns++
		e.ExecTime = max(maxProducer, t.maxStoreCompletion, t.maxLoadCompletion) +
			op.ExecLatency
		t.updateCriticalPath(e, &latency)

	case static.IsLoad():
		t.dispatchLoad(e, maxProducer, &latency)

	case static.IsStore():
		sched := max(maxProducer, w.CriticalPathHead())
		bypass := t.model.BypassLatency(op.Bypass)

		// Dependants see the value one cycle after the store issues.
		e.ExecTime = sched + bypass + 1
		t.updateCriticalPath(e, &latency)

		t.maxStoreCompletion = max(t.maxStoreCompletion, sched+op.ExecLatency)

	default:
		e.ExecTime = max(maxProducer, w.CriticalPathHead()) + op.ExecLatency
		t.updateCriticalPath(e, &latency)
	}

	if t.tracer != nil {
		t.tracer.TraceUop(op, UopTimes{
			ExecTime:         e.ExecTime,
			CriticalPathHead: cpHead,
			CriticalPathTail: cpTail,
			MaxProducer:      maxProducer,
		})
	}

	return latency, reason
}

func (t *Timer) dispatchLoad(e *Entry, maxProducer uint64, latency *uint64) {
	w := t.windows
	op := e.Op
	execLatency := op.ExecLatency

	switch {
	case e.hasOverlap(overlapDCache):
		// Issued under an earlier long-latency load.

	case op.IsLongLatencyLoad():
		sched := max(maxProducer, w.CriticalPathHead())
		done := t.loadStoreCompletion(e, sched, execLatency)

		lll := done - sched
		*latency += lll

		e.ExecTime = w.CriticalPathTail()
		w.ClearOldWindow(e.ExecTime + lll)
		t.blockWindow()

		t.stats.LongLatencyLoads++
		t.stats.LongLatencyLoadLatency += lll
		t.stats.CPIDCache[op.DCacheHitWhere] += lll

	default:
		sched := max(maxProducer, w.CriticalPathHead())
		e.ExecTime = t.loadStoreCompletion(e, sched, execLatency)
		t.updateCriticalPath(e, latency)
	}

	t.maxLoadCompletion = max(t.maxLoadCompletion, e.ExecTime)

	if op.IsLongLatencyLoad() {
		t.accountLongLatencyLoad(execLatency)
	}
}

func (t *Timer) loadStoreCompletion(e *Entry, sched, delay uint64) uint64 {
	if e.Op.MicroOp().IsMemBarrier {
		return t.loadStores.GetBarrierCompletionTime(sched, delay)
	}
	return t.loadStores.GetCompletionTime(sched, delay)
}

// accountLongLatencyLoad adds a long-latency load to the memory-level
// parallelism counters without counting overlapped cycles twice.
func (t *Timer) accountLongLatencyLoad(execLatency uint64) {
	now := t.windows.CriticalPathTail()
	done := now + execLatency

	t.stats.OutstandingLongLatencyInsns += execLatency

	t.lastAccountedMemCycle = max(t.lastAccountedMemCycle, now)
	if done > t.lastAccountedMemCycle {
		t.stats.OutstandingLongLatencyCycles += done - t.lastAccountedMemCycle
		t.lastAccountedMemCycle = done
	}
}

// updateCriticalPath moves e onto the critical path, or charges an
// over-long extension as a long-latency event and restarts the path.
func (t *Timer) updateCriticalPath(e *Entry, latency *uint64) {
	lll := t.windows.LongLatencyOperationLatency(e)
	if lll == 0 {
		t.windows.UpdateCriticalPathTail(e)
		return
	}

	*latency += lll
	t.stats.CPILongLatency += lll
	t.windows.ClearOldWindow(e.ExecTime)
}

// blockWindow is called when a long-latency load blocks the head of the
// window. It marks the micro-ops behind it that can overlap with the miss,
// and issues the independent loads among them.
func (t *Timer) blockWindow() {
	w := t.windows

	var (
		head              *Entry
		headAddress       uint64
		memBarrierPending bool
	)

	for e := range w.window {
		if head == nil {
			head = e
			head.dependence = dependenceIndependent
			if head.Op.MicroOp().IsLoad() {
				headAddress = head.Op.Address & t.lllDepMask
			}
			continue
		}

		e.dependence = dependenceUnknown
		e.overlaps |= overlapICache
		t.stats.ICacheOverlapped++

		static := e.Op.MicroOp()
		if static.IsSerializing {
			break
		}
		if static.IsMemBarrier {
			memBarrierPending = true
		}

		if t.dependsOnMiss(e) {
			e.dependence = dependenceDependent
		}

		// A load from the missing line would hit in the cache model, but
		// cannot complete before the miss.
		if static.IsLoad() && e.Op.Address&t.lllDepMask == headAddress {
			e.dependence = dependenceDependent
		}

		dependent := e.dependence == dependenceDependent
		switch {
		case static.IsBranch && !dependent:
			e.overlaps |= overlapBPred
			t.stats.BPredOverlapped++

		case static.IsLoad() && !dependent && !memBarrierPending &&
			!e.hasOverlap(overlapDCache):
			t.issueMemOp(e)

			hidden := e.Op.ExecLatency
			longLatency := head.Op.ExecLatency
			t.stats.HiddenDCacheLatency += hidden
			if hidden > longLatency {
				t.stats.HiddenLongerDCacheLatency += hidden - longLatency
				t.stats.HiddenLongerDCacheLoads++
			}

			e.overlaps |= overlapDCache
			t.stats.DCacheOverlapped++

			e.dependence = dependenceIndependent
			e.ExecTime = w.CriticalPathHead()
		}
	}
}

// dependsOnMiss reports whether e waits on the load blocking the window,
// directly or through another long-latency load.
func (t *Timer) dependsOnMiss(e *Entry) bool {
	w := t.windows
	op := e.Op

	for i := uint32(0); i < op.NumDependencies(); i++ {
		seq := op.Dependency(i)
		if !w.WindowContains(seq) {
			continue
		}

		producer := w.Instruction(seq)
		switch {
		case producer.dependence == dependenceDependent:
			return true
		case producer.dependence == dependenceIndependent && producer.Op.IsLongLatencyLoad():
			return true
		}
	}

	return false
}
