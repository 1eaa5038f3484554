package rob

import (
	"log"

	"github.com/sarchlab/uopsim/timing/uop"
)

// doDispatch moves up to dispatchWidth ops from the staging area into the
// ROB. It returns the next cycle dispatch can make progress and the CPI
// component this cycle is charged to.
func (t *Timer) doDispatch() (uint64, *uint64) {
	next := MaxTime
	var frontEnd *uint64

	if t.frontendStalledUntil <= t.now {
		dispatched := uint64(0)

		for t.numInROB < t.windowSize && t.numInROB < t.rob.size &&
			dispatched < t.dispatchWidth {
			e := t.rob.at(t.numInROB)
			op := e.op

			if op.ICacheHitWhere != uop.HitL1I {
				if t.inICacheMiss {
					// The miss latency was taken, dispatch now.
					t.inICacheMiss = false
				} else {
					t.frontendStalledUntil = t.now + op.ICacheLatency
					t.inICacheMiss = true
					frontEnd = &t.stats.CPIICache[op.ICacheHitWhere]
					break
				}
			}

			if t.rsUsed == t.rsEntries {
				frontEnd = &t.stats.CPIRSFull
				break
			}

			e.dispatched = t.now
			t.numInROB++
			t.rsUsed++
			dispatched++

			e.ready = max(e.ready, t.now+1)
			if op.MicroOp().IsStore() && e.addressReady != MaxTime {
				e.addressReady = max(e.addressReady, t.now+1)
			}
			next = min(next, e.ready)

			if op.MicroOp().IsBranch && op.BranchMispredicted {
				// Stalled until the branch resolves at issue.
				t.frontendStalledUntil = MaxTime
				frontEnd = &t.stats.CPIBranch
				break
			}
		}

		t.frontendStallComponent = frontEnd
	} else {
		frontEnd = t.frontendStallComponent
	}

	component := t.robHeadComponent()
	switch {
	case frontEnd != nil:
		// Memory and serialization stalls at the head take precedence.
		if component == nil {
			component = frontEnd
		}
	case t.numInROB == t.windowSize:
		if component == nil {
			component = &t.stats.CPIBase
		}
	default:
		component = &t.stats.CPIBase
	}

	if t.numInROB == t.windowSize || t.numInROB == t.rob.size {
		return next, component
	}
	return min(next, max(t.frontendStalledUntil, t.now+1)), component
}

// robHeadComponent returns the CPI component of the oldest op still
// executing, if it is a memory or serializing op.
func (t *Timer) robHeadComponent() *uint64 {
	for i := 0; i < t.numInROB; i++ {
		e := t.rob.at(i)
		if e.retire < t.now {
			continue
		}

		static := e.op.MicroOp()
		switch {
		case static.IsSerializing:
			return &t.stats.CPISerialization
		case static.IsMemBarrier:
			return &t.stats.CPIMemFence
		case static.IsLoad() || static.IsStore():
			return &t.stats.CPIDCache[e.op.DCacheHitWhere]
		default:
			return nil
		}
	}
	return nil
}

// doIssue issues ready ops, oldest first. It returns the earliest ready or
// completion time among the ops in the ROB.
func (t *Timer) doIssue() uint64 {
	var (
		next                = MaxTime
		issued              uint64
		headOfQueue         = true
		noMoreLoad          bool
		noMoreStore         bool
		haveUnresolvedStore bool
	)

	if t.contention != nil {
		t.contention.InitCycle(t.now)
	}

	for i := 0; i < t.numInROB; i++ {
		e := t.rob.at(i)
		op := e.op
		static := op.MicroOp()

		if e.retire != MaxTime {
			next = min(next, e.retire)
			continue
		}
		next = min(next, e.ready)

		canIssue := false
		switch {
		case e.ready > t.now:
			// Waiting on producers.
		case (noMoreLoad && static.IsLoad()) || (noMoreStore && static.IsStore()):
			// Behind a memory barrier.
		case static.IsSerializing:
			if !headOfQueue || t.lastStoreDone > t.now {
				return next
			}
			canIssue = true
		case static.IsMemBarrier:
			if headOfQueue && t.lastStoreDone <= t.now {
				canIssue = true
			} else {
				noMoreLoad, noMoreStore = true, true
			}
		case t.contention == nil && issued == t.dispatchWidth:
			// Issue width equals dispatch width.
		case static.IsLoad() && !t.loadQueue.HasFreeSlot(t.now):
			// Load queue full.
		case static.IsLoad() && t.noAddressDisambiguation && haveUnresolvedStore:
			// Behind a store with an unknown address.
		case static.IsStore() && (!headOfQueue || !t.storeQueue.HasFreeSlot(t.now)):
			// Stores issue from the head only.
		default:
			canIssue = true
		}

		// TryIssue reserves ports, so it goes last.
		if canIssue && t.contention != nil && !t.contention.TryIssue(op) {
			canIssue = false
		}

		if canIssue {
			issued++
			next = min(next, t.issue(e))
			t.accountLongLatencyLoad(e)
		} else {
			headOfQueue = false
			if static.IsStore() && e.addressReady > t.now {
				haveUnresolvedStore = true
			}
			if t.inOrder {
				break
			}
		}

		if t.contention != nil {
			if t.contention.NoMore() {
				break
			}
		} else if issued == t.dispatchWidth {
			break
		}
	}

	return next
}

// issue executes e and wakes up its dependants. It returns the cycle e's
// result is available.
func (t *Timer) issue(e *entry) uint64 {
	op := e.op
	static := op.MicroOp()

	if e.issued != MaxTime {
		log.Panicf("micro-op %d issued twice", op.SequenceNumber)
	}

	if (static.IsLoad() || static.IsStore()) && op.DCacheHitWhere == uop.HitUnknown {
		kind := uop.AccessRead
		if static.IsStore() {
			kind = uop.AccessWrite
		}

		lat, hit := t.memory.AccessMemory(kind, op.Address, static.MemSize, t.now)
		// ExecLatency already holds the bypass latency.
		op.ExecLatency += lat
		op.DCacheHitWhere = hit
	}

	switch {
	case static.IsLoad():
		t.loadQueue.GetCompletionTime(t.now, op.ExecLatency)
		t.stats.LoadsIssued++
		t.stats.LoadsLatency += op.ExecLatency
	case static.IsStore():
		t.storeQueue.GetCompletionTime(t.now, op.ExecLatency)
		t.stats.StoresIssued++
		t.stats.StoresLatency += op.ExecLatency
	}

	done := t.now + max(op.ExecLatency, 1)
	retire := done + 1

	if static.IsStore() {
		t.lastStoreDone = max(t.lastStoreDone, retire)
		// Stores forward their value immediately and leave the ROB once
		// handed to the memory system.
		done = t.now + 1
		retire = t.now + 1

		if e.addressReady > e.ready {
			log.Panicf("store %d: address ready at %d after the store is ready at %d",
				op.SequenceNumber, e.addressReady, e.ready)
		}
	}

	if t.contention != nil {
		t.contention.DoIssue(op)
	}

	e.issued = t.now
	e.done = done
	e.retire = retire
	t.rsUsed--

	for i := 0; i < e.numDependants(); i++ {
		t.wake(e.dependant(i), e, done)
	}

	if static.IsBranch && op.BranchMispredicted {
		// The front end restarts two cycles early so the total penalty
		// matches.
		t.frontendStalledUntil = t.now + max(t.mispredictPenalty, 2) - 2
	}

	return done
}

// wake tells d that producer's result is available at done.
func (t *Timer) wake(d, producer *entry, done uint64) {
	if d.op.NumDependencies() == 0 {
		log.Panicf("micro-op %d woken by %d without dependencies",
			d.op.SequenceNumber, producer.op.SequenceNumber)
	}

	d.readyMax = max(d.readyMax, done)
	d.op.RemoveDependency(producer.op.SequenceNumber)
	if d.op.NumDependencies() == 0 {
		d.ready = d.readyMax
	}

	if !d.op.MicroOp().IsStore() || d.addressReady != MaxTime {
		return
	}

	lowest := t.rob.front().op.SequenceNumber
	ready := true
	for _, seq := range d.addressProducers {
		if seq < lowest {
			continue
		}

		p := t.rob.find(seq)
		if p == producer {
			d.addressReadyMax = max(d.addressReadyMax, done)
		}
		if p.done == MaxTime {
			ready = false
		}
	}

	if ready {
		d.addressReady = d.addressReadyMax
	}
}

// accountLongLatencyLoad adds an issued long-latency load to the
// memory-level parallelism counters. Cycles already covered by an earlier
// load are not counted again.
func (t *Timer) accountLongLatencyLoad(e *entry) {
	op := e.op
	if !op.MicroOp().IsLoad() || !op.IsLongLatencyLoad() || op.DCacheHitWhere == uop.HitL1 {
		return
	}

	t.lastAccountedMemCycle = max(t.lastAccountedMemCycle, t.now)
	done := max(t.now, e.retire)

	t.stats.OutstandingLongLatencyInsns += done - t.now
	if done > t.lastAccountedMemCycle {
		t.stats.OutstandingLongLatencyCycles += done - t.lastAccountedMemCycle
		t.lastAccountedMemCycle = done
	}
}

// doCommit retires up to commitWidth completed ops from the ROB head. It
// returns the head's completion time and the instructions retired.
func (t *Timer) doCommit() (uint64, uint64) {
	var committed, instructions uint64

	for t.rob.size > 0 && t.rob.front().retire <= t.now {
		e := t.rob.front()

		if t.tracer != nil {
			t.tracer.TraceUop(e.op, UopTimes{
				Dispatched: e.dispatched,
				Issued:     e.issued,
				Done:       e.done,
				Committed:  t.now,
			})
		}

		if e.op.Last {
			instructions++
		}

		t.pool.Free(e.op.Handle())
		t.rob.pop()
		t.numInROB--

		committed++
		if committed == t.commitWidth {
			break
		}
	}

	t.checkRSFull()

	if t.rob.size == 0 {
		return MaxTime, instructions
	}
	return t.rob.front().retire, instructions
}
