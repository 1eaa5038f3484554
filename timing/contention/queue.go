package contention

// Queue models a structure with a fixed number of outstanding requests,
// such as a load or store queue. Each slot holds the time it becomes free.
//
// A Queue with no slots is unbounded.
type Queue struct {
	slots    []uint64
	lastSeen uint64

	requests   uint64
	totalDelay uint64
}

// NewQueue creates a queue with numOutstanding slots.
func NewQueue(numOutstanding int) *Queue {
	return &Queue{slots: make([]uint64, numOutstanding)}
}

// GetCompletionTime reserves a slot for a request arriving at start that
// takes delay cycles, and returns when it completes.
//
// Requests arriving earlier than the previous one were issued out of order
// and do not see congestion.
func (q *Queue) GetCompletionTime(start, delay uint64) uint64 {
	if len(q.slots) == 0 || start == 0 {
		return start + delay
	}

	if start < q.lastSeen {
		q.requests++
		return start + delay
	}

	slot := q.pickSlot(start)
	begin := max(start, q.slots[slot])
	end := begin + delay

	q.slots[slot] = end
	q.lastSeen = start
	q.requests++
	q.totalDelay += begin - start

	return end
}

func (q *Queue) pickSlot(start uint64) int {
	earliest := 0
	for i, t := range q.slots {
		if t <= start {
			return i
		}
		if t < q.slots[earliest] {
			earliest = i
		}
	}
	return earliest
}

// GetBarrierCompletionTime waits for every outstanding request, then
// occupies all slots for delay cycles.
func (q *Queue) GetBarrierCompletionTime(start, delay uint64) uint64 {
	latest := start
	for _, t := range q.slots {
		latest = max(latest, t)
	}

	end := latest + delay
	for i := range q.slots {
		q.slots[i] = end
	}

	return end
}

// HasFreeSlot reports whether a request could start at now without
// waiting.
func (q *Queue) HasFreeSlot(now uint64) bool {
	if len(q.slots) == 0 {
		return true
	}
	for _, t := range q.slots {
		if t <= now {
			return true
		}
	}
	return false
}

// NumUsed returns the number of slots still busy at now.
func (q *Queue) NumUsed(now uint64) int {
	n := 0
	for _, t := range q.slots {
		if t > now {
			n++
		}
	}
	return n
}

// Requests returns the number of requests seen.
func (q *Queue) Requests() uint64 {
	return q.requests
}

// TotalDelay returns the cycles requests spent waiting for a slot.
func (q *Queue) TotalDelay() uint64 {
	return q.totalDelay
}
