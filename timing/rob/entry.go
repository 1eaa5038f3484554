package rob

import (
	"log"
	"math"

	"github.com/sarchlab/uopsim/timing/uop"
)

// MaxTime marks a timestamp that has not been reached yet.
const MaxTime uint64 = math.MaxUint64

const maxInlineDependants = 8

// entry tracks one micro-op from insertion to commit.
type entry struct {
	op *uop.DynamicMicroOp

	dispatched      uint64
	ready           uint64
	readyMax        uint64
	addressReady    uint64
	addressReadyMax uint64
	issued          uint64
	// done is when the result reaches dependants; retire is when the op
	// may commit, one cycle later.
	done   uint64
	retire uint64

	inlineDependants [maxInlineDependants]*entry
	numInline        int
	spillDependants  []*entry

	addressProducers []uint64
}

func (e *entry) init(op *uop.DynamicMicroOp, seq uint64) {
	e.op = op
	e.op.SequenceNumber = seq

	e.dispatched = 0
	e.ready = MaxTime
	e.readyMax = 0
	e.addressReady = MaxTime
	e.addressReadyMax = 0
	e.issued = MaxTime
	e.done = MaxTime
	e.retire = MaxTime

	e.numInline = 0
	e.spillDependants = e.spillDependants[:0]
	e.addressProducers = e.addressProducers[:0]
}

func (e *entry) addDependant(d *entry) {
	if e.numInline < maxInlineDependants {
		e.inlineDependants[e.numInline] = d
		e.numInline++
		return
	}
	e.spillDependants = append(e.spillDependants, d)
}

func (e *entry) numDependants() int {
	return e.numInline + len(e.spillDependants)
}

func (e *entry) dependant(i int) *entry {
	if i < maxInlineDependants {
		if i >= e.numInline {
			log.Panicf("dependant index %d out of range", i)
		}
		return e.inlineDependants[i]
	}
	return e.spillDependants[i-maxInlineDependants]
}

// buffer is the circular reorder buffer. The first inROB entries have been
// dispatched; the rest wait in the pre-ROB staging area.
type buffer struct {
	entries []entry
	head    int
	size    int
}

func newBuffer(capacity int) *buffer {
	return &buffer{entries: make([]entry, capacity)}
}

func (b *buffer) at(i int) *entry {
	if i >= b.size {
		log.Panicf("ROB index %d beyond %d entries", i, b.size)
	}
	return &b.entries[(b.head+i)%len(b.entries)]
}

func (b *buffer) front() *entry {
	return b.at(0)
}

func (b *buffer) next() *entry {
	if b.size == len(b.entries) {
		log.Panicf("ROB overflow: %d entries in flight", b.size)
	}
	e := &b.entries[(b.head+b.size)%len(b.entries)]
	b.size++
	return e
}

func (b *buffer) pop() {
	b.entries[b.head].op = nil
	b.head = (b.head + 1) % len(b.entries)
	b.size--
}

// find returns the entry holding seq. Sequence numbers in the buffer are
// contiguous.
func (b *buffer) find(seq uint64) *entry {
	first := b.front().op.SequenceNumber
	pos := seq - first
	if seq < first || pos >= uint64(b.size) {
		log.Panicf("sequence number %d outside of ROB [%d, %d)",
			seq, first, first+uint64(b.size))
	}

	e := b.at(int(pos))
	if e.op.SequenceNumber != seq {
		log.Panicf("sequence number %d unexpectedly at ROB position %d (found %d)",
			seq, pos, e.op.SequenceNumber)
	}
	return e
}
