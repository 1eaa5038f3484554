package deps

import (
	"github.com/google/btree"

	"github.com/sarchlab/uopsim/timing/uop"
)

const btreeDegree = 8

// storeBySeq orders in-flight stores by age.
type storeBySeq struct {
	seq, addr uint64
}

func (s storeBySeq) Less(than btree.Item) bool {
	return s.seq < than.(storeBySeq).seq
}

// storeByAddr orders in-flight stores by address, youngest last.
type storeByAddr struct {
	addr, seq uint64
}

func (s storeByAddr) Less(than btree.Item) bool {
	o := than.(storeByAddr)
	if s.addr != o.addr {
		return s.addr < o.addr
	}
	return s.seq < o.seq
}

// MemoryDependencies tracks in-flight stores and the latest memory
// barrier.
type MemoryDependencies struct {
	bySeq  *btree.BTree
	byAddr *btree.BTree
	membar uint64
}

// NewMemoryDependencies creates a tracker with no producers.
func NewMemoryDependencies() *MemoryDependencies {
	m := &MemoryDependencies{}
	m.Clear()
	return m
}

// SetDependencies annotates op with its memory producers. Loads depend on
// the youngest store to the same address, stores become producers, and
// loads, stores and barriers all order behind the latest live barrier.
func (m *MemoryDependencies) SetDependencies(op *uop.DynamicMicroOp, lowestValid uint64) {
	m.clean(lowestValid)

	static := op.MicroOp()
	switch {
	case static.IsLoad():
		if producer := m.find(op.Address); producer != uop.InvalidSeq {
			op.AddDependency(producer)
		}
		m.orderBehindBarrier(op, lowestValid)

	case static.IsStore():
		m.add(op.SequenceNumber, op.Address)
		m.orderBehindBarrier(op, lowestValid)

	case static.IsMemBarrier:
		m.orderBehindBarrier(op, lowestValid)
		m.membar = op.SequenceNumber
	}
}

func (m *MemoryDependencies) orderBehindBarrier(op *uop.DynamicMicroOp, lowestValid uint64) {
	if m.membar != uop.InvalidSeq && m.membar > lowestValid {
		op.AddDependency(m.membar)
	}
}

// NumStores returns the number of tracked stores.
func (m *MemoryDependencies) NumStores() int {
	return m.bySeq.Len()
}

// Clear forgets every producer.
func (m *MemoryDependencies) Clear() {
	m.bySeq = btree.New(btreeDegree)
	m.byAddr = btree.New(btreeDegree)
	m.membar = uop.InvalidSeq
}

func (m *MemoryDependencies) add(seq, addr uint64) {
	m.bySeq.ReplaceOrInsert(storeBySeq{seq: seq, addr: addr})
	m.byAddr.ReplaceOrInsert(storeByAddr{addr: addr, seq: seq})
}

func (m *MemoryDependencies) find(addr uint64) uint64 {
	producer := uop.InvalidSeq

	pivot := storeByAddr{addr: addr, seq: uop.InvalidSeq}
	m.byAddr.DescendLessOrEqual(pivot, func(i btree.Item) bool {
		s := i.(storeByAddr)
		if s.addr == addr {
			producer = s.seq
		}
		return false
	})

	return producer
}

func (m *MemoryDependencies) clean(lowestValid uint64) {
	for m.bySeq.Len() > 0 {
		oldest := m.bySeq.Min().(storeBySeq)
		if oldest.seq >= lowestValid {
			return
		}

		m.bySeq.DeleteMin()
		m.byAddr.Delete(storeByAddr{addr: oldest.addr, seq: oldest.seq})
	}
}
