package deps_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/uopsim/insts"
	"github.com/sarchlab/uopsim/timing/deps"
	"github.com/sarchlab/uopsim/timing/latency"
	"github.com/sarchlab/uopsim/timing/uop"
)

var _ = Describe("MemoryDependencies", func() {
	var (
		pool *uop.Pool
		mem  *deps.MemoryDependencies
	)

	load := func(seq, addr uint64) *uop.DynamicMicroOp {
		static := insts.MakeLoad(insts.OpALU, 8)
		op := pool.Alloc(&static)
		op.SequenceNumber = seq
		op.Address = addr
		return op
	}

	store := func(seq, addr uint64) *uop.DynamicMicroOp {
		static := insts.MakeStore(insts.OpALU, 8)
		op := pool.Alloc(&static)
		op.SequenceNumber = seq
		op.Address = addr
		return op
	}

	fence := func(seq uint64) *uop.DynamicMicroOp {
		static := insts.MakeExecute(insts.OpFence, false)
		static.IsMemBarrier = true
		op := pool.Alloc(&static)
		op.SequenceNumber = seq
		return op
	}

	BeforeEach(func() {
		pool = uop.NewPool(latency.NewDefaultCoreModel())
		mem = deps.NewMemoryDependencies()
	})

	It("should link a load to the youngest store to its address", func() {
		mem.SetDependencies(store(0, 0x100), 0)
		mem.SetDependencies(store(1, 0x200), 0)
		mem.SetDependencies(store(2, 0x100), 0)

		l := load(3, 0x100)
		mem.SetDependencies(l, 0)

		Expect(l.NumDependencies()).To(Equal(uint32(1)))
		Expect(l.Dependency(0)).To(Equal(uint64(2)))
	})

	It("should not link loads to other addresses", func() {
		mem.SetDependencies(store(0, 0x100), 0)

		l := load(1, 0x108)
		mem.SetDependencies(l, 0)

		Expect(l.NumDependencies()).To(BeZero())
	})

	It("should drop stores that left the window", func() {
		mem.SetDependencies(store(0, 0x100), 0)
		mem.SetDependencies(store(1, 0x200), 0)

		l := load(5, 0x100)
		mem.SetDependencies(l, 1)

		Expect(l.NumDependencies()).To(BeZero())
		Expect(mem.NumStores()).To(Equal(1))
	})

	It("should order memory operations behind barriers", func() {
		mem.SetDependencies(fence(1), 0)

		l := load(2, 0x100)
		mem.SetDependencies(l, 0)
		s := store(3, 0x100)
		mem.SetDependencies(s, 0)
		f := fence(4)
		mem.SetDependencies(f, 0)

		Expect(l.Dependency(0)).To(Equal(uint64(1)))
		Expect(s.Dependency(0)).To(Equal(uint64(1)))
		Expect(f.Dependency(0)).To(Equal(uint64(1)))

		after := load(5, 0x300)
		mem.SetDependencies(after, 0)
		Expect(after.Dependency(0)).To(Equal(uint64(4)))
	})

	It("should ignore barriers at the head of the window", func() {
		mem.SetDependencies(fence(3), 0)

		l := load(4, 0x100)
		mem.SetDependencies(l, 3)

		Expect(l.NumDependencies()).To(BeZero())
	})

	It("should ignore plain execute ops", func() {
		static := insts.MakeExecute(insts.OpALU, false)
		op := pool.Alloc(&static)
		op.SequenceNumber = 0
		mem.SetDependencies(op, 0)

		Expect(op.NumDependencies()).To(BeZero())
		Expect(mem.NumStores()).To(BeZero())
	})

	It("should forget everything on Clear", func() {
		mem.SetDependencies(store(0, 0x100), 0)
		mem.Clear()

		l := load(1, 0x100)
		mem.SetDependencies(l, 0)
		Expect(l.NumDependencies()).To(BeZero())
	})
})
