package contention_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/uopsim/insts"
	"github.com/sarchlab/uopsim/timing/contention"
	"github.com/sarchlab/uopsim/timing/latency"
	"github.com/sarchlab/uopsim/timing/uop"
)

func coreModel(arch string) *latency.CoreModel {
	config := latency.DefaultTimingConfig()
	config.Microarchitecture = arch
	m, err := latency.NewCoreModel(config)
	Expect(err).NotTo(HaveOccurred())
	return m
}

// issueAll offers ops in order and returns how many were admitted.
func issueAll(m contention.Model, ops []*uop.DynamicMicroOp) int {
	n := 0
	for _, op := range ops {
		if m.TryIssue(op) {
			m.DoIssue(op)
			n++
		}
	}
	return n
}

var _ = Describe("New", func() {
	It("should pick the strategy of the microarchitecture", func() {
		Expect(contention.New(coreModel("nehalem"))).To(BeAssignableToTypeOf(&contention.Nehalem{}))
		Expect(contention.New(coreModel("cortex-a53"))).To(BeAssignableToTypeOf(&contention.CortexA53{}))
		Expect(contention.New(coreModel("boom-v1"))).To(BeAssignableToTypeOf(&contention.Boom{}))
	})
})

var _ = Describe("Nehalem", func() {
	var (
		model *latency.CoreModel
		pool  *uop.Pool
		m     *contention.Nehalem
	)

	alloc := func(static insts.MicroOp) *uop.DynamicMicroOp {
		s := static
		return pool.Alloc(&s)
	}

	withPort := func(p latency.Port) *uop.DynamicMicroOp {
		op := alloc(insts.MakeExecute(insts.OpALU, false))
		op.Port = p
		return op
	}

	BeforeEach(func() {
		model = coreModel("nehalem")
		pool = uop.NewPool(model)
		m = contention.NewNehalem(model)
		m.InitCycle(1)
	})

	It("should issue at most three generic ALU ops per cycle", func() {
		ops := []*uop.DynamicMicroOp{
			withPort(latency.NehalemPort015),
			withPort(latency.NehalemPort015),
			withPort(latency.NehalemPort015),
			withPort(latency.NehalemPort015),
		}
		Expect(issueAll(m, ops)).To(Equal(3))
	})

	It("should allow one load and one store besides three ALU ops", func() {
		ops := []*uop.DynamicMicroOp{
			alloc(insts.MakeLoad(insts.OpALU, 8)),
			alloc(insts.MakeLoad(insts.OpALU, 8)),
			alloc(insts.MakeStore(insts.OpALU, 8)),
			alloc(insts.MakeStore(insts.OpALU, 8)),
			withPort(latency.NehalemPort015),
			withPort(latency.NehalemPort015),
			withPort(latency.NehalemPort015),
		}
		Expect(issueAll(m, ops)).To(Equal(5))
		Expect(m.NoMore()).To(BeTrue())
	})

	It("should make each fixed port exclusive", func() {
		Expect(m.TryIssue(withPort(latency.NehalemPort1))).To(BeTrue())
		Expect(m.TryIssue(withPort(latency.NehalemPort1))).To(BeFalse())
		Expect(m.TryIssue(withPort(latency.NehalemPort0))).To(BeTrue())
	})

	It("should share ports 0 and 5 with the combined classes", func() {
		Expect(m.TryIssue(withPort(latency.NehalemPort05))).To(BeTrue())
		Expect(m.TryIssue(withPort(latency.NehalemPort05))).To(BeTrue())
		Expect(m.TryIssue(withPort(latency.NehalemPort5))).To(BeFalse())
		Expect(m.TryIssue(withPort(latency.NehalemPort1))).To(BeTrue())
		Expect(m.TryIssue(withPort(latency.NehalemPort015))).To(BeFalse())
	})

	It("should reset ports every cycle", func() {
		Expect(m.TryIssue(withPort(latency.NehalemPort2))).To(BeTrue())
		Expect(m.TryIssue(withPort(latency.NehalemPort2))).To(BeFalse())
		m.InitCycle(2)
		Expect(m.TryIssue(withPort(latency.NehalemPort2))).To(BeTrue())
	})

	It("should keep the divider busy for its ALU latency", func() {
		div := insts.MakeExecute(insts.OpDIV, false)
		div.OperandSize = 32

		first := alloc(div)
		Expect(first.Alu).To(Equal(latency.AluTrig))
		Expect(m.TryIssue(first)).To(BeTrue())
		m.DoIssue(first)

		m.InitCycle(5)
		Expect(m.TryIssue(alloc(div))).To(BeFalse())

		m.InitCycle(10)
		Expect(m.TryIssue(alloc(div))).To(BeTrue())
	})

	It("should not consume a port when the unit is busy", func() {
		div := insts.MakeExecute(insts.OpDIV, false)
		first := alloc(div)
		Expect(m.TryIssue(first)).To(BeTrue())
		m.DoIssue(first)

		m.InitCycle(2)
		Expect(m.TryIssue(alloc(div))).To(BeFalse())
		Expect(issueAll(m, []*uop.DynamicMicroOp{
			withPort(latency.NehalemPort015),
			withPort(latency.NehalemPort015),
			withPort(latency.NehalemPort015),
		})).To(Equal(3))
	})
})

var _ = Describe("Boom", func() {
	var (
		pool *uop.Pool
		m    *contention.Boom
	)

	withPort := func(p latency.Port) *uop.DynamicMicroOp {
		s := insts.MakeExecute(insts.OpALU, false)
		op := pool.Alloc(&s)
		op.Port = p
		return op
	}

	BeforeEach(func() {
		model := coreModel("boom-v1")
		pool = uop.NewPool(model)
		m = contention.NewBoom(model)
		m.InitCycle(1)
	})

	It("should issue at most three ops per cycle", func() {
		ops := []*uop.DynamicMicroOp{
			withPort(latency.BoomPort012),
			withPort(latency.BoomPort0),
			withPort(latency.BoomPort012),
			withPort(latency.BoomPort2),
		}
		Expect(issueAll(m, ops)).To(Equal(3))
		Expect(m.NoMore()).To(BeFalse())
	})

	It("should make the memory port exclusive", func() {
		Expect(m.TryIssue(withPort(latency.BoomPort2))).To(BeTrue())
		Expect(m.TryIssue(withPort(latency.BoomPort2))).To(BeFalse())
		Expect(m.TryIssue(withPort(latency.BoomPort1))).To(BeTrue())
		Expect(m.TryIssue(withPort(latency.BoomPort012))).To(BeTrue())
		Expect(m.NoMore()).To(BeTrue())
	})

	It("should hold the divider for 32 cycles", func() {
		s := insts.MakeExecute(insts.OpDIV, false)
		first := pool.Alloc(&s)
		Expect(m.TryIssue(first)).To(BeTrue())
		m.DoIssue(first)

		m.InitCycle(32)
		Expect(m.TryIssue(pool.Alloc(&s))).To(BeFalse())
		m.InitCycle(33)
		Expect(m.TryIssue(pool.Alloc(&s))).To(BeTrue())
	})
})

var _ = Describe("CortexA53", func() {
	var (
		pool *uop.Pool
		m    *contention.CortexA53
	)

	op := func(p latency.Port, slot latency.IssueSlot) *uop.DynamicMicroOp {
		s := insts.MakeExecute(insts.OpALU, false)
		d := pool.Alloc(&s)
		d.Port = p
		d.IssueSlot = slot
		return d
	}

	BeforeEach(func() {
		model := coreModel("cortex-a53")
		pool = uop.NewPool(model)
		m = contention.NewCortexA53(model)
		m.InitCycle(1)
	})

	It("should dual-issue", func() {
		ops := []*uop.DynamicMicroOp{
			op(latency.A53PortInt, latency.IssueSlot11),
			op(latency.A53PortInt, latency.IssueSlot11),
			op(latency.A53PortLdSt, latency.IssueSlot11),
		}
		Expect(issueAll(m, ops)).To(Equal(2))
		Expect(m.NoMore()).To(BeFalse())
	})

	It("should give a slot-00 op the whole cycle", func() {
		Expect(m.TryIssue(op(latency.A53PortLdSt, latency.IssueSlot00))).To(BeTrue())
		Expect(m.TryIssue(op(latency.A53PortInt, latency.IssueSlot11))).To(BeFalse())
	})

	It("should pin ops to their slot", func() {
		Expect(m.TryIssue(op(latency.A53PortInt, latency.IssueSlot01))).To(BeTrue())
		Expect(m.TryIssue(op(latency.A53PortSIMD, latency.IssueSlot01))).To(BeFalse())
		Expect(m.TryIssue(op(latency.A53PortSIMD, latency.IssueSlot10))).To(BeTrue())
	})

	It("should release the slot when the port is taken", func() {
		Expect(m.TryIssue(op(latency.A53PortBranch, latency.IssueSlot11))).To(BeTrue())
		Expect(m.TryIssue(op(latency.A53PortBranch, latency.IssueSlot11))).To(BeFalse())
		Expect(m.TryIssue(op(latency.A53PortInt, latency.IssueSlot11))).To(BeTrue())
	})

	It("should block integer ops once both integer pipes are taken", func() {
		Expect(m.TryIssue(op(latency.A53PortInt0, latency.IssueSlot11))).To(BeTrue())
		Expect(m.TryIssue(op(latency.A53PortInt1, latency.IssueSlot11))).To(BeTrue())

		m.InitCycle(2)
		Expect(m.TryIssue(op(latency.A53PortInt0, latency.IssueSlot11))).To(BeTrue())
		Expect(m.TryIssue(op(latency.A53PortLdStInt, latency.IssueSlot11))).To(BeTrue())
	})

	It("should keep the divide pipe busy", func() {
		s := insts.MakeExecute(insts.OpDIV, false)
		div := pool.Alloc(&s)
		Expect(div.Port).To(Equal(latency.A53PortInt1))
		Expect(m.TryIssue(div)).To(BeTrue())

		m.InitCycle(2)
		Expect(m.TryIssue(pool.Alloc(&s))).To(BeFalse())
		Expect(m.TryIssue(op(latency.A53PortInt, latency.IssueSlot11))).To(BeTrue())

		m.InitCycle(4)
		Expect(m.TryIssue(pool.Alloc(&s))).To(BeTrue())
	})
})
