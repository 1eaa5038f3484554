package core_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/uopsim/insts"
	"github.com/sarchlab/uopsim/timing/core"
	"github.com/sarchlab/uopsim/timing/latency"
	"github.com/sarchlab/uopsim/timing/uop"
)

func instruction(c *core.Core, group ...insts.MicroOp) []*uop.DynamicMicroOp {
	statics := make([]insts.MicroOp, len(group))
	copy(statics, group)
	Expect(insts.Finalize(statics)).To(Succeed())

	ops := make([]*uop.DynamicMicroOp, len(statics))
	for i := range statics {
		ops[i] = c.Pool().Alloc(&statics[i])
	}
	return ops
}

func alu(dst insts.Reg, src ...insts.Reg) insts.MicroOp {
	u := insts.MakeExecute(insts.OpALU, false)
	u.SourceRegs = src
	u.DestRegs = []insts.Reg{dst}
	return u
}

func load(dst insts.Reg) insts.MicroOp {
	u := insts.MakeLoad(insts.OpALU, 8)
	u.DestRegs = []insts.Reg{dst}
	return u
}

var _ = Describe("Core", func() {
	var config *latency.TimingConfig

	BeforeEach(func() {
		config = latency.DefaultTimingConfig()
	})

	It("should reject an invalid configuration", func() {
		config.DispatchWidth = 0
		_, err := core.NewCore(0, config)
		Expect(err).To(HaveOccurred())
	})

	It("should give every core its own identity", func() {
		a, err := core.NewCore(0, config)
		Expect(err).NotTo(HaveOccurred())
		b, err := core.NewCore(1, config)
		Expect(err).NotTo(HaveOccurred())

		Expect(a.ID()).NotTo(BeEmpty())
		Expect(a.ID()).NotTo(Equal(b.ID()))
		Expect(b.Index()).To(Equal(1))
	})

	It("should keep its own copy of the configuration", func() {
		c, err := core.NewCore(0, config)
		Expect(err).NotTo(HaveOccurred())

		config.TimingModel = latency.TimingModelInterval
		_, ok := c.RobStats()
		Expect(ok).To(BeTrue())
		Expect(c.Stats().TimingModel).To(Equal(latency.TimingModelROB))
	})

	for _, model := range []string{latency.TimingModelROB, latency.TimingModelInterval} {
		Context("with the "+model+" engine", func() {
			var c *core.Core

			BeforeEach(func() {
				config.TimingModel = model
				var err error
				c, err = core.NewCore(0, config)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should count instructions and cycles", func() {
				var cycles uint64
				for i := 0; i < 100; i++ {
					r := insts.Reg(i % 8)
					cycles += c.HandleInstruction(instruction(c, alu(r, r)))
				}
				cycles += c.Drain()

				s := c.Stats()
				Expect(s.TimingModel).To(Equal(model))
				Expect(s.Microarchitecture).To(Equal("nehalem"))
				Expect(s.Instructions).To(Equal(uint64(100)))
				Expect(s.Uops).To(Equal(uint64(100)))
				Expect(s.Cycles).To(Equal(cycles))
				Expect(s.Cycles).To(Equal(c.Elapsed()))
				Expect(s.CPI).To(BeNumerically(">", 0))
				Expect(s.Done).To(BeTrue())

				var sum uint64
				for _, v := range s.CPIStack {
					sum += v
				}
				Expect(sum).To(Equal(s.Cycles))
				Expect(c.Pool().Live()).To(BeZero())
			})

			It("should access its own cache hierarchy", func() {
				c.HandleInstruction(instruction(c, load(1)))
				c.Drain()

				_, hit := c.Hierarchy().AccessMemory(uop.AccessRead, 0, 8, 0)
				Expect(hit).To(Equal(uop.HitL1))
			})

			It("should synchronize its clock", func() {
				c.Synchronize(500)
				Expect(c.Elapsed()).To(Equal(uint64(500)))
				Expect(func() { c.Synchronize(100) }).To(Panic())
			})

			It("should report stats while running", func() {
				var wg sync.WaitGroup
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					for i := 0; i < 1000; i++ {
						c.HandleInstruction(instruction(c, alu(1, 1)))
					}
					c.Drain()
				}()

				for i := 0; i < 100; i++ {
					s := c.Stats()
					Expect(s.Instructions).To(BeNumerically("<=", 1000))
				}
				wg.Wait()

				Expect(c.Stats().Instructions).To(Equal(uint64(1000)))
			})
		})
	}

	It("should expose the detailed counters of the interval engine", func() {
		config.TimingModel = latency.TimingModelInterval
		c, err := core.NewCore(0, config)
		Expect(err).NotTo(HaveOccurred())

		c.HandleInstruction(instruction(c, load(1)))
		c.Drain()

		s, ok := c.IntervalStats()
		Expect(ok).To(BeTrue())
		Expect(s.LongLatencyLoads).To(Equal(uint64(1)))
		Expect(c.Stats().CPIStack).To(HaveKey("dcache-dram"))

		_, ok = c.RobStats()
		Expect(ok).To(BeFalse())
	})
})
