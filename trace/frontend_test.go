package trace_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/uopsim/insts"
	"github.com/sarchlab/uopsim/timing/latency"
	"github.com/sarchlab/uopsim/timing/uop"
	"github.com/sarchlab/uopsim/trace"
)

type fetchResult struct {
	latency uint64
	hit     uop.HitWhere
}

type fakeFetcher map[uint64]fetchResult

func (f fakeFetcher) FetchInstruction(pc uint64) (uint64, uop.HitWhere) {
	if r, ok := f[pc]; ok {
		return r.latency, r.hit
	}
	return 4, uop.HitL1I
}

func loadAddStore(addr uint64) []trace.Record {
	return []trace.Record{
		{PC: 0x1000, Type: "load", AddrRegs: []insts.Reg{2}, Dst: []insts.Reg{3}, Addr: addr, Size: 8, First: true},
		{PC: 0x1000, Op: "alu", Src: []insts.Reg{3, 4}, Dst: []insts.Reg{3}},
		{PC: 0x1000, Type: "store", Src: []insts.Reg{3}, AddrRegs: []insts.Reg{2}, Addr: addr, Size: 8, Last: true},
	}
}

func takenBranch(pc, target uint64) []trace.Record {
	return []trace.Record{
		{PC: pc, Op: "branch", Branch: true, Taken: true, Target: target, First: true, Last: true},
	}
}

var _ = Describe("Frontend", func() {
	var (
		pool      *uop.Pool
		fetcher   fakeFetcher
		predictor *trace.BranchPredictor
		frontend  *trace.Frontend
	)

	BeforeEach(func() {
		pool = uop.NewPool(latency.NewDefaultCoreModel())
		fetcher = fakeFetcher{}
		predictor = trace.NewBranchPredictor(trace.DefaultPredictorConfig())
		frontend = trace.NewFrontend(pool, fetcher, predictor)
	})

	It("should build an instruction from its records", func() {
		ops, err := frontend.Translate(loadAddStore(0x2000))
		Expect(err).NotTo(HaveOccurred())
		Expect(ops).To(HaveLen(3))

		Expect(ops[0].MicroOp().IsLoad()).To(BeTrue())
		Expect(ops[0].Address).To(Equal(uint64(0x2000)))
		Expect(ops[0].First).To(BeTrue())
		Expect(ops[1].MicroOp().IntraDeps).To(Equal(uint32(1)))
		Expect(ops[2].MicroOp().IsStore()).To(BeTrue())
		Expect(ops[2].Last).To(BeTrue())
		Expect(ops[0].ICacheHitWhere).To(Equal(uop.HitL1I))

		s := frontend.Stats()
		Expect(s.Instructions).To(Equal(uint64(1)))
		Expect(s.Uops).To(Equal(uint64(3)))
		Expect(pool.Live()).To(Equal(3))
	})

	It("should share static micro-ops between instances of a PC", func() {
		first, err := frontend.Translate(loadAddStore(0x2000))
		Expect(err).NotTo(HaveOccurred())
		second, err := frontend.Translate(loadAddStore(0x3000))
		Expect(err).NotTo(HaveOccurred())

		Expect(second[1].MicroOp()).To(BeIdenticalTo(first[1].MicroOp()))
		Expect(second[0].Address).To(Equal(uint64(0x3000)))
	})

	It("should rebuild the static micro-ops when a PC changes shape", func() {
		first, err := frontend.Translate(loadAddStore(0x2000))
		Expect(err).NotTo(HaveOccurred())

		records := loadAddStore(0x2000)
		records[1].Op = "mul"
		second, err := frontend.Translate(records)
		Expect(err).NotTo(HaveOccurred())

		Expect(second[1].MicroOp()).NotTo(BeIdenticalTo(first[1].MicroOp()))
		Expect(second[1].MicroOp().Op).To(Equal(insts.OpMUL))
		Expect(first[1].MicroOp().Op).To(Equal(insts.OpALU))
	})

	It("should look up the instruction cache", func() {
		fetcher[0x1000] = fetchResult{latency: 12, hit: uop.HitL2}

		ops, err := frontend.Translate(loadAddStore(0x2000))
		Expect(err).NotTo(HaveOccurred())

		Expect(ops[0].ICacheHitWhere).To(Equal(uop.HitL2))
		Expect(ops[0].ICacheLatency).To(Equal(uint64(12)))
		Expect(ops[1].ICacheHitWhere).To(Equal(uop.HitL1I))
		Expect(frontend.Stats().ICacheMisses).To(Equal(uint64(1)))
	})

	It("should predict branches", func() {
		ops, err := frontend.Translate(takenBranch(0x1000, 0x800))
		Expect(err).NotTo(HaveOccurred())
		Expect(ops[0].BranchMispredicted).To(BeTrue())
		Expect(ops[0].BranchTaken).To(BeTrue())
		Expect(ops[0].BranchTarget).To(Equal(uint64(0x800)))

		ops, err = frontend.Translate(takenBranch(0x1000, 0x800))
		Expect(err).NotTo(HaveOccurred())
		Expect(ops[0].BranchMispredicted).To(BeFalse())

		s := frontend.Stats()
		Expect(s.Branches).To(Equal(uint64(2)))
		Expect(s.Mispredictions).To(Equal(uint64(1)))
	})

	It("should honor a recorded misprediction", func() {
		records := takenBranch(0x1000, 0x800)
		mispredicted := false
		records[0].Mispredicted = &mispredicted

		ops, err := frontend.Translate(records)
		Expect(err).NotTo(HaveOccurred())
		Expect(ops[0].BranchMispredicted).To(BeFalse())
	})

	It("should only mispredict recorded branches without a predictor", func() {
		frontend = trace.NewFrontend(pool, nil, nil)

		ops, err := frontend.Translate(takenBranch(0x1000, 0x800))
		Expect(err).NotTo(HaveOccurred())
		Expect(ops[0].BranchMispredicted).To(BeFalse())
	})

	It("should crack encoded instructions once per PC", func() {
		rec := trace.Record{PC: 0x1000, Insn: 0x14000040, Taken: true}

		ops, err := frontend.Translate([]trace.Record{rec})
		Expect(err).NotTo(HaveOccurred())
		Expect(ops).To(HaveLen(1))
		Expect(ops[0].MicroOp().IsBranch).To(BeTrue())
		Expect(ops[0].BranchTarget).To(Equal(uint64(0x1100)))

		again, err := frontend.Translate([]trace.Record{rec})
		Expect(err).NotTo(HaveOccurred())
		Expect(again[0].MicroOp()).To(BeIdenticalTo(ops[0].MicroOp()))
		Expect(frontend.Stats().Cracked).To(Equal(uint64(1)))
	})

	It("should squash micro-ops and renumber the survivors", func() {
		fetcher[0x1000] = fetchResult{latency: 12, hit: uop.HitL2}
		records := loadAddStore(0x2000)
		records[0].Squashed = true

		ops, err := frontend.Translate(records)
		Expect(err).NotTo(HaveOccurred())

		Expect(ops[0].Squashed).To(BeTrue())
		Expect(ops[1].First).To(BeTrue())
		Expect(ops[2].Last).To(BeTrue())
		Expect(ops[1].ICacheHitWhere).To(Equal(uop.HitL2))
		Expect(frontend.Stats().UopsSquashed).To(Equal(uint64(1)))
	})

	It("should force long-latency loads", func() {
		records := loadAddStore(0x2000)
		records[0].LongLatency = true

		ops, err := frontend.Translate(records)
		Expect(err).NotTo(HaveOccurred())
		Expect(ops[0].IsLongLatencyLoad()).To(BeTrue())
		Expect(ops[2].ForceLongLatencyLoad).To(BeFalse())
	})

	It("should reject malformed instructions", func() {
		_, err := frontend.Translate(nil)
		Expect(err).To(HaveOccurred())

		records := loadAddStore(0x2000)
		records[1].Op = "vpermilps"
		_, err = frontend.Translate(records)
		Expect(err).To(HaveOccurred())

		records = loadAddStore(0x2000)
		records[1].Dst = []insts.Reg{insts.NumRegs}
		_, err = frontend.Translate(records)
		Expect(err).To(HaveOccurred())

		records = loadAddStore(0x2000)
		records[0], records[2] = records[2], records[0]
		_, err = frontend.Translate(records)
		Expect(err).To(HaveOccurred())

		_, err = frontend.Translate([]trace.Record{{PC: 0x1000, Insn: 0xFFFFFFFF}})
		Expect(err).To(HaveOccurred())
	})
})
