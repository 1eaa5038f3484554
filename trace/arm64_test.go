package trace_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/uopsim/insts"
	"github.com/sarchlab/uopsim/trace"
)

var _ = Describe("Crack", func() {
	crack := func(word uint32) (insts.MicroOp, uint64) {
		group, target, err := trace.Crack(word, 0x1000)
		Expect(err).NotTo(HaveOccurred())
		Expect(group).To(HaveLen(1))
		Expect(group[0].First).To(BeTrue())
		Expect(group[0].Last).To(BeTrue())
		Expect(group[0].PC).To(Equal(uint64(0x1000)))
		return group[0], target
	}

	Context("add/sub immediate", func() {
		It("should crack ADD X0, X1, #42", func() {
			u, _ := crack(0x9100A820)
			Expect(u.Op).To(Equal(insts.OpALU))
			Expect(u.IsExecute()).To(BeTrue())
			Expect(u.SourceRegs).To(Equal([]insts.Reg{1}))
			Expect(u.DestRegs).To(Equal([]insts.Reg{0}))
			Expect(u.OperandSize).To(Equal(uint32(64)))
		})

		It("should crack ADD W0, W1, #100 as 32-bit", func() {
			u, _ := crack(0x11019020)
			Expect(u.OperandSize).To(Equal(uint32(32)))
		})

		It("should write the flags for ADDS X2, X3, #10", func() {
			u, _ := crack(0xB1002862)
			Expect(u.SourceRegs).To(Equal([]insts.Reg{3}))
			Expect(u.DestRegs).To(Equal([]insts.Reg{2, trace.RegNZCV}))
		})
	})

	Context("register forms", func() {
		It("should crack ADD X0, X1, X2", func() {
			u, _ := crack(0x8B020020)
			Expect(u.SourceRegs).To(Equal([]insts.Reg{1, 2}))
			Expect(u.DestRegs).To(Equal([]insts.Reg{0}))
		})

		It("should write the flags for SUBS X15, X16, X17", func() {
			u, _ := crack(0xEB11020F)
			Expect(u.SourceRegs).To(Equal([]insts.Reg{16, 17}))
			Expect(u.DestRegs).To(Equal([]insts.Reg{15, trace.RegNZCV}))
		})

		It("should write the flags for ANDS only", func() {
			u, _ := crack(0xEA0800E6)
			Expect(u.DestRegs).To(Equal([]insts.Reg{6, trace.RegNZCV}))

			u, _ = crack(0xAA0B0149) // ORR X9, X10, X11
			Expect(u.SourceRegs).To(Equal([]insts.Reg{10, 11}))
			Expect(u.DestRegs).To(Equal([]insts.Reg{9}))
		})
	})

	Context("branches", func() {
		It("should compute direct branch targets", func() {
			u, target := crack(0x14000040) // B #0x100
			Expect(u.IsBranch).To(BeTrue())
			Expect(u.Subtype).To(Equal(insts.SubtypeBranch))
			Expect(target).To(Equal(uint64(0x1100)))

			_, target = crack(0x17FFFFFE) // B #-0x8
			Expect(target).To(Equal(uint64(0xFF8)))
		})

		It("should link for BL", func() {
			u, target := crack(0x94000080)
			Expect(u.Op).To(Equal(insts.OpCall))
			Expect(u.DestRegs).To(Equal([]insts.Reg{trace.RegLR}))
			Expect(target).To(Equal(uint64(0x1200)))
		})

		It("should read the flags for B.cond", func() {
			u, target := crack(0x54000080) // B.EQ #0x10
			Expect(u.SourceRegs).To(Equal([]insts.Reg{trace.RegNZCV}))
			Expect(target).To(Equal(uint64(0x1010)))
		})

		It("should read the target register of indirect branches", func() {
			u, _ := crack(0xD61F03C0) // BR X30
			Expect(u.Op).To(Equal(insts.OpBranch))
			Expect(u.SourceRegs).To(Equal([]insts.Reg{30}))

			u, _ = crack(0xD63F0140) // BLR X10
			Expect(u.Op).To(Equal(insts.OpCall))
			Expect(u.SourceRegs).To(Equal([]insts.Reg{10}))
			Expect(u.DestRegs).To(Equal([]insts.Reg{trace.RegLR}))

			u, _ = crack(0xD65F03C0) // RET
			Expect(u.SourceRegs).To(Equal([]insts.Reg{trace.RegLR}))
		})
	})

	It("should reject unsupported encodings", func() {
		_, _, err := trace.Crack(0x00000000, 0x1000)
		Expect(err).To(HaveOccurred())
	})
})
