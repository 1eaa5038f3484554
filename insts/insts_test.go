package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/uopsim/insts"
)

var _ = Describe("Op", func() {
	It("should round-trip opcode names", func() {
		for op := insts.OpUnknown; op < insts.NumOps; op++ {
			parsed, err := insts.ParseOp(op.String())
			Expect(err).ToNot(HaveOccurred())
			Expect(parsed).To(Equal(op))
		}
	})

	It("should reject unknown names", func() {
		_, err := insts.ParseOp("vpermilps")
		Expect(err).To(HaveOccurred())
	})

	It("should classify FP families", func() {
		Expect(insts.OpFADD.IsFPAddSub()).To(BeTrue())
		Expect(insts.OpFDIV.IsFPMulDiv()).To(BeTrue())
		Expect(insts.OpFMOV.IsFP()).To(BeTrue())
		Expect(insts.OpMUL.IsFP()).To(BeFalse())
	})
})

var _ = Describe("MicroOp", func() {
	It("should derive subtypes", func() {
		Expect(insts.MakeLoad(insts.OpALU, 8).Subtype).To(Equal(insts.SubtypeLoad))
		Expect(insts.MakeStore(insts.OpALU, 8).Subtype).To(Equal(insts.SubtypeStore))
		Expect(insts.MakeExecute(insts.OpBranch, true).Subtype).To(Equal(insts.SubtypeBranch))
		Expect(insts.MakeExecute(insts.OpFADD, false).Subtype).To(Equal(insts.SubtypeFpAddSub))
		Expect(insts.MakeExecute(insts.OpFSQRT, false).Subtype).To(Equal(insts.SubtypeFpMulDiv))
		Expect(insts.MakeExecute(insts.OpDIV, false).Subtype).To(Equal(insts.SubtypeGeneric))
	})

	It("should mark FP loads and stores", func() {
		Expect(insts.MakeLoad(insts.OpFMUL, 8).IsFpLoadStore).To(BeTrue())
		Expect(insts.MakeStore(insts.OpALU, 8).IsFpLoadStore).To(BeFalse())
	})

	It("should make a standalone dynamic micro-op", func() {
		u := insts.MakeDynamic()
		Expect(u.IsExecute()).To(BeTrue())
		Expect(u.First).To(BeTrue())
		Expect(u.Last).To(BeTrue())
		Expect(u.IntraDeps).To(BeZero())
	})
})

var _ = Describe("Finalize", func() {
	It("should lay out a load-execute-store instruction", func() {
		group := []insts.MicroOp{
			insts.MakeLoad(insts.OpALU, 8),
			insts.MakeLoad(insts.OpALU, 8),
			insts.MakeExecute(insts.OpALU, false),
			insts.MakeStore(insts.OpALU, 8),
			insts.MakeStore(insts.OpALU, 8),
		}

		Expect(insts.Finalize(group)).To(Succeed())

		Expect(group[0].First).To(BeTrue())
		Expect(group[4].Last).To(BeTrue())
		Expect(group[2].First || group[2].Last).To(BeFalse())

		Expect(group[1].TypeOffset).To(Equal(uint32(1)))
		Expect(group[2].TypeOffset).To(Equal(uint32(0)))
		Expect(group[4].TypeOffset).To(Equal(uint32(1)))

		Expect(group[0].IntraDeps).To(Equal(uint32(0)))
		Expect(group[2].IntraDeps).To(Equal(uint32(2)))
		Expect(group[3].IntraDeps).To(Equal(uint32(1)))
		Expect(group[4].IntraDeps).To(Equal(uint32(1)))
	})

	It("should reject out-of-order groups", func() {
		group := []insts.MicroOp{
			insts.MakeExecute(insts.OpALU, false),
			insts.MakeLoad(insts.OpALU, 8),
		}
		Expect(insts.Finalize(group)).ToNot(Succeed())
	})

	It("should reject an empty group", func() {
		Expect(insts.Finalize(nil)).ToNot(Succeed())
	})
})
