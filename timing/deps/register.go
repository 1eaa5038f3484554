// Package deps tracks the last writer of every register and memory address
// so that new micro-ops can be annotated with their producers.
//
// Producers older than the lowest sequence number still in the engine's
// window are treated as resolved and forgotten.
package deps

import (
	"log"

	"github.com/sarchlab/uopsim/insts"
	"github.com/sarchlab/uopsim/timing/uop"
)

// RegisterDependencies maps each architectural register to the sequence
// number of its latest producer.
type RegisterDependencies struct {
	producers [insts.NumRegs]uint64
}

// NewRegisterDependencies creates a tracker with no producers.
func NewRegisterDependencies() *RegisterDependencies {
	r := &RegisterDependencies{}
	r.Clear()
	return r
}

// SetDependencies adds the live producers of op's source and address
// registers as dependencies, then records op as the producer of its
// destination registers.
func (r *RegisterDependencies) SetDependencies(op *uop.DynamicMicroOp, lowestValid uint64) {
	static := op.MicroOp()

	r.addProducers(op, static.SourceRegs, lowestValid)
	r.addProducers(op, static.AddressRegs, lowestValid)

	for _, reg := range static.DestRegs {
		r.check(reg)
		r.producers[reg] = op.SequenceNumber
	}
}

func (r *RegisterDependencies) addProducers(
	op *uop.DynamicMicroOp,
	regs []insts.Reg,
	lowestValid uint64,
) {
	for _, reg := range regs {
		r.check(reg)

		producer := r.producers[reg]
		if producer == uop.InvalidSeq {
			continue
		}

		if producer >= lowestValid {
			op.AddDependency(producer)
		} else {
			r.producers[reg] = uop.InvalidSeq
		}
	}
}

// PeekProducer returns the live producer of reg, or uop.InvalidSeq.
func (r *RegisterDependencies) PeekProducer(reg insts.Reg, lowestValid uint64) uint64 {
	if reg == insts.RegInvalid {
		return uop.InvalidSeq
	}
	r.check(reg)

	producer := r.producers[reg]
	if producer == uop.InvalidSeq || producer < lowestValid {
		return uop.InvalidSeq
	}
	return producer
}

// Clear forgets every producer.
func (r *RegisterDependencies) Clear() {
	for i := range r.producers {
		r.producers[i] = uop.InvalidSeq
	}
}

func (r *RegisterDependencies) check(reg insts.Reg) {
	if int(reg) >= insts.NumRegs {
		log.Panicf("register %d out of range", reg)
	}
}
