// Package uop defines the dynamic micro-op record shared by the timing
// engines and the pool it is allocated from.
package uop

import (
	"log"
	"math"

	"github.com/sarchlab/uopsim/insts"
	"github.com/sarchlab/uopsim/timing/latency"
)

// MaxDependencies is the capacity of the explicit producer list.
const MaxDependencies = 8

// InvalidSeq marks an absent sequence number.
const InvalidSeq uint64 = math.MaxUint64

// DynamicMicroOp is one dynamically executed instance of a static micro-op.
type DynamicMicroOp struct {
	static *insts.MicroOp

	// SequenceNumber is assigned by the engine when the op enters its
	// window.
	SequenceNumber uint64

	deps          [MaxDependencies]uint64
	numDeps       uint32
	intraDeps     uint32
	typeOffset    uint32
	squashedCount uint32

	// ExecLatency starts as the instruction latency (or the bypass latency
	// for loads and stores) and grows by the memory latency at issue.
	ExecLatency uint64

	Squashed bool
	First    bool
	Last     bool

	BranchTaken        bool
	BranchMispredicted bool
	BranchTarget       uint64

	Address        uint64
	DCacheHitWhere HitWhere
	ICacheHitWhere HitWhere
	ICacheLatency  uint64

	ForceLongLatencyLoad bool

	Port      latency.Port
	Alu       latency.AluClass
	Bypass    latency.Bypass
	IssueSlot latency.IssueSlot

	lllCutoff uint64
	handle    Handle
}

func (d *DynamicMicroOp) init(static *insts.MicroOp, model *latency.CoreModel) {
	*d = DynamicMicroOp{
		static:         static,
		SequenceNumber: InvalidSeq,
		intraDeps:      static.IntraDeps,
		typeOffset:     static.TypeOffset,
		First:          static.First,
		Last:           static.Last,
		DCacheHitWhere: HitUnknown,
		ICacheHitWhere: HitL1I,
		Port:           model.Port(static),
		Alu:            model.Alu(static),
		Bypass:         model.BypassClass(static),
		IssueSlot:      model.IssueSlot(static),
		lllCutoff:      model.LongLatencyCutoff(),
		handle:         d.handle,
	}

	if static.IsLoad() || static.IsStore() {
		d.ExecLatency = model.BypassLatency(d.Bypass)
	} else {
		d.ExecLatency = model.InstructionLatency(static)
	}
}

// MicroOp returns the static micro-op this is an instance of.
func (d *DynamicMicroOp) MicroOp() *insts.MicroOp {
	return d.static
}

// Handle returns the pool handle of the op.
func (d *DynamicMicroOp) Handle() Handle {
	return d.handle
}

// TypeOffset returns the position of the op among the unsquashed ops of
// the same type in its instruction.
func (d *DynamicMicroOp) TypeOffset() uint32 {
	return d.typeOffset
}

// IntraDependencies returns the number of remaining intra-instruction
// dependencies.
func (d *DynamicMicroOp) IntraDependencies() uint32 {
	return d.intraDeps
}

// NumDependencies returns the number of outstanding producers.
func (d *DynamicMicroOp) NumDependencies() uint32 {
	return d.intraDeps + d.numDeps
}

func (d *DynamicMicroOp) intraBase() uint64 {
	return d.SequenceNumber - uint64(d.typeOffset) - uint64(d.intraDeps)
}

// Dependency returns the sequence number of the i-th producer. Intra-
// instruction producers come first and are addressed relative to the op's
// own sequence number.
func (d *DynamicMicroOp) Dependency(i uint32) uint64 {
	if i < d.intraDeps {
		return d.intraBase() + uint64(i)
	}

	j := i - d.intraDeps
	if j >= d.numDeps {
		log.Panicf("uop %d: dependency index %d out of range (%d deps)",
			d.SequenceNumber, i, d.NumDependencies())
	}
	return d.deps[j]
}

// AddDependency records an inter-instruction producer. Duplicates are
// ignored.
func (d *DynamicMicroOp) AddDependency(seq uint64) {
	for i := uint32(0); i < d.numDeps; i++ {
		if d.deps[i] == seq {
			return
		}
	}

	if d.numDeps == MaxDependencies {
		log.Panicf("uop %d: more than %d dependencies", d.SequenceNumber, MaxDependencies)
	}

	d.deps[d.numDeps] = seq
	d.numDeps++
}

// RemoveDependency drops a resolved producer. Intra-instruction producers
// ahead of the target are first moved to the explicit list so that the
// relative addressing of the remaining ones stays valid.
func (d *DynamicMicroOp) RemoveDependency(seq uint64) {
	if d.intraDeps > 0 && seq >= d.intraBase() && seq < d.SequenceNumber {
		for d.intraDeps > 0 && seq != d.intraBase() {
			if d.numDeps == MaxDependencies {
				log.Panicf("uop %d: more than %d dependencies", d.SequenceNumber, MaxDependencies)
			}
			d.deps[d.numDeps] = d.intraBase()
			d.numDeps++
			d.intraDeps--
		}

		if d.intraDeps == 0 {
			log.Panicf("uop %d: intra-instruction dependency %d not found",
				d.SequenceNumber, seq)
		}

		d.intraDeps--
		return
	}

	for i := uint32(0); i < d.numDeps; i++ {
		if d.deps[i] == seq {
			d.deps[i] = d.deps[d.numDeps-1]
			d.numDeps--
			return
		}
	}

	log.Panicf("uop %d: dependency list does not contain %d", d.SequenceNumber, seq)
}

// IsLongLatencyLoad reports whether the load's latency exceeds the
// long-latency cutoff, or the front end forced the classification.
func (d *DynamicMicroOp) IsLongLatencyLoad() bool {
	return d.ForceLongLatencyLoad ||
		(d.lllCutoff > 0 && d.ExecLatency > d.lllCutoff)
}

// IsMemoryOp returns true for loads and stores.
func (d *DynamicMicroOp) IsMemoryOp() bool {
	return d.static.IsLoad() || d.static.IsStore()
}

// Squash removes the op from the timing stream. If batch is the op's
// instruction, First and Last are moved to the surviving ops.
func (d *DynamicMicroOp) Squash(batch []*DynamicMicroOp) {
	d.Squashed = true

	for _, op := range batch {
		if !op.Squashed {
			op.First = true
			break
		}
	}

	for i := len(batch) - 1; i >= 0; i-- {
		if !batch[i].Squashed {
			batch[i].Last = true
			break
		}
	}
}

// DoSquashing renumbers the type offsets of an instruction after some of
// its ops were squashed, and shrinks intra-instruction dependency counts so
// they only cover surviving producers.
func DoSquashing(batch []*DynamicMicroOp, firstSquashed int) {
	var (
		squashed   uint32
		typeOffset uint32
		curType    = insts.UopType(math.MaxUint8)
	)

	for _, op := range batch {
		if op.Squashed {
			squashed++
		} else {
			if op.static.Type != curType {
				curType = op.static.Type
				typeOffset = 0
			}
			op.typeOffset = typeOffset
			typeOffset++
		}
		op.squashedCount = squashed
	}

	for i := firstSquashed; i < len(batch); i++ {
		op := batch[i]
		if op.Squashed || op.intraDeps == 0 {
			continue
		}

		base := i - int(op.static.TypeOffset)
		if base < int(op.intraDeps) {
			log.Panicf("uop %d: %d intra-instruction dependencies exceed position %d",
				i, op.intraDeps, base)
		}

		op.intraDeps -= squashedBefore(batch, base) -
			squashedBefore(batch, base-int(op.intraDeps))
	}
}

// squashedBefore counts the squashed ops in batch[:i].
func squashedBefore(batch []*DynamicMicroOp, i int) uint32 {
	if i == 0 {
		return 0
	}
	return batch[i-1].squashedCount
}
