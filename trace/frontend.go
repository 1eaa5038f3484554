package trace

import (
	"fmt"
	"slices"

	"github.com/sarchlab/uopsim/insts"
	"github.com/sarchlab/uopsim/timing/uop"
)

// InstructionFetcher looks up instruction fetches, usually in the L1I of a
// cache hierarchy.
type InstructionFetcher interface {
	FetchInstruction(pc uint64) (latency uint64, hit uop.HitWhere)
}

// FrontendStats counts what the front end produced.
type FrontendStats struct {
	Instructions   uint64
	Uops           uint64
	UopsSquashed   uint64
	Cracked        uint64
	ICacheMisses   uint64
	Branches       uint64
	Mispredictions uint64
}

type staticInstruction struct {
	insn   uint32
	target uint64
	group  []insts.MicroOp
}

// Frontend turns trace records into dynamic micro-ops. Static micro-ops
// are built once per PC and shared by every dynamic instance.
type Frontend struct {
	pool      *uop.Pool
	fetcher   InstructionFetcher
	predictor *BranchPredictor

	statics map[uint64]*staticInstruction
	stats   FrontendStats
}

// NewFrontend creates a front end that allocates from pool. fetcher and
// predictor may be nil, in which case every fetch hits and only branches
// whose records say so are mispredicted.
func NewFrontend(
	pool *uop.Pool,
	fetcher InstructionFetcher,
	predictor *BranchPredictor,
) *Frontend {
	return &Frontend{
		pool:      pool,
		fetcher:   fetcher,
		predictor: predictor,
		statics:   map[uint64]*staticInstruction{},
	}
}

// Stats returns the front end statistics.
func (f *Frontend) Stats() FrontendStats {
	return f.stats
}

// Translate returns the dynamic micro-ops of one instruction.
func (f *Frontend) Translate(records []Record) ([]*uop.DynamicMicroOp, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("empty instruction")
	}

	static, err := f.lookup(records)
	if err != nil {
		return nil, err
	}

	ops := make([]*uop.DynamicMicroOp, len(static.group))
	for i := range static.group {
		ops[i] = f.pool.Alloc(&static.group[i])
	}

	firstSquashed := -1
	for i, op := range ops {
		rec := records[min(i, len(records)-1)]
		f.setDynamicInfo(op, static, rec)

		if rec.Squashed {
			op.Squash(ops)
			f.stats.UopsSquashed++
			if firstSquashed < 0 {
				firstSquashed = i
			}
		}
	}
	if firstSquashed >= 0 {
		uop.DoSquashing(ops, firstSquashed)
	}

	for _, op := range ops {
		if !op.Squashed {
			f.fetch(op, records[0].PC)
			break
		}
	}

	f.stats.Instructions++
	f.stats.Uops += uint64(len(ops))

	return ops, nil
}

func (f *Frontend) setDynamicInfo(op *uop.DynamicMicroOp, static *staticInstruction, rec Record) {
	u := op.MicroOp()

	if op.IsMemoryOp() {
		op.Address = rec.Addr
		op.ForceLongLatencyLoad = rec.LongLatency && u.IsLoad()
	}

	if !u.IsBranch {
		return
	}

	target := rec.Target
	if target == 0 && rec.Taken {
		target = static.target
	}
	op.BranchTaken = rec.Taken
	op.BranchTarget = target

	if f.predictor != nil {
		op.BranchMispredicted = f.predictor.Resolve(u.PC, rec.Taken, target)
	}
	if rec.Mispredicted != nil {
		op.BranchMispredicted = *rec.Mispredicted
	}

	f.stats.Branches++
	if op.BranchMispredicted {
		f.stats.Mispredictions++
	}
}

func (f *Frontend) fetch(op *uop.DynamicMicroOp, pc uint64) {
	if f.fetcher == nil {
		return
	}

	lat, hit := f.fetcher.FetchInstruction(pc)
	if hit == uop.HitL1I {
		return
	}

	op.ICacheHitWhere = hit
	op.ICacheLatency = lat
	f.stats.ICacheMisses++
}

func (f *Frontend) lookup(records []Record) (*staticInstruction, error) {
	pc := records[0].PC
	cached := f.statics[pc]

	if insn := records[0].Insn; insn != 0 {
		if cached != nil && cached.insn == insn {
			return cached, nil
		}

		group, target, err := Crack(insn, pc)
		if err != nil {
			return nil, err
		}

		s := &staticInstruction{insn: insn, target: target, group: group}
		f.statics[pc] = s
		f.stats.Cracked++
		return s, nil
	}

	if cached != nil && cached.insn == 0 && matches(cached.group, records) {
		return cached, nil
	}

	group, err := buildGroup(records)
	if err != nil {
		return nil, fmt.Errorf("instruction at 0x%x: %w", pc, err)
	}

	s := &staticInstruction{group: group}
	f.statics[pc] = s
	return s, nil
}

func opClass(rec Record) (insts.Op, error) {
	if rec.Op == "" {
		return insts.OpALU, nil
	}
	return insts.ParseOp(rec.Op)
}

func buildGroup(records []Record) ([]insts.MicroOp, error) {
	group := make([]insts.MicroOp, len(records))

	for i, rec := range records {
		op, err := opClass(rec)
		if err != nil {
			return nil, err
		}
		typ, err := insts.ParseUopType(rec.Type)
		if err != nil {
			return nil, err
		}

		var u insts.MicroOp
		switch typ {
		case insts.UopLoad:
			u = insts.MakeLoad(op, rec.Size)
		case insts.UopStore:
			u = insts.MakeStore(op, rec.Size)
		default:
			u = insts.MakeExecute(op, rec.Branch)
		}

		for _, regs := range [][]insts.Reg{rec.Src, rec.AddrRegs, rec.Dst} {
			for _, r := range regs {
				if r >= insts.NumRegs {
					return nil, fmt.Errorf("register %d out of range", r)
				}
			}
		}

		u.PC = rec.PC
		u.SourceRegs = rec.Src
		u.AddressRegs = rec.AddrRegs
		u.DestRegs = rec.Dst
		u.OperandSize = rec.OperandSize
		u.IsSerializing = rec.Serializing
		u.IsMemBarrier = rec.MemBarrier
		if rec.FP && typ != insts.UopExecute {
			u.IsFpLoadStore = true
		}

		group[i] = u
	}

	if err := insts.Finalize(group); err != nil {
		return nil, err
	}
	return group, nil
}

func matches(group []insts.MicroOp, records []Record) bool {
	if len(group) != len(records) {
		return false
	}

	for i := range group {
		u, rec := &group[i], records[i]

		op, err := opClass(rec)
		if err != nil || op != u.Op {
			return false
		}
		typ, err := insts.ParseUopType(rec.Type)
		if err != nil || typ != u.Type {
			return false
		}

		if u.MemSize != rec.Size && typ != insts.UopExecute ||
			u.IsBranch != (rec.Branch && typ == insts.UopExecute) ||
			u.IsSerializing != rec.Serializing ||
			u.IsMemBarrier != rec.MemBarrier ||
			u.OperandSize != rec.OperandSize ||
			!slices.Equal(u.SourceRegs, rec.Src) ||
			!slices.Equal(u.AddressRegs, rec.AddrRegs) ||
			!slices.Equal(u.DestRegs, rec.Dst) {
			return false
		}
	}

	return true
}
