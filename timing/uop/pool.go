package uop

import (
	"log"

	"github.com/sarchlab/uopsim/insts"
	"github.com/sarchlab/uopsim/timing/latency"
)

const poolChunkSize = 1024

// Handle addresses a pool slot. The generation detects use after free.
type Handle struct {
	index uint32
	gen   uint32
}

// Pool is a slab allocator for DynamicMicroOps. Ops never move once
// allocated, so pointers returned by Alloc stay valid until Free.
type Pool struct {
	model  *latency.CoreModel
	chunks [][]DynamicMicroOp
	gens   []uint32
	free   []uint32
	live   int
}

// NewPool creates an empty pool whose ops resolve their timing attributes
// against model.
func NewPool(model *latency.CoreModel) *Pool {
	return &Pool{model: model}
}

// Alloc returns a fresh dynamic instance of static.
func (p *Pool) Alloc(static *insts.MicroOp) *DynamicMicroOp {
	if len(p.free) == 0 {
		p.grow()
	}

	index := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.live++

	d := p.slot(index)
	d.handle = Handle{index: index, gen: p.gens[index]}
	d.init(static, p.model)

	return d
}

// Get resolves a handle. A handle whose op was freed is a fatal error.
func (p *Pool) Get(h Handle) *DynamicMicroOp {
	if int(h.index) >= len(p.gens) || p.gens[h.index] != h.gen {
		log.Panicf("stale micro-op handle %d/%d", h.index, h.gen)
	}
	return p.slot(h.index)
}

// Free returns an op to the pool. Freeing a handle twice is a fatal error.
func (p *Pool) Free(h Handle) {
	if int(h.index) >= len(p.gens) || p.gens[h.index] != h.gen {
		log.Panicf("double free of micro-op handle %d/%d", h.index, h.gen)
	}

	p.gens[h.index]++
	p.free = append(p.free, h.index)
	p.live--
}

// Live returns the number of allocated ops.
func (p *Pool) Live() int {
	return p.live
}

func (p *Pool) slot(index uint32) *DynamicMicroOp {
	return &p.chunks[index/poolChunkSize][index%poolChunkSize]
}

func (p *Pool) grow() {
	base := uint32(len(p.chunks) * poolChunkSize)
	p.chunks = append(p.chunks, make([]DynamicMicroOp, poolChunkSize))
	p.gens = append(p.gens, make([]uint32, poolChunkSize)...)

	for i := poolChunkSize - 1; i >= 0; i-- {
		p.free = append(p.free, base+uint32(i))
	}
}
