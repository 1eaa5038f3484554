package cache

import (
	"github.com/sarchlab/uopsim/timing/latency"
	"github.com/sarchlab/uopsim/timing/uop"
)

const (
	l1Associativity = 8
	l2Associativity = 8
	l3Associativity = 16
)

// Hierarchy is the private cache hierarchy of one core: split L1, unified
// L2, an optional L3 and main memory.
type Hierarchy struct {
	L1I    *Cache
	L1D    *Cache
	L2     *Cache
	L3     *Cache
	Memory *Memory

	blockSize    uint64
	storeLatency uint64
}

// NewHierarchy builds a hierarchy from the cache parameters of config.
func NewHierarchy(config *latency.TimingConfig) *Hierarchy {
	block := int(config.CacheBlockSize)

	h := &Hierarchy{
		Memory:       NewMemory(config.MemoryLatency),
		blockSize:    config.CacheBlockSize,
		storeLatency: config.StoreLatency,
	}

	var next BackingStore = h.Memory
	if config.L3Size > 0 {
		h.L3 = New(Config{
			Size:          int(config.L3Size),
			Associativity: l3Associativity,
			BlockSize:     block,
			HitLatency:    config.L3HitLatency,
		}, uop.HitL3, next)
		next = h.L3
	}

	h.L2 = New(Config{
		Size:          int(config.L2Size),
		Associativity: l2Associativity,
		BlockSize:     block,
		HitLatency:    config.L2HitLatency,
	}, uop.HitL2, next)

	h.L1I = New(Config{
		Size:          int(config.L1ISize),
		Associativity: l1Associativity,
		BlockSize:     block,
		HitLatency:    config.L1HitLatency,
	}, uop.HitL1I, h.L2)

	h.L1D = New(Config{
		Size:          int(config.L1DSize),
		Associativity: l1Associativity,
		BlockSize:     block,
		HitLatency:    config.L1HitLatency,
	}, uop.HitL1, h.L2)

	return h
}

// AccessMemory performs a data access. An access that straddles two lines
// costs as much as the slower of them. Stores that hit in the L1 complete
// in the store latency.
func (h *Hierarchy) AccessMemory(
	kind uop.AccessKind,
	addr uint64,
	size uint32,
	_ uint64,
) (uint64, uop.HitWhere) {
	lat, hit := h.accessLine(kind, addr)

	if size > 1 {
		last := addr + uint64(size) - 1
		if last/h.blockSize != addr/h.blockSize {
			lat2, hit2 := h.accessLine(kind, last)
			if lat2 > lat {
				lat, hit = lat2, hit2
			}
		}
	}

	return lat, hit
}

func (h *Hierarchy) accessLine(kind uop.AccessKind, addr uint64) (uint64, uop.HitWhere) {
	if kind == uop.AccessWrite {
		lat, hit := h.L1D.Write(addr)
		if hit == uop.HitL1 {
			lat = h.storeLatency
		}
		return lat, hit
	}
	return h.L1D.Read(addr)
}

// FetchInstruction looks up the line holding pc in the instruction cache.
func (h *Hierarchy) FetchInstruction(pc uint64) (uint64, uop.HitWhere) {
	return h.L1I.Read(pc)
}
