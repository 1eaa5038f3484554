package uop

import "fmt"

// HitWhere records which level of the memory hierarchy served an access.
type HitWhere uint8

// Hit locations, ordered by distance from the core.
const (
	HitUnknown HitWhere = iota
	HitL1I
	HitL1
	HitL2
	HitL3
	HitDRAM

	NumHitWhere
)

var hitWhereNames = [NumHitWhere]string{
	"unknown", "l1i", "l1", "l2", "l3", "dram",
}

func (h HitWhere) String() string {
	if h < NumHitWhere {
		return hitWhereNames[h]
	}
	return fmt.Sprintf("hitwhere(%d)", uint8(h))
}

// AccessKind is the direction of a data access.
type AccessKind uint8

// Access kinds.
const (
	AccessRead AccessKind = iota
	AccessWrite
)

// MemoryAccessor is the timing engines' only view of the memory hierarchy.
// AccessMemory is called exactly once per load or store, when it issues.
type MemoryAccessor interface {
	AccessMemory(
		kind AccessKind,
		addr uint64,
		size uint32,
		now uint64,
	) (latency uint64, hit HitWhere)
}
