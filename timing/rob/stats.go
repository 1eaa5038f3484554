package rob

import (
	"github.com/sarchlab/uopsim/insts"
	"github.com/sarchlab/uopsim/timing/uop"
)

// Stats holds the counters of a Timer. Every simulated cycle is charged to
// exactly one CPI component.
type Stats struct {
	Uops          uint64
	UopsSquashed  uint64
	UopsBySubtype [insts.NumSubtypes]uint64
	Instructions  uint64
	Cycles        uint64
	CyclesSkipped uint64

	CPIBase          uint64
	CPIBranch        uint64
	CPIRSFull        uint64
	CPISerialization uint64
	CPIMemFence      uint64
	CPIICache        [uop.NumHitWhere]uint64
	CPIDCache        [uop.NumHitWhere]uint64

	OutstandingLongLatencyCycles uint64
	OutstandingLongLatencyInsns  uint64

	LoadsIssued   uint64
	LoadsLatency  uint64
	StoresIssued  uint64
	StoresLatency uint64
	RSFullCycles  uint64
}

// CPI returns cycles per committed instruction.
func (s *Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// MLP returns the average number of outstanding long-latency loads while
// at least one is outstanding.
func (s *Stats) MLP() float64 {
	if s.OutstandingLongLatencyCycles == 0 {
		return 0
	}
	return float64(s.OutstandingLongLatencyInsns) /
		float64(s.OutstandingLongLatencyCycles)
}

// CPIStack returns the non-zero CPI components by name.
func (s *Stats) CPIStack() map[string]uint64 {
	stack := map[string]uint64{}
	add := func(name string, v uint64) {
		if v > 0 {
			stack[name] = v
		}
	}

	add("base", s.CPIBase)
	add("branch", s.CPIBranch)
	add("rs-full", s.CPIRSFull)
	add("serialization", s.CPISerialization)
	add("memfence", s.CPIMemFence)
	for h := uop.HitWhere(0); h < uop.NumHitWhere; h++ {
		add("icache-"+h.String(), s.CPIICache[h])
		add("dcache-"+h.String(), s.CPIDCache[h])
	}

	return stack
}
