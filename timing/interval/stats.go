package interval

import (
	"github.com/sarchlab/uopsim/insts"
	"github.com/sarchlab/uopsim/timing/uop"
)

// Stats holds the counters of a Timer.
type Stats struct {
	Uops          uint64
	UopsSquashed  uint64
	UopsBySubtype [insts.NumSubtypes]uint64
	Instructions  uint64
	Cycles        uint64

	CPIBase          uint64
	CPIBranch        uint64
	CPISerialization uint64
	CPILongLatency   uint64
	CPIICache        [uop.NumHitWhere]uint64
	CPIDCache        [uop.NumHitWhere]uint64

	// BaseStopReasons splits CPIBase by the reasons dispatch stopped.
	BaseStopReasons [NumStopReasons]uint64
	// WindowStops counts dispatches after which a unit family was
	// oversubscribed.
	WindowStops [NumWindowStopReasons]uint64

	// CpContrByType and CpContrByPort are in millionths of a critical path.
	CpContrByType [NumCpContrTypes]uint64
	CpContrByPort map[string]uint64

	ICacheOverlapped uint64
	BPredOverlapped  uint64
	DCacheOverlapped uint64

	LongLatencyLoads       uint64
	LongLatencyLoadLatency uint64

	SerializationInsns   uint64
	SerializationLatency uint64
	MemFenceInsns        uint64

	HiddenDCacheLatency       uint64
	HiddenLongerDCacheLatency uint64
	HiddenLongerDCacheLoads   uint64

	OutstandingLongLatencyCycles uint64
	OutstandingLongLatencyInsns  uint64
}

// CPI returns cycles per committed instruction.
func (s *Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// MLP returns the average number of outstanding long-latency loads.
func (s *Stats) MLP() float64 {
	if s.OutstandingLongLatencyCycles == 0 {
		return 0
	}
	return float64(s.OutstandingLongLatencyInsns) /
		float64(s.OutstandingLongLatencyCycles)
}

// CPIStack returns the non-zero CPI components by name. They add up to
// Cycles.
func (s *Stats) CPIStack() map[string]uint64 {
	stack := map[string]uint64{}
	add := func(name string, v uint64) {
		if v > 0 {
			stack[name] = v
		}
	}

	add("base", s.CPIBase)
	add("branch", s.CPIBranch)
	add("serialization", s.CPISerialization)
	add("long-latency", s.CPILongLatency)
	for h := uop.HitWhere(0); h < uop.NumHitWhere; h++ {
		add("icache-"+h.String(), s.CPIICache[h])
		add("dcache-"+h.String(), s.CPIDCache[h])
	}

	return stack
}
