package interval

import (
	"log"

	"github.com/sarchlab/uopsim/timing/latency"
)

// noPort marks a critical path that no port extends.
const noPort = latency.Port(0xFF)

// portBound returns the critical path length the port usage of the old
// window allows, and the port that limits it.
type portBound func(counts []uint64, cp uint64) (uint64, latency.Port)

func boundFor(arch latency.Microarch) portBound {
	switch arch {
	case latency.BoomV1:
		return boomBound
	case latency.CortexA53:
		return rawBound
	default:
		return nehalemBound
	}
}

// singlePortBound applies the one-per-cycle limit of every port that is not
// in shared.
func singlePortBound(counts []uint64, cp uint64, shared ...latency.Port) (uint64, latency.Port) {
	effective, reason := cp, noPort

next:
	for i, n := range counts {
		for _, s := range shared {
			if latency.Port(i) == s {
				continue next
			}
		}

		if effective < n {
			effective, reason = n, latency.Port(i)
		}
	}

	return effective, reason
}

func nehalemBound(counts []uint64, cp uint64) (uint64, latency.Port) {
	effective, reason := singlePortBound(counts, cp,
		latency.NehalemPort05, latency.NehalemPort015)

	port05 := counts[latency.NehalemPort0] + counts[latency.NehalemPort5] +
		counts[latency.NehalemPort05]
	if port05 > 2*effective {
		effective, reason = (port05+1)/2, latency.NehalemPort05
	}

	port015 := counts[latency.NehalemPort0] + counts[latency.NehalemPort1] +
		counts[latency.NehalemPort5] + counts[latency.NehalemPort015]
	if port015 > 3*effective {
		effective, reason = (port015+2)/3, latency.NehalemPort015
	}

	return effective, reason
}

func boomBound(counts []uint64, cp uint64) (uint64, latency.Port) {
	effective, reason := singlePortBound(counts, cp, latency.BoomPort012)

	port012 := counts[latency.BoomPort0] + counts[latency.BoomPort1] +
		counts[latency.BoomPort2] + counts[latency.BoomPort012]
	if port012 > 3*effective {
		effective, reason = (port012+2)/3, latency.BoomPort012
	}

	return effective, reason
}

// The Cortex-A53 is in order; its dual issue is not modeled here.
func rawBound(_ []uint64, cp uint64) (uint64, latency.Port) {
	return cp, noPort
}

// portUsage counts the old window's micro-ops per issue port and
// accumulates the critical path extension attributed to each port.
type portUsage struct {
	bound   portBound
	counts  []uint64
	cpContr []uint64
}

func newPortUsage(arch latency.Microarch) *portUsage {
	return &portUsage{
		bound:   boundFor(arch),
		counts:  make([]uint64, arch.NumPorts()),
		cpContr: make([]uint64, arch.NumPorts()),
	}
}

func (u *portUsage) add(p latency.Port) {
	u.counts[p]++
}

func (u *portUsage) remove(p latency.Port) {
	u.counts[p]--
}

func (u *portUsage) clear() {
	for i := range u.counts {
		u.counts[i] = 0
	}
}

func (u *portUsage) effectiveCriticalPathLength(cp uint64, updateReason bool) uint64 {
	effective, reason := u.bound(u.counts, cp)

	if updateReason && effective > cp {
		if reason == noPort {
			log.Panicf("critical path extended from %d to %d without a port", cp, effective)
		}
		u.cpContr[reason] += 1000000 * (effective - cp) / effective
	}

	return effective
}
