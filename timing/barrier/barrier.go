// Package barrier keeps the clocks of concurrently simulated cores within
// a bounded skew of each other.
package barrier

import (
	"context"
	"log"
	"sync"
)

// SkewBarrier blocks a core whose local time runs more than one quantum
// ahead of the slowest core that is still active.
type SkewBarrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	quantum uint64

	times  []uint64
	active []bool
	waits  []uint64
}

// NewSkewBarrier creates a barrier for n cores.
func NewSkewBarrier(n int, quantum uint64) *SkewBarrier {
	if quantum == 0 {
		log.Panicf("barrier quantum must be > 0")
	}

	b := &SkewBarrier{
		quantum: quantum,
		times:   make([]uint64, n),
		active:  make([]bool, n),
		waits:   make([]uint64, n),
	}
	b.cond = sync.NewCond(&b.mu)

	for i := range b.active {
		b.active[i] = true
	}

	return b
}

// Quantum returns the maximum skew.
func (b *SkewBarrier) Quantum() uint64 {
	return b.quantum
}

// Advance publishes the local time of core and blocks until it is no more
// than one quantum ahead of every other active core, or ctx is done.
func (b *SkewBarrier) Advance(ctx context.Context, core int, now uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active[core] {
		log.Panicf("core %d advanced after leaving the barrier", core)
	}
	if now < b.times[core] {
		log.Panicf("core %d moved backwards from %d to %d", core, b.times[core], now)
	}

	b.times[core] = now
	b.cond.Broadcast()

	if now <= b.slowest()+b.quantum {
		return nil
	}

	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.cond.Broadcast()
	})
	defer stop()

	b.waits[core]++
	for now > b.slowest()+b.quantum {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.cond.Wait()
	}

	return nil
}

// Leave removes core from the barrier, e.g. when its trace ends. Cores
// waiting on it are released.
func (b *SkewBarrier) Leave(core int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.active[core] = false
	b.cond.Broadcast()
}

// Slowest returns the local time of the slowest active core.
func (b *SkewBarrier) Slowest() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.slowest()
}

// Waits returns how many times core blocked on the barrier.
func (b *SkewBarrier) Waits(core int) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.waits[core]
}

func (b *SkewBarrier) slowest() uint64 {
	var (
		slowest uint64
		found   bool
	)

	for i, t := range b.times {
		if !b.active[i] {
			continue
		}
		if !found || t < slowest {
			slowest, found = t, true
		}
	}

	return slowest
}
