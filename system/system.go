// Package system replays micro-op traces on a multicore system. Each core
// runs in its own goroutine and the cores are kept within one barrier
// quantum of each other.
package system

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/uopsim/timing/barrier"
	"github.com/sarchlab/uopsim/timing/core"
	"github.com/sarchlab/uopsim/timing/latency"
	"github.com/sarchlab/uopsim/trace"
)

// Option configures a System.
type Option func(*System)

// WithMaxInstructions stops each core after n instructions. Zero means no
// limit.
func WithMaxInstructions(n uint64) Option {
	return func(s *System) {
		s.maxInstructions = n
	}
}

// System is a set of cores, each fed by its own trace front end.
type System struct {
	cores     []*core.Core
	frontends []*trace.Frontend
	barrier   *barrier.SkewBarrier

	maxInstructions uint64
}

// NewSystem creates numCores cores from config.
func NewSystem(config *latency.TimingConfig, numCores int, opts ...Option) (*System, error) {
	if numCores < 1 {
		return nil, fmt.Errorf("need at least one core, got %d", numCores)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing config: %w", err)
	}

	s := &System{
		barrier: barrier.NewSkewBarrier(numCores, config.BarrierQuantum),
	}

	for i := 0; i < numCores; i++ {
		c, err := core.NewCore(i, config)
		if err != nil {
			return nil, err
		}

		predictor := trace.NewBranchPredictor(trace.DefaultPredictorConfig())
		s.cores = append(s.cores, c)
		s.frontends = append(s.frontends,
			trace.NewFrontend(c.Pool(), c.Hierarchy(), predictor))
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Cores returns the cores in index order.
func (s *System) Cores() []*core.Core {
	return s.cores
}

// Frontend returns the front end of core i. Its statistics must not be
// read while Run is in progress.
func (s *System) Frontend(i int) *trace.Frontend {
	return s.frontends[i]
}

// BarrierWaits returns how many times core i blocked on a slower core.
func (s *System) BarrierWaits(i int) uint64 {
	return s.barrier.Waits(i)
}

// Run replays traces[i] on core i and returns the first error. A failing
// core cancels the others.
func (s *System) Run(ctx context.Context, traces []io.Reader) error {
	if len(traces) != len(s.cores) {
		return fmt.Errorf("%d traces for %d cores", len(traces), len(s.cores))
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, r := range traces {
		g.Go(func() error {
			return s.replay(ctx, i, r)
		})
	}

	return g.Wait()
}

func (s *System) replay(ctx context.Context, index int, r io.Reader) error {
	defer s.barrier.Leave(index)

	c := s.cores[index]
	frontend := s.frontends[index]
	reader := trace.NewReader(r)

	quantum := s.barrier.Quantum()
	next := quantum

	for n := uint64(0); s.maxInstructions == 0 || n < s.maxInstructions; {
		records, err := reader.ReadInstruction()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("core %d: %w", index, err)
		}

		if idle := records[0].Idle; idle > 0 {
			// The thread was blocked; the core only sees the time pass.
			c.Synchronize(c.Elapsed() + idle)
		} else {
			ops, err := frontend.Translate(records)
			if err != nil {
				return fmt.Errorf("core %d: %w", index, err)
			}
			c.HandleInstruction(ops)
			n++
		}

		if now := c.Elapsed(); now >= next {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("core %d: %w", index, err)
			}
			if err := s.barrier.Advance(ctx, index, now); err != nil {
				return fmt.Errorf("core %d: %w", index, err)
			}
			next = now + quantum
		}
	}

	c.Drain()

	return nil
}

// Stats returns a snapshot of every core's statistics. It is safe to call
// while Run is in progress.
func (s *System) Stats() []core.Stats {
	stats := make([]core.Stats, len(s.cores))
	for i, c := range s.cores {
		stats[i] = c.Stats()
	}
	return stats
}

// Lookup finds a core by index or by ID.
func (s *System) Lookup(key string) (*core.Core, bool) {
	for _, c := range s.cores {
		if c.ID() == key || fmt.Sprint(c.Index()) == key {
			return c, true
		}
	}
	return nil, false
}
