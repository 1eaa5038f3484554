// Package core provides the per-core performance model.
// It owns the timing engine selected by the configuration, the core's
// private cache hierarchy and the pool its micro-ops are allocated from.
package core

import (
	"fmt"
	"sync"

	"github.com/rs/xid"

	"github.com/sarchlab/uopsim/timing/cache"
	"github.com/sarchlab/uopsim/timing/interval"
	"github.com/sarchlab/uopsim/timing/latency"
	"github.com/sarchlab/uopsim/timing/rob"
	"github.com/sarchlab/uopsim/timing/uop"
)

// Engine is a micro-op timing engine.
type Engine interface {
	// Simulate consumes the micro-ops of one instruction and returns the
	// instructions retired and cycles elapsed.
	Simulate(ops []*uop.DynamicMicroOp) (instructions, cycles uint64)
	// Drain retires everything still in flight.
	Drain() (instructions, cycles uint64)
	Synchronize(now uint64)
	Now() uint64
	InFlight() int
}

// Stats holds performance statistics for the core.
type Stats struct {
	ID                string            `json:"id"`
	Index             int               `json:"index"`
	Microarchitecture string            `json:"microarchitecture"`
	TimingModel       string            `json:"timing_model"`
	Instructions      uint64            `json:"instructions"`
	Cycles            uint64            `json:"cycles"`
	Uops              uint64            `json:"uops"`
	UopsSquashed      uint64            `json:"uops_squashed"`
	CPI               float64           `json:"cpi"`
	MLP               float64           `json:"mlp"`
	CPIStack          map[string]uint64 `json:"cpi_stack"`
	Done              bool              `json:"done"`
}

// Core is one simulated core.
type Core struct {
	id    xid.ID
	index int

	config *latency.TimingConfig
	model  *latency.CoreModel
	pool   *uop.Pool
	memory *cache.Hierarchy

	mu       sync.Mutex
	engine   Engine
	rob      *rob.Timer
	interval *interval.Timer

	instructions uint64
	done         bool
}

// NewCore creates a core from config. The core keeps its own copy of the
// configuration.
func NewCore(index int, config *latency.TimingConfig) (*Core, error) {
	config = config.Clone()

	model, err := latency.NewCoreModel(config)
	if err != nil {
		return nil, fmt.Errorf("core %d: %w", index, err)
	}

	c := &Core{
		id:     xid.New(),
		index:  index,
		config: config,
		model:  model,
		pool:   uop.NewPool(model),
		memory: cache.NewHierarchy(config),
	}

	switch config.TimingModel {
	case latency.TimingModelInterval:
		c.interval = interval.NewTimer(model, c.memory, c.pool)
		c.engine = c.interval
	default:
		c.rob = rob.NewTimer(model, c.memory, c.pool)
		c.engine = c.rob
	}

	return c, nil
}

// ID returns the unique identifier of the core.
func (c *Core) ID() string {
	return c.id.String()
}

// Index returns the position of the core in the system.
func (c *Core) Index() int {
	return c.index
}

// Model returns the latency model of the core.
func (c *Core) Model() *latency.CoreModel {
	return c.model
}

// Pool returns the pool the front end allocates micro-ops from.
func (c *Core) Pool() *uop.Pool {
	return c.pool
}

// Hierarchy returns the private cache hierarchy of the core.
func (c *Core) Hierarchy() *cache.Hierarchy {
	return c.memory
}

// HandleInstruction times the micro-ops of one machine instruction and
// returns the cycles that elapsed.
func (c *Core) HandleInstruction(ops []*uop.DynamicMicroOp) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, cycles := c.engine.Simulate(ops)
	c.instructions += n

	return cycles
}

// Drain retires the micro-ops still in flight at the end of the stream.
func (c *Core) Drain() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, cycles := c.engine.Drain()
	c.instructions += n
	c.done = true

	return cycles
}

// Elapsed returns the local time of the core.
func (c *Core) Elapsed() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.engine.Now()
}

// Synchronize moves the core's clock forward to now, for example after its
// thread was blocked on a lock. Time never moves backwards.
func (c *Core) Synchronize(now uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.engine.Synchronize(now)
}

// Stats returns a snapshot of the core's statistics. It is safe to call
// while another goroutine runs the core.
func (c *Core) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		ID:                c.ID(),
		Index:             c.index,
		Microarchitecture: c.model.Microarch().String(),
		TimingModel:       c.config.TimingModel,
		Instructions:      c.instructions,
		Cycles:            c.engine.Now(),
		Done:              c.done,
	}

	switch {
	case c.rob != nil:
		rs := c.rob.Stats()
		s.Uops, s.UopsSquashed = rs.Uops, rs.UopsSquashed
		s.MLP = rs.MLP()
		s.CPIStack = rs.CPIStack()
	case c.interval != nil:
		is := c.interval.Stats()
		s.Uops, s.UopsSquashed = is.Uops, is.UopsSquashed
		s.MLP = is.MLP()
		s.CPIStack = is.CPIStack()
	}

	if s.Instructions > 0 {
		s.CPI = float64(s.Cycles) / float64(s.Instructions)
	}

	return s
}

// RobStats returns the detailed counters of the ROB engine, or false if
// the core runs another engine.
func (c *Core) RobStats() (rob.Stats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rob == nil {
		return rob.Stats{}, false
	}
	return c.rob.Stats(), true
}

// IntervalStats returns the detailed counters of the interval engine, or
// false if the core runs another engine.
func (c *Core) IntervalStats() (interval.Stats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interval == nil {
		return interval.Stats{}, false
	}
	return c.interval.Stats(), true
}
