package latency

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/uopsim/insts"
)

// Timing model names accepted by TimingConfig.TimingModel.
const (
	TimingModelROB      = "rob"
	TimingModelInterval = "interval"
)

// TimingConfig holds the core and memory-hierarchy parameters of one
// simulated core. Defaults describe a Nehalem-class out-of-order core.
type TimingConfig struct {
	// Microarchitecture selects the latency and port tables.
	// One of "nehalem", "cortex-a53", "boom-v1". Default: nehalem.
	Microarchitecture string `json:"microarchitecture"`

	// TimingModel selects the engine. One of "rob", "interval".
	// Default: rob.
	TimingModel string `json:"timing_model"`

	// DispatchWidth is the number of micro-ops dispatched per cycle.
	// Without issue contention it also bounds issue. Default: 4.
	DispatchWidth uint64 `json:"dispatch_width"`

	// CommitWidth is the number of micro-ops retired per cycle.
	// Default: 4.
	CommitWidth uint64 `json:"commit_width"`

	// WindowSize is the reorder buffer capacity in micro-ops.
	// Default: 128.
	WindowSize uint64 `json:"window_size"`

	// RSEntries is the reservation station capacity. Default: 36.
	RSEntries uint64 `json:"rs_entries"`

	// OutstandingLoads is the load queue size, 0 for unbounded.
	// Default: 48.
	OutstandingLoads uint64 `json:"outstanding_loads"`

	// OutstandingStores is the store queue size, 0 for unbounded.
	// Default: 32.
	OutstandingStores uint64 `json:"outstanding_stores"`

	// OutstandingLoadStores is the shared memory queue size used by the
	// interval model, 0 for unbounded. Default: 10.
	OutstandingLoadStores uint64 `json:"outstanding_loadstores"`

	// BranchMispredictPenalty is the front-end refill time after a
	// mispredicted branch resolves. Default: 12 cycles.
	BranchMispredictPenalty uint64 `json:"branch_mispredict_penalty"`

	// LLLCutoff is the latency above which a load counts as long-latency,
	// 0 to disable. Default: 30 cycles.
	LLLCutoff uint64 `json:"lll_cutoff"`

	// InOrder restricts issue to program order. Default: false.
	InOrder bool `json:"in_order"`

	// StoreToLoadForwarding lets loads bypass the store they read from.
	// Default: true.
	StoreToLoadForwarding bool `json:"store_to_load_forwarding"`

	// AddressDisambiguation lets loads issue past stores with unresolved
	// addresses. Default: true.
	AddressDisambiguation bool `json:"address_disambiguation"`

	// IssueContention enables the per-microarchitecture port model.
	// Default: true.
	IssueContention bool `json:"issue_contention"`

	// MemDepGranularity is the address granularity for memory
	// dependencies in bytes. Default: 8.
	MemDepGranularity uint64 `json:"mem_dep_granularity"`

	// LLLDepGranularity is the address granularity used to group
	// long-latency loads in bytes. Default: 64.
	LLLDepGranularity uint64 `json:"lll_dep_granularity"`

	// FunctionalUnitContention enables effective critical path inflation
	// in the interval model. Default: true.
	FunctionalUnitContention bool `json:"functional_unit_contention"`

	// BarrierQuantum is the maximum clock skew between cores.
	// Default: 1000 cycles.
	BarrierQuantum uint64 `json:"barrier_quantum"`

	// LatencyOverrides replaces the instruction latency of an opcode
	// class, keyed by class name (e.g. "div").
	LatencyOverrides map[string]uint64 `json:"latency_overrides,omitempty"`

	// L1HitLatency is the L1 cache hit latency.
	// Default: 4 cycles.
	L1HitLatency uint64 `json:"l1_hit_latency"`

	// L2HitLatency is the L2 cache hit latency.
	// Default: 12 cycles.
	L2HitLatency uint64 `json:"l2_hit_latency"`

	// L3HitLatency is the L3 cache hit latency.
	// Default: 30 cycles.
	L3HitLatency uint64 `json:"l3_hit_latency"`

	// MemoryLatency is the main memory access latency.
	// Default: 150 cycles.
	MemoryLatency uint64 `json:"memory_latency"`

	// StoreLatency is the time a store occupies its queue slot after
	// issue when the hierarchy reports no cost. Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// CacheBlockSize is the line size of every cache level.
	// Default: 64 bytes.
	CacheBlockSize uint64 `json:"cache_block_size"`

	// L1ISize is the instruction cache capacity. Default: 32 KiB.
	L1ISize uint64 `json:"l1i_size"`

	// L1DSize is the data cache capacity. Default: 32 KiB.
	L1DSize uint64 `json:"l1d_size"`

	// L2Size is the unified L2 capacity. Default: 256 KiB.
	L2Size uint64 `json:"l2_size"`

	// L3Size is the L3 capacity, 0 for no L3. Default: 8 MiB.
	L3Size uint64 `json:"l3_size"`
}

// DefaultTimingConfig returns a TimingConfig with Nehalem-class defaults.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		Microarchitecture:        Nehalem.String(),
		TimingModel:              TimingModelROB,
		DispatchWidth:            4,
		CommitWidth:              4,
		WindowSize:               128,
		RSEntries:                36,
		OutstandingLoads:         48,
		OutstandingStores:        32,
		OutstandingLoadStores:    10,
		BranchMispredictPenalty:  12,
		LLLCutoff:                30,
		InOrder:                  false,
		StoreToLoadForwarding:    true,
		AddressDisambiguation:    true,
		IssueContention:          true,
		MemDepGranularity:        8,
		LLLDepGranularity:        64,
		FunctionalUnitContention: true,
		BarrierQuantum:           1000,
		L1HitLatency:             4,
		L2HitLatency:             12,
		L3HitLatency:             30,
		MemoryLatency:            150,
		StoreLatency:             1,
		CacheBlockSize:           64,
		L1ISize:                  32 * 1024,
		L1DSize:                  32 * 1024,
		L2Size:                   256 * 1024,
		L3Size:                   8 * 1024 * 1024,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields absent from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for contradictions.
func (c *TimingConfig) Validate() error {
	if _, err := ParseMicroarch(c.Microarchitecture); err != nil {
		return err
	}
	if c.TimingModel != TimingModelROB && c.TimingModel != TimingModelInterval {
		return fmt.Errorf("timing_model must be %q or %q, got %q",
			TimingModelROB, TimingModelInterval, c.TimingModel)
	}
	if c.DispatchWidth == 0 {
		return fmt.Errorf("dispatch_width must be > 0")
	}
	if c.CommitWidth == 0 {
		return fmt.Errorf("commit_width must be > 0")
	}
	if c.WindowSize < c.DispatchWidth {
		return fmt.Errorf("window_size must be >= dispatch_width")
	}
	if c.RSEntries == 0 {
		return fmt.Errorf("rs_entries must be > 0")
	}
	if c.BranchMispredictPenalty < 2 {
		return fmt.Errorf("branch_mispredict_penalty must be >= 2, got %d",
			c.BranchMispredictPenalty)
	}
	if !isPowerOfTwo(c.MemDepGranularity) {
		return fmt.Errorf("mem_dep_granularity must be a power of two")
	}
	if !isPowerOfTwo(c.LLLDepGranularity) {
		return fmt.Errorf("lll_dep_granularity must be a power of two")
	}
	if c.BarrierQuantum == 0 {
		return fmt.Errorf("barrier_quantum must be > 0")
	}
	if c.L1HitLatency == 0 {
		return fmt.Errorf("l1_hit_latency must be > 0")
	}
	if c.L1HitLatency > c.L2HitLatency || c.L2HitLatency > c.MemoryLatency {
		return fmt.Errorf("cache latencies must not decrease with distance")
	}
	if !isPowerOfTwo(c.CacheBlockSize) {
		return fmt.Errorf("cache_block_size must be a power of two")
	}
	for name, size := range map[string]uint64{
		"l1i_size": c.L1ISize,
		"l1d_size": c.L1DSize,
		"l2_size":  c.L2Size,
	} {
		if size == 0 || size%c.CacheBlockSize != 0 {
			return fmt.Errorf("%s must be a non-zero multiple of cache_block_size", name)
		}
	}
	if c.L3Size%c.CacheBlockSize != 0 {
		return fmt.Errorf("l3_size must be a multiple of cache_block_size")
	}
	for name := range c.LatencyOverrides {
		if _, err := insts.ParseOp(name); err != nil {
			return fmt.Errorf("latency_overrides: %w", err)
		}
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := &TimingConfig{
		Microarchitecture:        c.Microarchitecture,
		TimingModel:              c.TimingModel,
		DispatchWidth:            c.DispatchWidth,
		CommitWidth:              c.CommitWidth,
		WindowSize:               c.WindowSize,
		RSEntries:                c.RSEntries,
		OutstandingLoads:         c.OutstandingLoads,
		OutstandingStores:        c.OutstandingStores,
		OutstandingLoadStores:    c.OutstandingLoadStores,
		BranchMispredictPenalty:  c.BranchMispredictPenalty,
		LLLCutoff:                c.LLLCutoff,
		InOrder:                  c.InOrder,
		StoreToLoadForwarding:    c.StoreToLoadForwarding,
		AddressDisambiguation:    c.AddressDisambiguation,
		IssueContention:          c.IssueContention,
		MemDepGranularity:        c.MemDepGranularity,
		LLLDepGranularity:        c.LLLDepGranularity,
		FunctionalUnitContention: c.FunctionalUnitContention,
		BarrierQuantum:           c.BarrierQuantum,
		L1HitLatency:             c.L1HitLatency,
		L2HitLatency:             c.L2HitLatency,
		L3HitLatency:             c.L3HitLatency,
		MemoryLatency:            c.MemoryLatency,
		StoreLatency:             c.StoreLatency,
		CacheBlockSize:           c.CacheBlockSize,
		L1ISize:                  c.L1ISize,
		L1DSize:                  c.L1DSize,
		L2Size:                   c.L2Size,
		L3Size:                   c.L3Size,
	}

	if c.LatencyOverrides != nil {
		clone.LatencyOverrides = make(map[string]uint64, len(c.LatencyOverrides))
		for k, v := range c.LatencyOverrides {
			clone.LatencyOverrides[k] = v
		}
	}

	return clone
}

func isPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}
