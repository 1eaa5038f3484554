package cache

import "github.com/sarchlab/uopsim/timing/uop"

// Memory is the last level of the hierarchy. Every fetch is served at a
// fixed latency.
type Memory struct {
	latency    uint64
	reads      uint64
	writebacks uint64
}

// NewMemory creates a main memory with the given access latency.
func NewMemory(latency uint64) *Memory {
	return &Memory{latency: latency}
}

// Fetch returns the memory latency.
func (m *Memory) Fetch(uint64) (uint64, uop.HitWhere) {
	m.reads++
	return m.latency, uop.HitDRAM
}

// Writeback counts a line written back to memory.
func (m *Memory) Writeback(uint64) {
	m.writebacks++
}

// Reads returns the number of lines fetched from memory.
func (m *Memory) Reads() uint64 {
	return m.reads
}

// Writebacks returns the number of lines written to memory.
func (m *Memory) Writebacks() uint64 {
	return m.writebacks
}
