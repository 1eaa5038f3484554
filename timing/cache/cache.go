// Package cache provides a tag-only memory hierarchy built on Akita cache
// directories. It answers where an access hits and how long it takes; it
// holds no data.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/uopsim/timing/uop"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
	// HitLatency in cycles, measured from the core
	HitLatency uint64
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// BackingStore is the next level in the memory hierarchy.
type BackingStore interface {
	// Fetch brings in the line holding addr and reports the latency from
	// the core and the level that served it.
	Fetch(addr uint64) (latency uint64, hit uop.HitWhere)
	// Writeback receives a dirty line evicted from the level above.
	Writeback(addr uint64)
}

// Cache is one level of the hierarchy. It implements BackingStore so
// levels can be chained.
type Cache struct {
	config Config
	level  uop.HitWhere

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	stats   Statistics
	backing BackingStore
}

// New creates a cache that reports hits as level and fetches misses from
// backing.
func New(config Config, level uop.HitWhere, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)

	return &Cache{
		config: config,
		level:  level,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		backing: backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// Read looks up addr, filling the line on a miss.
func (c *Cache) Read(addr uint64) (latency uint64, hit uop.HitWhere) {
	c.stats.Reads++
	return c.access(addr, false)
}

// Write looks up addr with a write-allocate policy and marks the line
// dirty.
func (c *Cache) Write(addr uint64) (latency uint64, hit uop.HitWhere) {
	c.stats.Writes++
	return c.access(addr, true)
}

// Fetch serves a miss from the level above.
func (c *Cache) Fetch(addr uint64) (latency uint64, hit uop.HitWhere) {
	return c.Read(addr)
}

// Writeback installs a dirty line evicted from the level above.
func (c *Cache) Writeback(addr uint64) {
	c.stats.Writes++

	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)
	if block == nil || !block.IsValid {
		block = c.fill(blockAddr)
	}

	block.IsDirty = true
	c.directory.Visit(block)
}

func (c *Cache) access(addr uint64, isWrite bool) (uint64, uop.HitWhere) {
	blockAddr := c.blockAddr(addr)

	block := c.directory.Lookup(0, blockAddr) // PID=0 for now
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block) // Update LRU
		if isWrite {
			block.IsDirty = true
		}
		return c.config.HitLatency, c.level
	}

	c.stats.Misses++

	latency, hit := c.config.HitLatency, c.level
	if c.backing != nil {
		latency, hit = c.backing.Fetch(blockAddr)
	}

	block = c.fill(blockAddr)
	block.IsDirty = isWrite
	c.directory.Visit(block)

	return latency, hit
}

// fill evicts a victim and installs blockAddr in its place.
func (c *Cache) fill(blockAddr uint64) *akitacache.Block {
	victim := c.directory.FindVictim(blockAddr)

	if victim.IsValid {
		c.stats.Evictions++
		if victim.IsDirty && c.backing != nil {
			c.stats.Writebacks++
			c.backing.Writeback(victim.Tag)
		}
	}

	// Tag stores the block-aligned address
	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false

	return victim
}

// Contains reports whether the line holding addr is cached.
func (c *Cache) Contains(addr uint64) bool {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	return block != nil && block.IsValid
}

// Invalidate marks a cache line as invalid.
func (c *Cache) Invalidate(addr uint64) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty blocks and invalidates them.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty && c.backing != nil {
				c.backing.Writeback(block.Tag)
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}
