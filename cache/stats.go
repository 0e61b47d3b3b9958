/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package cache

import (
	"time"
)

// EvictReason classifies why a node left the cache.
type EvictReason uint8

const (
	EvictTTL      EvictReason = iota + 1 // all entries expired
	EvictFlush                          // explicit flush / generation bump
	EvictCapacity                       // LRU eviction under memory pressure
)

var EvictReasonToString = map[EvictReason]string{
	EvictTTL:      "ttl",
	EvictFlush:    "flush",
	EvictCapacity: "capacity",
}

func (r EvictReason) String() string {
	if s, ok := EvictReasonToString[r]; ok {
		return s
	}
	return "unknown"
}

// Metrics is the outbound statistics contract. Implementations must be
// safe for concurrent use. NoopMetrics is the default when no
// observability backend is configured; see metrics/prom for a Prometheus
// adapter.
type Metrics interface {
	Hit()
	Miss()
	Expire()
	Evict(EvictReason)
	Size(nodes, rrsets, records int64)
}

type NoopMetrics struct{}

func (NoopMetrics) Hit()                              {}
func (NoopMetrics) Miss()                             {}
func (NoopMetrics) Expire()                           {}
func (NoopMetrics) Evict(EvictReason)                 {}
func (NoopMetrics) Size(nodes, rrsets, records int64) {}

var _ Metrics = NoopMetrics{}

// publishSize pushes the resident counters to the metrics backend.
func (c *Cache) publishSize() {
	c.metrics.Size(c.nodeCount.Load(), c.rrsetCount.Load(), c.recordCount.Load())
}

// CacheStats is a point-in-time snapshot of the cache counters. The
// resident counts include flushed-but-unreclaimed residue; the Live*
// counts (computed via the dump walk) do not.
type CacheStats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
	Zombies     int64
	Nodes       int64
	RRsets      int64
	Records     int64
	Generation  uint64
	BootTime    time.Time
	LastClean   time.Time
}

func (c *Cache) Stats() CacheStats {
	var lastClean time.Time
	if ns := c.lastClean.Load(); ns != 0 {
		lastClean = time.Unix(0, ns)
	}
	return CacheStats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
		Zombies:     c.zombies.Load(),
		Nodes:       c.nodeCount.Load(),
		RRsets:      c.rrsetCount.Load(),
		Records:     c.recordCount.Load(),
		Generation:  c.generation.Load(),
		BootTime:    c.BootTime,
		LastClean:   lastClean,
	}
}
