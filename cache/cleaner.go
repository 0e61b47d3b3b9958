/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package cache

import (
	"sort"
	"time"

	"golang.org/x/exp/rand"
)

// The cleaning engine ages the cache in the background: a periodic pass
// over the recency-ordered LRU list (never the name index) drops expired
// entries and flushed residue, and enforces the memory watermarks by
// evicting live-but-cold nodes. Work per pass is bounded so that lookups
// are never stalled behind a long sweep. Cleaning never fails the caller;
// a pass that cannot make progress just ends and the next one retries.

type CleanerState uint32

const (
	CleanerIdle CleanerState = iota
	CleanerScanning
	CleanerReclaiming
)

var CleanerStateToString = map[CleanerState]string{
	CleanerIdle:       "idle",
	CleanerScanning:   "scanning",
	CleanerReclaiming: "reclaiming",
}

// CleanerState returns the state of the current (or last) cleaning pass.
func (c *Cache) CleanerState() CleanerState {
	return CleanerState(c.state.Load())
}

func (c *Cache) setState(s CleanerState) {
	c.state.Store(uint32(s))
}

// CleanerEngine runs scheduled cleaning passes until stopch is closed.
// An immediate pass can be forced through the kick channel, which Store
// pulls when the record count crosses the high watermark and FlushAll
// pulls to reclaim invalidated nodes. Run this in its own goroutine.
func (c *Cache) CleanerEngine(stopch chan struct{}) {
	// Small startup jitter so several caches in one process do not
	// sweep in lockstep.
	jitter := time.Duration(rand.Int63n(int64(c.opts.CleanInterval)/10 + 1))
	ticker := time.NewTicker(c.opts.CleanInterval + jitter)
	defer ticker.Stop()

	if c.Verbose {
		c.Logger.Printf("CleanerEngine: starting (interval %v, batch %d, watermarks %d/%d)",
			c.opts.CleanInterval, c.opts.CleanBatch, c.opts.LowWater, c.opts.HighWater)
	}

	for {
		select {
		case <-stopch:
			c.Logger.Printf("CleanerEngine: terminating")
			return
		case <-ticker.C:
			c.CleanPass(time.Now())
		case <-c.kickCh:
			c.CleanPass(time.Now())
		}
	}
}

// CleanPass runs one IDLE -> SCANNING -> RECLAIMING -> IDLE cycle: inspect
// up to CleanBatch of the least recently used nodes, expire what is stale,
// reclaim what is dead, then evict cold live nodes while the record count
// sits above the low watermark (only if the high watermark was crossed).
// Returns the number of nodes reclaimed.
func (c *Cache) CleanPass(now time.Time) int {
	c.setState(CleanerScanning)

	batch := c.oldestNodes(c.opts.CleanBatch)
	var dead []*CacheNode
	var reasons []EvictReason
	for _, n := range batch {
		n.mu.Lock()
		stale := n.generation < c.generation.Load()
		if !stale && !n.zombie {
			for t, crr := range n.RRtypes {
				if crr.Expired(now) {
					c.expireRRsetLocked(n, t, crr)
				}
			}
		}
		gone := n.zombie || stale || len(n.RRtypes) == 0
		n.mu.Unlock()

		if gone {
			dead = append(dead, n)
			if stale {
				reasons = append(reasons, EvictFlush)
			} else {
				reasons = append(reasons, EvictTTL)
			}
		}
	}

	c.setState(CleanerReclaiming)
	reclaimed := 0
	for i, n := range dead {
		if c.removeNode(n, reasons[i]) {
			reclaimed++
		}
	}

	if c.recordCount.Load() > int64(c.opts.HighWater) {
		reclaimed += c.evictToLowWater(now)
	}
	if c.opts.MaxNodes > 0 && c.nodeCount.Load() > int64(c.opts.MaxNodes) {
		reclaimed += c.evictOverNodeCap()
	}

	c.lastClean.Store(now.UnixNano())
	c.setState(CleanerIdle)
	if c.Debug && reclaimed > 0 {
		c.Logger.Printf("CleanPass: reclaimed %d nodes, %d records resident",
			reclaimed, c.recordCount.Load())
	}
	return reclaimed
}

// evictToLowWater removes live nodes, oldest access first, until the
// record count is at or below the low watermark. Ties on access time break
// on canonical name order so that eviction is reproducible. Bounded by the
// number of resident nodes; ends early when nothing further can go.
func (c *Cache) evictToLowWater(now time.Time) int {
	evicted := 0
	limit := int(c.nodeCount.Load())

	for c.recordCount.Load() > int64(c.opts.LowWater) && limit > 0 {
		victims := c.oldestNodes(32)
		if len(victims) == 0 {
			break
		}
		sort.SliceStable(victims, func(i, j int) bool {
			ti, tj := victims[i].lastUsed.Load(), victims[j].lastUsed.Load()
			if ti != tj {
				return ti < tj
			}
			return victims[i].Name < victims[j].Name
		})
		for _, n := range victims {
			if c.recordCount.Load() <= int64(c.opts.LowWater) {
				break
			}
			if c.removeNode(n, EvictCapacity) {
				evicted++
			}
			limit--
		}
	}
	return evicted
}

// evictOverNodeCap removes live nodes, oldest access first, until the node
// count is at or below the configured ceiling. Same ordering rules as the
// watermark eviction.
func (c *Cache) evictOverNodeCap() int {
	evicted := 0
	max := int64(c.opts.MaxNodes)

	for c.nodeCount.Load() > max {
		victims := c.oldestNodes(32)
		if len(victims) == 0 {
			break
		}
		sort.SliceStable(victims, func(i, j int) bool {
			ti, tj := victims[i].lastUsed.Load(), victims[j].lastUsed.Load()
			if ti != tj {
				return ti < tj
			}
			return victims[i].Name < victims[j].Name
		})
		progress := 0
		for _, n := range victims {
			if c.nodeCount.Load() <= max {
				break
			}
			if c.removeNode(n, EvictCapacity) {
				progress++
			}
		}
		if progress == 0 {
			break
		}
		evicted += progress
	}
	return evicted
}

// oldestNodes snapshots up to k nodes from the cold end of the LRU list.
// Only the list lock is held while walking; inspection of the nodes
// happens afterwards, so a node vanishing mid-scan is harmless.
func (c *Cache) oldestNodes(k int) []*CacheNode {
	c.lruMu.Lock()
	defer c.lruMu.Unlock()
	nodes := make([]*CacheNode, 0, k)
	for e := c.lru.Back(); e != nil && len(nodes) < k; e = e.Prev() {
		nodes = append(nodes, e.Value.(*CacheNode))
	}
	return nodes
}
