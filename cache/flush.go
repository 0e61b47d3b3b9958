/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package cache

import (
	"fmt"
	"time"

	core "github.com/ulfpersson/rcache/core"
)

// Flush operations run on the caller's goroutine and are synchronous from
// the control channel's point of view. Absence is never an error: flushing
// a name that holds nothing is an idempotent no-op success, matching the
// "delete if exists" semantics operators expect.

// FlushAll invalidates the entire cache in O(1) by bumping the flush
// generation. Every node stamped with an older generation is a miss from
// this moment on; physical reclamation is left to the cleaning engine,
// which gets kicked immediately. Returns the number of resident nodes that
// were invalidated.
func (c *Cache) FlushAll() int {
	resident := int(c.nodeCount.Load())
	c.generation.Add(1)
	if c.Verbose {
		c.Logger.Printf("cache: flushed all (%d resident nodes, generation now %d)",
			resident, c.generation.Load())
	}
	select {
	case c.kickCh <- struct{}{}:
	default:
	}
	return resident
}

// FlushName removes all RRsets at exactly name. Ancestors and descendants
// are untouched. Returns the number of RRsets removed; zero with a nil
// error when the name held nothing.
func (c *Cache) FlushName(name string) (int, error) {
	name = core.Canonical(name)
	if !core.ValidName(name) {
		return 0, fmt.Errorf("flushname: not a valid domain name: %q", name)
	}

	n, ok := c.nodes.Get(name)
	if !ok {
		return 0, nil
	}
	removed := c.countLive(n, time.Now())
	c.removeNode(n, EvictFlush)
	if c.Verbose {
		c.Logger.Printf("cache: flushed name %s (%d rrsets)", name, removed)
	}
	return removed, nil
}

// FlushTree removes the node at name (if any) and every descendant. The
// apex does not need to exist: flushing from a nonexistent interior name
// still clears all real descendants, because the range scan is keyed on
// name containment rather than node existence. Ancestors are untouched.
// Iteration removes one node at a time at node-lock granularity, so
// concurrent lookups for unrelated names are never stalled.
func (c *Cache) FlushTree(name string) (int, error) {
	name = core.Canonical(name)
	if !core.ValidName(name) {
		return 0, fmt.Errorf("flushtree: not a valid domain name: %q", name)
	}

	now := time.Now()
	removed := 0
	for _, n := range c.rangeUnderName(name) {
		removed += c.countLive(n, now)
		c.removeNode(n, EvictFlush)
	}
	if c.Verbose {
		c.Logger.Printf("cache: flushed tree %s (%d rrsets)", name, removed)
	}
	return removed, nil
}

// countLive counts the node's unexpired, current-generation RRsets.
func (c *Cache) countLive(n *CacheNode, now time.Time) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.zombie || n.generation < c.generation.Load() {
		return 0
	}
	count := 0
	for _, crr := range n.RRtypes {
		if !crr.Expired(now) {
			count++
		}
	}
	return count
}
