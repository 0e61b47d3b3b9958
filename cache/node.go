/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package cache

import (
	"time"
)

// Reference counting is the ownership discipline: a reader that attaches a
// node keeps it from being physically reclaimed until it detaches, no
// matter what flush or expiry do in between. A node that is logically
// removed while referenced goes zombie: out of the index (lookups miss),
// accounting released. Published RRset pointers held by readers stay
// valid; the last Detach finishes the reclamation.

// AttachRRset returns the live, non-expired RRset of the given type at the
// node, incrementing the node's reference count. On found == true the
// caller owns a reference and must call DetachNode when done reading. On
// found == false no reference is retained. A found-but-expired entry and a
// node predating the current flush generation both count as "not found".
func (c *Cache) AttachRRset(n *CacheNode, qtype uint16, now time.Time) (*CachedRRset, bool) {
	n.refs.Add(1)

	n.mu.Lock()
	if n.zombie || n.generation < c.generation.Load() {
		stale := !n.zombie
		n.mu.Unlock()
		c.DetachNode(n)
		if stale {
			// Flushed by a generation bump; reclaim opportunistically
			// instead of waiting for the cleaner to find it.
			c.removeNode(n, EvictFlush)
		}
		return nil, false
	}
	crr, ok := n.RRtypes[qtype]
	if !ok {
		n.mu.Unlock()
		c.DetachNode(n)
		return nil, false
	}
	if crr.Expired(now) {
		c.expireRRsetLocked(n, qtype, crr)
		empty := len(n.RRtypes) == 0
		n.mu.Unlock()
		c.DetachNode(n)
		if empty {
			c.removeNode(n, EvictTTL)
		}
		return nil, false
	}
	n.mu.Unlock()

	c.bumpLRU(n)
	return crr, true
}

// DetachNode releases a reference taken by AttachRRset. Detaching never
// blocks; if this was the last reference to a zombie node, the node is
// finalized here.
func (c *Cache) DetachNode(n *CacheNode) {
	left := n.refs.Add(-1)
	if left < 0 {
		// Unbalanced attach/detach is a locking-discipline bug.
		c.Logger.Panicf("cache: negative refcount on node %s", n.Name)
	}
	if left == 0 {
		n.mu.Lock()
		if n.zombie {
			n.zombie = false
			n.RRtypes = nil
			c.zombies.Add(-1)
		}
		n.mu.Unlock()
	}
}

// UpdateRRset publishes a new RRset for the given type under the trust
// rule: live existing data of strictly higher trust wins and the update is
// dropped. Returns false as well when the node has already been reclaimed,
// in which case the caller should re-insert and retry.
func (c *Cache) UpdateRRset(n *CacheNode, qtype uint16, crr *CachedRRset, now time.Time) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.zombie || n.cleared {
		return false
	}

	// Data that survived a flush generation bump is logically gone;
	// clear it before storing into the node again.
	if gen := c.generation.Load(); n.generation < gen {
		for t, old := range n.RRtypes {
			c.dropAccounting(old)
			delete(n.RRtypes, t)
		}
		n.generation = gen
	}

	if old, ok := n.RRtypes[qtype]; ok {
		if old.Trust > crr.Trust && !old.Expired(now) {
			return false
		}
		c.dropAccounting(old)
	}
	n.RRtypes[qtype] = crr
	c.rrsetCount.Add(1)
	c.recordCount.Add(int64(crr.NumRecords()))
	c.publishSize()
	return true
}

// ExpireRRset drops one type's RRset at the node without touching the
// siblings. If that leaves an unreferenced, empty node behind, the node is
// removed from the index; a referenced node stays for the cleaner.
func (c *Cache) ExpireRRset(n *CacheNode, qtype uint16) {
	n.mu.Lock()
	crr, ok := n.RRtypes[qtype]
	if ok {
		c.expireRRsetLocked(n, qtype, crr)
	}
	empty := ok && len(n.RRtypes) == 0 && !n.zombie
	n.mu.Unlock()

	if empty && n.refs.Load() == 0 {
		c.removeNode(n, EvictTTL)
	}
}

// expireRRsetLocked removes one entry and its accounting. Caller holds n.mu.
func (c *Cache) expireRRsetLocked(n *CacheNode, qtype uint16, crr *CachedRRset) {
	delete(n.RRtypes, qtype)
	c.dropAccounting(crr)
	c.expirations.Add(1)
	c.metrics.Expire()
	if c.Debug {
		c.Logger.Printf("cache: expired %s %s", crr.Name, crr.Context)
	}
}

// dropAccounting releases the rrset/record counters for one entry.
func (c *Cache) dropAccounting(crr *CachedRRset) {
	c.rrsetCount.Add(-1)
	c.recordCount.Add(-int64(crr.NumRecords()))
	c.publishSize()
}

// removeNode takes a node out of the cache: unindexed immediately (so
// lookups miss from this point on), accounting released, and either
// finalized right away or left as a zombie for the last reader to finish.
// Idempotent; only the call that actually unindexes does the bookkeeping.
func (c *Cache) removeNode(n *CacheNode, reason EvictReason) bool {
	if !c.unindex(n) {
		return false
	}

	n.mu.Lock()
	if !n.cleared {
		for _, crr := range n.RRtypes {
			c.dropAccounting(crr)
		}
		n.cleared = true
	}
	if n.refs.Load() > 0 {
		n.zombie = true
		c.zombies.Add(1)
	} else {
		n.RRtypes = nil
	}
	n.mu.Unlock()

	c.evictions.Add(1)
	c.metrics.Evict(reason)
	return true
}

// IsZombie reports whether the node has been logically removed but is
// still held by at least one reader.
func (n *CacheNode) IsZombie() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.zombie
}

// Refs returns the current reference count.
func (n *CacheNode) Refs() int {
	return int(n.refs.Load())
}

// gone reports whether the node has been reclaimed and can no longer
// accept updates.
func (n *CacheNode) gone() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.zombie || n.cleared
}

// liveLocked reports whether the node still holds at least one unexpired
// entry at the current generation. Caller holds n.mu.
func (c *Cache) liveLocked(n *CacheNode, now time.Time) bool {
	if n.zombie || n.generation < c.generation.Load() {
		return false
	}
	for _, crr := range n.RRtypes {
		if !crr.Expired(now) {
			return true
		}
	}
	return false
}
