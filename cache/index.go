/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package cache

import (
	"slices"
	"sort"
	"time"

	core "github.com/ulfpersson/rcache/core"
)

// The name index has two faces: a concurrent map for exact-match lookup
// and a sorted slice of reverse-label keys for ordered range scans. The
// slice makes "every node at or below X" a contiguous range, which is what
// subtree flush and dump iterate over. There are no parent/child pointers;
// containment is purely a property of the key ordering.

type MatchType uint8

const (
	MatchNone MatchType = iota
	MatchExact
	MatchPartial
)

var MatchTypeToString = map[MatchType]string{
	MatchNone:    "none",
	MatchExact:   "exact",
	MatchPartial: "partial",
}

// Find locates the node for name. With partial set, the node for the
// longest existing ancestor is returned (MatchPartial) when there is no
// exact node. The returned node is not attached; callers that intend to
// read from it must go through AttachRRset.
func (c *Cache) Find(name string, partial bool) (*CacheNode, MatchType) {
	name = core.Canonical(name)
	if n, ok := c.nodes.Get(name); ok {
		return n, MatchExact
	}
	if !partial {
		return nil, MatchNone
	}
	for cur := core.ParentName(name); ; cur = core.ParentName(cur) {
		if n, ok := c.nodes.Get(cur); ok {
			return n, MatchPartial
		}
		if cur == "." {
			return nil, MatchNone
		}
	}
}

// insert returns the node for name, creating it if absent. Creation is
// idempotent; missing ancestors are never physically created (ancestry is
// a naming relationship, not a structural one).
func (c *Cache) insert(name string) *CacheNode {
	name = core.Canonical(name)
	if n, ok := c.nodes.Get(name); ok {
		n.lastUsed.Store(time.Now().UnixNano())
		return n
	}

	rev := core.RevKey(name)

	c.orderMu.Lock()
	// Re-check under the lock: another inserter may have won the race.
	if n, ok := c.nodes.Get(name); ok {
		c.orderMu.Unlock()
		n.lastUsed.Store(time.Now().UnixNano())
		return n
	}
	n := &CacheNode{
		Name:       name,
		revkey:     rev,
		RRtypes:    make(map[uint16]*CachedRRset, 2),
		generation: c.generation.Load(),
		indexed:    true,
	}
	n.lastUsed.Store(time.Now().UnixNano())
	idx := sort.Search(len(c.order), func(i int) bool { return c.order[i].rev >= rev })
	c.order = slices.Insert(c.order, idx, orderEntry{rev: rev, name: name})
	c.nodes.Set(name, n)
	c.orderMu.Unlock()

	c.lruMu.Lock()
	n.elem = c.lru.PushFront(n)
	c.lruMu.Unlock()

	c.nodeCount.Add(1)
	c.publishSize()
	return n
}

// unindex removes the node from both index faces. It reports whether this
// call performed the removal (unindexing is idempotent). The caller must
// not hold the node lock.
func (c *Cache) unindex(n *CacheNode) bool {
	c.orderMu.Lock()
	if !n.indexed {
		c.orderMu.Unlock()
		return false
	}
	n.indexed = false
	idx := sort.Search(len(c.order), func(i int) bool { return c.order[i].rev >= n.revkey })
	if idx < len(c.order) && c.order[idx].rev == n.revkey {
		c.order = slices.Delete(c.order, idx, idx+1)
	}
	c.nodes.Remove(n.Name)
	c.orderMu.Unlock()

	c.lruMu.Lock()
	if n.elem != nil {
		c.lru.Remove(n.elem)
		n.elem = nil
	}
	c.lruMu.Unlock()

	c.nodeCount.Add(-1)
	c.publishSize()
	return true
}

// rangeUnderName returns the indexed nodes whose name is name itself or a
// proper descendant, in reverse-key (hierarchical) order. The result is a
// snapshot of names resolved lazily against the map, so nodes removed
// concurrently simply drop out of the walk instead of failing it. Works
// whether or not a node exists at the apex itself.
func (c *Cache) rangeUnderName(name string) []*CacheNode {
	rev := core.RevKey(name)

	c.orderMu.Lock()
	idx := sort.Search(len(c.order), func(i int) bool { return c.order[i].rev >= rev })
	var names []string
	for ; idx < len(c.order); idx++ {
		k := c.order[idx].rev
		if k != rev && !core.RevKeyBelow(k, rev) {
			break
		}
		names = append(names, c.order[idx].name)
	}
	c.orderMu.Unlock()

	nodes := make([]*CacheNode, 0, len(names))
	for _, nm := range names {
		if n, ok := c.nodes.Get(nm); ok {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// bumpLRU moves the node to the most-recently-used position.
func (c *Cache) bumpLRU(n *CacheNode) {
	n.lastUsed.Store(time.Now().UnixNano())
	c.lruMu.Lock()
	if n.elem != nil {
		c.lru.MoveToFront(n.elem)
	}
	c.lruMu.Unlock()
}
