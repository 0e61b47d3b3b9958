/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package cache

import (
	"time"

	"github.com/miekg/dns"
	"github.com/twotwotwo/sorts"

	core "github.com/ulfpersson/rcache/core"
)

// The dump contract: a lazily produced, name-ordered walk over every live
// node, handing the serialization collaborator one node at a time. No
// global lock is held while the callback runs; nodes and entries that die
// mid-walk simply do not appear. Reported TTLs are remaining time, capped
// at the configured report ceiling.

type DumpRRset struct {
	Name    string   `json:"name" yaml:"name"`
	RRtype  string   `json:"rrtype" yaml:"rrtype"`
	Ttl     uint32   `json:"ttl" yaml:"ttl"`
	Trust   string   `json:"trust" yaml:"trust"`
	Context string   `json:"context" yaml:"context"`
	Records []string `json:"records,omitempty" yaml:"records,omitempty"`
}

type DumpNode struct {
	Name   string      `json:"name" yaml:"name"`
	RRsets []DumpRRset `json:"rrsets" yaml:"rrsets"`
}

type byName []*CacheNode

func (ns byName) Len() int           { return len(ns) }
func (ns byName) Swap(i, j int)      { ns[i], ns[j] = ns[j], ns[i] }
func (ns byName) Less(i, j int) bool { return ns[i].Name < ns[j].Name }

// WalkLive calls fn for every node that still holds at least one live
// RRset, in canonical name order. Stops early when fn returns an error.
func (c *Cache) WalkLive(fn func(dn *DumpNode) error) error {
	now := time.Now()
	nodes := c.rangeUnderName(".")
	sorts.Quicksort(byName(nodes))

	for _, n := range nodes {
		dn := c.dumpNode(n, now)
		if dn == nil {
			continue
		}
		if err := fn(dn); err != nil {
			return err
		}
	}
	return nil
}

// dumpNode snapshots the live entries of one node, or nil if none remain.
func (c *Cache) dumpNode(n *CacheNode, now time.Time) *DumpNode {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.zombie || n.generation < c.generation.Load() {
		return nil
	}

	var rrsets []DumpRRset
	for _, crr := range n.RRtypes {
		if crr.Expired(now) {
			continue
		}
		dr := DumpRRset{
			Name:    crr.Name,
			RRtype:  dns.TypeToString[crr.RRtype],
			Ttl:     crr.RemainingTTL(now, c.opts.MaxReportTTL),
			Trust:   crr.Trust.String(),
			Context: crr.Context.String(),
		}
		if crr.RRset != nil {
			for _, rr := range crr.RRset.RRs {
				dup := dns.Copy(rr)
				dup.Header().Ttl = dr.Ttl
				dr.Records = append(dr.Records, dup.String())
			}
		}
		rrsets = append(rrsets, dr)
	}
	if len(rrsets) == 0 {
		return nil
	}
	return &DumpNode{Name: n.Name, RRsets: rrsets}
}

// Snapshot materializes the whole live cache, name ordered.
func (c *Cache) Snapshot() []DumpNode {
	var out []DumpNode
	c.WalkLive(func(dn *DumpNode) error {
		out = append(out, *dn)
		return nil
	})
	return out
}

// LiveCounts walks the cache and returns the number of live nodes, rrsets
// and records, ignoring flushed and expired residue that the cleaner has
// not reclaimed yet.
func (c *Cache) LiveCounts() (nodes, rrsets, records int) {
	c.WalkLive(func(dn *DumpNode) error {
		nodes++
		rrsets += len(dn.RRsets)
		for _, dr := range dn.RRsets {
			if len(dr.Records) == 0 {
				records++
			} else {
				records += len(dr.Records)
			}
		}
		return nil
	})
	return
}

// CountUnder counts live nodes and records at or below name. Used by the
// round-trip tests and operator tooling.
func (c *Cache) CountUnder(name string) (nodes, records int) {
	name = core.Canonical(name)
	now := time.Now()
	for _, n := range c.rangeUnderName(name) {
		dn := c.dumpNode(n, now)
		if dn == nil {
			continue
		}
		nodes++
		for _, dr := range dn.RRsets {
			if len(dr.Records) == 0 {
				records++
			} else {
				records += len(dr.Records)
			}
		}
	}
	return
}
