/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package cache

import (
	"time"

	core "github.com/ulfpersson/rcache/core"
)

// Lookup/Store are the inbound boundary used by the resolution logic.
// Both are fast lock-protected operations; neither ever returns an error
// for expected conditions. A miss is a result, not a failure.

type LookupStatus uint8

const (
	LookupMiss LookupStatus = iota
	LookupHit
	LookupNegative
)

var LookupStatusToString = map[LookupStatus]string{
	LookupMiss:     "miss",
	LookupHit:      "hit",
	LookupNegative: "negative",
}

type LookupResult struct {
	Status     LookupStatus
	Name       string
	RRtype     uint16
	RRset      *core.RRset // shared, immutable; callers must not modify
	Trust      core.CacheTrust
	Context    CacheContext
	Expiration time.Time
}

// Lookup returns the cached answer for (qname, qtype): positive data, a
// cached denial, or a miss. Expiry is evaluated lazily here even when the
// background sweep has not run yet.
func (c *Cache) Lookup(qname string, qtype uint16) *LookupResult {
	name := core.Canonical(qname)
	res := &LookupResult{Status: LookupMiss, Name: name, RRtype: qtype}

	n, ok := c.nodes.Get(name)
	if !ok {
		c.misses.Add(1)
		c.metrics.Miss()
		return res
	}

	crr, found := c.AttachRRset(n, qtype, time.Now())
	if !found {
		c.misses.Add(1)
		c.metrics.Miss()
		return res
	}
	defer c.DetachNode(n)

	c.hits.Add(1)
	c.metrics.Hit()

	res.Status = LookupHit
	if crr.Context.Negative() {
		res.Status = LookupNegative
	}
	res.RRset = crr.RRset
	res.Trust = crr.Trust
	res.Context = crr.Context
	res.Expiration = crr.Expiration
	return res
}

// Store caches an answer (rrset != nil) or a denial marker (rrset == nil
// with a negative context) for (qname, qtype). The effective TTL is the
// minimum record TTL for positive data, or ttl for denials, clamped to the
// configured ceilings. Returns false when existing higher-trust data wins
// or the name is unusable; a refused store degrades to a no-op, never an
// error.
func (c *Cache) Store(qname string, qtype uint16, rrset *core.RRset, ttl uint32, trust core.CacheTrust, ctx CacheContext) bool {
	name := core.Canonical(qname)
	if !core.ValidName(name) {
		if c.Debug {
			c.Logger.Printf("cache: Store: not a valid owner name: %q", qname)
		}
		return false
	}

	now := time.Now()
	if rrset != nil && len(rrset.RRs) > 0 {
		ttl = rrset.MinTTL()
	}
	if ctx.Negative() {
		if ttl > c.opts.NegCacheTTL {
			ttl = c.opts.NegCacheTTL
		}
	} else if ttl > c.opts.MaxCacheTTL {
		ttl = c.opts.MaxCacheTTL
	}

	crr := &CachedRRset{
		Name:       name,
		RRtype:     qtype,
		RRset:      rrset,
		Ttl:        ttl,
		Trust:      trust,
		Context:    ctx,
		Expiration: now.Add(time.Duration(ttl) * time.Second),
	}

	// The node can be reclaimed between insert and update; re-insert
	// and try again rather than leaving a half-linked node behind.
	for i := 0; i < 3; i++ {
		n := c.insert(name)
		if c.UpdateRRset(n, qtype, crr, now) {
			c.bumpLRU(n)
			c.maybeKickCleaner()
			return true
		}
		if !n.gone() {
			// Live node refused the update: trust ordering kept
			// the existing data.
			return false
		}
	}
	return false
}

// maybeKickCleaner triggers an immediate cleaning pass when the record
// count crosses the high watermark or the node ceiling is breached.
// Non-blocking; a pass already pending is enough.
func (c *Cache) maybeKickCleaner() {
	overNodes := c.opts.MaxNodes > 0 && c.nodeCount.Load() > int64(c.opts.MaxNodes)
	if c.recordCount.Load() <= int64(c.opts.HighWater) && !overNodes {
		return
	}
	select {
	case c.kickCh <- struct{}{}:
	default:
	}
}
