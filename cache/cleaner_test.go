/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/miekg/dns"

	core "github.com/ulfpersson/rcache/core"
)

// TestCleanPassReclaimsExpired tests that the sweep removes expired
// entries and their emptied nodes while leaving live data alone
func TestCleanPassReclaimsExpired(t *testing.T) {
	c := newTestCache()

	mustStore(t, c, "live.example.com.", 300)
	mustStore(t, c, "dead.example.com.", 300)
	forceExpire(t, c, "dead.example.com.", dns.TypeA)

	reclaimed := c.CleanPass(time.Now())
	if reclaimed != 1 {
		t.Errorf("CleanPass reclaimed %d nodes, want 1", reclaimed)
	}
	if _, mt := c.Find("dead.example.com.", false); mt != MatchNone {
		t.Error("expired node survived the sweep")
	}
	if res := c.Lookup("live.example.com.", dns.TypeA); res.Status != LookupHit {
		t.Error("live node was swept")
	}
	if c.CleanerState() != CleanerIdle {
		t.Errorf("cleaner state after pass: %s, want idle", CleanerStateToString[c.CleanerState()])
	}
	if st := c.Stats(); st.Expirations == 0 || st.LastClean.IsZero() {
		t.Errorf("stats not updated by sweep: %+v", st)
	}
}

// TestCleanPassExpiresSingleType tests that the sweep drops an expired
// RRset without reclaiming a node that still has live siblings
func TestCleanPassExpiresSingleType(t *testing.T) {
	c := newTestCache()
	name := "mixed.example.com."

	mustStore(t, c, name, 300)
	if !c.Store(name, dns.TypeTXT, nil, 60, core.TrustAnswer, ContextNoData) {
		t.Fatal("NODATA store refused")
	}
	forceExpire(t, c, name, dns.TypeTXT)

	c.CleanPass(time.Now())

	if res := c.Lookup(name, dns.TypeA); res.Status != LookupHit {
		t.Error("live sibling type was swept")
	}
	if res := c.Lookup(name, dns.TypeTXT); res.Status != LookupMiss {
		t.Error("expired type survived the sweep")
	}
	if _, mt := c.Find(name, false); mt != MatchExact {
		t.Error("node with live data was reclaimed")
	}
}

// TestCleanPassReclaimsFlushed tests that generation-flushed residue is
// reclaimed by the sweep
func TestCleanPassReclaimsFlushed(t *testing.T) {
	c := newTestCache()
	mustStore(t, c, "one.example.com.", 300)
	mustStore(t, c, "two.example.com.", 300)

	c.FlushAll()
	if c.nodeCount.Load() != 2 {
		t.Fatalf("resident nodes after lazy FlushAll: %d, want 2", c.nodeCount.Load())
	}

	c.CleanPass(time.Now())
	if c.nodeCount.Load() != 0 {
		t.Errorf("resident nodes after sweep: %d, want 0", c.nodeCount.Load())
	}
	if st := c.Stats(); st.Evictions != 2 {
		t.Errorf("evictions = %d, want 2", st.Evictions)
	}
}

// TestWatermarkEviction tests LRU eviction under memory pressure: oldest
// access first, down to the low watermark, deterministically
func TestWatermarkEviction(t *testing.T) {
	c := New(Options{HighWater: 5, LowWater: 3, CleanBatch: 100})

	// Ten single-record nodes, stored oldest-first.
	for i := 0; i < 10; i++ {
		mustStore(t, c, fmt.Sprintf("n%02d.example.com.", i), 300)
	}
	// Refresh a cold node so recency, not insertion order, decides.
	if res := c.Lookup("n00.example.com.", dns.TypeA); res.Status != LookupHit {
		t.Fatal("warm-up lookup missed")
	}

	c.CleanPass(time.Now())

	if got := c.recordCount.Load(); got > 3 {
		t.Errorf("resident records after eviction: %d, want <= 3", got)
	}
	// The refreshed node and the most recently stored ones survive.
	for _, name := range []string{"n00.example.com.", "n08.example.com.", "n09.example.com."} {
		if res := c.Lookup(name, dns.TypeA); res.Status != LookupHit {
			t.Errorf("recently used node %s was evicted", name)
		}
	}
	if res := c.Lookup("n01.example.com.", dns.TypeA); res.Status != LookupMiss {
		t.Error("coldest node survived eviction")
	}
	if st := c.Stats(); st.Evictions == 0 {
		t.Error("eviction counter not bumped")
	}
}

// TestNodeCapEviction tests the hard ceiling on resident nodes
func TestNodeCapEviction(t *testing.T) {
	c := New(Options{MaxNodes: 4, HighWater: 1000, LowWater: 900, CleanBatch: 100})

	for i := 0; i < 10; i++ {
		mustStore(t, c, fmt.Sprintf("n%02d.example.com.", i), 300)
	}
	c.CleanPass(time.Now())

	if got := c.nodeCount.Load(); got > 4 {
		t.Errorf("resident nodes after cap eviction: %d, want <= 4", got)
	}
	for _, name := range []string{"n09.example.com.", "n08.example.com."} {
		if res := c.Lookup(name, dns.TypeA); res.Status != LookupHit {
			t.Errorf("recently stored node %s was evicted", name)
		}
	}
	if res := c.Lookup("n00.example.com.", dns.TypeA); res.Status != LookupMiss {
		t.Error("coldest node survived cap eviction")
	}
}

// TestZombieRefSafety tests that a node attached by an in-flight reader
// is not finalized by a concurrent flush until the reader detaches
func TestZombieRefSafety(t *testing.T) {
	c := newTestCache()
	name := "held.example.com."
	mustStore(t, c, name, 300)

	n, mt := c.Find(name, false)
	if mt != MatchExact {
		t.Fatal("node not found")
	}
	crr, found := c.AttachRRset(n, dns.TypeA, time.Now())
	if !found {
		t.Fatal("attach failed")
	}

	if removed, err := c.FlushName(name); err != nil || removed != 1 {
		t.Fatalf("flush under reader: removed=%d err=%v", removed, err)
	}

	// Logically gone: lookups miss, zombie observable, reader unharmed.
	if res := c.Lookup(name, dns.TypeA); res.Status != LookupMiss {
		t.Error("flushed node still visible to lookups")
	}
	if !n.IsZombie() {
		t.Error("referenced node not marked zombie by flush")
	}
	if st := c.Stats(); st.Zombies != 1 {
		t.Errorf("zombie gauge = %d, want 1", st.Zombies)
	}
	if crr.RRset == nil || len(crr.RRset.RRs) != 1 {
		t.Error("reader's attached rrset was corrupted by the flush")
	}

	// A sweep must not finalize the held node either.
	c.CleanPass(time.Now())
	if len(crr.RRset.RRs) != 1 {
		t.Error("sweep corrupted a held rrset")
	}

	// Last detach completes the reclamation.
	c.DetachNode(n)
	if n.IsZombie() {
		t.Error("zombie not finalized on last detach")
	}
	if st := c.Stats(); st.Zombies != 0 {
		t.Errorf("zombie gauge = %d after detach, want 0", st.Zombies)
	}
}

// TestCleanerEngineStops tests that the engine goroutine honors its stop
// channel
func TestCleanerEngineStops(t *testing.T) {
	c := New(Options{CleanInterval: 10 * time.Millisecond})
	stopch := make(chan struct{})
	done := make(chan struct{})

	go func() {
		c.CleanerEngine(stopch)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	close(stopch)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CleanerEngine did not stop")
	}
}

// TestCountInvariant tests that the number of live nodes reported by the
// range walk matches what a store/flush sequence should have left behind
func TestCountInvariant(t *testing.T) {
	c := newTestCache()

	names := []string{
		"a.example.com.", "b.example.com.", "c.b.example.com.",
		"d.example.net.", "e.d.example.net.",
	}
	for _, n := range names {
		mustStore(t, c, n, 300)
	}
	if nodes, _, _ := c.LiveCounts(); nodes != len(names) {
		t.Fatalf("live nodes = %d, want %d", nodes, len(names))
	}

	c.FlushName("a.example.com.")
	c.FlushTree("d.example.net.")
	if nodes, _, _ := c.LiveCounts(); nodes != 2 {
		t.Errorf("live nodes after flushes = %d, want 2", nodes)
	}

	// Resident bookkeeping agrees once the cleaner has caught up.
	c.CleanPass(time.Now())
	if got := c.nodeCount.Load(); got != 2 {
		t.Errorf("resident nodes after sweep = %d, want 2", got)
	}
}
