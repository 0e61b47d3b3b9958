/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package cache

import (
	"errors"
	"sort"
	"testing"

	"github.com/miekg/dns"

	core "github.com/ulfpersson/rcache/core"
)

// TestDumpTTLCeiling tests that reported TTLs are remaining time, never
// above the configured report ceiling, both in the entry and in the
// rendered records
func TestDumpTTLCeiling(t *testing.T) {
	c := New(Options{MaxReportTTL: 3600})
	mustStore(t, c, "long.example.com.", 7200)

	snap := c.Snapshot()
	if len(snap) != 1 || len(snap[0].RRsets) != 1 {
		t.Fatalf("unexpected snapshot shape: %+v", snap)
	}
	dr := snap[0].RRsets[0]
	if dr.Ttl > 3600 {
		t.Errorf("reported TTL %d exceeds the ceiling", dr.Ttl)
	}
	if len(dr.Records) != 1 {
		t.Fatalf("want 1 rendered record, got %d", len(dr.Records))
	}
	rr, err := dns.NewRR(dr.Records[0])
	if err != nil {
		t.Fatalf("rendered record does not parse: %v", err)
	}
	if rr.Header().Ttl > 3600 {
		t.Errorf("rendered record TTL %d exceeds the ceiling", rr.Header().Ttl)
	}
}

// TestDumpOrder tests that the walk visits nodes in canonical name order
func TestDumpOrder(t *testing.T) {
	c := newTestCache()
	for _, name := range []string{
		"zz.example.com.", "a.example.com.", "m.example.net.", "example.com.",
	} {
		mustStore(t, c, name, 300)
	}

	var visited []string
	err := c.WalkLive(func(dn *DumpNode) error {
		visited = append(visited, dn.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkLive: %v", err)
	}
	if len(visited) != 4 {
		t.Fatalf("walk visited %d nodes, want 4", len(visited))
	}
	if !sort.StringsAreSorted(visited) {
		t.Errorf("walk order not sorted: %v", visited)
	}
}

// TestWalkLiveSkipsDead tests that expired entries and flushed residue
// never reach the callback
func TestWalkLiveSkipsDead(t *testing.T) {
	c := newTestCache()
	mustStore(t, c, "alive.example.com.", 300)
	mustStore(t, c, "expired.example.com.", 300)
	forceExpire(t, c, "expired.example.com.", dns.TypeA)

	snap := c.Snapshot()
	if len(snap) != 1 || snap[0].Name != "alive.example.com." {
		t.Errorf("snapshot should hold only the live node: %+v", snap)
	}

	c.FlushAll()
	if snap := c.Snapshot(); len(snap) != 0 {
		t.Errorf("snapshot after FlushAll should be empty: %+v", snap)
	}
}

// TestWalkLiveMixedEntries tests that a node with one live and one
// expired type dumps only the live one, and that denial markers carry
// their context but no records
func TestWalkLiveMixedEntries(t *testing.T) {
	c := newTestCache()
	name := "half.example.com."

	mustStore(t, c, name, 300)
	if !c.Store(name, dns.TypeMX, nil, 60, core.TrustAuthAnswer, ContextNXDOMAIN) {
		t.Fatal("denial store refused")
	}
	if !c.Store(name, dns.TypeTXT, nil, 60, core.TrustAnswer, ContextNoData) {
		t.Fatal("NODATA store refused")
	}
	forceExpire(t, c, name, dns.TypeTXT)

	snap := c.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("want 1 node in snapshot, got %d", len(snap))
	}
	types := map[string]DumpRRset{}
	for _, dr := range snap[0].RRsets {
		types[dr.RRtype] = dr
	}
	if len(types) != 2 {
		t.Fatalf("want A and MX in the dump, got %v", types)
	}
	if _, ok := types["TXT"]; ok {
		t.Error("expired TXT entry leaked into the dump")
	}
	if mx := types["MX"]; mx.Context != "NXDOMAIN" || len(mx.Records) != 0 {
		t.Errorf("denial entry dumped wrong: %+v", mx)
	}
	if a := types["A"]; len(a.Records) != 1 || a.Trust != "answer" {
		t.Errorf("positive entry dumped wrong: %+v", a)
	}
}

// TestWalkLiveEarlyStop tests that a callback error ends the walk and is
// passed through
func TestWalkLiveEarlyStop(t *testing.T) {
	c := newTestCache()
	mustStore(t, c, "a.example.com.", 300)
	mustStore(t, c, "b.example.com.", 300)

	sentinel := errors.New("stop")
	seen := 0
	err := c.WalkLive(func(dn *DumpNode) error {
		seen++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("WalkLive returned %v, want the callback error", err)
	}
	if seen != 1 {
		t.Errorf("walk continued after the error: %d callbacks", seen)
	}
}

// TestLiveCountsAgainstStats tests that the live walk and the resident
// counters agree on a quiescent cache
func TestLiveCountsAgainstStats(t *testing.T) {
	c := newTestCache()
	mustStore(t, c, "one.example.com.", 300)
	mustStore(t, c, "two.example.com.", 300)
	if !c.Store("two.example.com.", dns.TypeAAAA, nil, 60, core.TrustAnswer, ContextNoData) {
		t.Fatal("second type store refused")
	}

	nodes, rrsets, records := c.LiveCounts()
	st := c.Stats()
	if int64(nodes) != st.Nodes || int64(rrsets) != st.RRsets || int64(records) != st.Records {
		t.Errorf("live %d/%d/%d vs resident %d/%d/%d",
			nodes, rrsets, records, st.Nodes, st.RRsets, st.Records)
	}
	if nodes != 2 || rrsets != 3 || records != 3 {
		t.Errorf("live counts %d/%d/%d, want 2/3/3", nodes, rrsets, records)
	}
}
