/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */
package cache

import (
	"container/list"
	"log"
	"sync"
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	core "github.com/ulfpersson/rcache/core"
)

// CacheContext records what kind of answer a cached RRset represents.
type CacheContext uint8

const (
	ContextAnswer CacheContext = iota + 1
	ContextReferral
	ContextGlue
	ContextNXDOMAIN
	ContextNoData // NOERROR + empty answer (NXRRSET)
	ContextENT    // empty non-terminal marker
)

var CacheContextToString = map[CacheContext]string{
	ContextAnswer:   "answer",
	ContextReferral: "referral",
	ContextGlue:     "glue",
	ContextNXDOMAIN: "NXDOMAIN",
	ContextNoData:   "NODATA",
	ContextENT:      "empty-non-terminal",
}

func (ctx CacheContext) String() string {
	if s, ok := CacheContextToString[ctx]; ok {
		return s
	}
	return "unknown"
}

// Negative is true for denial markers (they carry no records).
func (ctx CacheContext) Negative() bool {
	switch ctx {
	case ContextNXDOMAIN, ContextNoData, ContextENT:
		return true
	}
	return false
}

// CachedRRset is the unit of caching: one type's answer (or denial) at one
// owner name, with a single absolute expiry. A published CachedRRset is
// never mutated; updates replace the pointer under the node lock so that
// concurrent readers holding the old version stay consistent.
type CachedRRset struct {
	Name       string
	RRtype     uint16
	RRset      *core.RRset // nil for negative entries
	Ttl        uint32      // TTL as stored, after clamping
	Trust      core.CacheTrust
	Context    CacheContext
	Expiration time.Time
}

// Expired evaluates the absolute expiry against now. Expiry is always
// decided at read time; nothing ever counts TTLs down.
func (crr *CachedRRset) Expired(now time.Time) bool {
	return !crr.Expiration.After(now)
}

// RemainingTTL returns the seconds left until expiry, capped at max when
// max is nonzero. Used by the dump contract.
func (crr *CachedRRset) RemainingTTL(now time.Time, max uint32) uint32 {
	if crr.Expired(now) {
		return 0
	}
	rem := uint32(crr.Expiration.Sub(now).Seconds())
	if max != 0 && rem > max {
		rem = max
	}
	return rem
}

// NumRecords counts the records carried by the entry; a denial marker
// counts as one record for accounting purposes.
func (crr *CachedRRset) NumRecords() int {
	if crr.RRset == nil || len(crr.RRset.RRs) == 0 {
		return 1
	}
	return len(crr.RRset.RRs)
}

// CacheNode holds everything the cache knows about one owner name.
// Parent/child relations are not materialized as pointers; the node is
// reachable both through the exact-match map and through the reverse-key
// ordered index, where its subtree is a contiguous range.
type CacheNode struct {
	mu      sync.Mutex
	Name    string // canonical owner name
	revkey  string
	RRtypes map[uint16]*CachedRRset // guarded by mu

	// refs counts in-flight readers. A node with refs > 0 is never
	// finalized; flush/expiry mark it zombie instead and the last
	// Detach completes the reclamation.
	refs    atomic.Int32
	zombie  bool // guarded by mu; unindexed while still referenced
	cleared bool // guarded by mu; rrset/record accounting already released

	generation uint64       // guarded by mu; cache generation at creation/last store
	lastUsed   atomic.Int64 // unix nanos of last lookup/store

	indexed bool          // guarded by Cache.orderMu
	elem    *list.Element // guarded by Cache.lruMu
}

type orderEntry struct {
	rev  string
	name string
}

// Options configures a cache instance. Zero values fall back to the
// defaults below.
type Options struct {
	MaxNodes      int // hard ceiling on resident nodes, 0 means unlimited
	HighWater     int // record count that triggers an immediate cleaning pass
	LowWater      int // eviction target once the high watermark is crossed
	CleanInterval time.Duration
	CleanBatch    int    // max nodes inspected per scheduled pass
	MaxCacheTTL   uint32 // clamp applied to positive answers on store
	NegCacheTTL   uint32 // clamp applied to denial markers on store
	MaxReportTTL  uint32 // ceiling on TTLs reported by the dump contract
	Metrics       Metrics
	Logger        *log.Logger
	Verbose       bool
	Debug         bool
}

const (
	DefaultHighWater     = 100000
	DefaultLowWater      = 90000
	DefaultCleanInterval = 30 * time.Second
	DefaultCleanBatch    = 500
	DefaultMaxCacheTTL   = 86400
	DefaultNegCacheTTL   = 10800
	DefaultMaxReportTTL  = 3600
)

// Cache is the resolver-side record cache. Construct with New, run
// CleanerEngine in a goroutine, pass the handle explicitly to every user.
type Cache struct {
	nodes cmap.ConcurrentMap[string, *CacheNode]

	// orderMu guards order and the indexed flag of every node. It is
	// never acquired while holding a node lock that was obtained
	// through the index; that ordering keeps insert/remove free of
	// deadlock against per-node mutation.
	orderMu sync.Mutex
	order   []orderEntry // sorted by rev

	lruMu sync.Mutex
	lru   *list.List // of *CacheNode, front is most recently used

	// generation implements O(1) flush-all: bumping it makes every
	// node stamped with an older generation a lazy miss.
	generation atomic.Uint64

	kickCh chan struct{}
	state  atomic.Uint32 // CleanerState

	hits        atomic.Uint64
	misses      atomic.Uint64
	evictions   atomic.Uint64
	expirations atomic.Uint64
	zombies     atomic.Int64
	nodeCount   atomic.Int64
	rrsetCount  atomic.Int64
	recordCount atomic.Int64
	lastClean   atomic.Int64 // unix nanos

	metrics  Metrics
	opts     Options
	BootTime time.Time
	Logger   *log.Logger
	Verbose  bool
	Debug    bool
}

// New creates an empty cache. The cleaner is not started; run
// (*Cache).CleanerEngine in its own goroutine.
func New(opts Options) *Cache {
	if opts.HighWater == 0 {
		opts.HighWater = DefaultHighWater
	}
	if opts.LowWater == 0 || opts.LowWater >= opts.HighWater {
		opts.LowWater = opts.HighWater * 9 / 10
	}
	if opts.CleanInterval == 0 {
		opts.CleanInterval = DefaultCleanInterval
	}
	if opts.CleanBatch == 0 {
		opts.CleanBatch = DefaultCleanBatch
	}
	if opts.MaxCacheTTL == 0 {
		opts.MaxCacheTTL = DefaultMaxCacheTTL
	}
	if opts.NegCacheTTL == 0 {
		opts.NegCacheTTL = DefaultNegCacheTTL
	}
	if opts.MaxReportTTL == 0 {
		opts.MaxReportTTL = DefaultMaxReportTTL
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	c := &Cache{
		nodes:    cmap.New[*CacheNode](),
		lru:      list.New(),
		kickCh:   make(chan struct{}, 1),
		metrics:  opts.Metrics,
		opts:     opts,
		BootTime: time.Now(),
		Logger:   opts.Logger,
		Verbose:  opts.Verbose,
		Debug:    opts.Debug,
	}
	c.generation.Store(1)
	return c
}

// Generation returns the current flush generation.
func (c *Cache) Generation() uint64 {
	return c.generation.Load()
}
