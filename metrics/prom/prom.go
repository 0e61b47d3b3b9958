/*
 * Copyright (c) 2025 Ulf Persson, ulf@axfr.net
 */

// Package prom exports the cache counters as Prometheus metrics.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ulfpersson/rcache/cache"
)

// Adapter implements cache.Metrics on top of Prometheus collectors. All
// Prometheus metric types are goroutine safe, so the adapter is too.
type Adapter struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	expires prometheus.Counter
	evicts  *prometheus.CounterVec
	nodes   prometheus.Gauge
	rrsets  prometheus.Gauge
	records prometheus.Gauge
}

// New registers the cache metrics with reg (nil means the default
// registerer) under the given namespace.
func New(reg prometheus.Registerer, ns string) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache lookup hits (positive and negative)",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache lookup misses",
		}),
		expires: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "expirations_total",
			Help:      "RRsets dropped because their TTL ran out",
		}),
		evicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Nodes reclaimed, by reason",
		}, []string{"reason"}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "nodes",
			Help:      "Resident owner-name nodes",
		}),
		rrsets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "rrsets",
			Help:      "Resident RRsets",
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "records",
			Help:      "Resident records (denial markers count as one)",
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.expires, a.evicts, a.nodes, a.rrsets, a.records)
	return a
}

func (a *Adapter) Hit()    { a.hits.Inc() }
func (a *Adapter) Miss()   { a.misses.Inc() }
func (a *Adapter) Expire() { a.expires.Inc() }

func (a *Adapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(r.String()).Inc()
}

func (a *Adapter) Size(nodes, rrsets, records int64) {
	a.nodes.Set(float64(nodes))
	a.rrsets.Set(float64(rrsets))
	a.records.Set(float64(records))
}

var _ cache.Metrics = (*Adapter)(nil)
