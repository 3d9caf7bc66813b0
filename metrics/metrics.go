// Package metrics wraps the Prometheus collectors the core registers (A4,
// SPEC_FULL.md §4.16): page-cache hit/miss/eviction counters, index
// creation counters, and an optimizer predicate-counter gauge. Only the
// optimizer updates any of them (the gauge and the index-creation
// counter); no caller increments the cache counters. A
// Registry is optional — the zero value / Noop() costs nothing and
// hosts that want a /metrics endpoint wire their own
// prometheus.Registerer in via New.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every collector the core touches. The zero value is
// usable: every method is a safe no-op when the underlying collector
// pointers are nil, so a caller can embed a *Registry without checking
// for nil at every call site.
type Registry struct {
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
	indexesCreated *prometheus.CounterVec
	optimizerGauge *prometheus.GaugeVec
}

// Noop returns a Registry whose every method does nothing, used as the
// default when no host-supplied registerer is available.
func Noop() *Registry { return &Registry{} }

// New registers every collector with reg and returns a live Registry.
// Safe to call with a fresh prometheus.NewRegistry() or with
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gqlstore", Subsystem: "cache", Name: "hits_total",
			Help: "Page cache hits, by table.",
		}, []string{"table"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gqlstore", Subsystem: "cache", Name: "misses_total",
			Help: "Page cache misses, by table.",
		}, []string{"table"}),
		cacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gqlstore", Subsystem: "cache", Name: "evictions_total",
			Help: "Page cache evictions, by table.",
		}, []string{"table"}),
		indexesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gqlstore", Subsystem: "index", Name: "created_total",
			Help: "Indexes created, by table, column, and origin (dynamic|explicit).",
		}, []string{"table", "column", "origin"}),
		optimizerGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gqlstore", Subsystem: "optimizer", Name: "predicate_count",
			Help: "Current access counter for a (table, field) predicate pair.",
		}, []string{"table", "field"}),
	}
	reg.MustRegister(r.cacheHits, r.cacheMisses, r.cacheEvictions, r.indexesCreated, r.optimizerGauge)
	return r
}

func (r *Registry) CacheHit(table string) {
	if r == nil || r.cacheHits == nil {
		return
	}
	r.cacheHits.WithLabelValues(table).Inc()
}

func (r *Registry) CacheMiss(table string) {
	if r == nil || r.cacheMisses == nil {
		return
	}
	r.cacheMisses.WithLabelValues(table).Inc()
}

func (r *Registry) CacheEviction(table string) {
	if r == nil || r.cacheEvictions == nil {
		return
	}
	r.cacheEvictions.WithLabelValues(table).Inc()
}

// IndexCreated records an index creation; origin is "dynamic" (the
// optimizer, C13) or "explicit" (a direct CreateIndex call).
func (r *Registry) IndexCreated(table, column, origin string) {
	if r == nil || r.indexesCreated == nil {
		return
	}
	r.indexesCreated.WithLabelValues(table, column, origin).Inc()
}

// SetOptimizerCount publishes the optimizer's current access counter
// for (table, field), mirroring the in-process value it already tracks
// for threshold comparison.
func (r *Registry) SetOptimizerCount(table, field string, n int) {
	if r == nil || r.optimizerGauge == nil {
		return
	}
	r.optimizerGauge.WithLabelValues(table, field).Set(float64(n))
}
