package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopRegistryMethodsDoNotPanic(t *testing.T) {
	r := Noop()
	r.CacheHit("t")
	r.CacheMiss("t")
	r.CacheEviction("t")
	r.IndexCreated("t", "col", "dynamic")
	r.SetOptimizerCount("t", "col", 3)

	var nilReg *Registry
	nilReg.CacheHit("t")
}

func TestRegistryRecordsAgainstRealCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.CacheHit("people")
	r.CacheHit("people")
	r.CacheMiss("people")
	r.IndexCreated("people", "age", "dynamic")
	r.SetOptimizerCount("people", "age", 2)

	if got := testutil.ToFloat64(r.cacheHits.WithLabelValues("people")); got != 2 {
		t.Fatalf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.cacheMisses.WithLabelValues("people")); got != 1 {
		t.Fatalf("cache misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.optimizerGauge.WithLabelValues("people", "age")); got != 2 {
		t.Fatalf("optimizer gauge = %v, want 2", got)
	}
}
