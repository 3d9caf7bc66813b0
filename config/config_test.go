package config

import (
	"testing"

	"github.com/spf13/viper"

	"github.com/gqlstore/gqlstore/gqlerr"
)

func TestDefaultMatchesDocumentedDefaults(t *testing.T) {
	cfg := Default()
	if cfg.PageSize != 4096 {
		t.Errorf("PageSize = %d, want 4096", cfg.PageSize)
	}
	if cfg.CacheCapacityPages != defaultCacheCapacityPages {
		t.Errorf("CacheCapacityPages = %d, want %d", cfg.CacheCapacityPages, defaultCacheCapacityPages)
	}
	if cfg.MemtableThreshold != defaultMemtableThreshold {
		t.Errorf("MemtableThreshold = %d, want %d", cfg.MemtableThreshold, defaultMemtableThreshold)
	}
	if cfg.BTreeOrder != defaultBTreeOrder {
		t.Errorf("BTreeOrder = %d, want %d", cfg.BTreeOrder, defaultBTreeOrder)
	}
	if cfg.OptimizerThreshold != defaultOptimizerThreshold {
		t.Errorf("OptimizerThreshold = %d, want %d", cfg.OptimizerThreshold, defaultOptimizerThreshold)
	}
}

func TestLoadAppliesDefaultsWithNoOverrides(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheCapacityPages != defaultCacheCapacityPages {
		t.Errorf("CacheCapacityPages = %d, want %d", cfg.CacheCapacityPages, defaultCacheCapacityPages)
	}
	if cfg.DataDir != "." {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, ".")
	}
}

func TestLoadRejectsOutOfBoundCacheCapacity(t *testing.T) {
	withBadCacheCapacity := Option(func(v *viper.Viper) { v.Set("cache_capacity_pages", 0) })
	_, err := Load(withBadCacheCapacity)
	if err == nil {
		t.Fatal("expected Load to reject an out-of-bounds cache_capacity_pages")
	}
	if gqlerr.Of(err) != gqlerr.KindInvalid {
		t.Fatalf("kind = %v, want Invalid", gqlerr.Of(err))
	}
}

func TestValidateRejectsOutOfBoundsWithoutPanicking(t *testing.T) {
	cases := []*Config{
		{CacheCapacityPages: 0, MemtableThreshold: 1, BTreeOrder: 4, OptimizerThreshold: 0},
		{CacheCapacityPages: 1 << 21, MemtableThreshold: 1, BTreeOrder: 4, OptimizerThreshold: 0},
		{CacheCapacityPages: 1, MemtableThreshold: 0, BTreeOrder: 4, OptimizerThreshold: 0},
		{CacheCapacityPages: 1, MemtableThreshold: 1, BTreeOrder: 3, OptimizerThreshold: 0},
		{CacheCapacityPages: 1, MemtableThreshold: 1, BTreeOrder: 4, OptimizerThreshold: -1},
	}
	for _, c := range cases {
		err := c.validate()
		if err == nil {
			t.Errorf("validate() on %+v: expected an error", c)
			continue
		}
		if gqlerr.Of(err) != gqlerr.KindInvalid {
			t.Errorf("validate() on %+v: kind = %v, want Invalid", c, gqlerr.Of(err))
		}
	}
}

func TestValidateAcceptsBoundaryValues(t *testing.T) {
	c := &Config{
		CacheCapacityPages: maxCacheCapacityPages,
		MemtableThreshold:  minMemtableThreshold,
		BTreeOrder:         minBTreeOrder,
		OptimizerThreshold: 0,
	}
	if err := c.validate(); err != nil {
		t.Fatalf("validate() on boundary-valid config: %v", err)
	}
}

func TestWithConfigFileMissingFileReturnsInvalid(t *testing.T) {
	_, err := Load(WithConfigFile("/nonexistent/gqlstore.yaml"))
	if err == nil {
		t.Fatal("expected an error loading a nonexistent config file")
	}
	if gqlerr.Of(err) != gqlerr.KindInvalid {
		t.Fatalf("kind = %v, want Invalid", gqlerr.Of(err))
	}
}
