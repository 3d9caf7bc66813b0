// Package config holds the core's typed, bounded configuration (§6),
// loaded via viper the way steveyegge-beads loads its own settings.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/gqlstore/gqlstore/gqlerr"
)

// Config is the core's tunable surface. PageSize is fixed and present
// only for documentation; it is never read from the environment.
type Config struct {
	PageSize           int
	CacheCapacityPages int
	MemtableThreshold  int
	BTreeOrder         int
	OptimizerThreshold int
	DataDir            string
}

const (
	defaultCacheCapacityPages = 100
	defaultMemtableThreshold  = 1000
	defaultBTreeOrder         = 32
	defaultOptimizerThreshold = 3

	minCacheCapacityPages = 1
	maxCacheCapacityPages = 1 << 20
	minMemtableThreshold  = 1
	minBTreeOrder         = 4
)

// Option customizes the viper instance before values are read, e.g. to
// point at a config file.
type Option func(*viper.Viper)

// WithConfigFile sets an explicit config file path (any format viper
// supports: yaml, json, toml, ...).
func WithConfigFile(path string) Option {
	return func(v *viper.Viper) { v.SetConfigFile(path) }
}

// Load builds a Config from defaults, an optional config file, and
// GQLSTORE_-prefixed environment variables, validating bounds.
func Load(opts ...Option) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GQLSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("cache_capacity_pages", defaultCacheCapacityPages)
	v.SetDefault("memtable_threshold", defaultMemtableThreshold)
	v.SetDefault("btree_order", defaultBTreeOrder)
	v.SetDefault("optimizer_threshold", defaultOptimizerThreshold)
	v.SetDefault("data_dir", ".")

	for _, opt := range opts {
		opt(v)
	}
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, gqlerr.New(gqlerr.KindInvalid, "config.Load", err)
		}
	}

	cfg := &Config{
		PageSize:           4096,
		CacheCapacityPages: v.GetInt("cache_capacity_pages"),
		MemtableThreshold:  v.GetInt("memtable_threshold"),
		BTreeOrder:         v.GetInt("btree_order"),
		OptimizerThreshold: v.GetInt("optimizer_threshold"),
		DataDir:            v.GetString("data_dir"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.CacheCapacityPages < minCacheCapacityPages || c.CacheCapacityPages > maxCacheCapacityPages {
		return gqlerr.New(gqlerr.KindInvalid, "config.Load",
			fmt.Errorf("cache_capacity_pages %d out of range [%d, %d]", c.CacheCapacityPages, minCacheCapacityPages, maxCacheCapacityPages))
	}
	if c.MemtableThreshold < minMemtableThreshold {
		return gqlerr.New(gqlerr.KindInvalid, "config.Load",
			fmt.Errorf("memtable_threshold %d below minimum %d", c.MemtableThreshold, minMemtableThreshold))
	}
	if c.BTreeOrder < minBTreeOrder {
		return gqlerr.New(gqlerr.KindInvalid, "config.Load",
			fmt.Errorf("btree_order %d below minimum %d", c.BTreeOrder, minBTreeOrder))
	}
	if c.OptimizerThreshold < 0 {
		return gqlerr.New(gqlerr.KindInvalid, "config.Load",
			fmt.Errorf("optimizer_threshold %d must be >= 0 (0 disables dynamic indexing)", c.OptimizerThreshold))
	}
	return nil
}

// Default returns the configuration that would result from Load with no
// environment or file overrides present.
func Default() *Config {
	return &Config{
		PageSize:           4096,
		CacheCapacityPages: defaultCacheCapacityPages,
		MemtableThreshold:  defaultMemtableThreshold,
		BTreeOrder:         defaultBTreeOrder,
		OptimizerThreshold: defaultOptimizerThreshold,
		DataDir:            ".",
	}
}
