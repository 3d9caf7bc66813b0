package query

import (
	"log/slog"
	"sync"

	"github.com/gqlstore/gqlstore/filter"
	"github.com/gqlstore/gqlstore/index"
	"github.com/gqlstore/gqlstore/metrics"
	"github.com/gqlstore/gqlstore/schema"
	"github.com/gqlstore/gqlstore/table"
)

// indexable is the set of operators the optimizer treats as index
// candidates (§4.12): equals/in/lt/lte/gt/gte. contains/startsWith/
// endsWith/not are excluded since no index here serves substring or
// negation predicates.
var indexable = map[string]bool{
	"equals": true, "in": true, "lt": true, "lte": true, "gt": true, "gte": true,
}

// Optimizer watches where-clauses and creates secondary indexes once a
// (table, field) pair crosses the access threshold (C13, §4.12).
// Counters live in an explicit struct owned by one Optimizer instance
// (SPEC_FULL.md/spec.md §9 "move process-wide counters into an explicit
// struct... test isolation is trivial"), never a package-level global.
type Optimizer struct {
	mu        sync.Mutex
	threshold int
	counts    map[string]map[string]int

	logger  *slog.Logger
	metrics *metrics.Registry
}

// NewOptimizer builds an Optimizer with the given threshold (0 disables
// dynamic indexing, per config's optimizer-threshold).
func NewOptimizer(threshold int, logger *slog.Logger, reg *metrics.Registry) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = metrics.Noop()
	}
	return &Optimizer{
		threshold: threshold,
		counts:    make(map[string]map[string]int),
		logger:    logger,
		metrics:   reg,
	}
}

// Observe walks where, counting every indexable predicate against
// tableName, and creates an index via tbl once a (table, field) counter
// reaches the threshold and no index exists yet. Fields under NOT still
// count (§4.12); once a field is indexed, counting stops for it.
func (o *Optimizer) Observe(tableName string, tbl *table.Table, meta *schema.TableMetadata, where filter.Node) {
	if o.threshold <= 0 || where == nil {
		return
	}
	o.walk(tableName, tbl, meta, where)
}

func (o *Optimizer) walk(tableName string, tbl *table.Table, meta *schema.TableMetadata, node filter.Node) {
	for key, val := range node {
		switch key {
		case "AND", "OR":
			children, ok := val.([]filter.Node)
			if !ok {
				continue
			}
			for _, child := range children {
				o.walk(tableName, tbl, meta, child)
			}
		case "NOT":
			if child, ok := val.(filter.Node); ok {
				o.walk(tableName, tbl, meta, child)
			}
		default:
			o.observeField(tableName, tbl, meta, key, val)
		}
	}
}

func (o *Optimizer) observeField(tableName string, tbl *table.Table, meta *schema.TableMetadata, field string, val interface{}) {
	var ops filter.Ops
	switch v := val.(type) {
	case filter.Ops:
		ops = v
	default:
		ops = filter.Ops{"equals": v}
	}

	hasIndexable := false
	for op := range ops {
		if indexable[op] {
			hasIndexable = true
			break
		}
	}
	if !hasIndexable {
		return
	}

	if tbl.HasIndex(field) {
		return
	}

	o.mu.Lock()
	perTable, ok := o.counts[tableName]
	if !ok {
		perTable = make(map[string]int)
		o.counts[tableName] = perTable
	}
	perTable[field]++
	n := perTable[field]
	o.mu.Unlock()

	o.metrics.SetOptimizerCount(tableName, field, n)
	if n < o.threshold {
		return
	}

	col, ok := meta.Column(field)
	if !ok {
		return
	}
	kt, err := index.KeyTypeFromValueKind(col.Kind)
	if err != nil {
		o.logger.Warn("optimizer: cannot index column of this kind", "table", tableName, "field", field, "error", err)
		return
	}
	if err := tbl.CreateIndex(field, kt); err != nil {
		o.logger.Warn("optimizer: dynamic index creation failed", "table", tableName, "field", field, "error", err)
		return
	}
	o.logger.Info("optimizer: created dynamic index", "table", tableName, "field", field, "accesses", n)
	o.metrics.IndexCreated(tableName, field, "dynamic")

	o.mu.Lock()
	delete(o.counts[tableName], field)
	o.mu.Unlock()
}
