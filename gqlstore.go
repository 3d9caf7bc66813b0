// Package gqlstore is the store's public entry point (§6): open a
// data directory, bootstrap a schema and seed data into it, and
// resolve GraphQL documents against the opened tables. Grounded on
// Felmond13-novusdb's api/db.go lifecycle (Open/OpenReadOnly/OpenMemory
// + Close around a shared pager/executor pair), adapted here to open
// one table handle per SDL type rather than one shared pager, since
// each table is its own file (§6).
package gqlstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/graphql-go/graphql/language/parser"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gqlstore/gqlstore/config"
	"github.com/gqlstore/gqlstore/gqlerr"
	"github.com/gqlstore/gqlstore/metrics"
	"github.com/gqlstore/gqlstore/query"
	"github.com/gqlstore/gqlstore/schema"
	"github.com/gqlstore/gqlstore/storage"
	"github.com/gqlstore/gqlstore/table"
)

// DB is one opened store: a named table per SDL type, a shared
// resolver, and the optimizer/metrics/logger every table and the
// resolver were built against.
type DB struct {
	cfg       *config.Config
	tables    map[string]*table.Table
	metas     map[string]*schema.TableMetadata
	resolver  *query.Resolver
	optimizer *query.Optimizer
	metrics   *metrics.Registry
	logger    *slog.Logger
	readOnly  bool
}

// Option customizes a DB's logger/metrics at open time, the way
// table.Table and query.Optimizer already accept nil-safe-defaulted
// dependencies.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Registry
}

// WithLogger sets the *slog.Logger every table and the resolver log
// through.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithMetrics registers the store's collectors against reg instead of
// running with metrics.Noop().
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.metrics = metrics.New(reg) }
}

func resolveOptions(opts []Option) *options {
	o := &options{}
	for _, apply := range opts {
		apply(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = metrics.Noop()
	}
	return o
}

// Open opens every "<name>.tbl" file already present under cfg.DataDir
// for read and write. Use LoadSchema first to create tables in an empty
// data-dir.
func Open(cfg *config.Config, opts ...Option) (*DB, error) {
	return open(cfg, false, opts)
}

// OpenReadOnly opens the same set of tables as Open, but rejects every
// mutation (create/update/delete) with gqlerr.KindClosed, the per-table
// enforcement of §6's "toute tentative d'écriture... retournera une
// erreur".
func OpenReadOnly(cfg *config.Config, opts ...Option) (*DB, error) {
	return open(cfg, true, opts)
}

func open(cfg *config.Config, readOnly bool, opts []Option) (*DB, error) {
	o := resolveOptions(opts)
	names, err := existingTableNames(cfg.DataDir)
	if err != nil {
		return nil, gqlerr.New(gqlerr.KindIO, "gqlstore.Open", err)
	}
	tables := make(map[string]*table.Table, len(names))
	metas := make(map[string]*schema.TableMetadata, len(names))
	for _, name := range names {
		var t *table.Table
		var err error
		if readOnly {
			t, err = table.OpenReadOnly(cfg.DataDir, name, cfg)
		} else {
			t, err = table.Open(cfg.DataDir, name, cfg)
		}
		if err != nil {
			for _, opened := range tables {
				opened.Close()
			}
			return nil, err
		}
		tables[t.Metadata().Name] = t
		metas[t.Metadata().Name] = t.Metadata()
	}
	return newDB(cfg, tables, metas, readOnly, o), nil
}

func newDB(cfg *config.Config, tables map[string]*table.Table, metas map[string]*schema.TableMetadata, readOnly bool, o *options) *DB {
	optimizer := query.NewOptimizer(cfg.OptimizerThreshold, o.logger, o.metrics)
	resolver := query.NewResolver(tables, metas, optimizer, o.logger, o.metrics)
	return &DB{
		cfg:       cfg,
		tables:    tables,
		metas:     metas,
		resolver:  resolver,
		optimizer: optimizer,
		metrics:   o.metrics,
		logger:    o.logger,
		readOnly:  readOnly,
	}
}

// existingTableNames lists the SDL type names with a "<name>.tbl" file
// already present under dir (an empty, not-yet-created dir yields none,
// not an error).
func existingTableNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tbl") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".tbl"))
	}
	return names, nil
}

// Close flushes and closes every table handle.
func (db *DB) Close() error {
	var first error
	for _, t := range db.tables {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Resolve answers a parsed GraphQL document, the core's sole query/
// mutation surface (§6: "the core offers a resolve(document,
// variables) entry point... No HTTP, no transport"). documentText is
// parsed with graphql-go's own language/parser, so the hosting process
// never has to construct an *ast.Document by hand.
func (db *DB) Resolve(documentText, operationName string, variables map[string]interface{}) (*query.Result, error) {
	doc, err := parser.Parse(parser.ParseParams{Source: documentText})
	if err != nil {
		return nil, gqlerr.New(gqlerr.KindInvalid, "gqlstore.Resolve", err)
	}
	return db.resolver.Execute(doc, operationName, variables), nil
}

// TableNames lists the currently open tables, in no particular order.
func (db *DB) TableNames() []string {
	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	return names
}

// LoadSchema parses an SDL document and creates one table per declared
// type under cfg.DataDir, returning the derived metadata (§6's
// "load-schema(text) entry point that returns a list of derived table
// metadata records"). Types that already have a "<name>.tbl" file are
// left untouched; LoadSchema never alters an existing table's data.
func LoadSchema(cfg *config.Config, sdl string, opts ...Option) ([]*schema.TableMetadata, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, gqlerr.New(gqlerr.KindIO, "gqlstore.LoadSchema", err)
	}
	metas, _, err := schema.ParseSDL(sdl)
	if err != nil {
		return nil, err
	}
	created := make([]*schema.TableMetadata, 0, len(metas))
	for _, meta := range metas {
		path := filepath.Join(cfg.DataDir, meta.Name+".tbl")
		if _, err := os.Stat(path); err == nil {
			created = append(created, meta)
			continue
		}
		t, err := table.Create(cfg.DataDir, meta.Name, meta, cfg)
		if err != nil {
			return nil, err
		}
		t.Close()
		created = append(created, meta)
	}
	return created, nil
}

// LoadWarning reports the records of a load-data payload addressed at
// a table this store has no schema for, and how many there were (§6: "ignoring unknown tables
// with a structured warning").
type LoadWarning struct {
	Table string
	Count int
}

// LoadData inserts every record of a `{"<table>": [...]}` JSON payload
// into its matching table, ignoring tables with no matching open handle
// and reporting them as LoadWarnings instead of failing the whole
// batch (§6).
func (db *DB) LoadData(payload []byte) ([]LoadWarning, error) {
	if db.readOnly {
		return nil, gqlerr.New(gqlerr.KindClosed, "gqlstore.LoadData", fmt.Errorf("store is read-only"))
	}
	var batches map[string][]map[string]interface{}
	if err := json.Unmarshal(payload, &batches); err != nil {
		return nil, gqlerr.New(gqlerr.KindInvalid, "gqlstore.LoadData", err)
	}
	var warnings []LoadWarning
	for tableName, records := range batches {
		t, ok := db.tables[tableName]
		if !ok {
			warnings = append(warnings, LoadWarning{Table: tableName, Count: len(records)})
			db.logger.Warn("gqlstore: load-data addressed an unknown table", "table", tableName, "records", len(records))
			continue
		}
		meta := t.Metadata()
		for _, raw := range records {
			rec, err := recordFromJSON(raw, meta)
			if err != nil {
				return warnings, err
			}
			id, _ := rec.ID()
			if id == "" {
				return warnings, gqlerr.New(gqlerr.KindInvalid, "gqlstore.LoadData",
					fmt.Errorf("record for table %q is missing an id", tableName))
			}
			if err := t.Insert(id, rec, true); err != nil {
				return warnings, err
			}
		}
	}
	return warnings, nil
}

// recordFromJSON builds a storage.Record from one decoded JSON object,
// coercing each field against meta's declared column kind the way
// query.recordFromRawMap does for a mutation's `input` argument —
// load-data is a bulk-insert path, not a GraphQL operation, so it
// builds records directly rather than through the resolver.
//
// A relation column is looked up and stored under its StorageKey, not
// its GraphQL name: per §4.9/§8 scenario 4, a seed payload gives the
// foreign-key field directly (a User record carries "postsIds", not
// "posts"). OneToMany columns are virtual — the child side owns the
// reference, and a OneToMany field never appears as a key in its own
// table's seed object — so they're skipped here entirely.
func recordFromJSON(raw map[string]interface{}, meta *schema.TableMetadata) (*storage.Record, error) {
	rec := storage.NewRecord()
	for _, col := range meta.Columns {
		if col.Relation == schema.RelationOneToMany {
			continue
		}
		val, present := raw[col.StorageKey()]
		if !present || val == nil {
			continue
		}
		if col.IsList {
			items, ok := val.([]interface{})
			if !ok {
				return nil, gqlerr.New(gqlerr.KindSchemaMismatch, "gqlstore.recordFromJSON", nil)
			}
			vals := make([]storage.Value, 0, len(items))
			for _, it := range items {
				sv, err := jsonScalar(it, col.Kind)
				if err != nil {
					return nil, err
				}
				vals = append(vals, sv)
			}
			rec.Set(col.StorageKey(), storage.List(vals...))
			continue
		}
		sv, err := jsonScalar(val, col.Kind)
		if err != nil {
			return nil, err
		}
		rec.Set(col.StorageKey(), sv)
	}
	return rec, nil
}

func jsonScalar(val interface{}, kind storage.ValueKind) (storage.Value, error) {
	switch kind {
	case storage.KindString:
		s, ok := val.(string)
		if !ok {
			return storage.Value{}, gqlerr.New(gqlerr.KindSchemaMismatch, "gqlstore.jsonScalar", nil)
		}
		return storage.String(s), nil
	case storage.KindInt:
		f, ok := val.(float64)
		if !ok {
			return storage.Value{}, gqlerr.New(gqlerr.KindSchemaMismatch, "gqlstore.jsonScalar", nil)
		}
		return storage.Int(int64(f)), nil
	case storage.KindFloat:
		f, ok := val.(float64)
		if !ok {
			return storage.Value{}, gqlerr.New(gqlerr.KindSchemaMismatch, "gqlstore.jsonScalar", nil)
		}
		return storage.Float(f), nil
	case storage.KindBool:
		b, ok := val.(bool)
		if !ok {
			return storage.Value{}, gqlerr.New(gqlerr.KindSchemaMismatch, "gqlstore.jsonScalar", nil)
		}
		return storage.Bool(b), nil
	default:
		return storage.Value{}, gqlerr.New(gqlerr.KindSchemaMismatch, "gqlstore.jsonScalar", nil)
	}
}
