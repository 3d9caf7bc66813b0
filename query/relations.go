package query

import (
	"github.com/graphql-go/graphql/language/ast"

	"github.com/gqlstore/gqlstore/gqlerr"
	"github.com/gqlstore/gqlstore/schema"
	"github.com/gqlstore/gqlstore/storage"
)

// batchCache holds one request's relationship lookups, scoped to a
// single projectRecord fan-out (one page of a connection, or one
// singular/mutation record). It exists so ManyToOne/OneToOne/ManyToMany
// targets and OneToMany back-references are resolved with exactly one
// full read of the related table per relation field, never one read per
// parent record (§8: "3 users each with postsIds[...] totalling 7
// distinct post ids... exactly one full read over Post, not three").
type batchCache struct {
	byID      map[string]map[string]*storage.Record   // table -> id -> record
	byParent  map[string]map[string][]*storage.Record // "table.column" -> parent id -> children
	loadedIDs map[string]bool                         // table names already fully scanned for byID
}

func newBatchCache() *batchCache {
	return &batchCache{
		byID:      make(map[string]map[string]*storage.Record),
		byParent:  make(map[string]map[string][]*storage.Record),
		loadedIDs: make(map[string]bool),
	}
}

// preload ensures every id in want is resolved in the byID cache for
// target, reading target's table at most once regardless of how many
// distinct ids or how many calling records need them.
func (c *batchCache) preload(target *entity, want map[string]bool) error {
	if len(want) == 0 || c.loadedIDs[target.name] {
		return nil
	}
	bucket, ok := c.byID[target.name]
	if !ok {
		bucket = make(map[string]*storage.Record)
		c.byID[target.name] = bucket
	}
	all, err := target.tbl.SelectAll()
	if err != nil {
		return err
	}
	for _, rec := range all {
		if id, ok := rec.ID(); ok {
			bucket[id] = rec
		}
	}
	c.loadedIDs[target.name] = true
	return nil
}

func (c *batchCache) get(table, id string) (*storage.Record, bool) {
	bucket, ok := c.byID[table]
	if !ok {
		return nil, false
	}
	rec, ok := bucket[id]
	return rec, ok
}

// preloadReverse groups every record of target's table by the value of
// fkColumn, one full scan regardless of how many parents need it.
func (c *batchCache) preloadReverse(target *entity, fkColumn string) error {
	key := target.name + "." + fkColumn
	if _, ok := c.byParent[key]; ok {
		return nil
	}
	all, err := target.tbl.SelectAll()
	if err != nil {
		return err
	}
	grouped := make(map[string][]*storage.Record)
	for _, rec := range all {
		fv, ok := rec.Get(fkColumn)
		if !ok {
			continue
		}
		switch fv.Kind {
		case storage.KindString:
			if fv.Str != "" {
				grouped[fv.Str] = append(grouped[fv.Str], rec)
			}
		case storage.KindList:
			for _, item := range fv.List {
				if item.Kind == storage.KindString && item.Str != "" {
					grouped[item.Str] = append(grouped[item.Str], rec)
				}
			}
		}
	}
	c.byParent[key] = grouped
	return nil
}

func (c *batchCache) reverse(table, fkColumn, parentID string) []*storage.Record {
	bucket, ok := c.byParent[table+"."+fkColumn]
	if !ok {
		return nil
	}
	return bucket[parentID]
}

// findBackReferenceColumn locates, on target's metadata, the storage
// field that points back at ownerEntity via ManyToOne/OneToOne — the
// convention schema.ParseSDL relies on when it classifies the other
// side as OneToMany without itself recording the child's column name.
// The child stores that reference under its own foreign-key field
// (§4.9), so this returns StorageKey, not the GraphQL field name.
func findBackReferenceColumn(target *schema.TableMetadata, ownerEntity string) (string, bool) {
	for _, c := range target.Columns {
		if c.RelatedTable == ownerEntity &&
			(c.Relation == schema.RelationManyToOne || c.Relation == schema.RelationOneToOne) {
			return c.StorageKey(), true
		}
	}
	return "", false
}

// preloadRelations scans sel's direct fields for relationship columns of
// e and warms cache for all of recs in one pass per relation field.
// Batching goes one selection level deep: a relation field nested inside
// another relation field's selection set is resolved per-parent-record
// instead, which is the documented limit of this batching pass.
func (r *Resolver) preloadRelations(e *entity, recs []*storage.Record, sel *ast.SelectionSet, cache *batchCache) error {
	if sel == nil {
		return nil
	}
	for _, s := range sel.Selections {
		f, ok := s.(*ast.Field)
		if !ok {
			continue
		}
		col, ok := e.meta.Column(f.Name.Value)
		if !ok || col.Relation == schema.RelationNone {
			continue
		}
		target, ok := r.entities[col.RelatedTable]
		if !ok {
			continue
		}
		switch col.Relation {
		case schema.RelationManyToOne, schema.RelationOneToOne:
			want := make(map[string]bool)
			for _, rec := range recs {
				if fv, ok := rec.Get(col.StorageKey()); ok && fv.Kind == storage.KindString && fv.Str != "" {
					want[fv.Str] = true
				}
			}
			if err := cache.preload(target, want); err != nil {
				return err
			}
		case schema.RelationManyToMany:
			want := make(map[string]bool)
			for _, rec := range recs {
				fv, _ := rec.Get(col.StorageKey())
				for _, idv := range fv.List {
					if idv.Kind == storage.KindString && idv.Str != "" {
						want[idv.Str] = true
					}
				}
			}
			if err := cache.preload(target, want); err != nil {
				return err
			}
		case schema.RelationOneToMany:
			fk, ok := findBackReferenceColumn(target.meta, e.name)
			if !ok {
				continue
			}
			if err := cache.preloadReverse(target, fk); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Resolver) resolveRelation(owner *entity, rec *storage.Record, col schema.Column, field *ast.Field, variables map[string]interface{}, cache *batchCache) (interface{}, error) {
	target, ok := r.entities[col.RelatedTable]
	if !ok {
		return nil, gqlerr.New(gqlerr.KindNotFound, "query.resolveRelation", nil)
	}
	switch col.Relation {
	case schema.RelationManyToOne, schema.RelationOneToOne:
		fv, ok := rec.Get(col.StorageKey())
		if !ok || fv.IsNull() || fv.Str == "" {
			return nil, nil
		}
		related, ok := cache.get(target.name, fv.Str)
		if !ok {
			return nil, nil
		}
		return r.projectRecord(target, related, field.SelectionSet, variables, cache)
	case schema.RelationManyToMany:
		fv, _ := rec.Get(col.StorageKey())
		out := make([]interface{}, 0, len(fv.List))
		for _, idv := range fv.List {
			if idv.Kind != storage.KindString {
				continue
			}
			related, ok := cache.get(target.name, idv.Str)
			if !ok {
				continue
			}
			proj, err := r.projectRecord(target, related, field.SelectionSet, variables, cache)
			if err != nil {
				return nil, err
			}
			out = append(out, proj)
		}
		return out, nil
	case schema.RelationOneToMany:
		fk, ok := findBackReferenceColumn(target.meta, owner.name)
		if !ok {
			return []interface{}{}, nil
		}
		ownID, _ := rec.ID()
		children := cache.reverse(target.name, fk, ownID)
		out := make([]interface{}, 0, len(children))
		for _, child := range children {
			proj, err := r.projectRecord(target, child, field.SelectionSet, variables, cache)
			if err != nil {
				return nil, err
			}
			out = append(out, proj)
		}
		return out, nil
	default:
		return nil, nil
	}
}
