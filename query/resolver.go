// Package query answers parsed GraphQL documents against a set of
// tables: query/mutation dispatch, filter/sort/paginate, relationship
// batch-loading and the dynamic index optimizer (C12/C13, §4.11-§4.12).
package query

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/gqlstore/gqlstore/filter"
	"github.com/gqlstore/gqlstore/gqlerr"
	"github.com/gqlstore/gqlstore/metrics"
	"github.com/gqlstore/gqlstore/schema"
	"github.com/gqlstore/gqlstore/storage"
	"github.com/gqlstore/gqlstore/table"
)

// entity bundles one SDL object type's table handle and metadata, the
// unit the resolver dispatches a GraphQL field against.
type entity struct {
	name string
	tbl  *table.Table
	meta *schema.TableMetadata
}

// Resolver answers one parsed document (§4.11). It holds no request
// state between calls to Execute; callers create one Resolver per
// opened store and reuse it across every request.
type Resolver struct {
	entities map[string]*entity // by SDL type name, e.g. "Character"
	singular map[string]string  // query field name -> entity name
	plural   map[string]string  // query field name -> entity name

	optimizer *Optimizer
	logger    *slog.Logger
	metrics   *metrics.Registry
	newID     func() string
}

// NewResolver builds a Resolver over tables, one per SDL type name.
func NewResolver(tables map[string]*table.Table, metas map[string]*schema.TableMetadata, opt *Optimizer, logger *slog.Logger, reg *metrics.Registry) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = metrics.Noop()
	}
	r := &Resolver{
		entities:  make(map[string]*entity, len(tables)),
		singular:  make(map[string]string, len(tables)),
		plural:    make(map[string]string, len(tables)),
		optimizer: opt,
		logger:    logger,
		metrics:   reg,
		newID:     uuid.NewString,
	}
	for name, tbl := range tables {
		r.entities[name] = &entity{name: name, tbl: tbl, meta: metas[name]}
		r.singular[lowerFirst(name)] = name
		r.plural[pluralize(lowerFirst(name))] = name
	}
	return r
}

// Result is one request's outcome: whatever top-level fields resolved
// successfully, plus one FieldError per field that failed. A failed
// mutation field never aborts its siblings (§4.11 "per-field error
// isolation").
type Result struct {
	Data   map[string]interface{}
	Errors []*FieldError
}

// FieldError reports one top-level field's failure.
type FieldError struct {
	Path    []string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

// Execute runs the named operation in doc (or the document's only
// operation, if operationName is empty) against variables.
func (r *Resolver) Execute(doc *ast.Document, operationName string, variables map[string]interface{}) *Result {
	if variables == nil {
		variables = map[string]interface{}{}
	}
	op, err := findOperation(doc, operationName)
	if err != nil {
		return &Result{Errors: []*FieldError{{Message: err.Error()}}}
	}
	res := &Result{Data: make(map[string]interface{})}
	if op.SelectionSet == nil {
		return res
	}
	for _, sel := range op.SelectionSet.Selections {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		alias := fieldAlias(field)
		var val interface{}
		var ferr error
		if op.Operation == "mutation" {
			val, ferr = r.resolveMutationField(field, variables)
		} else {
			val, ferr = r.resolveQueryField(field, variables)
		}
		if ferr != nil {
			res.Errors = append(res.Errors, &FieldError{Path: []string{alias}, Message: ferr.Error()})
			res.Data[alias] = nil
			continue
		}
		res.Data[alias] = val
	}
	return res
}

func findOperation(doc *ast.Document, operationName string) (*ast.OperationDefinition, error) {
	var ops []*ast.OperationDefinition
	for _, d := range doc.Definitions {
		if od, ok := d.(*ast.OperationDefinition); ok {
			ops = append(ops, od)
		}
	}
	if len(ops) == 0 {
		return nil, gqlerr.New(gqlerr.KindInvalid, "query.Execute", fmt.Errorf("document has no operations"))
	}
	if operationName == "" {
		if len(ops) > 1 {
			return nil, gqlerr.New(gqlerr.KindInvalid, "query.Execute",
				fmt.Errorf("document has %d operations, operationName is required", len(ops)))
		}
		return ops[0], nil
	}
	for _, o := range ops {
		if o.Name != nil && o.Name.Value == operationName {
			return o, nil
		}
	}
	return nil, gqlerr.New(gqlerr.KindNotFound, "query.Execute", fmt.Errorf("operation %q not found", operationName))
}

func fieldAlias(f *ast.Field) string {
	if f.Alias != nil && f.Alias.Value != "" {
		return f.Alias.Value
	}
	return f.Name.Value
}

func findArgument(args []*ast.Argument, name string) *ast.Argument {
	for _, a := range args {
		if a.Name.Value == name {
			return a
		}
	}
	return nil
}

// ---------- queries ----------

func (r *Resolver) resolveQueryField(field *ast.Field, variables map[string]interface{}) (interface{}, error) {
	name := field.Name.Value
	if entName, ok := r.singular[name]; ok {
		return r.resolveSingular(r.entities[entName], field, variables)
	}
	if entName, ok := r.plural[name]; ok {
		return r.resolveConnection(r.entities[entName], field, variables)
	}
	return nil, gqlerr.New(gqlerr.KindNotFound, "query.resolveQueryField", fmt.Errorf("unknown field %q", name))
}

func (r *Resolver) resolveSingular(e *entity, field *ast.Field, variables map[string]interface{}) (interface{}, error) {
	idArg := findArgument(field.Arguments, "id")
	if idArg == nil {
		return nil, gqlerr.New(gqlerr.KindInvalid, "query.resolveSingular",
			fmt.Errorf("%s requires an id argument", field.Name.Value))
	}
	idVal, err := coerceValue(idArg.Value, variables, storage.KindString)
	if err != nil {
		return nil, err
	}
	rec, ok, err := e.tbl.Find(idVal.Str)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	cache := newBatchCache()
	if err := r.preloadRelations(e, []*storage.Record{rec}, field.SelectionSet, cache); err != nil {
		return nil, err
	}
	return r.projectRecord(e, rec, field.SelectionSet, variables, cache)
}

// resolveConnection answers a plural field, whose only published
// subfield is "items" (§4.11's Connection-pattern design note: where/
// orderBy/skip/take live on items, not on the plural field itself, so a
// client can request e.g. two independently-paginated item sets under
// different aliases in one query).
func (r *Resolver) resolveConnection(e *entity, field *ast.Field, variables map[string]interface{}) (interface{}, error) {
	out := make(map[string]interface{})
	if field.SelectionSet == nil {
		return out, nil
	}
	for _, sel := range field.SelectionSet.Selections {
		sub, ok := sel.(*ast.Field)
		if !ok || sub.Name.Value != "items" {
			continue
		}
		items, err := r.resolveItems(e, sub, variables)
		if err != nil {
			return nil, err
		}
		out[fieldAlias(sub)] = items
	}
	return out, nil
}

func (r *Resolver) resolveItems(e *entity, field *ast.Field, variables map[string]interface{}) ([]interface{}, error) {
	var where filter.Node
	var orderBy []filter.OrderBy
	skip, take := 0, -1

	for _, arg := range field.Arguments {
		switch arg.Name.Value {
		case "where":
			w, err := buildWhere(arg.Value, variables, e.meta)
			if err != nil {
				return nil, err
			}
			where = w
		case "orderBy":
			obs, err := buildOrderBy(arg.Value, variables)
			if err != nil {
				return nil, err
			}
			orderBy = obs
		case "skip":
			v, err := extractScalar(arg.Value, variables)
			if err != nil {
				return nil, err
			}
			if n, ok := toInt(v); ok {
				skip = n
			}
		case "take":
			v, err := extractScalar(arg.Value, variables)
			if err != nil {
				return nil, err
			}
			if n, ok := toInt(v); ok {
				take = n
			}
		}
	}

	if r.optimizer != nil && where != nil {
		r.optimizer.Observe(e.name, e.tbl, e.meta, where)
	}

	all, err := e.tbl.SelectAll()
	if err != nil {
		return nil, err
	}
	matched := all
	if where != nil {
		matched = make([]*storage.Record, 0, len(all))
		for _, rec := range all {
			ok, err := filter.Matches(rec, where)
			if err != nil {
				return nil, err
			}
			if ok {
				matched = append(matched, rec)
			}
		}
	}
	filter.Sort(matched, orderBy)
	page := filter.Paginate(matched, skip, take)

	cache := newBatchCache()
	if err := r.preloadRelations(e, page, field.SelectionSet, cache); err != nil {
		return nil, err
	}
	out := make([]interface{}, 0, len(page))
	for _, rec := range page {
		proj, err := r.projectRecord(e, rec, field.SelectionSet, variables, cache)
		if err != nil {
			return nil, err
		}
		out = append(out, proj)
	}
	return out, nil
}

// ---------- projection ----------

func (r *Resolver) projectRecord(e *entity, rec *storage.Record, sel *ast.SelectionSet, variables map[string]interface{}, cache *batchCache) (map[string]interface{}, error) {
	if sel == nil {
		return map[string]interface{}{}, nil
	}
	// Warm the cache for this record's own relation fields, so a relation
	// nested inside another relation's selection set resolves too.
	if err := r.preloadRelations(e, []*storage.Record{rec}, sel, cache); err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(sel.Selections))
	for _, s := range sel.Selections {
		f, ok := s.(*ast.Field)
		if !ok {
			continue
		}
		alias := fieldAlias(f)
		col, isColumn := e.meta.Column(f.Name.Value)
		switch {
		case !isColumn:
			out[alias] = nil
		case col.Relation != schema.RelationNone:
			val, err := r.resolveRelation(e, rec, col, f, variables, cache)
			if err != nil {
				return nil, err
			}
			out[alias] = val
		default:
			v, _ := rec.Get(col.StorageKey())
			out[alias] = toNative(v)
		}
	}
	return out, nil
}

func toNative(v storage.Value) interface{} {
	switch v.Kind {
	case storage.KindNull:
		return nil
	case storage.KindString:
		return v.Str
	case storage.KindInt:
		return v.Int
	case storage.KindFloat:
		return v.Flt
	case storage.KindBool:
		return v.Bool
	case storage.KindList:
		out := make([]interface{}, len(v.List))
		for i, e := range v.List {
			out[i] = toNative(e)
		}
		return out
	default:
		return nil
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

// ---------- mutations ----------

func (r *Resolver) resolveMutationField(field *ast.Field, variables map[string]interface{}) (interface{}, error) {
	name := field.Name.Value
	var prefix string
	for _, p := range []string{"create", "update", "delete"} {
		if strings.HasPrefix(name, p) {
			prefix = p
			break
		}
	}
	if prefix == "" {
		return nil, gqlerr.New(gqlerr.KindNotFound, "query.resolveMutationField", fmt.Errorf("unknown mutation field %q", name))
	}
	entName := strings.TrimPrefix(name, prefix)
	e, ok := r.entities[entName]
	if !ok {
		return nil, gqlerr.New(gqlerr.KindNotFound, "query.resolveMutationField", fmt.Errorf("unknown type %q", entName))
	}
	switch prefix {
	case "create":
		return r.resolveCreate(e, field, variables)
	case "update":
		return r.resolveUpdate(e, field, variables)
	default:
		return r.resolveDelete(e, field, variables)
	}
}

func (r *Resolver) resolveCreate(e *entity, field *ast.Field, variables map[string]interface{}) (interface{}, error) {
	arg := findArgument(field.Arguments, "input")
	if arg == nil {
		return nil, gqlerr.New(gqlerr.KindInvalid, "query.resolveCreate", fmt.Errorf("%s requires an input argument", field.Name.Value))
	}
	rec, err := buildRecordInput(arg.Value, variables, e.meta)
	if err != nil {
		return nil, err
	}
	id, ok := rec.ID()
	if !ok || id == "" {
		id = r.newID()
		rec.Set("id", storage.String(id))
	}
	if err := e.tbl.Insert(id, rec, false); err != nil {
		return nil, err
	}
	stored, _, err := e.tbl.Find(id)
	if err != nil {
		return nil, err
	}
	return r.projectSingle(e, stored, field, variables)
}

func (r *Resolver) resolveUpdate(e *entity, field *ast.Field, variables map[string]interface{}) (interface{}, error) {
	idArg := findArgument(field.Arguments, "id")
	inputArg := findArgument(field.Arguments, "input")
	if idArg == nil || inputArg == nil {
		return nil, gqlerr.New(gqlerr.KindInvalid, "query.resolveUpdate", fmt.Errorf("%s requires id and input arguments", field.Name.Value))
	}
	idVal, err := coerceValue(idArg.Value, variables, storage.KindString)
	if err != nil {
		return nil, err
	}
	partial, err := buildRecordInput(inputArg.Value, variables, e.meta)
	if err != nil {
		return nil, err
	}
	merged, err := e.tbl.Update(idVal.Str, partial)
	if err != nil {
		return nil, err
	}
	return r.projectSingle(e, merged, field, variables)
}

func (r *Resolver) resolveDelete(e *entity, field *ast.Field, variables map[string]interface{}) (interface{}, error) {
	idArg := findArgument(field.Arguments, "id")
	if idArg == nil {
		return nil, gqlerr.New(gqlerr.KindInvalid, "query.resolveDelete", fmt.Errorf("%s requires an id argument", field.Name.Value))
	}
	idVal, err := coerceValue(idArg.Value, variables, storage.KindString)
	if err != nil {
		return nil, err
	}
	prior, ok, err := e.tbl.Find(idVal.Str)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, gqlerr.New(gqlerr.KindNotFound, "query.resolveDelete", fmt.Errorf("id %q not found in %s", idVal.Str, e.name))
	}
	if err := e.tbl.Delete(idVal.Str); err != nil {
		return nil, err
	}
	return r.projectSingle(e, prior, field, variables)
}

func (r *Resolver) projectSingle(e *entity, rec *storage.Record, field *ast.Field, variables map[string]interface{}) (interface{}, error) {
	cache := newBatchCache()
	if err := r.preloadRelations(e, []*storage.Record{rec}, field.SelectionSet, cache); err != nil {
		return nil, err
	}
	return r.projectRecord(e, rec, field.SelectionSet, variables, cache)
}

func buildRecordInput(v ast.Value, variables map[string]interface{}, meta *schema.TableMetadata) (*storage.Record, error) {
	rec := storage.NewRecord()
	if vr, ok := v.(*ast.Variable); ok {
		raw, ok := variables[vr.Name.Value]
		if !ok {
			return rec, nil
		}
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, gqlerr.New(gqlerr.KindInvalid, "query.buildRecordInput", nil)
		}
		return recordFromRawMap(m, meta)
	}
	obj, ok := v.(*ast.ObjectValue)
	if !ok {
		return nil, gqlerr.New(gqlerr.KindInvalid, "query.buildRecordInput", nil)
	}
	for _, f := range obj.Fields {
		col, ok := meta.Column(f.Name.Value)
		if !ok || col.Relation == schema.RelationOneToMany {
			continue
		}
		var sv storage.Value
		var err error
		if col.IsList {
			sv, err = coerceListColumn(f.Value, variables, col.Kind)
		} else {
			sv, err = coerceValue(f.Value, variables, col.Kind)
		}
		if err != nil {
			return nil, err
		}
		rec.Set(col.StorageKey(), sv)
	}
	return rec, nil
}

func recordFromRawMap(m map[string]interface{}, meta *schema.TableMetadata) (*storage.Record, error) {
	rec := storage.NewRecord()
	for _, col := range meta.Columns {
		if col.Relation == schema.RelationOneToMany {
			continue
		}
		raw, present := m[col.Name]
		if !present {
			continue
		}
		var sv storage.Value
		var err error
		if col.IsList {
			items, ok := raw.([]interface{})
			if !ok {
				return nil, gqlerr.New(gqlerr.KindInvalid, "query.recordFromRawMap", nil)
			}
			vals := make([]storage.Value, 0, len(items))
			for _, it := range items {
				cv, cerr := coerceRaw(it, col.Kind)
				if cerr != nil {
					return nil, cerr
				}
				vals = append(vals, cv)
			}
			sv = storage.List(vals...)
		} else {
			sv, err = coerceRaw(raw, col.Kind)
		}
		if err != nil {
			return nil, err
		}
		rec.Set(col.StorageKey(), sv)
	}
	return rec, nil
}
