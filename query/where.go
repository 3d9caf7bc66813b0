package query

import (
	"github.com/graphql-go/graphql/language/ast"

	"github.com/gqlstore/gqlstore/filter"
	"github.com/gqlstore/gqlstore/gqlerr"
	"github.com/gqlstore/gqlstore/schema"
	"github.com/gqlstore/gqlstore/storage"
)

// buildWhere turns a `where` argument's AST value into a filter.Node,
// coercing every leaf against its column's declared kind (§4.10, §4.11).
func buildWhere(v ast.Value, variables map[string]interface{}, meta *schema.TableMetadata) (filter.Node, error) {
	if vr, ok := v.(*ast.Variable); ok {
		raw, ok := variables[vr.Name.Value]
		if !ok {
			return nil, nil
		}
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, gqlerr.New(gqlerr.KindInvalid, "query.buildWhere", nil)
		}
		return whereFromRawMap(m, meta)
	}
	obj, ok := v.(*ast.ObjectValue)
	if !ok {
		return nil, gqlerr.New(gqlerr.KindInvalid, "query.buildWhere", nil)
	}
	node := filter.Node{}
	for _, f := range obj.Fields {
		switch f.Name.Value {
		case "AND", "OR":
			list, ok := f.Value.(*ast.ListValue)
			if !ok {
				return nil, gqlerr.New(gqlerr.KindInvalid, "query.buildWhere", nil)
			}
			children := make([]filter.Node, 0, len(list.Values))
			for _, item := range list.Values {
				child, err := buildWhere(item, variables, meta)
				if err != nil {
					return nil, err
				}
				children = append(children, child)
			}
			node[f.Name.Value] = children
		case "NOT":
			child, err := buildWhere(f.Value, variables, meta)
			if err != nil {
				return nil, err
			}
			node["NOT"] = child
		default:
			col, ok := meta.Column(f.Name.Value)
			if !ok {
				return nil, gqlerr.New(gqlerr.KindInvalid, "query.buildWhere", nil)
			}
			val, err := buildFieldValue(f.Value, variables, col)
			if err != nil {
				return nil, err
			}
			node[col.Name] = val
		}
	}
	return node, nil
}

func buildFieldValue(v ast.Value, variables map[string]interface{}, col schema.Column) (interface{}, error) {
	obj, ok := v.(*ast.ObjectValue)
	if !ok {
		return coerceValue(v, variables, col.Kind)
	}
	ops := filter.Ops{}
	for _, of := range obj.Fields {
		switch of.Name.Value {
		case "mode":
			s, err := extractScalar(of.Value, variables)
			if err != nil {
				return nil, err
			}
			if str, ok := s.(string); ok {
				ops["mode"] = str
			}
		case "in", "notIn":
			list, err := coerceValueList(of.Value, variables, col.Kind)
			if err != nil {
				return nil, err
			}
			ops[of.Name.Value] = list
		default:
			sv, err := coerceValue(of.Value, variables, col.Kind)
			if err != nil {
				return nil, err
			}
			ops[of.Name.Value] = sv
		}
	}
	return ops, nil
}

// whereFromRawMap builds a filter.Node from a `where` argument supplied
// entirely through GraphQL variables (already native Go values from a
// host's JSON decode), the variable-reference twin of buildWhere.
func whereFromRawMap(m map[string]interface{}, meta *schema.TableMetadata) (filter.Node, error) {
	node := filter.Node{}
	for key, val := range m {
		switch key {
		case "AND", "OR":
			items, ok := val.([]interface{})
			if !ok {
				return nil, gqlerr.New(gqlerr.KindInvalid, "query.whereFromRawMap", nil)
			}
			children := make([]filter.Node, 0, len(items))
			for _, item := range items {
				raw, ok := item.(map[string]interface{})
				if !ok {
					return nil, gqlerr.New(gqlerr.KindInvalid, "query.whereFromRawMap", nil)
				}
				child, err := whereFromRawMap(raw, meta)
				if err != nil {
					return nil, err
				}
				children = append(children, child)
			}
			node[key] = children
		case "NOT":
			raw, ok := val.(map[string]interface{})
			if !ok {
				return nil, gqlerr.New(gqlerr.KindInvalid, "query.whereFromRawMap", nil)
			}
			child, err := whereFromRawMap(raw, meta)
			if err != nil {
				return nil, err
			}
			node[key] = child
		default:
			col, ok := meta.Column(key)
			if !ok {
				return nil, gqlerr.New(gqlerr.KindInvalid, "query.whereFromRawMap", nil)
			}
			fv, err := fieldValueFromRaw(val, col)
			if err != nil {
				return nil, err
			}
			node[col.Name] = fv
		}
	}
	return node, nil
}

func fieldValueFromRaw(val interface{}, col schema.Column) (interface{}, error) {
	m, ok := val.(map[string]interface{})
	if !ok {
		return coerceRaw(val, col.Kind)
	}
	ops := filter.Ops{}
	for name, raw := range m {
		switch name {
		case "mode":
			if s, ok := raw.(string); ok {
				ops["mode"] = s
			}
		case "in", "notIn":
			items, ok := raw.([]interface{})
			if !ok {
				return nil, gqlerr.New(gqlerr.KindInvalid, "query.fieldValueFromRaw", nil)
			}
			vals := make([]storage.Value, 0, len(items))
			for _, it := range items {
				cv, err := coerceRaw(it, col.Kind)
				if err != nil {
					return nil, err
				}
				vals = append(vals, cv)
			}
			ops[name] = vals
		default:
			cv, err := coerceRaw(raw, col.Kind)
			if err != nil {
				return nil, err
			}
			ops[name] = cv
		}
	}
	return ops, nil
}
