package query

import (
	"strconv"

	"github.com/graphql-go/graphql/language/ast"

	"github.com/gqlstore/gqlstore/gqlerr"
	"github.com/gqlstore/gqlstore/storage"
)

// coerceValue turns one AST value node (a literal or a $variable
// reference) into a storage.Value of the declared column kind. This is
// the query layer's half of DESIGN.md's risk note on schema/sdl.go:
// it is written against graphql-go v0.8.1's documented language/ast
// node shapes without a local copy to verify the exact field names
// against.
func coerceValue(v ast.Value, variables map[string]interface{}, kind storage.ValueKind) (storage.Value, error) {
	switch val := v.(type) {
	case *ast.Variable:
		raw, ok := variables[val.Name.Value]
		if !ok {
			return storage.Null(), nil
		}
		return coerceRaw(raw, kind)
	case *ast.NullValue:
		return storage.Null(), nil
	case *ast.IntValue:
		n, err := strconv.ParseInt(val.Value, 10, 64)
		if err != nil {
			return storage.Value{}, gqlerr.New(gqlerr.KindInvalid, "query.coerceValue", err)
		}
		if kind == storage.KindFloat {
			return storage.Float(float64(n)), nil
		}
		return storage.Int(n), nil
	case *ast.FloatValue:
		f, err := strconv.ParseFloat(val.Value, 64)
		if err != nil {
			return storage.Value{}, gqlerr.New(gqlerr.KindInvalid, "query.coerceValue", err)
		}
		return storage.Float(f), nil
	case *ast.StringValue:
		return storage.String(val.Value), nil
	case *ast.EnumValue:
		return storage.String(val.Value), nil
	case *ast.BooleanValue:
		return storage.Bool(val.Value), nil
	default:
		return storage.Value{}, gqlerr.New(gqlerr.KindInvalid, "query.coerceValue",
			nil)
	}
}

// coerceValueList coerces a GraphQL list literal (used by in/notIn) into
// a []storage.Value of kind.
func coerceValueList(v ast.Value, variables map[string]interface{}, kind storage.ValueKind) ([]storage.Value, error) {
	if vr, ok := v.(*ast.Variable); ok {
		raw, ok := variables[vr.Name.Value]
		if !ok {
			return nil, nil
		}
		items, ok := raw.([]interface{})
		if !ok {
			return nil, gqlerr.New(gqlerr.KindInvalid, "query.coerceValueList", nil)
		}
		out := make([]storage.Value, 0, len(items))
		for _, it := range items {
			sv, err := coerceRaw(it, kind)
			if err != nil {
				return nil, err
			}
			out = append(out, sv)
		}
		return out, nil
	}
	list, ok := v.(*ast.ListValue)
	if !ok {
		return nil, gqlerr.New(gqlerr.KindInvalid, "query.coerceValueList", nil)
	}
	out := make([]storage.Value, 0, len(list.Values))
	for _, item := range list.Values {
		sv, err := coerceValue(item, variables, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, nil
}

// coerceListColumn coerces a GraphQL list literal into the storage.List
// form a list-valued record column is stored as (as opposed to
// coerceValueList's []storage.Value, used by in/notIn operands).
func coerceListColumn(v ast.Value, variables map[string]interface{}, kind storage.ValueKind) (storage.Value, error) {
	vals, err := coerceValueList(v, variables, kind)
	if err != nil {
		return storage.Value{}, err
	}
	return storage.List(vals...), nil
}

// coerceRaw turns a native Go value (already produced by a host's JSON
// decode of an operation's `variables` map) into a storage.Value of
// kind, the way a GraphQL server's own scalar coercion would.
func coerceRaw(raw interface{}, kind storage.ValueKind) (storage.Value, error) {
	if raw == nil {
		return storage.Null(), nil
	}
	switch kind {
	case storage.KindString:
		s, ok := raw.(string)
		if !ok {
			return storage.Value{}, gqlerr.New(gqlerr.KindInvalid, "query.coerceRaw", nil)
		}
		return storage.String(s), nil
	case storage.KindInt:
		switch n := raw.(type) {
		case int64:
			return storage.Int(n), nil
		case int:
			return storage.Int(int64(n)), nil
		case float64:
			return storage.Int(int64(n)), nil
		}
	case storage.KindFloat:
		switch n := raw.(type) {
		case float64:
			return storage.Float(n), nil
		case int64:
			return storage.Float(float64(n)), nil
		case int:
			return storage.Float(float64(n)), nil
		}
	case storage.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return storage.Value{}, gqlerr.New(gqlerr.KindInvalid, "query.coerceRaw", nil)
		}
		return storage.Bool(b), nil
	}
	return storage.Value{}, gqlerr.New(gqlerr.KindInvalid, "query.coerceRaw", nil)
}

// extractScalar pulls a plain scalar argument value (string, int, bool)
// out of an AST node, used for skip/take/orderBy direction/mode, none
// of which are column-typed.
func extractScalar(v ast.Value, variables map[string]interface{}) (interface{}, error) {
	switch val := v.(type) {
	case *ast.Variable:
		raw, ok := variables[val.Name.Value]
		if !ok {
			return nil, nil
		}
		return raw, nil
	case *ast.IntValue:
		return strconv.ParseInt(val.Value, 10, 64)
	case *ast.StringValue:
		return val.Value, nil
	case *ast.EnumValue:
		return val.Value, nil
	case *ast.BooleanValue:
		return val.Value, nil
	case *ast.NullValue:
		return nil, nil
	default:
		return nil, gqlerr.New(gqlerr.KindInvalid, "query.extractScalar", nil)
	}
}
