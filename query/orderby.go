package query

import (
	"strings"

	"github.com/graphql-go/graphql/language/ast"

	"github.com/gqlstore/gqlstore/filter"
	"github.com/gqlstore/gqlstore/gqlerr"
)

// buildOrderBy accepts either a single orderBy object or a list of them
// (§4.10: "a single object or an array of objects"), each shaped
// {field, direction}.
func buildOrderBy(v ast.Value, variables map[string]interface{}) ([]filter.OrderBy, error) {
	if vr, ok := v.(*ast.Variable); ok {
		raw, ok := variables[vr.Name.Value]
		if !ok {
			return nil, nil
		}
		return orderByFromRaw(raw)
	}
	if list, ok := v.(*ast.ListValue); ok {
		out := make([]filter.OrderBy, 0, len(list.Values))
		for _, item := range list.Values {
			ob, err := orderByFromObject(item, variables)
			if err != nil {
				return nil, err
			}
			out = append(out, ob)
		}
		return out, nil
	}
	ob, err := orderByFromObject(v, variables)
	if err != nil {
		return nil, err
	}
	return []filter.OrderBy{ob}, nil
}

func orderByFromObject(v ast.Value, variables map[string]interface{}) (filter.OrderBy, error) {
	obj, ok := v.(*ast.ObjectValue)
	if !ok {
		return filter.OrderBy{}, gqlerr.New(gqlerr.KindInvalid, "query.orderByFromObject", nil)
	}
	var ob filter.OrderBy
	for _, f := range obj.Fields {
		switch f.Name.Value {
		case "field":
			s, err := extractScalar(f.Value, variables)
			if err != nil {
				return ob, err
			}
			if str, ok := s.(string); ok {
				ob.Field = str
			}
		case "direction":
			s, err := extractScalar(f.Value, variables)
			if err != nil {
				return ob, err
			}
			if str, ok := s.(string); ok {
				ob.Desc = strings.EqualFold(str, "DESC")
			}
		}
	}
	return ob, nil
}

func orderByFromRaw(raw interface{}) ([]filter.OrderBy, error) {
	switch v := raw.(type) {
	case []interface{}:
		out := make([]filter.OrderBy, 0, len(v))
		for _, item := range v {
			ob, err := orderByFromRawObject(item)
			if err != nil {
				return nil, err
			}
			out = append(out, ob)
		}
		return out, nil
	case map[string]interface{}:
		ob, err := orderByFromRawObject(v)
		if err != nil {
			return nil, err
		}
		return []filter.OrderBy{ob}, nil
	default:
		return nil, nil
	}
}

func orderByFromRawObject(raw interface{}) (filter.OrderBy, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return filter.OrderBy{}, gqlerr.New(gqlerr.KindInvalid, "query.orderByFromRawObject", nil)
	}
	var ob filter.OrderBy
	if f, ok := m["field"].(string); ok {
		ob.Field = f
	}
	if d, ok := m["direction"].(string); ok {
		ob.Desc = strings.EqualFold(d, "DESC")
	}
	return ob, nil
}
