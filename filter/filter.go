// Package filter evaluates a Prisma-style where-tree against a record
// and sorts/paginates result sets (C11, §4.10).
package filter

import (
	"strings"

	"github.com/gqlstore/gqlstore/gqlerr"
	"github.com/gqlstore/gqlstore/storage"
)

// Node is one level of a where-tree: built by the query resolver while
// walking GraphQL arguments, not parsed from raw JSON, so its shape is
// exactly what §4.10 describes rather than a generic interface{} blob.
//
// A Node's entries are either:
//   - "AND"/"OR" -> []Node, every/any of which must match;
//   - "NOT"      -> Node, whose match is negated;
//   - a field name -> either a storage.Value (implicit equals) or an
//     Ops map naming one or more operators to apply to that field.
type Node map[string]interface{}

// Ops is a field's operator object, e.g. {"gt": storage.Int(1)}.
// "in"/"notIn" carry []storage.Value; "mode" carries a string
// ("default" or "insensitive") that modifies sibling string operators
// in the same Ops rather than being a predicate of its own.
type Ops map[string]interface{}

// Matches reports whether rec satisfies where. A nil or empty where
// matches every record (§8 "applying identity {} returns all records").
func Matches(rec *storage.Record, where Node) (bool, error) {
	for key, val := range where {
		ok, err := matchClause(rec, key, val)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchClause(rec *storage.Record, key string, val interface{}) (bool, error) {
	switch key {
	case "AND":
		children, ok := val.([]Node)
		if !ok {
			return false, gqlerr.New(gqlerr.KindInvalid, "filter.AND", nil)
		}
		for _, child := range children {
			ok, err := Matches(rec, child)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case "OR":
		children, ok := val.([]Node)
		if !ok {
			return false, gqlerr.New(gqlerr.KindInvalid, "filter.OR", nil)
		}
		for _, child := range children {
			ok, err := Matches(rec, child)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case "NOT":
		child, ok := val.(Node)
		if !ok {
			return false, gqlerr.New(gqlerr.KindInvalid, "filter.NOT", nil)
		}
		ok2, err := Matches(rec, child)
		if err != nil {
			return false, err
		}
		return !ok2, nil
	default:
		return matchField(rec, key, val)
	}
}

func matchField(rec *storage.Record, column string, val interface{}) (bool, error) {
	fv, _ := rec.Get(column) // zero Value{} (Kind Null) when absent

	switch v := val.(type) {
	case storage.Value:
		return evalOp(fv, "equals", v, "default")
	case Ops:
		mode := "default"
		if m, ok := v["mode"]; ok {
			if s, ok2 := m.(string); ok2 {
				mode = s
			}
		}
		for op, operand := range v {
			if op == "mode" {
				continue
			}
			ok, err := evalOp(fv, op, operand, mode)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, gqlerr.New(gqlerr.KindInvalid, "filter.matchField",
			nil)
	}
}

// evalOp applies a single operator to fv. When fv is null/absent, only
// equals and not are meaningful (§4.10: "if the field is absent or
// null, only {not: <non-null>} succeeds and direct equality against
// null succeeds"); every other operator is vacuously false.
func evalOp(fv storage.Value, op string, operand interface{}, mode string) (bool, error) {
	if fv.IsNull() {
		switch op {
		case "equals":
			return operandIsNull(operand), nil
		case "not":
			return !operandIsNull(operand), nil
		default:
			return false, nil
		}
	}

	switch op {
	case "equals":
		v, err := asValue(operand)
		if err != nil {
			return false, err
		}
		return valuesEqual(fv, v, mode), nil
	case "not":
		v, err := asValue(operand)
		if err != nil {
			return false, err
		}
		return !valuesEqual(fv, v, mode), nil
	case "in":
		list, err := asValueList(operand)
		if err != nil {
			return false, err
		}
		return inList(fv, list, mode), nil
	case "notIn":
		list, err := asValueList(operand)
		if err != nil {
			return false, err
		}
		return !inList(fv, list, mode), nil
	case "lt", "lte", "gt", "gte":
		v, err := asValue(operand)
		if err != nil {
			return false, err
		}
		c := storage.CompareValues(fv, v)
		switch op {
		case "lt":
			return c < 0, nil
		case "lte":
			return c <= 0, nil
		case "gt":
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case "contains", "startsWith", "endsWith":
		v, err := asValue(operand)
		if err != nil {
			return false, err
		}
		return stringOp(fv, v, mode, op), nil
	default:
		return false, gqlerr.New(gqlerr.KindInvalid, "filter.evalOp", nil)
	}
}

func operandIsNull(operand interface{}) bool {
	v, ok := operand.(storage.Value)
	return ok && v.IsNull()
}

func asValue(operand interface{}) (storage.Value, error) {
	v, ok := operand.(storage.Value)
	if !ok {
		return storage.Value{}, gqlerr.New(gqlerr.KindInvalid, "filter.asValue", nil)
	}
	return v, nil
}

func asValueList(operand interface{}) ([]storage.Value, error) {
	list, ok := operand.([]storage.Value)
	if !ok {
		return nil, gqlerr.New(gqlerr.KindInvalid, "filter.asValueList", nil)
	}
	return list, nil
}

func valuesEqual(a, b storage.Value, mode string) bool {
	if mode == "insensitive" && a.Kind == storage.KindString && b.Kind == storage.KindString {
		return strings.EqualFold(a.Str, b.Str)
	}
	return storage.CompareValues(a, b) == 0
}

func inList(fv storage.Value, list []storage.Value, mode string) bool {
	for _, v := range list {
		if valuesEqual(fv, v, mode) {
			return true
		}
	}
	return false
}

func stringOp(fv, operand storage.Value, mode, op string) bool {
	if fv.Kind != storage.KindString || operand.Kind != storage.KindString {
		return false
	}
	s, sub := fv.Str, operand.Str
	if mode == "insensitive" {
		s, sub = strings.ToLower(s), strings.ToLower(sub)
	}
	switch op {
	case "contains":
		return strings.Contains(s, sub)
	case "startsWith":
		return strings.HasPrefix(s, sub)
	default:
		return strings.HasSuffix(s, sub)
	}
}
