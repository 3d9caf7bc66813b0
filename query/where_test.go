package query

import (
	"testing"

	"github.com/gqlstore/gqlstore/filter"
	"github.com/gqlstore/gqlstore/schema"
	"github.com/gqlstore/gqlstore/storage"
)

func testMeta() *schema.TableMetadata {
	return &schema.TableMetadata{
		Columns: []schema.Column{
			{Name: "id", Kind: storage.KindString},
			{Name: "name", Kind: storage.KindString},
			{Name: "age", Kind: storage.KindInt},
		},
	}
}

func TestWhereFromRawMapSimpleEquals(t *testing.T) {
	node, err := whereFromRawMap(map[string]interface{}{"name": "Luke"}, testMeta())
	if err != nil {
		t.Fatalf("whereFromRawMap: %v", err)
	}
	sv, ok := node["name"].(storage.Value)
	if !ok || sv.Str != "Luke" {
		t.Fatalf("expected a plain equals value for name, got %#v", node["name"])
	}
}

func TestWhereFromRawMapOperatorObject(t *testing.T) {
	node, err := whereFromRawMap(map[string]interface{}{
		"age": map[string]interface{}{"gte": float64(18)},
	}, testMeta())
	if err != nil {
		t.Fatalf("whereFromRawMap: %v", err)
	}
	ops, ok := node["age"].(filter.Ops)
	if !ok {
		t.Fatalf("expected filter.Ops for age, got %#v", node["age"])
	}
	gte, ok := ops["gte"].(storage.Value)
	if !ok || gte.Int != 18 {
		t.Fatalf("expected gte 18, got %#v", ops["gte"])
	}
}

func TestWhereFromRawMapAndOrNot(t *testing.T) {
	raw := map[string]interface{}{
		"AND": []interface{}{
			map[string]interface{}{"name": "Luke"},
			map[string]interface{}{"NOT": map[string]interface{}{"age": map[string]interface{}{"lt": float64(10)}}},
		},
	}
	node, err := whereFromRawMap(raw, testMeta())
	if err != nil {
		t.Fatalf("whereFromRawMap: %v", err)
	}
	children, ok := node["AND"].([]filter.Node)
	if !ok || len(children) != 2 {
		t.Fatalf("expected two AND children, got %#v", node["AND"])
	}
	if _, ok := children[1]["NOT"].(filter.Node); !ok {
		t.Fatalf("expected NOT child to be a filter.Node, got %#v", children[1]["NOT"])
	}
}

func TestWhereFromRawMapUnknownColumnRejected(t *testing.T) {
	if _, err := whereFromRawMap(map[string]interface{}{"nope": "x"}, testMeta()); err == nil {
		t.Fatal("expected an error for a column the metadata does not declare")
	}
}

func TestWhereFromRawMapInNotIn(t *testing.T) {
	node, err := whereFromRawMap(map[string]interface{}{
		"name": map[string]interface{}{"in": []interface{}{"Luke", "Leia"}},
	}, testMeta())
	if err != nil {
		t.Fatalf("whereFromRawMap: %v", err)
	}
	ops := node["name"].(filter.Ops)
	in, ok := ops["in"].([]storage.Value)
	if !ok || len(in) != 2 {
		t.Fatalf("expected an in list of two values, got %#v", ops["in"])
	}
}
