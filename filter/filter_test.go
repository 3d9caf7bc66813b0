package filter

import (
	"testing"

	"github.com/gqlstore/gqlstore/storage"
)

func character(id, ctype string, height int64) *storage.Record {
	r := storage.NewRecord()
	r.Set("id", storage.String(id))
	r.Set("ctype", storage.String(ctype))
	r.Set("height", storage.Int(height))
	return r
}

func TestMatchesEmptyWhereMatchesEverything(t *testing.T) {
	rec := character("luke", "Human", 172)
	ok, err := Matches(rec, nil)
	if err != nil || !ok {
		t.Fatalf("Matches(nil) = %v, %v; want true, nil", ok, err)
	}
	ok, err = Matches(rec, Node{})
	if err != nil || !ok {
		t.Fatalf("Matches({}) = %v, %v; want true, nil", ok, err)
	}
}

func TestMatchesImplicitEquals(t *testing.T) {
	rec := character("luke", "Human", 172)
	ok, err := Matches(rec, Node{"ctype": storage.String("Human")})
	if err != nil || !ok {
		t.Fatalf("got %v, %v; want true, nil", ok, err)
	}
	ok, err = Matches(rec, Node{"ctype": storage.String("Droid")})
	if err != nil || ok {
		t.Fatalf("got %v, %v; want false, nil", ok, err)
	}
}

func TestMatchesOperatorObject(t *testing.T) {
	rec := character("vader", "Human", 202)
	ok, err := Matches(rec, Node{"height": Ops{"gte": storage.Int(200)}})
	if err != nil || !ok {
		t.Fatalf("got %v, %v; want true, nil", ok, err)
	}
	ok, err = Matches(rec, Node{"height": Ops{"gt": storage.Int(1), "lt": storage.Int(1)}})
	if err != nil || ok {
		t.Fatalf("contradictory range: got %v, %v; want false, nil", ok, err)
	}
}

func TestMatchesInNotIn(t *testing.T) {
	rec := character("r2", "Droid", 96)
	list := []storage.Value{storage.String("Human"), storage.String("Droid")}
	ok, _ := Matches(rec, Node{"ctype": Ops{"in": list}})
	if !ok {
		t.Fatal("expected ctype in [Human, Droid] to match")
	}
	ok, _ = Matches(rec, Node{"ctype": Ops{"notIn": list}})
	if ok {
		t.Fatal("expected ctype notIn [Human, Droid] to not match")
	}
}

func TestMatchesStringOpsAndMode(t *testing.T) {
	rec := character("luke", "Human", 172)
	ok, _ := Matches(rec, Node{"ctype": Ops{"contains": storage.String("uma")}})
	if !ok {
		t.Fatal("expected 'Human' to contain 'uma'")
	}
	ok, _ = Matches(rec, Node{"ctype": Ops{"equals": storage.String("HUMAN"), "mode": "insensitive"}})
	if !ok {
		t.Fatal("expected case-insensitive equals to match")
	}
	ok, _ = Matches(rec, Node{"ctype": Ops{"equals": storage.String("HUMAN")}})
	if ok {
		t.Fatal("expected case-sensitive equals to not match")
	}
}

func TestMatchesAndOrNot(t *testing.T) {
	rec := character("vader", "Human", 202)
	where := Node{"AND": []Node{
		{"ctype": storage.String("Human")},
		{"height": Ops{"gt": storage.Int(200)}},
	}}
	ok, err := Matches(rec, where)
	if err != nil || !ok {
		t.Fatalf("AND: got %v, %v; want true, nil", ok, err)
	}

	where = Node{"OR": []Node{
		{"ctype": storage.String("Droid")},
		{"height": Ops{"gt": storage.Int(200)}},
	}}
	ok, _ = Matches(rec, where)
	if !ok {
		t.Fatal("OR: expected at least one branch to match")
	}

	where = Node{"NOT": Node{"ctype": storage.String("Droid")}}
	ok, _ = Matches(rec, where)
	if !ok {
		t.Fatal("NOT: expected negation of a false clause to be true")
	}
}

func TestMatchesNullFieldSemantics(t *testing.T) {
	rec := storage.NewRecord()
	rec.Set("id", storage.String("p1"))
	// "nickname" is absent entirely.

	ok, _ := Matches(rec, Node{"nickname": storage.Null()})
	if !ok {
		t.Fatal("direct equality against null should succeed for an absent field")
	}
	ok, _ = Matches(rec, Node{"nickname": Ops{"not": storage.String("Ani")}})
	if !ok {
		t.Fatal("{not: <non-null>} should succeed for an absent field")
	}
	ok, _ = Matches(rec, Node{"nickname": storage.String("Ani")})
	if ok {
		t.Fatal("equality against a non-null literal should fail for an absent field")
	}
	ok, _ = Matches(rec, Node{"nickname": Ops{"contains": storage.String("A")}})
	if ok {
		t.Fatal("non equals/not operators should be vacuously false against a null field")
	}
}
