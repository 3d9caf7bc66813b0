package query

import "testing"

func TestOrderByFromRawSingleObject(t *testing.T) {
	obs, err := orderByFromRaw(map[string]interface{}{"field": "name", "direction": "DESC"})
	if err != nil {
		t.Fatalf("orderByFromRaw: %v", err)
	}
	if len(obs) != 1 || obs[0].Field != "name" || !obs[0].Desc {
		t.Fatalf("unexpected order-by: %#v", obs)
	}
}

func TestOrderByFromRawList(t *testing.T) {
	obs, err := orderByFromRaw([]interface{}{
		map[string]interface{}{"field": "age"},
		map[string]interface{}{"field": "name", "direction": "desc"},
	})
	if err != nil {
		t.Fatalf("orderByFromRaw: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected two order-by entries, got %d", len(obs))
	}
	if obs[0].Field != "age" || obs[0].Desc {
		t.Errorf("first entry = %#v, want {age, false}", obs[0])
	}
	if obs[1].Field != "name" || !obs[1].Desc {
		t.Errorf("second entry = %#v, want {name, true}", obs[1])
	}
}

func TestOrderByFromRawNil(t *testing.T) {
	obs, err := orderByFromRaw(nil)
	if err != nil {
		t.Fatalf("orderByFromRaw(nil): %v", err)
	}
	if obs != nil {
		t.Fatalf("expected nil order-by for nil input, got %#v", obs)
	}
}
