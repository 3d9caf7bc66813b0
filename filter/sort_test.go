package filter

import (
	"testing"

	"github.com/gqlstore/gqlstore/storage"
)

func rec(id string, height int64) *storage.Record {
	r := storage.NewRecord()
	r.Set("id", storage.String(id))
	r.Set("height", storage.Int(height))
	return r
}

func TestSortSingleFieldDescending(t *testing.T) {
	records := []*storage.Record{
		rec("luke", 172), rec("vader", 202), rec("r2", 96), rec("yoda", 66),
	}
	Sort(records, []OrderBy{{Field: "height", Desc: true}})
	want := []string{"vader", "luke", "r2", "yoda"}
	for i, id := range want {
		got, _ := records[i].Get("id")
		if got.Str != id {
			t.Fatalf("position %d = %q, want %q", i, got.Str, id)
		}
	}
}

func TestSortNullsLastAscendingFirstDescending(t *testing.T) {
	withNull := storage.NewRecord()
	withNull.Set("id", storage.String("nullheight"))
	withNull.Set("height", storage.Null())
	records := []*storage.Record{rec("a", 10), withNull, rec("b", 5)}

	Sort(records, []OrderBy{{Field: "height", Desc: false}})
	last, _ := records[len(records)-1].Get("id")
	if last.Str != "nullheight" {
		t.Fatalf("ascending: null should sort last, got order ending in %q", last.Str)
	}

	records = []*storage.Record{rec("a", 10), withNull, rec("b", 5)}
	Sort(records, []OrderBy{{Field: "height", Desc: true}})
	first, _ := records[0].Get("id")
	if first.Str != "nullheight" {
		t.Fatalf("descending: null should sort first, got order starting with %q", first.Str)
	}
}

func TestSortMultiFieldTieBreak(t *testing.T) {
	a := storage.NewRecord()
	a.Set("id", storage.String("a"))
	a.Set("group", storage.String("x"))
	a.Set("height", storage.Int(10))

	b := storage.NewRecord()
	b.Set("id", storage.String("b"))
	b.Set("group", storage.String("x"))
	b.Set("height", storage.Int(5))

	records := []*storage.Record{a, b}
	Sort(records, []OrderBy{
		{Field: "group", Desc: false},
		{Field: "height", Desc: false},
	})
	first, _ := records[0].Get("id")
	if first.Str != "b" {
		t.Fatalf("expected tie on group to resolve by height ascending, got first=%q", first.Str)
	}
}

func TestPaginateSkipTake(t *testing.T) {
	records := []*storage.Record{rec("a", 1), rec("b", 2), rec("c", 3), rec("d", 4)}
	got := Paginate(records, 1, 2)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	first, _ := got[0].Get("id")
	if first.Str != "b" {
		t.Fatalf("got first=%q, want b", first.Str)
	}
}

func TestPaginateSkipBeyondLengthReturnsEmpty(t *testing.T) {
	records := []*storage.Record{rec("a", 1)}
	got := Paginate(records, 5, 10)
	if got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestPaginateNegativeTakeMeansNoLimit(t *testing.T) {
	records := []*storage.Record{rec("a", 1), rec("b", 2)}
	got := Paginate(records, 0, -1)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2 (no limit)", len(got))
	}
}
