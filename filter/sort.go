package filter

import (
	"sort"

	"github.com/gqlstore/gqlstore/storage"
)

// OrderBy is one field of a (possibly multi-field) orderBy clause
// (§4.10: "a single object or an array of objects, each mapping field
// -> direction").
type OrderBy struct {
	Field string
	Desc  bool
}

// Sort orders records in place by a lexicographic comparison over obs,
// stable so ties beyond the last field preserve input order (§8 "sort
// stability under ties").
func Sort(records []*storage.Record, obs []OrderBy) {
	if len(obs) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, ob := range obs {
			vi, _ := records[i].Get(ob.Field)
			vj, _ := records[j].Get(ob.Field)
			c := compareForOrder(vi, vj, ob.Desc)
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// compareForOrder applies storage.CompareValues' "nulls last" rule for
// ascending order, and its mirror, "nulls first", for descending
// (§4.10): reversing a nulls-last ascending comparison for non-null
// values already yields nulls-first when read back-to-front, so the
// null cases are made explicit here rather than relying on a blind
// sign flip of CompareValues.
func compareForOrder(a, b storage.Value, desc bool) int {
	if !desc {
		return storage.CompareValues(a, b)
	}
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return -1
	}
	if b.IsNull() {
		return 1
	}
	return storage.CompareValues(b, a)
}

// Paginate returns records[skip:skip+take], clamped to the slice's
// bounds. A negative take means "no limit" (§4.10: "skip drops the
// first N... take retains the next N").
func Paginate(records []*storage.Record, skip, take int) []*storage.Record {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(records) {
		return nil
	}
	records = records[skip:]
	if take >= 0 && take < len(records) {
		records = records[:take]
	}
	return records
}
