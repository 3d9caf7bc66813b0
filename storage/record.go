// Package storage implements the low-level engine: pages, the pager, the
// LRU page cache, and the record codec that turns a logical record into
// the page-level binary form.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/klauspost/compress/snappy"
)

// ValueKind tags the logical type of a record field value.
type ValueKind byte

const (
	KindNull ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList // list of scalars (used for ManyToMany foreign-key fields too)
)

// Value is a tagged variant over the scalar kinds a record field can hold.
// Exactly one of the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	Str  string
	Int  int64
	Flt  float64
	Bool bool
	List []Value
}

func Null() Value                 { return Value{Kind: KindNull} }
func String(s string) Value       { return Value{Kind: KindString, Str: s} }
func Int(i int64) Value           { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value       { return Value{Kind: KindFloat, Flt: f} }
func Bool(b bool) Value           { return Value{Kind: KindBool, Bool: b} }
func List(vs ...Value) Value      { return Value{Kind: KindList, List: vs} }
func StringList(ss []string) Value {
	vs := make([]Value, len(ss))
	for i, s := range ss {
		vs[i] = String(s)
	}
	return List(vs...)
}

// IsNull reports whether the value is the null scalar.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Field is a named value inside a record.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered field->value mapping. Field order matters for the
// canonical, schema-present encoding (§4.4): it mirrors the table's column
// order so field names can be omitted on disk.
type Record struct {
	Fields []Field
}

// NewRecord creates an empty record.
func NewRecord() *Record { return &Record{} }

// Set adds or overwrites a field.
func (r *Record) Set(name string, v Value) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = v
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: v})
}

// Get returns a field's value and whether it is present.
func (r *Record) Get(name string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// ID returns the value of the "id" field as a string, per the spec's
// fixed primary-key field name and type.
func (r *Record) ID() (string, bool) {
	v, ok := r.Get("id")
	if !ok || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// Clone copies a record's field list so callers can Set fields on the
// copy freely; list values still share their element slices.
func (r *Record) Clone() *Record {
	out := &Record{Fields: make([]Field, len(r.Fields))}
	copy(out.Fields, r.Fields)
	return out
}

// Merge overlays other's fields onto r, used by update's read-merge-reinsert.
func (r *Record) Merge(other *Record) *Record {
	out := r.Clone()
	for _, f := range other.Fields {
		out.Set(f.Name, f.Value)
	}
	return out
}

// ---------- canonical binary encoding ----------
//
// Schema-absent encoding: [numFields:uint16] then per field
// [nameLen:uint16][name][kind:byte][value bytes...].
// A FieldOrder, when non-nil, switches to the schema-present encoding:
// field names are omitted and fields are emitted/parsed in FieldOrder,
// one kind+value slot per column (null is a single kind byte, no value
// bytes), exactly as §4.4 specifies.

// Encode serializes r in canonical binary form. When fieldOrder is
// non-empty the schema-present, name-omitting encoding is used; the
// record must then have exactly one field per name in fieldOrder (missing
// fields encode as null).
func (r *Record) Encode(fieldOrder []string) ([]byte, error) {
	if len(fieldOrder) > 0 {
		return r.encodeOrdered(fieldOrder)
	}
	return r.encodeNamed()
}

func (r *Record) encodeNamed() ([]byte, error) {
	buf := make([]byte, 0, 128)
	tmp := make([]byte, 8)
	binary.LittleEndian.PutUint16(tmp, uint16(len(r.Fields)))
	buf = append(buf, tmp[:2]...)
	for _, f := range r.Fields {
		nb := []byte(f.Name)
		if len(nb) > math.MaxUint16 {
			return nil, fmt.Errorf("record: field name too long: %s", f.Name)
		}
		binary.LittleEndian.PutUint16(tmp, uint16(len(nb)))
		buf = append(buf, tmp[:2]...)
		buf = append(buf, nb...)
		vb, err := encodeValue(f.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	return buf, nil
}

func (r *Record) encodeOrdered(fieldOrder []string) ([]byte, error) {
	buf := make([]byte, 0, 128)
	for _, name := range fieldOrder {
		v, ok := r.Get(name)
		if !ok {
			v = Null()
		}
		vb, err := encodeValue(v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	return buf, nil
}

// Decode deserializes a record. fieldOrder must match what Encode was
// called with (nil/empty for the named form, the column list otherwise).
func Decode(data []byte, fieldOrder []string) (*Record, error) {
	if len(fieldOrder) > 0 {
		return decodeOrdered(data, fieldOrder)
	}
	return decodeNamed(data)
}

func decodeNamed(data []byte) (*Record, error) {
	if len(data) < 2 {
		return nil, errors.New("record: data too short")
	}
	rec := NewRecord()
	off := 0
	n := int(binary.LittleEndian.Uint16(data[off:]))
	off += 2
	for i := 0; i < n; i++ {
		if off+2 > len(data) {
			return nil, errors.New("record: truncated field name length")
		}
		nl := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if off+nl > len(data) {
			return nil, errors.New("record: truncated field name")
		}
		name := string(data[off : off+nl])
		off += nl
		v, consumed, err := decodeValue(data[off:])
		if err != nil {
			return nil, err
		}
		off += consumed
		rec.Fields = append(rec.Fields, Field{Name: name, Value: v})
	}
	return rec, nil
}

func decodeOrdered(data []byte, fieldOrder []string) (*Record, error) {
	rec := NewRecord()
	off := 0
	for _, name := range fieldOrder {
		v, consumed, err := decodeValue(data[off:])
		if err != nil {
			return nil, fmt.Errorf("record: field %q: %w", name, err)
		}
		off += consumed
		rec.Fields = append(rec.Fields, Field{Name: name, Value: v})
	}
	return rec, nil
}

func encodeValue(v Value) ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte{byte(KindNull)}, nil
	case KindBool:
		b := byte(0)
		if v.Bool {
			b = 1
		}
		return []byte{byte(KindBool), b}, nil
	case KindInt:
		buf := make([]byte, 9)
		buf[0] = byte(KindInt)
		binary.LittleEndian.PutUint64(buf[1:], uint64(v.Int))
		return buf, nil
	case KindFloat:
		buf := make([]byte, 9)
		buf[0] = byte(KindFloat)
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(v.Flt))
		return buf, nil
	case KindString:
		sb := []byte(v.Str)
		buf := make([]byte, 5+len(sb))
		buf[0] = byte(KindString)
		binary.LittleEndian.PutUint32(buf[1:], uint32(len(sb)))
		copy(buf[5:], sb)
		return buf, nil
	case KindList:
		inner := make([]byte, 0, 32)
		tmp := make([]byte, 2)
		binary.LittleEndian.PutUint16(tmp, uint16(len(v.List)))
		inner = append(inner, tmp...)
		for _, elem := range v.List {
			eb, err := encodeValue(elem)
			if err != nil {
				return nil, err
			}
			inner = append(inner, eb...)
		}
		buf := make([]byte, 5+len(inner))
		buf[0] = byte(KindList)
		binary.LittleEndian.PutUint32(buf[1:], uint32(len(inner)))
		copy(buf[5:], inner)
		return buf, nil
	default:
		return nil, fmt.Errorf("record: unknown value kind %d", v.Kind)
	}
}

func decodeValue(data []byte) (Value, int, error) {
	if len(data) < 1 {
		return Value{}, 0, errors.New("record: missing value tag")
	}
	kind := ValueKind(data[0])
	switch kind {
	case KindNull:
		return Null(), 1, nil
	case KindBool:
		if len(data) < 2 {
			return Value{}, 0, errors.New("record: truncated bool")
		}
		return Bool(data[1] != 0), 2, nil
	case KindInt:
		if len(data) < 9 {
			return Value{}, 0, errors.New("record: truncated int")
		}
		return Int(int64(binary.LittleEndian.Uint64(data[1:9]))), 9, nil
	case KindFloat:
		if len(data) < 9 {
			return Value{}, 0, errors.New("record: truncated float")
		}
		return Float(math.Float64frombits(binary.LittleEndian.Uint64(data[1:9]))), 9, nil
	case KindString:
		if len(data) < 5 {
			return Value{}, 0, errors.New("record: truncated string length")
		}
		sl := int(binary.LittleEndian.Uint32(data[1:5]))
		if len(data) < 5+sl {
			return Value{}, 0, errors.New("record: truncated string")
		}
		return String(string(data[5 : 5+sl])), 5 + sl, nil
	case KindList:
		if len(data) < 5 {
			return Value{}, 0, errors.New("record: truncated list length")
		}
		ll := int(binary.LittleEndian.Uint32(data[1:5]))
		if len(data) < 5+ll {
			return Value{}, 0, errors.New("record: truncated list")
		}
		inner := data[5 : 5+ll]
		if len(inner) < 2 {
			return List(), 5 + ll, nil
		}
		count := int(binary.LittleEndian.Uint16(inner))
		off := 2
		elems := make([]Value, 0, count)
		for i := 0; i < count; i++ {
			ev, n, err := decodeValue(inner[off:])
			if err != nil {
				return Value{}, 0, err
			}
			off += n
			elems = append(elems, ev)
		}
		return List(elems...), 5 + ll, nil
	default:
		return Value{}, 0, fmt.Errorf("record: unknown value kind %d", kind)
	}
}

// ---------- compression (§3 supplement) ----------

// InlineCompressionThreshold is the encoded-size cutoff above which a
// record payload is snappy-compressed before it is written into a page,
// mirroring the teacher's page-level SlotFlagCompressed mechanism.
const InlineCompressionThreshold = 512

// EncodeForPage encodes and, if warranted, compresses a record, returning
// the bytes to store on a data page plus the slot flag to tag them with.
func EncodeForPage(r *Record, fieldOrder []string) ([]byte, byte, error) {
	raw, err := r.Encode(fieldOrder)
	if err != nil {
		return nil, 0, err
	}
	if len(raw) <= InlineCompressionThreshold {
		return raw, SlotFlagActive, nil
	}
	compressed := snappy.Encode(nil, raw)
	if len(compressed) >= len(raw) {
		return raw, SlotFlagActive, nil
	}
	return compressed, SlotFlagCompressed, nil
}

// DecodeFromPage reverses EncodeForPage given the slot's flag byte.
func DecodeFromPage(data []byte, flag byte, fieldOrder []string) (*Record, error) {
	if flag == SlotFlagCompressed {
		raw, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("record: snappy decode: %w", err)
		}
		data = raw
	}
	return Decode(data, fieldOrder)
}

// CompareValues compares a and b for ordering purposes (used by the filter
// engine's orderBy and by range-predicate fallback scans). Nulls sort
// last for ascending callers per §4.10; callers invert for descending.
func CompareValues(a, b Value) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return 1
	}
	if b.IsNull() {
		return -1
	}
	switch a.Kind {
	case KindString:
		return sortCompareString(a.Str, b.Str)
	case KindInt:
		switch {
		case a.Int < b.Int:
			return -1
		case a.Int > b.Int:
			return 1
		default:
			return 0
		}
	case KindFloat:
		af, bf := a.Flt, b.Flt
		if b.Kind == KindInt {
			bf = float64(b.Int)
		}
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case KindBool:
		if a.Bool == b.Bool {
			return 0
		}
		if !a.Bool {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// sortCompareString orders strings by Unicode scalar value (Go's native
// byte-wise comparison on UTF-8, which agrees with scalar-value order);
// this is the deterministic ordering §4.6 requires callers to document.
func sortCompareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// SortRecordsByID is a stable helper used by rebuild paths that need a
// deterministic page-scan order independent of map iteration.
func SortRecordsByID(recs []*Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		idI, _ := recs[i].ID()
		idJ, _ := recs[j].ID()
		return idI < idJ
	})
}
