package index

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gqlstore/gqlstore/storage"
)

// KeyType classifies the scalar kind an index is built over (§4.6). A
// given index only ever stores keys of one KeyType.
type KeyType int

const (
	KeyTypeString KeyType = iota
	KeyTypeInt
	KeyTypeFloat
	KeyTypeBool
)

func (t KeyType) String() string {
	switch t {
	case KeyTypeString:
		return "string"
	case KeyTypeInt:
		return "int"
	case KeyTypeFloat:
		return "float"
	case KeyTypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// KeyTypeFromValueKind maps a record's scalar kind to the KeyType an
// index over that column would use.
func KeyTypeFromValueKind(k storage.ValueKind) (KeyType, error) {
	switch k {
	case storage.KindString:
		return KeyTypeString, nil
	case storage.KindInt:
		return KeyTypeInt, nil
	case storage.KindFloat:
		return KeyTypeFloat, nil
	case storage.KindBool:
		return KeyTypeBool, nil
	default:
		return 0, fmt.Errorf("index: cannot build a key from %v", k)
	}
}

// EncodeKey turns a scalar Value into an order-preserving byte string:
// the byte-lexicographic order of EncodeKey outputs matches
// storage.CompareValues order for values of the given type. Null values
// are never indexed (§4.6) and are rejected here.
func EncodeKey(kt KeyType, v storage.Value) ([]byte, error) {
	if v.IsNull() {
		return nil, fmt.Errorf("index: null values are not indexed")
	}
	switch kt {
	case KeyTypeString:
		if v.Kind != storage.KindString {
			return nil, fmt.Errorf("index: expected string key, got %v", v.Kind)
		}
		return []byte(v.Str), nil
	case KeyTypeInt:
		if v.Kind != storage.KindInt {
			return nil, fmt.Errorf("index: expected int key, got %v", v.Kind)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v.Int)^0x8000000000000000)
		return buf, nil
	case KeyTypeFloat:
		if v.Kind != storage.KindFloat {
			return nil, fmt.Errorf("index: expected float key, got %v", v.Kind)
		}
		bits := math.Float64bits(v.Flt)
		if bits&0x8000000000000000 != 0 {
			bits = ^bits
		} else {
			bits |= 0x8000000000000000
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, bits)
		return buf, nil
	case KeyTypeBool:
		if v.Kind != storage.KindBool {
			return nil, fmt.Errorf("index: expected bool key, got %v", v.Kind)
		}
		if v.Bool {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	default:
		return nil, fmt.Errorf("index: unknown key type %v", kt)
	}
}
