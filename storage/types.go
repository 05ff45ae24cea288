package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// ColumnID identifies a column by its position in the table definition.
type ColumnID uint16

// ChunkOffset addresses a row within a single chunk.
type ChunkOffset uint32

// DataType enumerates the scalar types a column can hold.
type DataType int

const (
	TypeInt64 DataType = iota
	TypeFloat64
	TypeString
	TypeBool
)

func (t DataType) String() string {
	switch t {
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	}
	return fmt.Sprintf("datatype(%d)", int(t))
}

// ByteWidth reports the fixed width of a value of this type. Strings are
// variable width; callers average over actual data instead.
func (t DataType) ByteWidth() uint64 {
	switch t {
	case TypeInt64, TypeFloat64:
		return 8
	case TypeBool:
		return 1
	default:
		return 0
	}
}

// ValueKind tags a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInt64
	KindFloat64
	KindString
	KindBool
)

// Value is a tagged variant over the supported scalar types.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

func NullValue() Value { return Value{Kind: KindNull} }
func Int64Value(v int64) Value { return Value{Kind: KindInt64, Int: v} }
func Float64Value(v float64) Value { return Value{Kind: KindFloat64, Float: v} }
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }
func BoolValue(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindInt64:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat64:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return v.Str
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	}
	return "?"
}

// Compare orders two values of the same kind. Nulls order before everything.
// Comparing distinct kinds orders by kind tag so that sort order is total.
func Compare(a, b Value) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	switch a.Kind {
	case KindNull:
		return 0
	case KindInt64:
		switch {
		case a.Int < b.Int:
			return -1
		case a.Int > b.Int:
			return 1
		}
		return 0
	case KindFloat64:
		switch {
		case a.Float < b.Float:
			return -1
		case a.Float > b.Float:
			return 1
		}
		return 0
	case KindString:
		return strings.Compare(a.Str, b.Str)
	case KindBool:
		switch {
		case !a.Bool && b.Bool:
			return -1
		case a.Bool && !b.Bool:
			return 1
		}
		return 0
	}
	return 0
}

// encodeKey renders a value as an order-preserving byte key for radix indexes.
func encodeKey(v Value) []byte {
	switch v.Kind {
	case KindInt64:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(v.Int)^(1<<63))
		return buf[:]
	case KindFloat64:
		bits := math.Float64bits(v.Float)
		if v.Float < 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], bits)
		return buf[:]
	case KindString:
		return []byte(v.Str)
	case KindBool:
		if v.Bool {
			return []byte{1}
		}
		return []byte{0}
	}
	return nil
}

// byteWidth reports the in-memory payload width of a single value.
func (v Value) byteWidth() uint64 {
	switch v.Kind {
	case KindInt64, KindFloat64:
		return 8
	case KindString:
		return uint64(len(v.Str))
	case KindBool:
		return 1
	}
	return 0
}
