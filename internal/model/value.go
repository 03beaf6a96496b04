// Package model defines core data structures for logtab.
package model

// Kind identifies which member of a Value is populated.
type Kind uint8

const (
	// KindNone marks a value that could not be decoded (never an error).
	KindNone Kind = iota
	KindDouble
	KindInt64
	KindString
	KindBoolean
	KindBooleanArray
	KindDoubleArray
	KindFloatArray // float32 source, widened to float64 on read
	KindInt64Array
	KindStringArray
	KindBytes  // raw payload kept verbatim (msgpack, proto, structschema, unknown)
	KindStruct // flattened struct fields
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDouble:
		return "double"
	case KindInt64:
		return "int64"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindBooleanArray:
		return "boolean[]"
	case KindDoubleArray:
		return "double[]"
	case KindFloatArray:
		return "float[]"
	case KindInt64Array:
		return "int64[]"
	case KindStringArray:
		return "string[]"
	case KindBytes:
		return "bytes"
	case KindStruct:
		return "struct"
	default:
		return "unknown"
	}
}

// Value is a decoded record payload. Exactly one member matching Kind is
// set; KindNone means the payload could not be coerced to the declared type.
type Value struct {
	Kind Kind

	Double  float64
	Int64   int64
	Str     string
	Bool    bool
	Bools   []bool
	Doubles []float64
	Floats  []float64 // widened from float32
	Int64s  []int64
	Strings []string
	Bytes   []byte

	// Fields holds flattened struct fields by name. Nested structs merge
	// unprefixed, so a later field silently overwrites an earlier one that
	// shares its name.
	Fields map[string]Value
}

// None is the explicit "no value" result.
func None() Value { return Value{Kind: KindNone} }

// DoubleValue wraps a float64.
func DoubleValue(v float64) Value { return Value{Kind: KindDouble, Double: v} }

// Int64Value wraps an int64.
func Int64Value(v int64) Value { return Value{Kind: KindInt64, Int64: v} }

// StringValue wraps a string.
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }

// BooleanValue wraps a bool.
func BooleanValue(v bool) Value { return Value{Kind: KindBoolean, Bool: v} }

// BytesValue wraps a raw payload.
func BytesValue(v []byte) Value { return Value{Kind: KindBytes, Bytes: v} }

// StructValue wraps a flattened field map.
func StructValue(fields map[string]Value) Value {
	return Value{Kind: KindStruct, Fields: fields}
}

// IsNone reports whether the value carries no data.
func (v Value) IsNone() bool { return v.Kind == KindNone }
