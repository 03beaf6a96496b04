// Package decode turns framed datalog records into typed values. It owns
// the live entry registry, the struct schema registry, and the value
// decoder with its recursive struct unpacker.
package decode

import "strings"

// EntryType is the closed set of declared entry type tags. Dispatching on
// this enum instead of the raw string keeps the decode table exhaustive.
type EntryType uint8

const (
	// TypeUnrecognized covers any tag not in the known set; the raw tag
	// string is kept on the TypeTag for diagnostics.
	TypeUnrecognized EntryType = iota
	TypeDouble
	TypeFloat
	TypeInt64
	TypeString
	TypeJSON
	TypeBoolean
	TypeBooleanArray
	TypeDoubleArray
	TypeFloatArray
	TypeInt64Array
	TypeStringArray
	TypeMsgpack
	TypeStructSchema
	TypeProto
	TypeStruct
)

// TypeTag is a parsed declared-type string.
type TypeTag struct {
	// Raw is the declared type exactly as it appears in the start record.
	Raw string

	Type EntryType

	// StructName is the schema name for struct tags, with the "struct:"
	// prefix and any trailing "[]" stripped.
	StructName string

	// Array marks "struct:Name[]" tags.
	Array bool
}

const structPrefix = "struct:"

// ParseTypeTag classifies a declared type string.
func ParseTypeTag(raw string) TypeTag {
	tag := TypeTag{Raw: raw}

	switch raw {
	case "double":
		tag.Type = TypeDouble
	case "float":
		tag.Type = TypeFloat
	case "int64":
		tag.Type = TypeInt64
	case "string":
		tag.Type = TypeString
	case "json":
		tag.Type = TypeJSON
	case "boolean":
		tag.Type = TypeBoolean
	case "boolean[]":
		tag.Type = TypeBooleanArray
	case "double[]":
		tag.Type = TypeDoubleArray
	case "float[]":
		tag.Type = TypeFloatArray
	case "int64[]":
		tag.Type = TypeInt64Array
	case "string[]":
		tag.Type = TypeStringArray
	case "msgpack":
		tag.Type = TypeMsgpack
	case "structschema":
		tag.Type = TypeStructSchema
	default:
		switch {
		case strings.HasPrefix(raw, structPrefix):
			tag.Type = TypeStruct
			name := strings.TrimPrefix(raw, structPrefix)
			if strings.HasSuffix(name, "[]") {
				tag.Array = true
				name = strings.TrimSuffix(name, "[]")
			}
			tag.StructName = name
		case strings.Contains(raw, "proto"):
			tag.Type = TypeProto
		default:
			tag.Type = TypeUnrecognized
		}
	}

	return tag
}
