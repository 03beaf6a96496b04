package decode

import (
	"encoding/binary"
	"math"

	"github.com/logtab/logtab/internal/model"
	"github.com/logtab/logtab/pkg/errors"
)

// Fixed little-endian widths of the scalar field types a struct layout may
// contain. Any other field type names a nested struct.
var scalarWidths = map[string]int{
	"double": 8,
	"float":  4,
	"int32":  4,
	"int64":  8,
}

// UnpackStruct walks schema's fields in declaration order against buf,
// decoding a fixed-width little-endian value per scalar field and recursing
// into nested structs with the same running offset. It returns the flattened
// field map and the offset just past the consumed bytes; it never mutates
// anything outside its return values.
//
// Nested results merge unprefixed into the outer map, so a shared field
// name means the later field wins.
//
// An empty buf yields an explicit no-value for every field. A non-empty buf
// that runs short degrades the affected fields to no-value rather than
// failing, but a nested field type with no registered schema is a hard
// error: an absent schema is not an absent value.
func UnpackStruct(reg *SchemaRegistry, schema StructSchema, buf []byte, offset int) (map[string]model.Value, int, error) {
	result := make(map[string]model.Value, len(schema.Fields))

	for _, field := range schema.Fields {
		width, scalar := scalarWidths[field.Type]
		if !scalar {
			nested, ok := reg.Resolve(field.Type)
			if !ok {
				return nil, offset, errors.UnknownSchema(field.Type).
					WithContext("field", field.Name).
					WithContext("parent", schema.Name)
			}
			inner, next, err := UnpackStruct(reg, nested, buf, offset)
			if err != nil {
				return nil, offset, err
			}
			for k, v := range inner {
				result[k] = v
			}
			offset = next
			continue
		}

		if len(buf) == 0 {
			result[field.Name] = model.None()
			continue
		}
		if offset+width > len(buf) {
			// Short buffer: degrade this field, keep walking so trailing
			// fields are explicitly no-value too.
			result[field.Name] = model.None()
			offset += width
			continue
		}

		result[field.Name] = readScalar(field.Type, buf[offset:offset+width])
		offset += width
	}

	return result, offset, nil
}

func readScalar(fieldType string, b []byte) model.Value {
	switch fieldType {
	case "double":
		return model.DoubleValue(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	case "float":
		return model.DoubleValue(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
	case "int32":
		return model.Int64Value(int64(int32(binary.LittleEndian.Uint32(b))))
	case "int64":
		return model.Int64Value(int64(binary.LittleEndian.Uint64(b)))
	default:
		return model.None()
	}
}
