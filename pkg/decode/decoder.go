package decode

import (
	"github.com/logtab/logtab/internal/model"
	"github.com/logtab/logtab/pkg/datalog"
	"github.com/logtab/logtab/pkg/errors"
)

// Decoder turns a data record into a typed value using the entry's declared
// type. Both registries are passed in by the owning conversion run; the
// decoder holds no state of its own beyond them.
type Decoder struct {
	Entries *EntryRegistry
	Schemas *SchemaRegistry
}

// NewDecoder creates a decoder over the given registries.
func NewDecoder(entries *EntryRegistry, schemas *SchemaRegistry) *Decoder {
	return &Decoder{Entries: entries, Schemas: schemas}
}

// Decode produces the typed value for a data record. A payload that cannot
// be coerced to the declared scalar/array type degrades to an explicit
// no-value; only schema problems (unresolvable struct schema, malformed
// schema declaration) surface as errors.
func (d *Decoder) Decode(rec datalog.Record, ent Entry) (model.Value, error) {
	switch ent.Tag.Type {
	case TypeDouble:
		v, err := rec.Double()
		if err != nil {
			return model.None(), nil
		}
		return model.DoubleValue(v), nil

	case TypeFloat:
		v, err := rec.Float()
		if err != nil {
			return model.None(), nil
		}
		return model.DoubleValue(float64(v)), nil

	case TypeInt64:
		v, err := rec.Integer()
		if err != nil {
			return model.None(), nil
		}
		return model.Int64Value(v), nil

	case TypeString, TypeJSON:
		return model.StringValue(rec.String()), nil

	case TypeBoolean:
		v, err := rec.Boolean()
		if err != nil {
			return model.None(), nil
		}
		return model.BooleanValue(v), nil

	case TypeBooleanArray:
		return model.Value{Kind: model.KindBooleanArray, Bools: rec.BooleanArray()}, nil

	case TypeDoubleArray:
		v, err := rec.DoubleArray()
		if err != nil {
			return model.None(), nil
		}
		return model.Value{Kind: model.KindDoubleArray, Doubles: v}, nil

	case TypeFloatArray:
		v, err := rec.FloatArray()
		if err != nil {
			return model.None(), nil
		}
		return model.Value{Kind: model.KindFloatArray, Floats: v}, nil

	case TypeInt64Array:
		v, err := rec.IntegerArray()
		if err != nil {
			return model.None(), nil
		}
		return model.Value{Kind: model.KindInt64Array, Int64s: v}, nil

	case TypeStringArray:
		v, err := rec.StringArray()
		if err != nil {
			return model.None(), nil
		}
		return model.Value{Kind: model.KindStringArray, Strings: v}, nil

	case TypeMsgpack:
		// Opaque: passed through without interpretation.
		return model.BytesValue(rec.Data), nil

	case TypeStructSchema:
		// The declaration registers a schema AND keeps its raw bytes as
		// the row payload.
		if _, err := d.Schemas.RegisterDeclaration(ent.Name, rec.String()); err != nil {
			return model.None(), err
		}
		return model.BytesValue(rec.Data), nil

	case TypeStruct:
		schema, ok := d.Schemas.Resolve(ent.Tag.StructName)
		if !ok {
			return model.None(), errors.UnknownSchema(ent.Tag.Raw).
				WithContext("entry", ent.Name)
		}
		fields, _, err := UnpackStruct(d.Schemas, schema, rec.Data, 0)
		if err != nil {
			return model.None(), err
		}
		return model.StructValue(fields), nil

	case TypeProto, TypeUnrecognized:
		return model.BytesValue(rec.Data), nil
	}

	return model.BytesValue(rec.Data), nil
}
