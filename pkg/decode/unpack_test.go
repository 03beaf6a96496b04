package decode

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/logtab/logtab/internal/model"
	"github.com/logtab/logtab/pkg/errors"
)

func mustRegister(t *testing.T, reg *SchemaRegistry, name, text string) StructSchema {
	t.Helper()
	schema, err := reg.RegisterDeclaration("NT:/.schema/struct:"+name, text)
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return schema
}

func putDouble(buf []byte, v float64) {
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
}

func TestUnpackStruct_ScalarRoundTrip(t *testing.T) {
	reg := NewSchemaRegistry()
	schema := mustRegister(t, reg, "Sample", "double x;double y;int32 count")

	buf := make([]byte, 20)
	putDouble(buf[0:], 1.5)
	putDouble(buf[8:], -2.5)
	binary.LittleEndian.PutUint32(buf[16:], 7)

	values, offset, err := UnpackStruct(reg, schema, buf, 0)
	if err != nil {
		t.Fatalf("UnpackStruct failed: %v", err)
	}
	if offset != 20 {
		t.Errorf("expected offset 20, got %d", offset)
	}

	if v := values["x"]; v.Kind != model.KindDouble || v.Double != 1.5 {
		t.Errorf("x: %+v", v)
	}
	if v := values["y"]; v.Kind != model.KindDouble || v.Double != -2.5 {
		t.Errorf("y: %+v", v)
	}
	if v := values["count"]; v.Kind != model.KindInt64 || v.Int64 != 7 {
		t.Errorf("count: %+v", v)
	}
}

func TestUnpackStruct_FloatWidening(t *testing.T) {
	reg := NewSchemaRegistry()
	schema := mustRegister(t, reg, "F", "float f;int64 n")

	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(0.5))
	binary.LittleEndian.PutUint64(buf[4:], uint64(9))

	values, offset, err := UnpackStruct(reg, schema, buf, 0)
	if err != nil {
		t.Fatalf("UnpackStruct failed: %v", err)
	}
	if offset != 12 {
		t.Errorf("expected offset 12, got %d", offset)
	}
	if v := values["f"]; v.Kind != model.KindDouble || v.Double != 0.5 {
		t.Errorf("f should widen to double: %+v", v)
	}
	if v := values["n"]; v.Kind != model.KindInt64 || v.Int64 != 9 {
		t.Errorf("n: %+v", v)
	}
}

func TestUnpackStruct_NestedFlattened(t *testing.T) {
	reg := NewSchemaRegistry()
	mustRegister(t, reg, "B", "double v")
	schemaA := mustRegister(t, reg, "A", "struct:B inner;int32 tag")

	buf := make([]byte, 12)
	putDouble(buf[0:], 3.5)
	binary.LittleEndian.PutUint32(buf[8:], 42)

	values, offset, err := UnpackStruct(reg, schemaA, buf, 0)
	if err != nil {
		t.Fatalf("UnpackStruct failed: %v", err)
	}
	if offset != 12 {
		t.Errorf("expected offset 12, got %d", offset)
	}

	// Nested fields surface under their own names, not "inner.v".
	if v := values["v"]; v.Kind != model.KindDouble || v.Double != 3.5 {
		t.Errorf("v: %+v", v)
	}
	if v := values["tag"]; v.Kind != model.KindInt64 || v.Int64 != 42 {
		t.Errorf("tag: %+v", v)
	}
	if _, ok := values["inner"]; ok {
		t.Error("nested struct should not appear under the field name")
	}
}

func TestUnpackStruct_EmptyBuffer(t *testing.T) {
	reg := NewSchemaRegistry()
	schema := mustRegister(t, reg, "Sample", "double x;double y;int32 count")

	values, offset, err := UnpackStruct(reg, schema, nil, 0)
	if err != nil {
		t.Fatalf("UnpackStruct failed: %v", err)
	}
	if offset != 0 {
		t.Errorf("offset should not advance on empty buffer, got %d", offset)
	}
	for _, name := range []string{"x", "y", "count"} {
		if !values[name].IsNone() {
			t.Errorf("%s should be no-value", name)
		}
	}
}

func TestUnpackStruct_ShortBuffer(t *testing.T) {
	reg := NewSchemaRegistry()
	schema := mustRegister(t, reg, "Pair", "double x;double y")

	buf := make([]byte, 8)
	putDouble(buf, 1.25)

	values, _, err := UnpackStruct(reg, schema, buf, 0)
	if err != nil {
		t.Fatalf("UnpackStruct failed: %v", err)
	}
	if v := values["x"]; v.Kind != model.KindDouble || v.Double != 1.25 {
		t.Errorf("x: %+v", v)
	}
	if !values["y"].IsNone() {
		t.Error("y past the buffer end should be no-value")
	}
}

func TestUnpackStruct_UnknownNestedSchema(t *testing.T) {
	reg := NewSchemaRegistry()
	schemaA := mustRegister(t, reg, "A", "struct:Missing inner;int32 tag")

	_, _, err := UnpackStruct(reg, schemaA, make([]byte, 12), 0)
	if err == nil {
		t.Fatal("expected error for unresolvable nested schema")
	}
	if !errors.IsCode(err, errors.CodeUnknownSchema) {
		t.Errorf("expected CodeUnknownSchema, got %v", err)
	}
}

func TestUnpackStruct_LaterFieldWinsOnNameClash(t *testing.T) {
	reg := NewSchemaRegistry()
	mustRegister(t, reg, "Inner", "double x")
	schema := mustRegister(t, reg, "Outer", "struct:Inner a;double x")

	buf := make([]byte, 16)
	putDouble(buf[0:], 1.0) // Inner.x
	putDouble(buf[8:], 2.0) // Outer.x

	values, offset, err := UnpackStruct(reg, schema, buf, 0)
	if err != nil {
		t.Fatalf("UnpackStruct failed: %v", err)
	}
	if offset != 16 {
		t.Errorf("expected offset 16, got %d", offset)
	}
	if v := values["x"]; v.Double != 2.0 {
		t.Errorf("outer x should win the flattened name: %+v", v)
	}
}
