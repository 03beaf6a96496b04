package decode

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/logtab/logtab/internal/model"
	"github.com/logtab/logtab/pkg/datalog"
	"github.com/logtab/logtab/pkg/errors"
)

func newTestDecoder() (*Decoder, *EntryRegistry, *SchemaRegistry) {
	entries := NewEntryRegistry()
	schemas := NewSchemaRegistry()
	return NewDecoder(entries, schemas), entries, schemas
}

func startEntry(reg *EntryRegistry, id uint32, name, typeName string) Entry {
	return reg.OnStart(datalog.StartData{Entry: id, Name: name, Type: typeName})
}

func doubleRecord(entry uint32, v float64) datalog.Record {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, math.Float64bits(v))
	return datalog.Record{Entry: entry, Timestamp: 1000, Data: data}
}

func TestDecoder_Scalars(t *testing.T) {
	d, entries, _ := newTestDecoder()

	ent := startEntry(entries, 1, "/v", "double")
	val, err := d.Decode(doubleRecord(1, 2.75), ent)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if val.Kind != model.KindDouble || val.Double != 2.75 {
		t.Errorf("double: %+v", val)
	}

	ent = startEntry(entries, 2, "/b", "boolean")
	val, err = d.Decode(datalog.Record{Entry: 2, Data: []byte{1}}, ent)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if val.Kind != model.KindBoolean || !val.Bool {
		t.Errorf("boolean: %+v", val)
	}

	ent = startEntry(entries, 3, "/s", "string")
	val, err = d.Decode(datalog.Record{Entry: 3, Data: []byte("hi")}, ent)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if val.Kind != model.KindString || val.Str != "hi" {
		t.Errorf("string: %+v", val)
	}
}

func TestDecoder_MismatchedPayloadDegradesToNone(t *testing.T) {
	d, entries, _ := newTestDecoder()

	// Declared double, 3-byte payload.
	ent := startEntry(entries, 1, "/v", "double")
	val, err := d.Decode(datalog.Record{Entry: 1, Data: []byte{1, 2, 3}}, ent)
	if err != nil {
		t.Fatalf("Decode should not fail on bad payload: %v", err)
	}
	if !val.IsNone() {
		t.Errorf("expected no-value, got %+v", val)
	}
}

func TestDecoder_UnrecognizedTypePassthrough(t *testing.T) {
	d, entries, _ := newTestDecoder()

	ent := startEntry(entries, 1, "/raw", "customtype")
	val, err := d.Decode(datalog.Record{Entry: 1, Data: []byte{0xDE, 0xAD}}, ent)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if val.Kind != model.KindBytes || len(val.Bytes) != 2 {
		t.Errorf("unrecognized should pass bytes through: %+v", val)
	}
}

func TestDecoder_StructUsesRegisteredSchema(t *testing.T) {
	d, entries, schemas := newTestDecoder()

	if _, err := schemas.RegisterDeclaration("NT:/.schema/struct:Pose2d", "double x;double y"); err != nil {
		t.Fatalf("register: %v", err)
	}

	ent := startEntry(entries, 1, "/pose", "struct:Pose2d")
	data := make([]byte, 16)
	binary.LittleEndian.PutUint64(data[0:], math.Float64bits(1.0))
	binary.LittleEndian.PutUint64(data[8:], math.Float64bits(2.0))

	val, err := d.Decode(datalog.Record{Entry: 1, Data: data}, ent)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if val.Kind != model.KindStruct {
		t.Fatalf("expected struct value, got %+v", val)
	}
	if val.Fields["x"].Double != 1.0 || val.Fields["y"].Double != 2.0 {
		t.Errorf("fields: %+v", val.Fields)
	}
}

func TestDecoder_StructWithoutSchemaFails(t *testing.T) {
	d, entries, _ := newTestDecoder()

	ent := startEntry(entries, 1, "/pose", "struct:Pose2d")
	_, err := d.Decode(datalog.Record{Entry: 1, Data: make([]byte, 16)}, ent)
	if err == nil {
		t.Fatal("expected error for unresolvable struct schema")
	}
	if !errors.IsCode(err, errors.CodeUnknownSchema) {
		t.Errorf("expected CodeUnknownSchema, got %v", err)
	}
}

func TestDecoder_SchemaDeclarationRegistersAndEmits(t *testing.T) {
	d, entries, schemas := newTestDecoder()

	ent := startEntry(entries, 1, "NT:/.schema/struct:Pose2d", "structschema")
	text := []byte("double x;double y")

	val, err := d.Decode(datalog.Record{Entry: 1, Data: text}, ent)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// The record itself still yields a row value.
	if val.Kind != model.KindBytes || string(val.Bytes) != "double x;double y" {
		t.Errorf("declaration value: %+v", val)
	}

	// And the schema is now resolvable.
	if _, ok := schemas.Resolve("Pose2d"); !ok {
		t.Error("schema should be registered after decoding its declaration")
	}
}

func TestDecoder_MalformedSchemaDeclarationFails(t *testing.T) {
	d, entries, _ := newTestDecoder()

	ent := startEntry(entries, 1, "NT:/.schema/struct:Bad", "structschema")
	_, err := d.Decode(datalog.Record{Entry: 1, Data: []byte("garbage")}, ent)
	if err == nil {
		t.Fatal("expected error for malformed schema text")
	}
	if !errors.IsCode(err, errors.CodeMalformedSchema) {
		t.Errorf("expected CodeMalformedSchema, got %v", err)
	}
}
