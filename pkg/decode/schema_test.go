package decode

import (
	"testing"

	"github.com/logtab/logtab/pkg/errors"
)

func TestParseSchemaText_Basic(t *testing.T) {
	fields, err := ParseSchemaText("Translation2d", "double x;double y;int32 count")
	if err != nil {
		t.Fatalf("ParseSchemaText failed: %v", err)
	}

	want := []Field{
		{Type: "double", Name: "x"},
		{Type: "double", Name: "y"},
		{Type: "int32", Name: "count"},
	}
	if len(fields) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(fields))
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("field %d: got %+v, want %+v", i, fields[i], want[i])
		}
	}
}

func TestParseSchemaText_EnumSegment(t *testing.T) {
	fields, err := ParseSchemaText("Mode", "enum {A=0,B=1} int32 kind")
	if err != nil {
		t.Fatalf("ParseSchemaText failed: %v", err)
	}
	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Type != "int32" || fields[0].Name != "kind" {
		t.Errorf("got %+v, want int32 kind", fields[0])
	}
}

func TestParseSchemaText_EnumMissingBrace(t *testing.T) {
	_, err := ParseSchemaText("Mode", "enum {A=0,B=1 int32 kind")
	if err == nil {
		t.Fatal("expected error for unterminated enum")
	}
	if !errors.IsCode(err, errors.CodeMalformedSchema) {
		t.Errorf("expected CodeMalformedSchema, got %v", err)
	}
}

func TestParseSchemaText_MalformedSegment(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no whitespace", "double"},
		{"empty field name", "double "},
		{"bad middle segment", "double x;garbage;double y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSchemaText("S", tt.text); err == nil {
				t.Errorf("expected error for %q", tt.text)
			}
		})
	}
}

func TestParseSchemaText_SkipsEmptySegments(t *testing.T) {
	fields, err := ParseSchemaText("S", "double x;;double y;")
	if err != nil {
		t.Fatalf("ParseSchemaText failed: %v", err)
	}
	if len(fields) != 2 {
		t.Errorf("expected 2 fields, got %d", len(fields))
	}
}

func TestSchemaRegistry_RegisterAndResolve(t *testing.T) {
	reg := NewSchemaRegistry()

	schema, err := reg.RegisterDeclaration("NT:/.schema/struct:Pose2d", "double x;double y;double theta")
	if err != nil {
		t.Fatalf("RegisterDeclaration failed: %v", err)
	}
	if schema.Name != "Pose2d" {
		t.Errorf("expected name Pose2d, got %q", schema.Name)
	}

	// Resolvable by bare name, prefixed name, and array-suffixed name.
	for _, query := range []string{"Pose2d", "struct:Pose2d", "Pose2d[]", "struct:Pose2d[]"} {
		if _, ok := reg.Resolve(query); !ok {
			t.Errorf("Resolve(%q) failed", query)
		}
	}
}

func TestSchemaRegistry_MissingDelimiter(t *testing.T) {
	reg := NewSchemaRegistry()
	_, err := reg.RegisterDeclaration("NT:/NoDelimiter", "double x")
	if err == nil {
		t.Fatal("expected error for entry name without schema delimiter")
	}
	if !errors.IsCode(err, errors.CodeMalformedSchema) {
		t.Errorf("expected CodeMalformedSchema, got %v", err)
	}
}

func TestSchemaRegistry_Redefinition(t *testing.T) {
	reg := NewSchemaRegistry()
	entry := "NT:/.schema/struct:Pose2d"

	if _, err := reg.RegisterDeclaration(entry, "double x;double y"); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	// Identical redefinition is a no-op.
	if _, err := reg.RegisterDeclaration(entry, "double x;double y"); err != nil {
		t.Errorf("identical redefinition should succeed: %v", err)
	}

	// Conflicting redefinition is an error.
	_, err := reg.RegisterDeclaration(entry, "double x;double y;double theta")
	if err == nil {
		t.Fatal("expected error for conflicting redefinition")
	}
	if !errors.IsCode(err, errors.CodeSchemaRedefined) {
		t.Errorf("expected CodeSchemaRedefined, got %v", err)
	}

	// The original schema is untouched.
	schema, ok := reg.Resolve("Pose2d")
	if !ok || len(schema.Fields) != 2 {
		t.Errorf("original schema should survive: %+v", schema)
	}
}
