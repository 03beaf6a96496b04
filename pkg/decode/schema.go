package decode

import (
	"strings"
	"unicode"

	"github.com/logtab/logtab/pkg/errors"
)

// SchemaDelim separates the entry name prefix from a schema's logical name
// in schema-declaration entries (e.g. "NT:/.schema/struct:Pose2d").
const SchemaDelim = ".schema/"

// Field is one typed struct member.
type Field struct {
	Type string
	Name string
}

// StructSchema is a named, ordered field list describing the binary layout
// of a custom record type. Immutable once registered.
type StructSchema struct {
	Name   string
	Fields []Field
}

// SchemaRegistry resolves struct type names to their schemas. Like the
// entry registry it is owned by one conversion run.
type SchemaRegistry struct {
	schemas map[string]StructSchema
}

// NewSchemaRegistry creates an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[string]StructSchema)}
}

// RegisterDeclaration parses a schema-declaration record into a schema and
// stores it. The logical name is everything after the ".schema/" delimiter
// in the entry name, normalized by stripping the "struct:" prefix.
// Redefining a name with different fields is an error; a byte-identical
// redefinition is a no-op.
func (r *SchemaRegistry) RegisterDeclaration(entryName, schemaText string) (StructSchema, error) {
	idx := strings.Index(entryName, SchemaDelim)
	if idx < 0 {
		return StructSchema{}, errors.New(errors.CodeMalformedSchema, "invalid schema name format").
			WithContext("entry_name", entryName)
	}
	name := normalizeSchemaName(entryName[idx+len(SchemaDelim):])

	fields, err := ParseSchemaText(name, schemaText)
	if err != nil {
		return StructSchema{}, err
	}

	schema := StructSchema{Name: name, Fields: fields}
	if prev, ok := r.schemas[name]; ok {
		if !fieldsEqual(prev.Fields, fields) {
			return StructSchema{}, errors.SchemaRedefined(name)
		}
		return prev, nil
	}
	r.schemas[name] = schema
	return schema, nil
}

// Resolve looks up a schema by type name, stripping a trailing array marker
// and a leading "struct:" prefix before the lookup.
func (r *SchemaRegistry) Resolve(typeName string) (StructSchema, bool) {
	s, ok := r.schemas[normalizeSchemaName(typeName)]
	return s, ok
}

// Len returns the number of registered schemas.
func (r *SchemaRegistry) Len() int {
	return len(r.schemas)
}

// Names returns the registered schema names.
func (r *SchemaRegistry) Names() []string {
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	return names
}

// ParseSchemaText parses a semicolon-separated type/name field list. An
// inline enum declaration contributes only its trailing type/name pair; the
// symbolic mapping is discarded. A segment without a type/name pair is a
// malformed-schema error, not a skip.
func ParseSchemaText(schemaName, text string) ([]Field, error) {
	var fields []Field

	for _, segment := range strings.Split(text, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		if strings.HasPrefix(segment, "enum") {
			pos := strings.Index(segment, "}")
			if pos < 0 {
				return nil, errors.MalformedSchema(schemaName, segment)
			}
			segment = strings.TrimSpace(segment[pos+1:])
		}

		i := strings.IndexFunc(segment, unicode.IsSpace)
		if i < 0 {
			return nil, errors.MalformedSchema(schemaName, segment)
		}
		name := strings.TrimSpace(segment[i+1:])
		if name == "" {
			return nil, errors.MalformedSchema(schemaName, segment)
		}
		fields = append(fields, Field{Type: segment[:i], Name: name})
	}

	return fields, nil
}

// normalizeSchemaName strips the array suffix and struct: prefix so stored
// and queried names compare equal.
func normalizeSchemaName(name string) string {
	name = strings.TrimSuffix(name, "[]")
	return strings.TrimPrefix(name, structPrefix)
}

func fieldsEqual(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
