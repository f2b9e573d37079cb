package schema

import (
	"fmt"
	"strings"
)

// Field is a named, typed column of a Schema.
type Field struct {
	Name string
	Type FieldType
}

// Schema is an ordered, fixed list of fields. Schemas compare by value.
type Schema struct {
	fields []Field
	index  map[string]int
}

// New builds a schema from fields. Field names must be unique and non-empty.
func New(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d has an empty name", i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field name %q", f.Name)
		}
		s.fields[i] = f
		s.index[f.Name] = i
	}
	return s, nil
}

// FieldCount returns the number of fields.
func (s *Schema) FieldCount() int {
	return len(s.fields)
}

// Field returns the field at index i.
func (s *Schema) Field(i int) Field {
	return s.fields[i]
}

// FieldType returns the type of the field at index i.
func (s *Schema) FieldType(i int) FieldType {
	return s.fields[i].Type
}

// Fields returns a copy of the field list.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// IndexOf returns the position of the named field, or -1.
func (s *Schema) IndexOf(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Equal reports whether two schemas have the same field names and types in
// the same order. Identity is not required.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i].Name != o.fields[i].Name || !s.fields[i].Type.Equal(o.fields[i].Type) {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	var sb strings.Builder
	sb.WriteString("Schema{")
	for i, f := range s.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteString(":")
		sb.WriteString(f.Type.String())
	}
	sb.WriteString("}")
	return sb.String()
}

// Builder assembles a schema field by field.
//
//	s := schema.NewBuilder().
//		AddInt32Field("f0").
//		AddDoubleField("f1").
//		AddByteArrayField("f2").
//		Build()
type Builder struct {
	fields []Field
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddField appends a field of any type.
func (b *Builder) AddField(name string, t FieldType) *Builder {
	b.fields = append(b.fields, Field{Name: name, Type: t})
	return b
}

func (b *Builder) AddBooleanField(name string) *Builder   { return b.AddField(name, BooleanType()) }
func (b *Builder) AddInt32Field(name string) *Builder     { return b.AddField(name, Int32Type()) }
func (b *Builder) AddInt64Field(name string) *Builder     { return b.AddField(name, Int64Type()) }
func (b *Builder) AddDoubleField(name string) *Builder    { return b.AddField(name, DoubleType()) }
func (b *Builder) AddStringField(name string) *Builder    { return b.AddField(name, StringType()) }
func (b *Builder) AddByteArrayField(name string) *Builder { return b.AddField(name, Bytes()) }

// AddArrayField appends an ARRAY field.
func (b *Builder) AddArrayField(name string, elem FieldType) *Builder {
	return b.AddField(name, Array(elem))
}

// AddMapField appends a MAP field.
func (b *Builder) AddMapField(name string, key, value FieldType) *Builder {
	return b.AddField(name, Map(key, value))
}

// Build returns the schema. It panics on duplicate or empty field names,
// which are programming errors in a builder chain; use New to get an error.
func (b *Builder) Build() *Schema {
	s, err := New(b.fields...)
	if err != nil {
		panic("schema: " + err.Error())
	}
	return s
}
