// Package row provides the runtime record types: Row, a schema plus positional
// field values, and ByteArray, a byte payload with value semantics.
//
// Runtime representations per field type:
//
//	BYTES    []byte or *ByteArray
//	ARRAY    []any
//	MAP      map[any]any
//	BOOLEAN  bool
//	INT32    int32
//	INT64    int64
//	DOUBLE   float64
//	STRING   string
//
// A nil value is null for every field type.
package row

import (
	"fmt"
	"strings"

	"github.com/ssargent/rowcodec/pkg/schema"
)

// Row is an immutable record: a schema and one value per field.
type Row struct {
	schema *schema.Schema
	values []any
}

// New creates a row. The number of values must match the schema's field count.
// The value slice is copied; nested slices, maps and byte buffers are not, and
// must not be modified afterwards.
func New(s *schema.Schema, values ...any) (*Row, error) {
	if s == nil {
		return nil, fmt.Errorf("row: nil schema")
	}
	if len(values) != s.FieldCount() {
		return nil, fmt.Errorf("row: schema has %d fields, got %d values", s.FieldCount(), len(values))
	}
	v := make([]any, len(values))
	copy(v, values)
	return &Row{schema: s, values: v}, nil
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(s *schema.Schema, values ...any) *Row {
	r, err := New(s, values...)
	if err != nil {
		panic(err)
	}
	return r
}

// Schema returns the row's schema.
func (r *Row) Schema() *schema.Schema {
	return r.schema
}

// FieldCount returns the number of values.
func (r *Row) FieldCount() int {
	return len(r.values)
}

// Value returns the value at index i.
func (r *Row) Value(i int) any {
	return r.values[i]
}

// ValueByName returns the named value, or false if the schema has no such field.
func (r *Row) ValueByName(name string) (any, bool) {
	i := r.schema.IndexOf(name)
	if i < 0 {
		return nil, false
	}
	return r.values[i], true
}

// Values returns a copy of the value slice.
func (r *Row) Values() []any {
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out
}

func (r *Row) String() string {
	var sb strings.Builder
	sb.WriteString("Row{")
	for i, v := range r.values {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=", r.schema.Field(i).Name)
		if b, ok := v.([]byte); ok {
			sb.WriteString(WrapByteArray(b).String())
			continue
		}
		fmt.Fprintf(&sb, "%v", v)
	}
	sb.WriteString("}")
	return sb.String()
}
