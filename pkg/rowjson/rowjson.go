// Package rowjson converts rows to and from JSON objects keyed by field name.
//
// BYTES values are base64 strings (standard encoding, padded). MAP values are
// JSON objects, so map keys are rendered as strings and parsed back with the
// declared key type. A missing or null field is a null value.
package rowjson

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/ssargent/rowcodec/pkg/row"
	"github.com/ssargent/rowcodec/pkg/schema"
)

// Encode renders r as a JSON object with fields in schema order.
func Encode(r *row.Row) ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	s := r.Schema()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i < s.FieldCount(); i++ {
		f := s.Field(i)
		v, err := toJSON(r.Value(i), f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		name, _ := json.Marshal(f.Name)
		value, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToMap returns the JSON-ready form of r keyed by field name.
func ToMap(r *row.Row) (map[string]any, error) {
	s := r.Schema()
	out := make(map[string]any, s.FieldCount())
	for i := 0; i < s.FieldCount(); i++ {
		f := s.Field(i)
		v, err := toJSON(r.Value(i), f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		out[f.Name] = v
	}
	return out, nil
}

// Decode parses a JSON object into a row of s. Unknown fields are an error.
func Decode(s *schema.Schema, data []byte) (*row.Row, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("invalid row object: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("row must be a JSON object")
	}
	for name := range obj {
		if s.IndexOf(name) < 0 {
			return nil, fmt.Errorf("unknown field %q", name)
		}
	}

	values := make([]any, s.FieldCount())
	for i := 0; i < s.FieldCount(); i++ {
		f := s.Field(i)
		raw, ok := obj[f.Name]
		if !ok {
			continue
		}
		v, err := fromJSON(raw, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		values[i] = v
	}
	return row.New(s, values...)
}

func toJSON(v any, ft schema.FieldType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch ft.Name() {
	case schema.TypeBytes:
		switch x := v.(type) {
		case []byte:
			if x == nil {
				return nil, nil
			}
			return base64.StdEncoding.EncodeToString(x), nil
		case *row.ByteArray:
			if x == nil {
				return nil, nil
			}
			return base64.StdEncoding.EncodeToString(x.View()), nil
		}
	case schema.TypeArray:
		list, ok := v.([]any)
		if !ok {
			break
		}
		if list == nil {
			return nil, nil
		}
		out := make([]any, len(list))
		for i, e := range list {
			c, err := toJSON(e, ft.ElementType())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case schema.TypeMap:
		m, ok := v.(map[any]any)
		if !ok {
			break
		}
		if m == nil {
			return nil, nil
		}
		out := make(map[string]any, len(m))
		for k, e := range m {
			key, err := formatKey(k, ft.MapKeyType())
			if err != nil {
				return nil, err
			}
			c, err := toJSON(e, ft.MapValueType())
			if err != nil {
				return nil, fmt.Errorf("[%s]: %w", key, err)
			}
			out[key] = c
		}
		return out, nil
	case schema.TypeScalar:
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return nil, fmt.Errorf("%v has no JSON representation", f)
		}
		return v, nil
	}
	return nil, fmt.Errorf("value declared %s holds %T", ft, v)
}

func formatKey(k any, ft schema.FieldType) (string, error) {
	switch x := k.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("map key declared %s holds %T", ft, k)
	}
}

func fromJSON(raw json.RawMessage, ft schema.FieldType) (any, error) {
	if isNull(raw) {
		return nil, nil
	}
	switch ft.Name() {
	case schema.TypeBytes:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("bytes must be a base64 string: %w", err)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid base64: %w", err)
		}
		return row.WrapByteArray(b), nil
	case schema.TypeArray:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("expected an array: %w", err)
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := fromJSON(item, ft.ElementType())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case schema.TypeMap:
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("expected an object: %w", err)
		}
		out := make(map[any]any, len(obj))
		for k, item := range obj {
			key, err := parseScalar(k, ft.MapKeyType())
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			if f, ok := key.(float64); ok && math.IsNaN(f) {
				return nil, fmt.Errorf("key %q: NaN map keys are not supported", k)
			}
			// "1" and "01" name the same INT32 key.
			if _, dup := out[key]; dup {
				return nil, fmt.Errorf("duplicate map key %q", k)
			}
			v, err := fromJSON(item, ft.MapValueType())
			if err != nil {
				return nil, fmt.Errorf("[%s]: %w", k, err)
			}
			out[key] = v
		}
		return out, nil
	case schema.TypeScalar:
		return scalarFromJSON(raw, ft)
	default:
		return nil, fmt.Errorf("unknown field type %s", ft)
	}
}

func scalarFromJSON(raw json.RawMessage, ft schema.FieldType) (any, error) {
	if ft.ScalarKind() == schema.String {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("expected a string: %w", err)
		}
		return s, nil
	}
	if ft.ScalarKind() == schema.Boolean {
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("expected a boolean: %w", err)
		}
		return b, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return nil, fmt.Errorf("expected a number: %w", err)
	}
	return parseScalar(n.String(), ft)
}

// parseScalar parses the textual form of a scalar, as used for map keys and
// numbers.
func parseScalar(s string, ft schema.FieldType) (any, error) {
	switch ft.ScalarKind() {
	case schema.String:
		return s, nil
	case schema.Boolean:
		return strconv.ParseBool(s)
	case schema.Int32:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case schema.Int64:
		return strconv.ParseInt(s, 10, 64)
	case schema.Double:
		return strconv.ParseFloat(s, 64)
	default:
		return nil, fmt.Errorf("unknown scalar kind %s", ft.ScalarKind())
	}
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
