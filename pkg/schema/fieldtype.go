package schema

import (
	"fmt"
	"strings"
)

// TypeName is the closed tag that drives comparison and encoding dispatch.
// The zero value is not a valid tag.
type TypeName uint8

const (
	TypeBytes TypeName = iota + 1
	TypeArray
	TypeMap
	TypeScalar
)

func (n TypeName) String() string {
	switch n {
	case TypeScalar:
		return "SCALAR"
	case TypeBytes:
		return "BYTES"
	case TypeArray:
		return "ARRAY"
	case TypeMap:
		return "MAP"
	default:
		return fmt.Sprintf("TypeName(%d)", uint8(n))
	}
}

// ScalarKind narrows a TypeScalar field to its runtime representation.
type ScalarKind uint8

const (
	Boolean ScalarKind = iota + 1 // bool
	Int32                         // int32
	Int64                         // int64
	Double                        // float64
	String                        // string
)

func (k ScalarKind) String() string {
	switch k {
	case Boolean:
		return "BOOLEAN"
	case Int32:
		return "INT32"
	case Int64:
		return "INT64"
	case Double:
		return "DOUBLE"
	case String:
		return "STRING"
	default:
		return fmt.Sprintf("ScalarKind(%d)", uint8(k))
	}
}

// FieldType describes how a field's value is compared and encoded.
//
// It is a tagged union: Name selects the variant, and only the members of
// that variant are meaningful. Values are immutable once constructed.
type FieldType struct {
	name   TypeName
	scalar ScalarKind
	elem   *FieldType
	key    *FieldType
	value  *FieldType
}

// Bytes returns the BYTES field type.
func Bytes() FieldType {
	return FieldType{name: TypeBytes}
}

// Scalar returns a SCALAR field type of the given kind.
func Scalar(kind ScalarKind) FieldType {
	if kind < Boolean || kind > String {
		panic(fmt.Sprintf("schema: unknown scalar kind %d", kind))
	}
	return FieldType{name: TypeScalar, scalar: kind}
}

// Array returns an ARRAY field type with the given element type.
func Array(elem FieldType) FieldType {
	return FieldType{name: TypeArray, elem: &elem}
}

// Map returns a MAP field type. Map keys must be scalars.
func Map(key, value FieldType) FieldType {
	if key.name != TypeScalar {
		panic(fmt.Sprintf("schema: map key type must be a scalar, got %s", key))
	}
	return FieldType{name: TypeMap, key: &key, value: &value}
}

// Shorthands for the scalar kinds.
func BooleanType() FieldType { return Scalar(Boolean) }
func Int32Type() FieldType   { return Scalar(Int32) }
func Int64Type() FieldType   { return Scalar(Int64) }
func DoubleType() FieldType  { return Scalar(Double) }
func StringType() FieldType  { return Scalar(String) }

// Name returns the variant tag.
func (t FieldType) Name() TypeName {
	return t.name
}

// ScalarKind returns the scalar kind, or 0 for non-scalar types.
func (t FieldType) ScalarKind() ScalarKind {
	return t.scalar
}

// ElementType returns the element type of an ARRAY. It panics for other types.
func (t FieldType) ElementType() FieldType {
	if t.name != TypeArray {
		panic(fmt.Sprintf("schema: %s has no element type", t))
	}
	return *t.elem
}

// MapKeyType returns the key type of a MAP. It panics for other types.
func (t FieldType) MapKeyType() FieldType {
	if t.name != TypeMap {
		panic(fmt.Sprintf("schema: %s has no key type", t))
	}
	return *t.key
}

// MapValueType returns the value type of a MAP. It panics for other types.
func (t FieldType) MapValueType() FieldType {
	if t.name != TypeMap {
		panic(fmt.Sprintf("schema: %s has no value type", t))
	}
	return *t.value
}

// Equal reports whether two field types are structurally identical.
func (t FieldType) Equal(o FieldType) bool {
	if t.name != o.name {
		return false
	}
	switch t.name {
	case TypeScalar:
		return t.scalar == o.scalar
	case TypeBytes:
		return true
	case TypeArray:
		return t.elem.Equal(*o.elem)
	case TypeMap:
		return t.key.Equal(*o.key) && t.value.Equal(*o.value)
	default:
		return false
	}
}

// String renders the type in the syntax accepted by ParseFieldType.
func (t FieldType) String() string {
	switch t.name {
	case TypeScalar:
		return t.scalar.String()
	case TypeBytes:
		return "BYTES"
	case TypeArray:
		if t.elem == nil {
			return "ARRAY<?>"
		}
		return "ARRAY<" + t.elem.String() + ">"
	case TypeMap:
		if t.key == nil || t.value == nil {
			return "MAP<?,?>"
		}
		return "MAP<" + t.key.String() + "," + t.value.String() + ">"
	default:
		return t.name.String()
	}
}

// ParseFieldType parses a type string such as "int32", "bytes",
// "array<bytes>" or "map<string,array<int64>>". Matching is case-insensitive.
func ParseFieldType(s string) (FieldType, error) {
	p := typeParser{src: strings.ToLower(strings.ReplaceAll(s, " ", ""))}
	t, err := p.parse()
	if err != nil {
		return FieldType{}, fmt.Errorf("invalid field type %q: %w", s, err)
	}
	if p.pos != len(p.src) {
		return FieldType{}, fmt.Errorf("invalid field type %q: trailing input at %d", s, p.pos)
	}
	return t, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) parse() (FieldType, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	ident := p.src[start:p.pos]

	switch ident {
	case "bytes":
		return Bytes(), nil
	case "boolean", "bool":
		return Scalar(Boolean), nil
	case "int32":
		return Scalar(Int32), nil
	case "int64":
		return Scalar(Int64), nil
	case "double", "float64":
		return Scalar(Double), nil
	case "string":
		return Scalar(String), nil
	case "array":
		if err := p.expect('<'); err != nil {
			return FieldType{}, err
		}
		elem, err := p.parse()
		if err != nil {
			return FieldType{}, err
		}
		if err := p.expect('>'); err != nil {
			return FieldType{}, err
		}
		return Array(elem), nil
	case "map":
		if err := p.expect('<'); err != nil {
			return FieldType{}, err
		}
		key, err := p.parse()
		if err != nil {
			return FieldType{}, err
		}
		if key.name != TypeScalar {
			return FieldType{}, fmt.Errorf("map key must be a scalar, got %s", key)
		}
		if err := p.expect(','); err != nil {
			return FieldType{}, err
		}
		value, err := p.parse()
		if err != nil {
			return FieldType{}, err
		}
		if err := p.expect('>'); err != nil {
			return FieldType{}, err
		}
		return Map(key, value), nil
	case "":
		return FieldType{}, fmt.Errorf("expected type name at %d", start)
	default:
		return FieldType{}, fmt.Errorf("unknown type %q", ident)
	}
}

func (p *typeParser) expect(c byte) error {
	if p.pos >= len(p.src) || p.src[p.pos] != c {
		return fmt.Errorf("expected %q at %d", c, p.pos)
	}
	p.pos++
	return nil
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}
