package equality

import (
	"bytes"
	"math"
	"reflect"

	"github.com/ssargent/rowcodec/pkg/errs"
	"github.com/ssargent/rowcodec/pkg/row"
	"github.com/ssargent/rowcodec/pkg/schema"
)

const opCompare = "equality.compare"

// DeepEquals reports whether a and b are equal under the field type ft.
//
// It panics with an errs.KindInvariant error when a value contradicts its
// declared type, e.g. a BYTES field holding an int32. Use Compare to receive
// that as an error instead.
func DeepEquals(a, b any, ft schema.FieldType) bool {
	eq, err := Compare(a, b, ft)
	if err != nil {
		panic(err)
	}
	return eq
}

// Compare is DeepEquals with invariant violations returned as errors.
//
// Dispatch is on ft alone:
//
//	BYTES   content comparison of []byte / *row.ByteArray
//	ARRAY   equal length, then pairwise with the element type, in order
//	MAP     equal size, then every key of a present in b with an equal value
//	SCALAR  value equality; floats compare by bit pattern
//
// nil is null for every type: two nulls are equal, a null and a non-null are
// not. A map key bound to nil is distinct from an absent key.
func Compare(a, b any, ft schema.FieldType) (bool, error) {
	switch ft.Name() {
	case schema.TypeBytes:
		return bytesEqual(a, b)
	case schema.TypeArray:
		return listEqual(a, b, ft.ElementType())
	case schema.TypeMap:
		return mapEqual(a, b, ft.MapValueType())
	case schema.TypeScalar:
		return scalarEqual(a, b), nil
	default:
		return false, errs.Invariant(opCompare, "unknown field type %s", ft)
	}
}

func bytesEqual(a, b any) (bool, error) {
	x, xok, err := asBytes(a)
	if err != nil {
		return false, err
	}
	y, yok, err := asBytes(b)
	if err != nil {
		return false, err
	}
	if !xok || !yok {
		return xok == yok, nil
	}
	return bytes.Equal(x, y), nil
}

func listEqual(a, b any, elem schema.FieldType) (bool, error) {
	x, xok, err := asList(a)
	if err != nil {
		return false, err
	}
	y, yok, err := asList(b)
	if err != nil {
		return false, err
	}
	if !xok || !yok {
		return xok == yok, nil
	}
	if len(x) != len(y) {
		return false, nil
	}
	if len(x) > 0 && &x[0] == &y[0] {
		return true, nil
	}
	for i := range x {
		eq, err := Compare(x[i], y[i], elem)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// mapEqual looks keys up with Go equality, so a NaN key never matches. The
// row codecs reject NaN map keys.
func mapEqual(a, b any, value schema.FieldType) (bool, error) {
	x, xok, err := asMap(a)
	if err != nil {
		return false, err
	}
	y, yok, err := asMap(b)
	if err != nil {
		return false, err
	}
	if !xok || !yok {
		return xok == yok, nil
	}
	if reflect.ValueOf(x).Pointer() == reflect.ValueOf(y).Pointer() {
		return true, nil
	}
	if len(x) != len(y) {
		return false, nil
	}
	for k, xv := range x {
		yv, present := y[k]
		if !present {
			return false, nil
		}
		eq, err := Compare(xv, yv, value)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// scalarEqual is plain value equality. Floats compare by bit pattern so that
// NaN equals itself; composite values compare structurally.
func scalarEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && math.Float64bits(x) == math.Float64bits(y)
	case float32:
		y, ok := b.(float32)
		return ok && math.Float32bits(x) == math.Float32bits(y)
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, string:
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// asBytes returns the payload of a BYTES value and whether it is present.
func asBytes(v any) ([]byte, bool, error) {
	switch x := v.(type) {
	case nil:
		return nil, false, nil
	case []byte:
		return x, x != nil, nil
	case *row.ByteArray:
		if x == nil {
			return nil, false, nil
		}
		return x.View(), true, nil
	default:
		return nil, false, errs.Invariant(opCompare, "field declared BYTES holds %T", v)
	}
}

func asList(v any) ([]any, bool, error) {
	switch x := v.(type) {
	case nil:
		return nil, false, nil
	case []any:
		return x, x != nil, nil
	default:
		return nil, false, errs.Invariant(opCompare, "field declared ARRAY holds %T", v)
	}
}

func asMap(v any) (map[any]any, bool, error) {
	switch x := v.(type) {
	case nil:
		return nil, false, nil
	case map[any]any:
		return x, x != nil, nil
	default:
		return nil, false, errs.Invariant(opCompare, "field declared MAP holds %T", v)
	}
}
