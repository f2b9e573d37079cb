package equality

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ssargent/rowcodec/pkg/row"
)

// RecordEquality decides whether two rows are equal.
//
// b is untyped so that comparing against something that is not a *row.Row is
// simply unequal.
type RecordEquality interface {
	Name() string
	Equal(a *row.Row, b any) bool
}

// The available strategies. They trade correctness for speed differently and
// are kept separate on purpose.
var (
	// Deep compares every field with DeepEquals under its declared type. It
	// is the only strategy that is correct for raw []byte fields.
	Deep RecordEquality = deepEquality{}

	// Storage compares each value with its own equality: lists and maps
	// structurally, *row.ByteArray by content, scalars by value, and raw
	// []byte by identity. Two distinct buffers with the same content are
	// therefore unequal. Use it only when byte fields hold *row.ByteArray.
	Storage RecordEquality = storageEquality{}

	// Aggregate compares the two value sequences as one aggregate. Top-level
	// raw []byte values compare by content; anything nested compares as in
	// Storage, so a list of raw buffers is still compared by identity.
	Aggregate RecordEquality = aggregateEquality{}
)

var strategies = map[string]RecordEquality{
	Deep.Name():      Deep,
	Storage.Name():   Storage,
	Aggregate.Name(): Aggregate,
}

// ByName returns the strategy registered under name.
func ByName(name string) (RecordEquality, error) {
	s, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown equality strategy %q (want one of %v)", name, Names())
	}
	return s, nil
}

// Names returns the registered strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RowsEqual compares two rows with the Deep strategy.
func RowsEqual(a, b *row.Row) bool {
	return Deep.Equal(a, b)
}

// precheck performs the checks shared by every strategy. done is true when
// the result is already decided.
func precheck(a *row.Row, other any) (b *row.Row, eq, done bool) {
	b, ok := other.(*row.Row)
	if ok && a == b {
		return b, true, true
	}
	if !ok || a == nil || b == nil {
		return nil, false, true
	}
	if !a.Schema().Equal(b.Schema()) || a.FieldCount() != b.FieldCount() {
		return nil, false, true
	}
	return b, false, false
}

type deepEquality struct{}

func (deepEquality) Name() string { return "deep" }

func (deepEquality) Equal(a *row.Row, other any) bool {
	b, eq, done := precheck(a, other)
	if done {
		return eq
	}
	s := a.Schema()
	for i := 0; i < s.FieldCount(); i++ {
		if !DeepEquals(a.Value(i), b.Value(i), s.FieldType(i)) {
			return false
		}
	}
	return true
}

type storageEquality struct{}

func (storageEquality) Name() string { return "storage" }

func (storageEquality) Equal(a *row.Row, other any) bool {
	b, eq, done := precheck(a, other)
	if done {
		return eq
	}
	for i := 0; i < a.FieldCount(); i++ {
		if !ownEquals(a.Value(i), b.Value(i)) {
			return false
		}
	}
	return true
}

type aggregateEquality struct{}

func (aggregateEquality) Name() string { return "aggregate" }

func (aggregateEquality) Equal(a *row.Row, other any) bool {
	b, eq, done := precheck(a, other)
	if done {
		return eq
	}
	return aggregateEquals(a.Values(), b.Values())
}

func aggregateEquals(x, y []any) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if xb, ok := x[i].([]byte); ok {
			yb, ok := y[i].([]byte)
			if !ok || (xb == nil) != (yb == nil) || !bytes.Equal(xb, yb) {
				return false
			}
			continue
		}
		if !ownEquals(x[i], y[i]) {
			return false
		}
	}
	return true
}

// ownEquals is the equality a value carries by itself, without any schema.
func ownEquals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case []byte:
		y, ok := b.([]byte)
		return ok && sameBuffer(x, y)
	case *row.ByteArray:
		y, ok := b.(*row.ByteArray)
		return ok && x.Equal(y)
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !ownEquals(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[any]any:
		y, ok := b.(map[any]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, present := y[k]
			if !present || !ownEquals(xv, yv) {
				return false
			}
		}
		return true
	default:
		return scalarEqual(a, b)
	}
}

// sameBuffer is reference identity for byte slices. Zero-length slices have no
// distinguishable backing array and are treated as the same buffer.
func sameBuffer(x, y []byte) bool {
	if len(x) != len(y) {
		return false
	}
	return len(x) == 0 || &x[0] == &y[0]
}
