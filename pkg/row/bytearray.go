package row

import (
	"bytes"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// ByteArray is an immutable byte payload that compares and hashes by content.
//
// A nil *ByteArray is the absent payload. The zero ByteArray is an empty,
// present payload.
type ByteArray struct {
	value []byte
}

// NewByteArray copies b into a new payload.
func NewByteArray(b []byte) *ByteArray {
	v := make([]byte, len(b))
	copy(v, b)
	return &ByteArray{value: v}
}

// WrapByteArray takes ownership of b without copying. Callers must not
// modify b afterwards.
func WrapByteArray(b []byte) *ByteArray {
	if b == nil {
		b = []byte{}
	}
	return &ByteArray{value: b}
}

// Len returns the payload length.
func (a *ByteArray) Len() int {
	return len(a.value)
}

// Bytes returns a copy of the payload.
func (a *ByteArray) Bytes() []byte {
	out := make([]byte, len(a.value))
	copy(out, a.value)
	return out
}

// View returns the payload without copying. The result must not be modified.
func (a *ByteArray) View() []byte {
	return a.value
}

// Equal reports whether both payloads hold the same bytes. Two nil payloads
// are equal; a nil and a non-nil payload are not.
func (a *ByteArray) Equal(o *ByteArray) bool {
	if a == nil || o == nil {
		return a == o
	}
	return a == o || bytes.Equal(a.value, o.value)
}

// Hash returns a content hash consistent with Equal.
func (a *ByteArray) Hash() uint64 {
	return xxhash.Sum64(a.value)
}

// Key returns the content as a string, usable as a Go map key.
func (a *ByteArray) Key() string {
	return string(a.value)
}

func (a *ByteArray) String() string {
	if a == nil {
		return "<nil>"
	}
	return "base16[" + hex.EncodeToString(a.value) + "]"
}
