// Package varint implements the unsigned base-128 variable length integer
// used for length prefixes and int32 values.
//
// Each byte carries 7 bits of value, low group first, with the high bit set
// when more bytes follow. Encodings are minimal. The byte-level work is done
// by github.com/multiformats/go-varint; this package adds io.Writer helpers and
// the width checks the codecs need.
package varint

import (
	"errors"
	"io"
	"math"

	mvarint "github.com/multiformats/go-varint"
)

// MaxLen32 is the longest encoding of a 32-bit value.
const MaxLen32 = 5

var (
	// ErrOverflow is returned when a decoded value does not fit the target width.
	ErrOverflow = errors.New("varint: value overflows target width")
	// ErrNotMinimal is returned for encodings with redundant trailing zero groups.
	ErrNotMinimal = errors.New("varint: encoding is not minimal")
)

// Len returns the number of bytes needed to encode v.
func Len(v uint64) int {
	return mvarint.UvarintSize(v)
}

// Append appends the encoding of v to buf.
func Append(buf []byte, v uint64) []byte {
	var tmp [mvarint.MaxLenUvarint63 + 1]byte
	n := put(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// Write writes the encoding of v to w and returns the number of bytes written.
func Write(w io.Writer, v uint64) (int, error) {
	var tmp [mvarint.MaxLenUvarint63 + 1]byte
	n := put(tmp[:], v)
	return w.Write(tmp[:n])
}

// WriteInt32 writes the two's complement bit pattern of v as an unsigned
// varint, so negative values take MaxLen32 bytes.
func WriteInt32(w io.Writer, v int32) (int, error) {
	return Write(w, uint64(uint32(v)))
}

// Read decodes an unsigned varint of up to 63 bits.
//
// io.EOF is returned only when r is exhausted before the first byte; running
// out mid-value yields io.ErrUnexpectedEOF.
func Read(r io.ByteReader) (uint64, error) {
	v, err := mvarint.ReadUvarint(r)
	if err != nil {
		return 0, translate(err)
	}
	return v, nil
}

// ReadUint32 decodes a varint that must fit in 32 bits.
func ReadUint32(r io.ByteReader) (uint32, error) {
	v, err := Read(r)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, ErrOverflow
	}
	return uint32(v), nil
}

// ReadInt32 decodes a varint written by WriteInt32. The result may be
// negative; callers decoding lengths must reject that.
func ReadInt32(r io.ByteReader) (int32, error) {
	v, err := ReadUint32(r)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

func put(buf []byte, v uint64) int {
	return mvarint.PutUvarint(buf, v)
}

func translate(err error) error {
	switch {
	case errors.Is(err, mvarint.ErrOverflow):
		return ErrOverflow
	case errors.Is(err, mvarint.ErrNotMinimal):
		return ErrNotMinimal
	default:
		return err
	}
}
