package codec

import (
	"bytes"
	"io"

	"github.com/ssargent/rowcodec/pkg/errs"
)

// Coder encodes values of type T to a stream and decodes them back.
//
// Encode writes exactly one value. Decode consumes exactly the bytes Encode
// produced for that value and nothing more, so values can be concatenated on
// a single stream.
type Coder[T any] interface {
	Encode(value T, w io.Writer) error
	Decode(r io.Reader) (T, error)
}

// Marshal encodes v into a new byte slice.
func Marshal[T any](c Coder[T], v T) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(v, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a single value from data. Bytes left over after the value
// are a decoding error.
func Unmarshal[T any](c Coder[T], data []byte) (T, error) {
	r := bytes.NewReader(data)
	v, err := c.Decode(r)
	if err != nil {
		var zero T
		return zero, err
	}
	if r.Len() != 0 {
		var zero T
		return zero, errs.Decoding("codec.unmarshal", "%d trailing bytes after value", r.Len())
	}
	return v, nil
}

// readChunk bounds the allocation made for a declared length before any of
// the payload has been seen.
const readChunk = 64 << 10

// byteReader gives byte-at-a-time access to r without reading ahead, so the
// stream position after a decode is exactly past the decoded value.
type byteReader struct {
	r   io.Reader
	one [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.r, b.one[:]); err != nil {
		return 0, err
	}
	return b.one[0], nil
}

func (b *byteReader) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

// stream is an io.Reader that can also be read a byte at a time.
type stream interface {
	io.Reader
	io.ByteReader
}

func asStream(r io.Reader) stream {
	if s, ok := r.(stream); ok {
		return s
	}
	return &byteReader{r: r}
}

// readPayload reads exactly n bytes. Lengths above readChunk are read
// incrementally so a bogus length prefix fails on missing data instead of on
// a huge allocation.
func readPayload(r io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	if n <= readChunk {
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, unexpected(err)
		}
		return buf, nil
	}

	var buf bytes.Buffer
	buf.Grow(readChunk)
	if _, err := io.CopyN(&buf, r, int64(n)); err != nil {
		return nil, unexpected(err)
	}
	return buf.Bytes(), nil
}

// unexpected converts io.EOF into io.ErrUnexpectedEOF for reads that follow a
// header that promised more data.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
