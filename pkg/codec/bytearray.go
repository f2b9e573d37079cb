package codec

import (
	"fmt"
	"io"
	"math"

	"github.com/ssargent/rowcodec/pkg/errs"
	"github.com/ssargent/rowcodec/pkg/row"
	"github.com/ssargent/rowcodec/pkg/varint"
)

const (
	opByteArrayEncode = "bytearray.encode"
	opByteArrayDecode = "bytearray.decode"
	opByteArraySize   = "bytearray.size"
)

// ByteArrayCoder encodes opaque byte payloads as <varint N><N bytes>.
//
// It is stateless; the shared instance returned by NewByteArrayCoder is safe
// for concurrent use on distinct streams.
type ByteArrayCoder struct{}

var _ Coder[*row.ByteArray] = (*ByteArrayCoder)(nil)

var byteArrayCoder = &ByteArrayCoder{}

// NewByteArrayCoder returns the process-wide ByteArrayCoder.
func NewByteArrayCoder() *ByteArrayCoder {
	return byteArrayCoder
}

// Encode writes value to w. A nil value is an encoding error and nothing is
// written.
func (c *ByteArrayCoder) Encode(value *row.ByteArray, w io.Writer) error {
	if value == nil {
		return errs.Encoding(opByteArrayEncode, "cannot encode a null byte array")
	}
	return writeBytes(w, value.View(), opByteArrayEncode)
}

// Decode reads one payload from r. The result is a fresh buffer owned by the
// caller.
func (c *ByteArrayCoder) Decode(r io.Reader) (*row.ByteArray, error) {
	b, err := readBytes(asStream(r), opByteArrayDecode)
	if err != nil {
		return nil, err
	}
	return row.WrapByteArray(b), nil
}

// EncodedSize returns the number of bytes Encode writes for value.
func (c *ByteArrayCoder) EncodedSize(value *row.ByteArray) (int64, error) {
	if value == nil {
		return 0, errs.Encoding(opByteArraySize, "cannot size a null byte array")
	}
	return bytesSize(value.Len()), nil
}

// IsSizeEstimationCheap reports that EncodedSize runs in constant time.
func (c *ByteArrayCoder) IsSizeEstimationCheap(*row.ByteArray) bool {
	return true
}

// VerifyDeterministic never fails: equal payloads always encode identically.
func (c *ByteArrayCoder) VerifyDeterministic() error {
	return nil
}

// ConsistentWithEquals reports that two payloads encode identically exactly
// when they are equal by content.
func (c *ByteArrayCoder) ConsistentWithEquals() bool {
	return true
}

func (c *ByteArrayCoder) String() string {
	return "ByteArrayCoder"
}

func bytesSize(n int) int64 {
	return int64(varint.Len(uint64(n))) + int64(n)
}

func appendBytes(buf, b []byte) []byte {
	buf = varint.Append(buf, uint64(len(b)))
	return append(buf, b...)
}

func writeBytes(w io.Writer, b []byte, op string) error {
	if int64(len(b)) > math.MaxInt32 {
		return errs.Encoding(op, "payload of %d bytes exceeds the maximum length", len(b))
	}
	if _, err := w.Write(appendBytes(nil, b)); err != nil {
		return errs.Wrap(errs.KindEncoding, op, "write failed", err)
	}
	return nil
}

// readBytes reads a varint length followed by that many bytes. io.EOF before
// the first byte is reported as a decoding error wrapping io.EOF so stream
// readers can tell a clean end from a torn value.
func readBytes(s stream, op string) ([]byte, error) {
	n, err := varint.ReadInt32(s)
	if err != nil {
		return nil, errs.Wrap(errs.KindDecoding, op, "invalid length prefix", err)
	}
	if n < 0 {
		return nil, errs.Decoding(op, "negative length %d", n)
	}
	b, err := readPayload(s, int(n))
	if err != nil {
		return nil, errs.Wrap(errs.KindDecoding, op, fmt.Sprintf("truncated payload of %d bytes", n), err)
	}
	return b, nil
}
