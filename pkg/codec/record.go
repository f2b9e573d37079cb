package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/ssargent/rowcodec/pkg/errs"
	"github.com/ssargent/rowcodec/pkg/varint"
)

const (
	opRecordDecode = "record.decode"

	// recordHeaderSize is CRC32(4) + Timestamp(8).
	recordHeaderSize = 12
)

// Record is one checksummed entry of a row log. Payload is usually the
// RowCoder encoding of a row.
type Record struct {
	CRC32     uint32 // CRC32 over Timestamp and Payload
	Timestamp uint64 // Unix timestamp in nanoseconds
	Payload   []byte
}

// RecordCodec frames records as opaque byte payloads:
//
//	varint(N) [CRC32(4)][Timestamp(8)][Payload]
//
// where N = 12 + len(Payload) and the header fields are little-endian.
type RecordCodec struct{}

// NewRecordCodec creates a new record codec instance
func NewRecordCodec() *RecordCodec {
	return &RecordCodec{}
}

// NewRecord creates a record for payload stamped with the current time.
func NewRecord(payload []byte) *Record {
	r := &Record{
		Timestamp: uint64(time.Now().UnixNano()),
		Payload:   payload,
	}
	r.CRC32 = r.calculateCRC32()
	return r
}

// Encode frames payload as a new record.
func (c *RecordCodec) Encode(payload []byte) ([]byte, error) {
	return c.EncodeRecord(NewRecord(payload))
}

// EncodeRecord frames r as is, without recomputing its checksum.
func (c *RecordCodec) EncodeRecord(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errs.Encoding("record.encode", "cannot encode a null record")
	}
	body := make([]byte, recordHeaderSize+len(r.Payload))
	binary.LittleEndian.PutUint32(body[0:], r.CRC32)
	binary.LittleEndian.PutUint64(body[4:], r.Timestamp)
	copy(body[recordHeaderSize:], r.Payload)

	var buf bytes.Buffer
	buf.Grow(int(bytesSize(len(body))))
	if err := writeBytes(&buf, body, "record.encode"); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a single framed record. data must hold exactly one frame.
func (c *RecordCodec) Decode(data []byte) (*Record, error) {
	r := bytes.NewReader(data)
	rec, _, err := c.ReadFrom(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, errs.Decoding(opRecordDecode, "%d trailing bytes after record", r.Len())
	}
	return rec, nil
}

// ReadFrom reads the next frame from r and returns it with the number of
// bytes consumed. A stream that ends cleanly before the frame yields an error
// matching io.EOF; a frame cut short matches io.ErrUnexpectedEOF.
//
// The checksum is not verified; call Validate.
func (c *RecordCodec) ReadFrom(r io.Reader) (*Record, int64, error) {
	body, err := readBytes(asStream(r), opRecordDecode)
	if err != nil {
		return nil, 0, err
	}
	n := bytesSize(len(body))
	if len(body) < recordHeaderSize {
		return nil, n, errs.Decoding(opRecordDecode, "record body of %d bytes is shorter than the header", len(body))
	}
	return &Record{
		CRC32:     binary.LittleEndian.Uint32(body[0:4]),
		Timestamp: binary.LittleEndian.Uint64(body[4:12]),
		Payload:   body[recordHeaderSize:],
	}, n, nil
}

// Validate checks the integrity of a record using CRC32
func (r *Record) Validate() error {
	if sum := r.calculateCRC32(); r.CRC32 != sum {
		return fmt.Errorf("CRC32 mismatch: %d != %d", r.CRC32, sum)
	}
	return nil
}

// Size returns the total size of the record when framed.
func (r *Record) Size() int {
	body := recordHeaderSize + len(r.Payload)
	return varint.Len(uint64(body)) + body
}

// Time returns the record timestamp.
func (r *Record) Time() time.Time {
	return time.Unix(0, int64(r.Timestamp))
}

func (r *Record) calculateCRC32() uint32 {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], r.Timestamp)

	crc := crc32.NewIEEE()
	crc.Write(ts[:])
	crc.Write(r.Payload)
	return crc.Sum32()
}
