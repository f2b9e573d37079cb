// Package codec provides the binary encodings used by rowcodec.
//
// # Opaque-Bytes Format
//
// ByteArrayCoder writes a byte payload as its length followed by the raw
// bytes:
//
//	<varint N><N bytes>
//
// The length is an unsigned base-128 varint (7 bits per byte, low group
// first, high bit set on every byte but the last) and must fit in a
// non-negative int32. There is no magic number, version or checksum.
//
//	[]byte{}            -> 00
//	[]byte{0xab}        -> 01 ab
//	300 bytes of 0x00   -> ac 02 00 00 ... 00
//
// The encoded size of an N byte payload is varint.Len(N) + N, which
// EncodedSize computes without encoding.
//
// # Rows
//
// RowCoder encodes a row.Row against a fixed schema: a field count, a null
// bitmap and then each non-null value in schema order. BYTES fields use the
// Opaque-Bytes format, so a row holding a single byte field is a few header
// bytes followed by exactly what ByteArrayCoder would write. See RowCoder for
// the per-type layout.
//
// # Records
//
// RecordCodec frames a payload for append-only logs. A frame is itself an
// opaque byte payload whose body starts with a CRC32 and a timestamp:
//
//	varint(N) [CRC32(4)][Timestamp(8)][Payload]
//
// Readers can therefore skip or bound a frame before looking inside it, and
// Validate detects corruption of the body.
//
// # Usage
//
//	c := codec.NewByteArrayCoder()
//
//	var buf bytes.Buffer
//	if err := c.Encode(row.NewByteArray([]byte("payload")), &buf); err != nil {
//	    return err
//	}
//
//	value, err := c.Decode(&buf)
//	if err != nil {
//	    return err
//	}
//
// Marshal and Unmarshal wrap any Coder for the common byte slice case.
//
// # Error Handling
//
// Every error is a *errs.Error. Encoding a null payload is an
// errs.KindEncoding error and writes nothing. Malformed input is an
// errs.KindDecoding error:
//   - a length prefix that is negative or wider than 32 bits
//   - a varint that never terminates or is not minimal
//   - a stream that ends before the declared number of bytes
//
// A short read never yields a short payload. Decoding an empty stream gives
// a decoding error that also matches io.EOF, so stream readers can tell a
// clean end from a torn value.
//
// # Thread Safety
//
// ByteArrayCoder is stateless and NewByteArrayCoder always returns the same
// instance. RowCoder and RecordCodec hold no mutable state. All of them are
// safe for concurrent use as long as each stream is used by one goroutine.
package codec
