//go:build fuzz
// +build fuzz

package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ssargent/rowcodec/pkg/errs"
	"github.com/ssargent/rowcodec/pkg/row"
)

// FuzzByteArrayCoder_RoundTrip tests encode/decode round-trip with random payloads
func FuzzByteArrayCoder_RoundTrip(f *testing.F) {
	c := NewByteArrayCoder()

	f.Add([]byte(""))
	f.Add([]byte{0xab})
	f.Add(bytes.Repeat([]byte{0x01}, 128))
	f.Add(bytes.Repeat([]byte{0x02}, 16384))

	f.Fuzz(func(t *testing.T, payload []byte) {
		if len(payload) > 100000 {
			t.Skip("Input too large for fuzz test")
		}

		encoded, err := Marshal[*row.ByteArray](c, row.NewByteArray(payload))
		if err != nil {
			t.Fatalf("Encode failed for len=%d: %v", len(payload), err)
		}

		size, err := c.EncodedSize(row.NewByteArray(payload))
		if err != nil || size != int64(len(encoded)) {
			t.Fatalf("EncodedSize mismatch: got %d (%v), want %d", size, err, len(encoded))
		}

		got, err := Unmarshal[*row.ByteArray](c, encoded)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if !bytes.Equal(got.View(), payload) {
			t.Errorf("Payload mismatch: got %x, want %x", got.View(), payload)
		}
	})
}

// FuzzByteArrayCoder_MalformedData checks that arbitrary input either decodes
// or fails with a decoding error, never a panic.
func FuzzByteArrayCoder_MalformedData(f *testing.F) {
	c := NewByteArrayCoder()

	f.Add([]byte{})
	f.Add([]byte{0x80})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff, 0x0f})
	f.Add([]byte{0x05, 0x01})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 100000 {
			t.Skip("Input too large for fuzz test")
		}

		got, err := c.Decode(bytes.NewReader(data))
		if err != nil {
			if !errors.Is(err, errs.ErrDecoding) {
				t.Errorf("Expected a decoding error, got %v", err)
			}
			return
		}

		// Anything that decodes must re-encode to the same prefix.
		again, err := Marshal[*row.ByteArray](c, got)
		if err != nil {
			t.Fatalf("Re-encode failed: %v", err)
		}
		if !bytes.HasPrefix(data, again) {
			t.Errorf("Re-encoding %x is not a prefix of %x", again, data)
		}
	})
}

// FuzzRecordCodec_CorruptionDetection tests that corruption is always detected
func FuzzRecordCodec_CorruptionDetection(f *testing.F) {
	codec := NewRecordCodec()

	f.Add([]byte("value"), uint(0))
	f.Add([]byte("john@example.com"), uint(5))
	f.Add([]byte("data"), uint(10))

	f.Fuzz(func(t *testing.T, payload []byte, corruptPos uint) {
		if len(payload) > 10000 {
			t.Skip("Input too large for fuzz test")
		}

		encoded, err := codec.Encode(payload)
		if err != nil {
			t.Skip("Encode failed, skipping")
		}

		if int(corruptPos) >= len(encoded) {
			t.Skip("Corruption position beyond data length")
		}

		corrupted := make([]byte, len(encoded))
		copy(corrupted, encoded)
		corrupted[corruptPos] ^= 0xFF

		record, err := codec.Decode(corrupted)
		if err != nil {
			// Decode failure is acceptable for corrupted data
			return
		}

		if err := record.Validate(); err == nil {
			t.Errorf("Corruption not detected! Original: %x, Corrupted: %x, Position: %d",
				encoded, corrupted, corruptPos)
		}
	})
}
