package codec_test

import (
	"bytes"
	"errors"
	"fmt"
	"log"

	"github.com/ssargent/rowcodec/pkg/codec"
	"github.com/ssargent/rowcodec/pkg/errs"
	"github.com/ssargent/rowcodec/pkg/row"
	"github.com/ssargent/rowcodec/pkg/schema"
)

// ExampleByteArrayCoder demonstrates encoding and decoding a byte payload
func ExampleByteArrayCoder() {
	c := codec.NewByteArrayCoder()

	var buf bytes.Buffer
	if err := c.Encode(row.NewByteArray([]byte{0xab}), &buf); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Encoded: %x\n", buf.Bytes())

	value, err := c.Decode(&buf)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Decoded: %s\n", value)

	// Output:
	// Encoded: 01ab
	// Decoded: base16[ab]
}

// ExampleByteArrayCoder_errorHandling demonstrates error handling
func ExampleByteArrayCoder_errorHandling() {
	c := codec.NewByteArrayCoder()

	err := c.Encode(nil, &bytes.Buffer{})
	fmt.Println(errors.Is(err, errs.ErrEncoding))

	_, err = c.Decode(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x0f}))
	fmt.Println(err)

	// Output:
	// true
	// bytearray.decode: negative length -1
}

// ExampleRowCoder demonstrates a row round trip
func ExampleRowCoder() {
	s := schema.NewBuilder().
		AddInt32Field("f0").
		AddDoubleField("f1").
		AddByteArrayField("f2").
		Build()
	c := codec.NewRowCoder(s)

	encoded, err := codec.Marshal[*row.Row](c, row.MustNew(s, int32(1), 2.5, []byte{0xab}))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Encoded %d bytes\n", len(encoded))

	decoded, err := codec.Unmarshal[*row.Row](c, encoded)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(decoded)

	// Output:
	// Encoded 13 bytes
	// Row{f0=1, f1=2.5, f2=base16[ab]}
}

// ExampleRecordCodec demonstrates framing a payload for a log
func ExampleRecordCodec() {
	c := codec.NewRecordCodec()

	encoded, err := c.Encode([]byte("payload"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Encoded %d bytes\n", len(encoded))

	record, err := c.Decode(encoded)
	if err != nil {
		log.Fatal(err)
	}
	if err := record.Validate(); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Payload: %s\n", record.Payload)

	// Output:
	// Encoded 20 bytes
	// Payload: payload
}
