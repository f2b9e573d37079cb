package compress

import (
	"github.com/golang/snappy"
)

// Snappy uses the snappy block format, which records the uncompressed length
// itself.
type Snappy struct{}

func (Snappy) Code() byte   { return 1 }
func (Snappy) Name() string { return "snappy" }

// Compress data
func (Snappy) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

// Uncompress data
func (Snappy) Uncompress(data []byte) ([]byte, error) {
	return snappy.Decode(nil, data)
}
