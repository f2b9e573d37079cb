package compress

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
	"github.com/ssargent/rowcodec/pkg/varint"
)

// Block modes for LZ4.
const (
	lz4Raw   byte = 0
	lz4Block byte = 1
)

// maxUncompressed bounds the length a block header may declare.
const maxUncompressed = 1 << 30

// LZ4 uses lz4 block compression. A block is
//
//	varint(uncompressed length) mode data
//
// where mode is raw for input lz4 could not shrink.
type LZ4 struct{}

func (LZ4) Code() byte   { return 2 }
func (LZ4) Name() string { return "lz4" }

// Compress data
func (LZ4) Compress(data []byte) ([]byte, error) {
	header := varint.Append(nil, uint64(len(data)))

	var c lz4.Compressor
	buf := make([]byte, len(header)+1+lz4.CompressBlockBound(len(data)))
	copy(buf, header)
	n, err := c.CompressBlock(data, buf[len(header)+1:])
	if err != nil {
		return nil, err
	}
	if n == 0 || n >= len(data) {
		buf = append(buf[:len(header)], lz4Raw)
		return append(buf, data...), nil
	}
	buf[len(header)] = lz4Block
	return buf[:len(header)+1+n], nil
}

// Uncompress data
func (LZ4) Uncompress(data []byte) ([]byte, error) {
	r := bytes.NewReader(data)
	size, err := varint.Read(r)
	if err != nil {
		return nil, fmt.Errorf("lz4 header: %w", err)
	}
	if size > maxUncompressed {
		return nil, fmt.Errorf("lz4 block of %d bytes is too large", size)
	}
	mode, err := r.ReadByte()
	if err != nil {
		return nil, errors.New("lz4 block is missing its mode")
	}
	body := data[len(data)-r.Len():]

	switch mode {
	case lz4Raw:
		if uint64(len(body)) != size {
			return nil, fmt.Errorf("raw lz4 block holds %d bytes, header says %d", len(body), size)
		}
		return body, nil
	case lz4Block:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		if uint64(n) != size {
			return nil, fmt.Errorf("lz4 block produced %d bytes, header says %d", n, size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown lz4 block mode %d", mode)
	}
}
