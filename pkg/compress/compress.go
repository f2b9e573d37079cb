// Package compress provides the block compressors applied to stored rows.
//
// Every compressed value starts with the compressor's code byte so a reader
// can pick the right decompressor without any outside configuration.
package compress

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownCompressor is returned for an unregistered code or name.
var ErrUnknownCompressor = errors.New("compress: unknown compressor")

// Compressor compresses independent blocks of data.
type Compressor interface {
	Code() byte
	Name() string
	Compress(data []byte) ([]byte, error)
	Uncompress(data []byte) ([]byte, error)
}

var registry = map[byte]Compressor{}

func register(c Compressor) {
	registry[c.Code()] = c
}

func init() {
	register(None{})
	register(Snappy{})
	register(LZ4{})
}

// ByCode returns the compressor registered under code.
func ByCode(code byte) (Compressor, error) {
	c, ok := registry[code]
	if !ok {
		return nil, fmt.Errorf("%w: code %d", ErrUnknownCompressor, code)
	}
	return c, nil
}

// ByName returns the compressor registered under name.
func ByName(name string) (Compressor, error) {
	for _, c := range registry {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCompressor, name)
}

// Names returns the registered compressor names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, c := range registry {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	return names
}

// Seal compresses data with c and prefixes the result with c's code.
func Seal(c Compressor, data []byte) ([]byte, error) {
	body, err := c.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("%s compress: %w", c.Name(), err)
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, c.Code())
	return append(out, body...), nil
}

// Open reverses Seal, choosing the decompressor from the leading code byte.
func Open(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("compress: empty input")
	}
	c, err := ByCode(data[0])
	if err != nil {
		return nil, err
	}
	out, err := c.Uncompress(data[1:])
	if err != nil {
		return nil, fmt.Errorf("%s uncompress: %w", c.Name(), err)
	}
	return out, nil
}

// None stores data as is.
type None struct{}

func (None) Code() byte   { return 0 }
func (None) Name() string { return "none" }

func (None) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (None) Uncompress(data []byte) ([]byte, error) {
	return data, nil
}
