package rowlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ssargent/rowcodec/pkg/codec"
	"github.com/ssargent/rowcodec/pkg/row"
	"github.com/ssargent/rowcodec/pkg/schema"
)

// Reader provides sequential and random access to rows in a log file
type Reader struct {
	file    *os.File
	reader  *bufio.Reader
	rows    *codec.RowCoder
	records *codec.RecordCodec
	offset  int64
	config  ReaderConfig
}

// NewReader opens the log at config.FilePath for rows of s.
func NewReader(s *schema.Schema, config ReaderConfig) (*Reader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}

	if config.StartOffset > 0 {
		if _, err := file.Seek(config.StartOffset, io.SeekStart); err != nil {
			file.Close()
			return nil, err
		}
	}

	return &Reader{
		file:    file,
		reader:  bufio.NewReader(file),
		rows:    codec.NewRowCoder(s),
		records: codec.NewRecordCodec(),
		offset:  config.StartOffset,
		config:  config,
	}, nil
}

// Next reads the entry at the current offset and advances past it. It
// returns io.EOF at the clean end of the log.
func (r *Reader) Next() (*Entry, error) {
	e, err := r.readEntry(r.reader, r.offset)
	if err != nil {
		return nil, err
	}
	r.offset += e.Size
	return e, nil
}

// ReadAt reads the entry whose frame starts at offset. It does not move the
// sequential read position.
func (r *Reader) ReadAt(offset int64) (*Entry, error) {
	if offset < 0 {
		return nil, fmt.Errorf("negative offset %d", offset)
	}
	section := io.NewSectionReader(r.file, offset, math.MaxInt64-offset)
	return r.readEntry(bufio.NewReader(section), offset)
}

func (r *Reader) readEntry(src io.Reader, offset int64) (*Entry, error) {
	record, n, err := r.records.ReadFrom(src)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w at offset %d: %v", ErrCorruption, offset, err)
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w at offset %d: %v", ErrCorruption, offset, err)
	}

	decoded, err := codec.Unmarshal[*row.Row](r.rows, record.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w at offset %d: %v", ErrCorruption, offset, err)
	}

	return &Entry{
		Offset:    offset,
		Size:      n,
		Timestamp: record.Time(),
		Row:       decoded,
	}, nil
}

// Seek sets the read offset
func (r *Reader) Seek(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	r.reader.Reset(r.file)
	r.offset = offset
	return nil
}

// Offset returns the current read offset
func (r *Reader) Offset() int64 {
	return r.offset
}

// Iterator returns a streaming iterator starting at the current offset.
func (r *Reader) Iterator() Iterator {
	return &entryIterator{reader: r}
}

// Close closes the log reader
func (r *Reader) Close() error {
	return r.file.Close()
}

// entryIterator implements Iterator for streaming access
type entryIterator struct {
	reader *Reader
	entry  *Entry
	err    error
}

func (it *entryIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.entry, it.err = it.reader.Next()
	return it.err == nil
}

func (it *entryIterator) Entry() *Entry {
	return it.entry
}

// Err returns the error that stopped iteration, or nil at a clean end.
func (it *entryIterator) Err() error {
	if errors.Is(it.err, io.EOF) {
		return nil
	}
	return it.err
}

func (it *entryIterator) Close() error {
	// The underlying reader is owned by the caller.
	return nil
}
