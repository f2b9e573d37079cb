// Package rowlog is an append-only file of rows.
//
// Every entry is a codec.Record frame whose payload is the RowCoder encoding
// of one row. The writer appends and fsyncs frames; the reader walks them in
// order or fetches one by offset. A frame cut short at the end of the file,
// or one that fails its checksum, is reported as ErrCorruption; a file that
// simply ends yields io.EOF.
package rowlog

import (
	"time"

	"github.com/ssargent/rowcodec/pkg/row"
)

// WriterConfig holds configuration for the log writer
type WriterConfig struct {
	FilePath      string        // Path to the log file
	FsyncInterval time.Duration // How often to fsync (0 = every write)
	BufferSize    int           // Write buffer size
}

// ReaderConfig holds configuration for the log reader
type ReaderConfig struct {
	FilePath    string // Path to the log file
	StartOffset int64  // Offset to start reading from
}

// Entry is one row read back from the log.
type Entry struct {
	Offset    int64     // Byte offset of the frame
	Size      int64     // Framed size in bytes
	Timestamp time.Time // When the row was appended
	Row       *row.Row
}

// Iterator provides streaming access to entries
type Iterator interface {
	Next() bool
	Entry() *Entry
	Err() error
	Close() error
}

// Errors
var (
	ErrCorruption = &LogError{"data corruption detected"}
	ErrClosed     = &LogError{"log is closed"}
)

// LogError represents a row log error
type LogError struct {
	Message string
}

func (e *LogError) Error() string {
	return e.Message
}
