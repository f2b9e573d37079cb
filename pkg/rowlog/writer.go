package rowlog

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ssargent/rowcodec/pkg/codec"
	"github.com/ssargent/rowcodec/pkg/logging"
	"github.com/ssargent/rowcodec/pkg/row"
	"github.com/ssargent/rowcodec/pkg/schema"
)

const defaultBufferSize = 64 << 10

// Writer handles append-only writes of rows to a log file
type Writer struct {
	file       *os.File
	writer     *bufio.Writer
	rows       *codec.RowCoder
	records    *codec.RecordCodec
	fsyncTimer *time.Timer
	config     WriterConfig
	logger     *logging.Logger
	mutex      sync.Mutex
	offset     int64 // Current write offset
	closed     bool
}

// NewWriter opens the log at config.FilePath for appending rows of s,
// creating it and its directory if needed.
func NewWriter(s *schema.Schema, config WriterConfig) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, err
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaultBufferSize
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return nil, err
	}

	w := &Writer{
		file:    file,
		writer:  bufio.NewWriterSize(file, config.BufferSize),
		rows:    codec.NewRowCoder(s),
		records: codec.NewRecordCodec(),
		config:  config,
		logger:  logging.New("rowlog"),
		offset:  offset,
	}

	if config.FsyncInterval > 0 {
		w.fsyncTimer = time.AfterFunc(config.FsyncInterval, func() {
			w.mutex.Lock()
			defer w.mutex.Unlock()
			if w.closed {
				return
			}
			if err := w.sync(); err != nil {
				w.logger.Errorf("background fsync of %s: %v", w.config.FilePath, err)
			}
		})
	}

	return w, nil
}

// Append writes r to the log and returns the offset of its frame.
func (w *Writer) Append(r *row.Row) (int64, error) {
	payload, err := codec.Marshal[*row.Row](w.rows, r)
	if err != nil {
		return 0, err
	}
	frame, err := w.records.Encode(payload)
	if err != nil {
		return 0, err
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return 0, ErrClosed
	}

	n, err := w.writer.Write(frame)
	if err != nil {
		return 0, err
	}

	recordOffset := w.offset
	w.offset += int64(n)

	if w.config.FsyncInterval == 0 {
		if err := w.sync(); err != nil {
			return 0, err
		}
	} else if w.fsyncTimer != nil {
		w.fsyncTimer.Reset(w.config.FsyncInterval)
	}

	return recordOffset, nil
}

// Sync forces a fsync to disk
func (w *Writer) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.sync()
}

func (w *Writer) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close syncs outstanding writes and closes the file.
func (w *Writer) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.fsyncTimer != nil {
		w.fsyncTimer.Stop()
	}

	if err := w.sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// Size returns the current size of the log, including buffered writes.
func (w *Writer) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Path returns the file path
func (w *Writer) Path() string {
	return w.config.FilePath
}
