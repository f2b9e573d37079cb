// Package storage persists rows in a pebble database keyed by ksuid.
//
// Each row is stored as the RowCoder encoding of the row sealed with the
// configured compressor. The schema the database was created with is
// recorded alongside the rows and checked on every open.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/rowcodec/pkg/codec"
	"github.com/ssargent/rowcodec/pkg/compress"
	"github.com/ssargent/rowcodec/pkg/logging"
	"github.com/ssargent/rowcodec/pkg/row"
	"github.com/ssargent/rowcodec/pkg/schema"
)

var (
	// ErrRowNotFound is returned when no row exists for an id.
	ErrRowNotFound = errors.New("row not found")
	// ErrSchemaMismatch is returned when opening a database created with a
	// different schema.
	ErrSchemaMismatch = errors.New("schema does not match the stored schema")
)

var (
	rowPrefix = []byte("r/")
	schemaKey = []byte("m/schema")
)

// Options configures a RowStorage.
type Options struct {
	// Path is the pebble directory.
	Path string
	// FS overrides the filesystem, e.g. vfs.NewMem() in tests.
	FS vfs.FS
	// Compressor seals stored rows. Defaults to compress.None.
	Compressor compress.Compressor
	// Sync makes every write durable before it returns.
	Sync bool
	// Logger receives storage and pebble messages.
	Logger *logging.Logger
}

// RowStorage is a pebble-backed row store. It is safe for concurrent use.
type RowStorage struct {
	db     *pebble.DB
	coder  *codec.RowCoder
	comp   compress.Compressor
	wo     *pebble.WriteOptions
	logger *logging.Logger
	mutex  sync.Mutex // serializes read-modify-write operations
}

// NewRowStorage opens (or creates) the database at opts.Path for rows of s.
func NewRowStorage(s *schema.Schema, opts Options) (*RowStorage, error) {
	if s == nil {
		return nil, errors.New("storage: nil schema")
	}
	if opts.Compressor == nil {
		opts.Compressor = compress.None{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.New("storage")
	}

	popts := &pebble.Options{Logger: opts.Logger}
	if opts.FS != nil {
		popts.FS = opts.FS
	}
	db, err := pebble.Open(opts.Path, popts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Path, err)
	}

	wo := pebble.NoSync
	if opts.Sync {
		wo = pebble.Sync
	}
	st := &RowStorage{
		db:     db,
		coder:  codec.NewRowCoder(s),
		comp:   opts.Compressor,
		wo:     wo,
		logger: opts.Logger,
	}
	if err := st.checkSchema(s); err != nil {
		db.Close()
		return nil, err
	}
	st.logger.Infof("opened %s (compression=%s)", opts.Path, st.comp.Name())
	return st, nil
}

func (s *RowStorage) checkSchema(sc *schema.Schema) error {
	want := []byte(sc.String())
	stored, closer, err := s.db.Get(schemaKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return s.db.Set(schemaKey, want, pebble.Sync)
	}
	if err != nil {
		return err
	}
	defer closer.Close()
	if !bytes.Equal(stored, want) {
		return fmt.Errorf("%w: stored %s, got %s", ErrSchemaMismatch, stored, want)
	}
	return nil
}

// Schema returns the schema of stored rows.
func (s *RowStorage) Schema() *schema.Schema {
	return s.coder.Schema()
}

// Create stores r under a new id.
func (s *RowStorage) Create(r *row.Row) (ksuid.KSUID, error) {
	data, err := s.seal(r)
	if err != nil {
		return ksuid.Nil, err
	}
	id := ksuid.New()
	if err := s.db.Set(rowKey(id), data, s.wo); err != nil {
		return ksuid.Nil, err
	}
	s.logger.Debugf("created %s (%d bytes)", id, len(data))
	return id, nil
}

// Read returns the row stored under id.
func (s *RowStorage) Read(id ksuid.KSUID) (*row.Row, error) {
	data, closer, err := s.db.Get(rowKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return s.open(id, data)
}

// Update replaces the row stored under id.
func (s *RowStorage) Update(id ksuid.KSUID, r *row.Row) error {
	data, err := s.seal(r)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.exists(id); err != nil {
		return err
	}
	return s.db.Set(rowKey(id), data, s.wo)
}

// Delete removes the row stored under id.
func (s *RowStorage) Delete(id ksuid.KSUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.exists(id); err != nil {
		return err
	}
	return s.db.Delete(rowKey(id), s.wo)
}

// Scan calls fn for every stored row in id order. Ids made by Create sort by
// creation second; rows created within the same second come back in no
// particular order. Returning an error from fn stops the scan.
func (s *RowStorage) Scan(fn func(id ksuid.KSUID, r *row.Row) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: rowPrefix,
		UpperBound: prefixEnd(rowPrefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key()[len(rowPrefix):])
		if err != nil {
			return fmt.Errorf("invalid row key %x: %w", iter.Key(), err)
		}
		r, err := s.open(id, iter.Value())
		if err != nil {
			return err
		}
		if err := fn(id, r); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Count returns the number of stored rows.
func (s *RowStorage) Count() (int, error) {
	n := 0
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: rowPrefix,
		UpperBound: prefixEnd(rowPrefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Error()
}

// Close flushes and closes the database.
func (s *RowStorage) Close() error {
	if err := s.db.Flush(); err != nil {
		s.logger.Warnf("flush on close: %v", err)
	}
	return s.db.Close()
}

func (s *RowStorage) exists(id ksuid.KSUID) error {
	_, closer, err := s.db.Get(rowKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	if err != nil {
		return err
	}
	return closer.Close()
}

func (s *RowStorage) seal(r *row.Row) ([]byte, error) {
	encoded, err := codec.Marshal[*row.Row](s.coder, r)
	if err != nil {
		return nil, err
	}
	return compress.Seal(s.comp, encoded)
}

// open decodes a stored value. data is only valid until the caller releases
// it, so everything decoded from it is copied out.
func (s *RowStorage) open(id ksuid.KSUID, data []byte) (*row.Row, error) {
	encoded, err := compress.Open(data)
	if err != nil {
		return nil, fmt.Errorf("row %s: %w", id, err)
	}
	r, err := codec.Unmarshal[*row.Row](s.coder, encoded)
	if err != nil {
		return nil, fmt.Errorf("row %s: %w", id, err)
	}
	return r, nil
}

func rowKey(id ksuid.KSUID) []byte {
	key := make([]byte, 0, len(rowPrefix)+len(id))
	key = append(key, rowPrefix...)
	return append(key, id.Bytes()...)
}

// prefixEnd returns the smallest key greater than every key with prefix p.
func prefixEnd(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
