// Package di provides dependency injection container
package di

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/ssargent/rowcodec/pkg/api" //nolint:depguard
	"github.com/ssargent/rowcodec/pkg/compress"
	"github.com/ssargent/rowcodec/pkg/config"
	"github.com/ssargent/rowcodec/pkg/equality"
	"github.com/ssargent/rowcodec/pkg/logging"
	"github.com/ssargent/rowcodec/pkg/schema"
	"github.com/ssargent/rowcodec/pkg/storage"
)

// ServerStarter runs the API server until ctx is cancelled.
type ServerStarter func(ctx context.Context, store api.RowStore, cfg api.ServerConfig, metrics *api.Metrics) error

// Container holds all the dependencies for the application
type Container struct {
	config *config.Config
	schema *schema.Schema
	comp   compress.Compressor
	eq     equality.RecordEquality
	fs     vfs.FS

	serverStarter ServerStarter

	mu    sync.Mutex
	store *storage.RowStorage
}

// NewContainer resolves cfg into the components it selects. It also applies
// the configured log level.
func NewContainer(cfg *config.Config) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logging.SetLevel(level)

	s, err := cfg.BuildSchema()
	if err != nil {
		return nil, err
	}
	comp, err := compress.ByName(cfg.Storage.Compression)
	if err != nil {
		return nil, err
	}
	eq, err := equality.ByName(cfg.Equality.Strategy)
	if err != nil {
		return nil, err
	}

	return &Container{
		config:        cfg,
		schema:        s,
		comp:          comp,
		eq:            eq,
		serverStarter: api.StartServer,
	}, nil
}

// Config returns the loaded configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Schema returns the configured row schema
func (c *Container) Schema() *schema.Schema {
	return c.schema
}

// Compressor returns the configured storage compressor
func (c *Container) Compressor() compress.Compressor {
	return c.comp
}

// Equality returns the configured comparison strategy
func (c *Container) Equality() equality.RecordEquality {
	return c.eq
}

// StoragePath is the pebble directory under the data dir
func (c *Container) StoragePath() string {
	return filepath.Join(c.config.DataDir, "rows")
}

// Storage opens the row store on first use and returns the same instance
// afterwards.
func (c *Container) Storage() (*storage.RowStorage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		return c.store, nil
	}
	st, err := storage.NewRowStorage(c.schema, storage.Options{
		Path:       c.StoragePath(),
		FS:         c.fs,
		Compressor: c.comp,
		Sync:       c.config.Storage.Sync,
		Logger:     logging.New("storage"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open row storage: %w", err)
	}
	c.store = st
	return st, nil
}

// ServerConfig returns the API server settings
func (c *Container) ServerConfig() api.ServerConfig {
	return api.ServerConfig{
		Bind:     c.config.Bind,
		Port:     c.config.Port,
		APIKey:   c.config.Security.APIKey,
		Strategy: c.eq.Name(),
	}
}

// StartServer opens storage and runs the API server until ctx is cancelled.
func (c *Container) StartServer(ctx context.Context) error {
	st, err := c.Storage()
	if err != nil {
		return err
	}
	return c.serverStarter(ctx, st, c.ServerConfig(), api.NewMetrics(nil))
}

// SetServerStarter allows overriding the server starter (for testing)
func (c *Container) SetServerStarter(starter ServerStarter) {
	c.serverStarter = starter
}

// SetFS allows overriding the storage filesystem (for testing)
func (c *Container) SetFS(fs vfs.FS) {
	c.fs = fs
}

// Close releases the row store if it was opened
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}
