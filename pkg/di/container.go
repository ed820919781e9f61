// Package di provides dependency injection container
package di

import (
	"os"
	"sync"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ssargent/tablekv/pkg/api" //nolint:depguard
	"github.com/ssargent/tablekv/pkg/config"
	"github.com/ssargent/tablekv/pkg/storage"
)

// Container holds all the dependencies for the application. The store is
// opened on first use.
type Container struct {
	config   *config.Config
	logger   hclog.Logger
	registry *prometheus.Registry
	fs       vfs.FS

	storeMetrics *storage.Metrics
	apiMetrics   *api.Metrics

	mu    sync.Mutex
	store *storage.Store
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, logger hclog.Logger) *Container {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	registry := prometheus.NewRegistry()
	return &Container{
		config:       cfg,
		logger:       logger,
		registry:     registry,
		storeMetrics: storage.NewMetrics(registry),
		apiMetrics:   api.NewMetrics(registry),
	}
}

// NewLogger returns the application logger at the configured level.
func NewLogger(cfg *config.Config) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "tablekv",
		Level:  hclog.LevelFromString(cfg.Logging.Level),
		Output: os.Stderr,
	})
}

// Config returns the configuration
func (c *Container) Config() *config.Config { return c.config }

// Logger returns the root logger
func (c *Container) Logger() hclog.Logger { return c.logger }

// Registry returns the metrics registry shared by the store and the API
func (c *Container) Registry() *prometheus.Registry { return c.registry }

// SetFS allows overriding the store filesystem (for testing)
func (c *Container) SetFS(fs vfs.FS) {
	c.fs = fs
}

// Store opens the store in the configured data directory with every
// configured table.
func (c *Container) Store() (*storage.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		return c.store, nil
	}

	mkdirAll := os.MkdirAll
	if c.fs != nil {
		mkdirAll = c.fs.MkdirAll
	}
	if err := mkdirAll(c.config.DataDir, 0750); err != nil {
		return nil, err
	}
	s, err := storage.Open(c.config.DataDir, storage.Options{
		FS:      c.fs,
		Logger:  c.logger,
		Metrics: c.storeMetrics,
	})
	if err != nil {
		return nil, err
	}
	if err := s.OpenTables(c.config.Tables); err != nil {
		_ = s.Close()
		return nil, err
	}
	c.store = s
	return s, nil
}

// Server returns an API server over the store
func (c *Container) Server() (*api.Server, error) {
	s, err := c.Store()
	if err != nil {
		return nil, err
	}
	return api.NewServer(s, api.ServerConfig{
		Port:   c.config.Port,
		Bind:   c.config.Bind,
		APIKey: c.config.Security.APIKey,
	}, c.apiMetrics, c.logger), nil
}

// Close releases the store if it was opened
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
