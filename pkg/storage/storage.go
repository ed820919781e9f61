// Package storage keeps table records in pebble and decodes them with the
// table's record decoder.
package storage

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/hashicorp/go-hclog"
	"github.com/ssargent/tablekv/pkg/codec"
	"github.com/ssargent/tablekv/pkg/config"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("storage: row not found")
	// ErrUnknownTable is returned when a record's common id matches no
	// opened table.
	ErrUnknownTable = errors.New("storage: unknown table")
)

// Options configures a Store.
type Options struct {
	// FS overrides the filesystem, e.g. vfs.NewMem() in tests.
	FS      vfs.FS
	Logger  hclog.Logger
	Metrics *Metrics
	// Sync makes every write durable before it returns.
	Sync bool
}

// Store is a pebble database holding the records of several tables. Tables
// share the keyspace and are told apart by the common id in their key
// prefix.
type Store struct {
	db      *pebble.DB
	logger  hclog.Logger
	metrics *Metrics
	write   *pebble.WriteOptions

	mu     sync.RWMutex
	tables map[int64]*Table
	byName map[string]*Table
}

// Open opens or creates the database at path.
func Open(path string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("storage")

	po := &pebble.Options{
		FS:     opts.FS,
		Logger: pebbleLogger{logger.Named("pebble")},
	}
	db, err := pebble.Open(path, po)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}

	write := pebble.NoSync
	if opts.Sync {
		write = pebble.Sync
	}
	logger.Debug("store opened", "path", path, "sync", opts.Sync)
	return &Store{
		db:      db,
		logger:  logger,
		metrics: opts.Metrics,
		write:   write,
		tables:  make(map[int64]*Table),
		byName:  make(map[string]*Table),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Table opens the table described by cfg. Opening a table twice returns
// the same handle; a different table with the same name or id is an error.
func (s *Store) Table(cfg config.TableConfig) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[cfg.ID]; ok {
		if t.cfg.Name != cfg.Name {
			return nil, fmt.Errorf("table id %d is already used by %q", cfg.ID, t.cfg.Name)
		}
		return t, nil
	}
	if _, ok := s.byName[cfg.Name]; ok {
		return nil, fmt.Errorf("table %q is already open with another id", cfg.Name)
	}

	t, err := newTable(s, cfg)
	if err != nil {
		return nil, err
	}
	for _, other := range s.tables {
		if bytes.Equal(other.prefix, t.prefix) {
			return nil, fmt.Errorf("table %q has the same key prefix %x as %q", cfg.Name, t.prefix, other.cfg.Name)
		}
	}
	s.tables[cfg.ID] = t
	s.byName[cfg.Name] = t
	s.logger.Debug("table opened", "table", cfg.Name, "id", cfg.ID, "schema_version", cfg.SchemaVersion)
	return t, nil
}

// OpenTables opens every table in tables.
func (s *Store) OpenTables(tables []config.TableConfig) error {
	for _, cfg := range tables {
		if _, err := s.Table(cfg); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns an open table by name.
func (s *Store) Lookup(name string) (*Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byName[name]
	return t, ok
}

// Tables returns the open tables.
func (s *Store) Tables() []*Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	return out
}

// Decode decodes a raw record of any open table. The table is found from
// the common id in the key prefix, and the table's dispatcher picks the
// decoder for the codec version in the key trailer.
func (s *Store) Decode(kv codec.KeyValue) (*Table, codec.Row, error) {
	t, err := s.tableFor(kv.Key)
	if err != nil {
		return nil, nil, err
	}
	row, err := t.decode(kv.Key, kv.Value, nil)
	if err != nil {
		return t, nil, err
	}
	return t, row, nil
}

// DiskUsage returns the bytes the database occupies on disk.
func (s *Store) DiskUsage() uint64 {
	return s.db.Metrics().DiskSpaceUsage()
}

func (s *Store) tableFor(key []byte) (*Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tables {
		if t.owns(key) {
			return t, nil
		}
	}
	return nil, errors.Wrapf(ErrUnknownTable, "key %x", key)
}

// get copies the value stored at key.
func (s *Store) get(key []byte) ([]byte, error) {
	data, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closeQuietly(closer)
	return append([]byte(nil), data...), nil
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}

// pebbleLogger routes pebble's log output to hclog.
type pebbleLogger struct {
	l hclog.Logger
}

func (p pebbleLogger) Infof(format string, args ...interface{}) {
	p.l.Debug(fmt.Sprintf(format, args...))
}

func (p pebbleLogger) Errorf(format string, args ...interface{}) {
	p.l.Error(fmt.Sprintf(format, args...))
}

func (p pebbleLogger) Fatalf(format string, args ...interface{}) {
	p.l.Error(fmt.Sprintf(format, args...))
	panic(fmt.Sprintf(format, args...))
}
