package storage

import (
	"bytes"
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/hashicorp/go-hclog"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/tablekv/pkg/codec"
	"github.com/ssargent/tablekv/pkg/config"
	"github.com/ssargent/tablekv/pkg/schema"
)

// Decode modes, as reported in metrics.
const (
	modeFull    = "full"
	modeColumns = "columns"
	modeKey     = "key"
)

// Table reads and writes the rows of one table.
type Table struct {
	store  *Store
	cfg    config.TableConfig
	enc    *codec.RecordEncoder
	dec    *codec.RecordDecoder
	// dispatch routes records by the codec version in their key.
	dispatch *codec.Dispatcher
	names  []string
	prefix []byte
	upper  []byte
	logger hclog.Logger
}

func newTable(s *Store, cfg config.TableConfig) (*Table, error) {
	columns, err := cfg.Schema()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.CodecOptions()
	if err != nil {
		return nil, err
	}
	enc, err := codec.NewRecordEncoder(cfg.SchemaVersion, columns, cfg.ID, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "table %q", cfg.Name)
	}
	dec, err := codec.NewRecordDecoder(cfg.SchemaVersion, columns, cfg.ID, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "table %q", cfg.Name)
	}
	prefix := enc.KeyPrefix()
	return &Table{
		store:    s,
		cfg:      cfg,
		enc:      enc,
		dec:      dec,
		dispatch: codec.NewDispatcher(decoders(dec)),
		names:  cfg.ColumnNames(),
		prefix: prefix,
		upper:  prefixEnd(prefix),
		logger: s.logger.With("table", cfg.Name),
	}, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.cfg.Name }

// Config returns the table's configuration.
func (t *Table) Config() config.TableConfig { return t.cfg }

// ColumnNames returns the column names by logical index.
func (t *Table) ColumnNames() []string { return append([]string(nil), t.names...) }

// Decoder returns the table's record decoder.
func (t *Table) Decoder() *codec.RecordDecoder { return t.dec }

// Encoder returns the table's record encoder.
func (t *Table) Encoder() *codec.RecordEncoder { return t.enc }

// Put writes row, replacing any row with the same key.
func (t *Table) Put(row codec.Row) error {
	kv, err := t.enc.Encode(row)
	if err != nil {
		return err
	}
	return t.store.db.Set(kv.Key, kv.Value, t.store.write)
}

// Insert writes row after filling each null string key column with a new
// ksuid. It returns the row as written.
func (t *Table) Insert(row codec.Row) (codec.Row, error) {
	out := append(codec.Row(nil), row...)
	for _, col := range t.dec.Columns() {
		if col == nil || !col.IsKey() || col.Index() >= len(out) {
			continue
		}
		if out[col.Index()] == nil && col.Type() == schema.String {
			out[col.Index()] = ksuid.New().String()
		}
	}
	if err := t.Put(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the row whose key columns match those of keyRow. Value slots
// of keyRow are ignored.
func (t *Table) Get(keyRow codec.Row) (codec.Row, error) {
	key, value, err := t.lookup(keyRow)
	if err != nil {
		return nil, err
	}
	return t.decode(key, value, nil)
}

// GetColumns is Get for the given logical columns only. Slot i of the
// result holds column logical[i].
func (t *Table) GetColumns(keyRow codec.Row, logical []int) (codec.Row, error) {
	wanted, err := t.dec.PhysicalPositions(logical)
	if err != nil {
		return nil, err
	}
	key, value, err := t.lookup(keyRow)
	if err != nil {
		return nil, err
	}
	return t.decodeColumns(key, value, wanted, nil)
}

// Delete removes the row with keyRow's key columns.
func (t *Table) Delete(keyRow codec.Row) error {
	key, err := t.enc.EncodeKey(keyRow)
	if err != nil {
		return err
	}
	return t.store.db.Delete(key, t.store.write)
}

// Scan calls fn for every row of the table in key order. With a nil
// logical, rows are fully decoded; otherwise slot i holds column
// logical[i]. The row passed to fn is reused between calls.
//
// Records written by a newer codec or schema are logged, counted and
// skipped. Any other decode error stops the scan.
func (t *Table) Scan(ctx context.Context, logical []int, fn func(codec.Row) error) error {
	var wanted []int
	if logical != nil {
		var err error
		if wanted, err = t.dec.PhysicalPositions(logical); err != nil {
			return err
		}
	}
	var row codec.Row
	return t.iterate(ctx, func(key, value []byte) error {
		var err error
		if wanted == nil {
			row, err = t.decode(key, value, row)
		} else {
			row, err = t.decodeColumns(key, value, wanted, row)
		}
		if err != nil {
			return t.rejectOrFail(key, err)
		}
		return fn(row)
	})
}

// ScanKeys calls fn with the key columns of every row. Value slots are nil.
func (t *Table) ScanKeys(ctx context.Context, fn func(codec.Row) error) error {
	var row codec.Row
	return t.iterate(ctx, func(key, _ []byte) error {
		start := time.Now()
		var err error
		row, err = t.dispatch.DecodeKey(key, row)
		t.store.metrics.observe(t.cfg.Name, modeKey, start, err)
		if err != nil {
			return t.rejectOrFail(key, err)
		}
		return fn(row)
	})
}

// Count returns the number of records under the table's prefix, including
// records the decoder would reject.
func (t *Table) Count(ctx context.Context) (int, error) {
	n := 0
	err := t.iterate(ctx, func(_, _ []byte) error {
		n++
		return nil
	})
	return n, err
}

func (t *Table) lookup(keyRow codec.Row) ([]byte, []byte, error) {
	key, err := t.enc.EncodeKey(keyRow)
	if err != nil {
		return nil, nil, err
	}
	value, err := t.store.get(key)
	if err != nil {
		return nil, nil, err
	}
	return key, value, nil
}

func (t *Table) iterate(ctx context.Context, fn func(key, value []byte) error) error {
	iter, err := t.store.db.NewIter(&pebble.IterOptions{
		LowerBound: t.prefix,
		UpperBound: t.upper,
	})
	if err != nil {
		return err
	}
	defer closeQuietly(iter)

	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(iter.Key(), iter.Value()); err != nil {
			if errors.Is(err, errSkip) {
				continue
			}
			return err
		}
	}
	return iter.Error()
}

var errSkip = errors.New("skip record")

// rejectOrFail turns a version gate rejection into errSkip.
func (t *Table) rejectOrFail(key []byte, err error) error {
	reason := rejectReason(err)
	if reason == "" {
		return errors.Wrapf(err, "table %q key %x", t.cfg.Name, key)
	}
	t.store.metrics.reject(t.cfg.Name, reason)
	t.logger.Warn("skipping record", "key", key, "reason", reason, "error", err)
	return errSkip
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, codec.ErrIdentityMismatch):
		return "identity"
	case errors.Is(err, codec.ErrUnsupportedCodecVersion):
		return "codec_version"
	case errors.Is(err, codec.ErrUnsupportedSchemaVersion):
		return "schema_version"
	}
	return ""
}

func (t *Table) decode(key, value []byte, dst codec.Row) (codec.Row, error) {
	start := time.Now()
	row, err := t.dispatch.Decode(key, value, dst)
	t.store.metrics.observe(t.cfg.Name, modeFull, start, err)
	return row, err
}

func (t *Table) decodeColumns(key, value []byte, wanted []int, dst codec.Row) (codec.Row, error) {
	start := time.Now()
	row, err := t.dispatch.DecodeColumns(key, value, wanted, dst)
	t.store.metrics.observe(t.cfg.Name, modeColumns, start, err)
	return row, err
}

// decoders maps every codec version dec can read to dec.
func decoders(dec *codec.RecordDecoder) map[uint8]codec.Decoder {
	latest := int(dec.Config().CodecVersion)
	m := make(map[uint8]codec.Decoder, latest+1)
	for v := 0; v <= latest; v++ {
		m[uint8(v)] = dec
	}
	return m
}

// owns reports whether key is under the table's prefix.
func (t *Table) owns(key []byte) bool {
	return bytes.HasPrefix(key, t.prefix)
}

// prefixEnd returns the smallest key greater than every key starting with
// prefix, or nil if there is none.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// RowFromMap builds a row from values keyed by column name, converting
// JSON-decoded values to the column types. Missing columns are null.
func (t *Table) RowFromMap(values map[string]any) (codec.Row, error) {
	byName := make(map[string]schema.Column, len(t.names))
	for _, col := range t.dec.Columns() {
		if col != nil {
			byName[col.Name()] = col
		}
	}
	row := make(codec.Row, len(t.names))
	for name, v := range values {
		col, ok := byName[name]
		if !ok {
			return nil, errors.Wrapf(codec.ErrUnknownColumn, "column %q", name)
		}
		cv, err := schema.Coerce(col.Type(), v)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", name)
		}
		row[col.Index()] = cv
	}
	return row, nil
}

// Logical returns the logical indexes of the named columns.
func (t *Table) Logical(names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		idx, ok := t.cfg.ColumnIndex(name)
		if !ok {
			return nil, errors.Wrapf(codec.ErrUnknownColumn, "column %q", name)
		}
		out[i] = idx
	}
	return out, nil
}

// IsKey reports whether the column at logical index idx is a key column.
func (t *Table) IsKey(idx int) bool {
	for _, col := range t.dec.Columns() {
		if col != nil && col.Index() == idx {
			return col.IsKey()
		}
	}
	return false
}
