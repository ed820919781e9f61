package storage

import (
	"context"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ssargent/tablekv/pkg/codec"
	"github.com/ssargent/tablekv/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersTable() config.TableConfig {
	return config.TableConfig{
		Name:          "users",
		ID:            1,
		SchemaVersion: 2,
		Columns: []config.ColumnConfig{
			{Name: "id", Type: "string", Key: true, Index: 0},
			{Name: "nickname", Dropped: true, Index: 4},
			{Name: "name", Type: "string", Index: 1},
			{Name: "age", Type: "int", Index: 2},
			{Name: "tags", Type: "string_list", Index: 3},
		},
	}
}

func eventsTable() config.TableConfig {
	return config.TableConfig{
		Name:          "events",
		ID:            2,
		SchemaVersion: 1,
		ByteOrder:     "little",
		Columns: []config.ColumnConfig{
			{Name: "ts", Type: "long", Key: true, Index: 0},
			{Name: "kind", Type: "string", Index: 1},
		},
	}
}

func newTestStore(t *testing.T) (*Store, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	s, err := Open("", Options{
		FS:      vfs.NewMem(),
		Logger:  hclog.NewNullLogger(),
		Metrics: metrics,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, metrics
}

// user builds a users row. No tags is a null tags column.
func user(id, name string, age int32, tags ...string) codec.Row {
	row := codec.Row{id, name, age, nil, nil}
	if len(tags) > 0 {
		row[3] = tags
	}
	return row
}

func seed(t *testing.T, tbl *Table) {
	t.Helper()
	require.NoError(t, tbl.Put(user("c", "carol", 41, "admin")))
	require.NoError(t, tbl.Put(user("a", "alice", 30)))
	require.NoError(t, tbl.Put(user("b", "bob", 25, "x", "y")))
}

func collect(t *testing.T, tbl *Table, logical []int) []codec.Row {
	t.Helper()
	var rows []codec.Row
	err := tbl.Scan(context.Background(), logical, func(r codec.Row) error {
		rows = append(rows, append(codec.Row(nil), r...))
		return nil
	})
	require.NoError(t, err)
	return rows
}

func TestTable_PutGetDelete(t *testing.T) {
	s, _ := newTestStore(t)
	tbl, err := s.Table(usersTable())
	require.NoError(t, err)
	seed(t, tbl)

	row, err := tbl.Get(codec.Row{"b", nil, nil, nil, nil})
	require.NoError(t, err)
	assert.Equal(t, user("b", "bob", 25, "x", "y"), row)

	cols, err := tbl.GetColumns(codec.Row{"c", nil, nil, nil, nil}, []int{3, 1})
	require.NoError(t, err)
	assert.Equal(t, codec.Row{[]string{"admin"}, "carol"}, cols)

	_, err = tbl.GetColumns(codec.Row{"c", nil, nil, nil, nil}, []int{4})
	assert.ErrorIs(t, err, codec.ErrUnknownColumn)

	require.NoError(t, tbl.Delete(codec.Row{"b", nil, nil, nil, nil}))
	_, err = tbl.Get(codec.Row{"b", nil, nil, nil, nil})
	assert.ErrorIs(t, err, ErrNotFound)

	err = tbl.Put(codec.Row{"x"})
	assert.ErrorIs(t, err, codec.ErrRowSize)
}

func TestTable_Insert(t *testing.T) {
	s, _ := newTestStore(t)
	tbl, err := s.Table(usersTable())
	require.NoError(t, err)

	row, err := tbl.Insert(codec.Row{nil, "dave", int32(50), nil, nil})
	require.NoError(t, err)
	id, ok := row[0].(string)
	require.True(t, ok)
	assert.Len(t, id, 27)

	got, err := tbl.Get(row)
	require.NoError(t, err)
	assert.Equal(t, row, got)

	row, err = tbl.Insert(user("given", "erin", 1))
	require.NoError(t, err)
	assert.Equal(t, "given", row[0])
}

func TestTable_Scan(t *testing.T) {
	s, metrics := newTestStore(t)
	tbl, err := s.Table(usersTable())
	require.NoError(t, err)
	seed(t, tbl)

	t.Run("full", func(t *testing.T) {
		rows := collect(t, tbl, nil)
		assert.Equal(t, []codec.Row{
			user("a", "alice", 30),
			user("b", "bob", 25, "x", "y"),
			user("c", "carol", 41, "admin"),
		}, rows)
	})

	t.Run("projection", func(t *testing.T) {
		rows := collect(t, tbl, []int{2, 0})
		assert.Equal(t, []codec.Row{
			{int32(30), "a"},
			{int32(25), "b"},
			{int32(41), "c"},
		}, rows)
	})

	t.Run("keys", func(t *testing.T) {
		var ids []any
		err := tbl.ScanKeys(context.Background(), func(r codec.Row) error {
			assert.Nil(t, r[1])
			ids = append(ids, r[0])
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b", "c"}, ids)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := tbl.Scan(ctx, nil, func(codec.Row) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})

	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.rowsDecoded.WithLabelValues("users", modeFull)))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.rowsDecoded.WithLabelValues("users", modeColumns)))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.rowsDecoded.WithLabelValues("users", modeKey)))
}

func TestTable_ScanSkipsNewerRecords(t *testing.T) {
	s, metrics := newTestStore(t)
	tbl, err := s.Table(usersTable())
	require.NoError(t, err)
	seed(t, tbl)

	// A record written after a schema upgrade this process does not know.
	cfg := usersTable()
	columns, err := cfg.Schema()
	require.NoError(t, err)
	newer, err := codec.NewRecordEncoder(3, columns, cfg.ID)
	require.NoError(t, err)
	kv, err := newer.Encode(user("bb", "newer", 1))
	require.NoError(t, err)
	require.NoError(t, s.db.Set(kv.Key, kv.Value, pebble.Sync))

	rows := collect(t, tbl, nil)
	assert.Len(t, rows, 3)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.rejections.WithLabelValues("users", "schema_version")))

	n, err := tbl.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// The key alone is still readable.
	var keys int
	require.NoError(t, tbl.ScanKeys(context.Background(), func(codec.Row) error {
		keys++
		return nil
	}))
	assert.Equal(t, 4, keys)
}

func TestTable_ScanStopsOnCorruption(t *testing.T) {
	s, _ := newTestStore(t)
	tbl, err := s.Table(usersTable())
	require.NoError(t, err)
	seed(t, tbl)

	key, err := tbl.Encoder().EncodeKey(user("b2", "", 0))
	require.NoError(t, err)
	require.NoError(t, s.db.Set(key, []byte{0, 0}, pebble.Sync))

	err = tbl.Scan(context.Background(), nil, func(codec.Row) error { return nil })
	assert.ErrorIs(t, err, codec.ErrCorruptRecord)
}

func TestStore_Tables(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.OpenTables([]config.TableConfig{usersTable(), eventsTable()}))
	assert.Len(t, s.Tables(), 2)

	again, err := s.Table(usersTable())
	require.NoError(t, err)
	found, ok := s.Lookup("users")
	require.True(t, ok)
	assert.Same(t, found, again)

	clash := eventsTable()
	clash.Name = "other"
	_, err = s.Table(clash)
	assert.Error(t, err)

	clash = eventsTable()
	clash.ID = 9
	_, err = s.Table(clash)
	assert.Error(t, err)

	_, ok = s.Lookup("missing")
	assert.False(t, ok)
}

func TestStore_Decode(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.OpenTables([]config.TableConfig{usersTable(), eventsTable()}))
	events, _ := s.Lookup("events")
	users, _ := s.Lookup("users")

	kv, err := events.Encoder().Encode(codec.Row{int64(1700000000), "login"})
	require.NoError(t, err)
	tbl, row, err := s.Decode(kv)
	require.NoError(t, err)
	assert.Equal(t, "events", tbl.Name())
	assert.Equal(t, codec.Row{int64(1700000000), "login"}, row)

	kv, err = users.Encoder().Encode(user("a", "alice", 30))
	require.NoError(t, err)
	tbl, row, err = s.Decode(kv)
	require.NoError(t, err)
	assert.Equal(t, "users", tbl.Name())
	assert.Equal(t, user("a", "alice", 30), row)

	_, _, err = s.Decode(codec.KeyValue{Key: []byte("nope"), Value: nil})
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestStore_DecodeNewerCodecVersion(t *testing.T) {
	s, metrics := newTestStore(t)
	tbl, err := s.Table(usersTable())
	require.NoError(t, err)
	seed(t, tbl)

	cfg := usersTable()
	columns, err := cfg.Schema()
	require.NoError(t, err)
	future, err := codec.NewRecordEncoder(cfg.SchemaVersion, columns, cfg.ID, codec.WithCodecVersion(2))
	require.NoError(t, err)
	kv, err := future.Encode(user("zz", "future", 1))
	require.NoError(t, err)

	got, _, err := s.Decode(kv)
	assert.ErrorIs(t, err, codec.ErrUnsupportedCodecVersion)
	assert.Equal(t, "users", got.Name())

	require.NoError(t, s.db.Set(kv.Key, kv.Value, pebble.Sync))
	assert.Len(t, collect(t, tbl, nil), 3)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.rejections.WithLabelValues("users", "codec_version")))
}

func TestStore_TableRejectsSharedPrefix(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Table(config.TableConfig{
		Name:          "a",
		ID:            1,
		SchemaVersion: 1,
		Columns:       []config.ColumnConfig{{Name: "id", Type: "long", Key: true}},
	})
	require.NoError(t, err)

	// 0x0100000000000000 written little-endian is 1 written big-endian.
	_, err = s.Table(config.TableConfig{
		Name:          "b",
		ID:            0x0100000000000000,
		SchemaVersion: 1,
		ByteOrder:     "little",
		Columns:       []config.ColumnConfig{{Name: "id", Type: "long", Key: true}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same key prefix")

	_, ok := s.Lookup("b")
	assert.False(t, ok)
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte{1, 3}, prefixEnd([]byte{1, 2}))
	assert.Equal(t, []byte{2}, prefixEnd([]byte{1, 0xff}))
	assert.Nil(t, prefixEnd([]byte{0xff, 0xff}))
}

func TestTable_RowFromMap(t *testing.T) {
	s, _ := newTestStore(t)
	tbl, err := s.Table(usersTable())
	require.NoError(t, err)

	row, err := tbl.RowFromMap(map[string]any{
		"id":   "u1",
		"age":  float64(7),
		"tags": []any{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, codec.Row{"u1", nil, int32(7), []string{"x"}, nil}, row)

	_, err = tbl.RowFromMap(map[string]any{"nickname": "old"})
	assert.ErrorIs(t, err, codec.ErrUnknownColumn)

	_, err = tbl.RowFromMap(map[string]any{"age": "seven"})
	assert.Error(t, err)

	logical, err := tbl.Logical([]string{"tags", "id"})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0}, logical)
	_, err = tbl.Logical([]string{"nickname"})
	assert.ErrorIs(t, err, codec.ErrUnknownColumn)

	assert.True(t, tbl.IsKey(0))
	assert.False(t, tbl.IsKey(1))
	assert.False(t, tbl.IsKey(4))
}
