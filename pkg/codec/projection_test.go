package codec

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/ssargent/tablekv/pkg/buf"
	"github.com/ssargent/tablekv/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// countingCodec records how often a column is decoded and skipped.
type countingCodec[T any] struct {
	schema.Codec[T]
	decoded, skipped int
}

func (c *countingCodec[T]) DecodeKey(b *buf.Buf) (T, bool) {
	c.decoded++
	return c.Codec.DecodeKey(b)
}

func (c *countingCodec[T]) SkipKey(b *buf.Buf) {
	c.skipped++
	c.Codec.SkipKey(b)
}

func (c *countingCodec[T]) DecodeValue(b *buf.Buf) (T, bool) {
	c.decoded++
	return c.Codec.DecodeValue(b)
}

func (c *countingCodec[T]) SkipValue(b *buf.Buf) {
	c.skipped++
	c.Codec.SkipValue(b)
}

type counter interface {
	counts() (decoded, skipped int)
}

func (c *countingCodec[T]) counts() (int, int) { return c.decoded, c.skipped }

func counting[T any](t schema.Type, name string, index int, isKey bool) *countingCodec[T] {
	return &countingCodec[T]{Codec: schema.MustNew(t, name, index, isKey).(schema.Codec[T])}
}

func projectionColumns() schema.Columns {
	return schema.Columns{
		counting[int32](schema.Integer, "c0", 0, true),
		counting[string](schema.String, "c1", 1, false),
		counting[int64](schema.Long, "c2", 2, false),
		counting[float64](schema.Double, "c3", 3, false),
		counting[string](schema.String, "c4", 4, false),
	}
}

func TestRecordDecoder_ProjectionSkipsUnwantedColumns(t *testing.T) {
	columns := projectionColumns()
	enc, dec := newTestCodec(t, 1, columns)
	kv, err := enc.Encode(Row{int32(1), "skipped string", int64(-99), 2.5, "wanted string"})
	require.NoError(t, err)

	row, err := dec.DecodeColumns(kv.Key, kv.Value, []int{2, 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, Row{int64(-99), "wanted string"}, row)

	want := []struct{ decoded, skipped int }{
		{0, 1},
		{0, 1},
		{1, 0},
		{0, 1},
		{1, 0},
	}
	for i, col := range columns {
		decoded, skipped := col.(counter).counts()
		assert.Equal(t, want[i].decoded, decoded, "column %d decoded", i)
		assert.Equal(t, want[i].skipped, skipped, "column %d skipped", i)
	}
}

func TestRecordDecoder_ProjectionStopsAfterLastColumn(t *testing.T) {
	columns := projectionColumns()
	enc, dec := newTestCodec(t, 1, columns)
	kv, err := enc.Encode(Row{int32(1), "a", int64(2), 3.0, "b"})
	require.NoError(t, err)

	row, err := dec.DecodeColumns(kv.Key, kv.Value, []int{1}, nil)
	require.NoError(t, err)
	assert.Equal(t, Row{"a"}, row)

	for i, col := range columns[2:] {
		decoded, skipped := col.(counter).counts()
		assert.Zero(t, decoded+skipped, "column %d should not be visited", i+2)
	}
}

func TestRecordDecoder_ProjectionSkipsMissingValues(t *testing.T) {
	columns := projectionColumns()
	enc, dec := newTestCodec(t, 1, columns)
	kv, err := enc.Encode(Row{int32(1), "a", int64(2), 3.0, "b"})
	require.NoError(t, err)

	// Only the schema version is left: nothing to skip, everything is null.
	row, err := dec.DecodeColumns(kv.Key, kv.Value[:4], []int{0, 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, Row{int32(1), nil}, row)

	for i, col := range columns[1:] {
		decoded, skipped := col.(counter).counts()
		assert.Zero(t, decoded+skipped, "column %d has no bytes to read", i+1)
	}
}

func TestRecordDecoder_DuplicatePositionsDoNotShareLists(t *testing.T) {
	enc, dec := newTestCodec(t, 1, userColumns())
	kv, err := enc.Encode(userRow())
	require.NoError(t, err)

	// Position 4 is the scores list.
	row, err := dec.DecodeColumns(kv.Key, kv.Value, []int{4, 4}, nil)
	require.NoError(t, err)
	require.Equal(t, row[0], row[1])

	first := row[0].([]float64)
	first[0] = -1
	assert.NotEqual(t, -1.0, row[1].([]float64)[0])
}

func TestRecordDecoder_DecodeKeyVisitsOnlyKeyColumns(t *testing.T) {
	columns := projectionColumns()
	enc, dec := newTestCodec(t, 1, columns)
	kv, err := enc.Encode(Row{int32(1), "a", int64(2), 3.0, "b"})
	require.NoError(t, err)

	row, err := dec.DecodeKey(kv.Key, nil)
	require.NoError(t, err)
	assert.Equal(t, Row{int32(1), nil, nil, nil, nil}, row)

	for i, col := range columns {
		decoded, skipped := col.(counter).counts()
		if i == 0 {
			assert.Equal(t, 1, decoded)
			continue
		}
		assert.Zero(t, decoded+skipped, "column %d", i)
	}
}

func TestDispatcher(t *testing.T) {
	enc, v1 := newTestCodec(t, 1, userColumns())
	d := NewDispatcher(map[uint8]Decoder{CodecVersionV1: v1})

	kv, err := enc.Encode(userRow())
	require.NoError(t, err)

	row, err := d.Decode(kv.Key, kv.Value, nil)
	require.NoError(t, err)
	assert.Equal(t, userRow(), row)

	keys, err := d.DecodeKey(kv.Key, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), keys[0])

	cols, err := d.DecodeColumns(kv.Key, kv.Value, []int{2}, nil)
	require.NoError(t, err)
	assert.Equal(t, Row{"alice"}, cols)

	future, _ := newTestCodec(t, 1, userColumns(), WithCodecVersion(5))
	kv, err = future.Encode(userRow())
	require.NoError(t, err)
	_, err = d.Decode(kv.Key, kv.Value, nil)
	assert.ErrorIs(t, err, ErrUnsupportedCodecVersion)

	_, err = d.For(nil)
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestRecordEncoder_Errors(t *testing.T) {
	enc, _ := newTestCodec(t, 1, userColumns())

	_, err := enc.Encode(Row{int64(1)})
	assert.ErrorIs(t, err, ErrRowSize)

	row := userRow()
	row[4] = 30 // int, not int32
	_, err = enc.Encode(row)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	row = userRow()
	row[0] = "7"
	_, err = enc.EncodeKey(row)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestRecordDecoder_ConcurrentUse(t *testing.T) {
	enc, dec := newTestCodec(t, 1, userColumns(), WithByteOrder(binary.LittleEndian))

	records := make([]KeyValue, 64)
	rows := make([]Row, len(records))
	for i := range records {
		rows[i] = Row{int64(i), fmt.Sprintf("user-%d", i), []float64{float64(i)}, "r", int32(i), nil, i%2 == 0}
		kv, err := enc.Encode(rows[i])
		require.NoError(t, err)
		records[i] = kv
	}

	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			var dst Row
			for i, kv := range records {
				var err error
				dst, err = dec.DecodeKeyValue(kv, dst)
				if err != nil {
					return err
				}
				if dst.String() != rows[i].String() {
					return fmt.Errorf("record %d: got %s, want %s", i, dst, rows[i])
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestRow_String(t *testing.T) {
	r := Row{int64(1), nil, "a\"b", []int32{1, 2}, true}
	assert.Equal(t, `[1, NULL, "a\"b", [1 2], true]`, r.String())
}
