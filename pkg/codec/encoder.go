package codec

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/tablekv/pkg/buf"
	"github.com/ssargent/tablekv/pkg/schema"
)

var (
	// ErrTypeMismatch is returned when a row value does not have the Go type
	// of its column.
	ErrTypeMismatch = errors.New("codec: value type mismatch")
	// ErrRowSize is returned when a row does not have one slot per column.
	ErrRowSize = errors.New("codec: wrong row size")
)

type encodeField struct {
	index  int
	encode encodeFunc
}

// RecordEncoder writes rows in the layout RecordDecoder reads.
type RecordEncoder struct {
	cfg     Config
	size    int
	keys    []encodeField
	values  []encodeField
	prefix  []byte
	trailer [keyTrailerLen]byte
}

// NewRecordEncoder returns an encoder for the table identified by commonID.
// Its arguments mirror NewRecordDecoder.
func NewRecordEncoder(schemaVersion int32, columns schema.Columns, commonID int64, opts ...Option) (*RecordEncoder, error) {
	if err := columns.Validate(); err != nil {
		return nil, newKindError(ErrInvalidSchema, "", err)
	}
	e := &RecordEncoder{
		cfg:  newConfig(schemaVersion, commonID, opts),
		size: len(columns),
	}
	for pos, col := range columns {
		if col == nil {
			continue
		}
		fn, ok := encodeTable[col.Type()](col)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidSchema, "position %d: %T does not encode %s", pos, col, col.Type())
		}
		f := encodeField{index: col.Index(), encode: fn}
		if col.IsKey() {
			e.keys = append(e.keys, f)
		} else {
			e.values = append(e.values, f)
		}
	}

	w := buf.NewWriter(e.cfg.ByteOrder, keyPrefixLen)
	w.WriteUint8(e.cfg.Namespace)
	w.WriteLong(e.cfg.CommonID)
	e.prefix = w.Bytes()
	e.trailer[keyTrailerLen-1] = e.cfg.CodecVersion
	return e, nil
}

// Config returns the encoder's configuration.
func (e *RecordEncoder) Config() Config { return e.cfg }

// KeyPrefix returns the bytes every key of the table starts with.
func (e *RecordEncoder) KeyPrefix() []byte { return slices.Clone(e.prefix) }

// Encode encodes row, which is addressed by logical column index.
func (e *RecordEncoder) Encode(row Row) (KeyValue, error) {
	key, err := e.EncodeKey(row)
	if err != nil {
		return KeyValue{}, err
	}
	value, err := e.EncodeValue(row)
	if err != nil {
		return KeyValue{}, err
	}
	return KeyValue{Key: key, Value: value}, nil
}

// EncodeKey encodes the key columns of row. Value slots are ignored.
func (e *RecordEncoder) EncodeKey(row Row) ([]byte, error) {
	if len(row) != e.size {
		return nil, errors.Wrapf(ErrRowSize, "got %d slots, want %d", len(row), e.size)
	}
	w := buf.NewWriter(e.cfg.ByteOrder, keyPrefixLen+keyTrailerLen+16*len(e.keys))
	w.WriteBytes(e.prefix)
	for _, f := range e.keys {
		if err := f.encode(w, row[f.index]); err != nil {
			return nil, err
		}
	}
	w.WriteBytes(e.trailer[:])
	return w.Bytes(), nil
}

// EncodeValue encodes the value columns of row.
func (e *RecordEncoder) EncodeValue(row Row) ([]byte, error) {
	if len(row) != e.size {
		return nil, errors.Wrapf(ErrRowSize, "got %d slots, want %d", len(row), e.size)
	}
	w := buf.NewWriter(e.cfg.ByteOrder, valuePrefixLen+16*len(e.values))
	w.WriteInt(e.cfg.SchemaVersion)
	for _, f := range e.values {
		if err := f.encode(w, row[f.index]); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

func typeMismatch(col schema.Column, want, got any) error {
	return errors.Wrapf(ErrTypeMismatch, "column %q (%s): want %T, got %T", col.Name(), col.Type(), want, got)
}
