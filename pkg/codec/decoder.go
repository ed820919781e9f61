package codec

import (
	"cmp"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/tablekv/pkg/buf"
	"github.com/ssargent/tablekv/pkg/schema"
)

var (
	// ErrInvalidSchema is returned when a decoder or encoder is built from
	// columns it cannot handle.
	ErrInvalidSchema = errors.New("codec: invalid schema")
	// ErrUnknownColumn is returned by PhysicalPositions for a logical index
	// that has no present column.
	ErrUnknownColumn = errors.New("codec: unknown column")
)

// CodecVersionV1 is the codec version implemented by RecordDecoder.
const CodecVersionV1 uint8 = 1

// field is a present column with its decode function bound.
type field struct {
	col          schema.Column
	index        int
	decodeOrSkip decodeOrSkipFunc
}

// RecordDecoder decodes the records of one table version.
type RecordDecoder struct {
	cfg     Config
	columns schema.Columns
	// fields holds the present columns in physical order.
	fields []field
	// physical maps a logical index to its position in fields, or -1.
	physical []int
}

// NewRecordDecoder returns a decoder for records of the table identified by
// commonID, written with a schema version no newer than schemaVersion.
// columns lists the schema in physical order; nil entries are dropped
// columns.
func NewRecordDecoder(schemaVersion int32, columns schema.Columns, commonID int64, opts ...Option) (*RecordDecoder, error) {
	if err := columns.Validate(); err != nil {
		return nil, newKindError(ErrInvalidSchema, "", err)
	}
	d := &RecordDecoder{
		cfg:      newConfig(schemaVersion, commonID, opts),
		columns:  slices.Clone(columns),
		fields:   make([]field, 0, len(columns)),
		physical: make([]int, len(columns)),
	}
	for i := range d.physical {
		d.physical[i] = -1
	}
	for pos, col := range d.columns {
		if col == nil {
			continue
		}
		fn, ok := decodeOrSkipTable[col.Type()](col)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidSchema, "position %d: %T does not decode %s", pos, col, col.Type())
		}
		d.physical[col.Index()] = len(d.fields)
		d.fields = append(d.fields, field{col: col, index: col.Index(), decodeOrSkip: fn})
	}
	return d, nil
}

// Config returns the decoder's configuration.
func (d *RecordDecoder) Config() Config { return d.cfg }

// Columns returns the decoder's schema in physical order.
func (d *RecordDecoder) Columns() schema.Columns { return slices.Clone(d.columns) }

// Decode decodes every present column of a record into a row with one slot
// per schema entry. Value columns missing from an older record are nil.
func (d *RecordDecoder) Decode(key, value []byte, dst Row) (Row, error) {
	var keyBuf, valueBuf buf.Buf
	keyBuf.Init(key, d.cfg.ByteOrder)
	valueBuf.Init(value, d.cfg.ByteOrder)

	if err := d.cfg.checkKey(&keyBuf); err != nil {
		return nil, err
	}
	if err := d.cfg.checkSchemaVersion(&valueBuf); err != nil {
		return nil, err
	}

	row := resize(dst, len(d.columns))
	for i := range d.fields {
		f := &d.fields[i]
		f.decodeOrSkip(&keyBuf, &valueBuf, row, f.index, false)
	}
	if err := corruption(&keyBuf, &valueBuf); err != nil {
		return nil, err
	}
	return row, nil
}

// DecodeKeyValue is Decode for an encoded pair.
func (d *RecordDecoder) DecodeKeyValue(kv KeyValue, dst Row) (Row, error) {
	return d.Decode(kv.Key, kv.Value, dst)
}

// DecodeKey decodes only the key columns of a record. Value column slots are
// left nil. The schema version is not checked since there is no value.
func (d *RecordDecoder) DecodeKey(key []byte, dst Row) (Row, error) {
	var keyBuf buf.Buf
	keyBuf.Init(key, d.cfg.ByteOrder)

	if err := d.cfg.checkKey(&keyBuf); err != nil {
		return nil, err
	}

	row := resize(dst, len(d.columns))
	for i := range d.fields {
		f := &d.fields[i]
		if f.col.IsKey() {
			f.decodeOrSkip(&keyBuf, &keyBuf, row, f.index, false)
		}
	}
	if err := keyBuf.Err(); err != nil {
		return nil, corrupt("key columns", err)
	}
	return row, nil
}

type projection struct {
	pos  int
	slot int
}

// DecodeColumns decodes the columns at the given physical positions.
// wanted[i] is the position of a present column, counting dropped columns
// out, and is decoded into slot i of the returned row. A position that
// appears more than once fills every slot that requested it with its own
// copy; one that does not name a present column leaves its slot nil.
//
// Columns between the requested ones are skipped, and columns after the
// last requested one are not read at all.
func (d *RecordDecoder) DecodeColumns(key, value []byte, wanted []int, dst Row) (Row, error) {
	var keyBuf, valueBuf buf.Buf
	keyBuf.Init(key, d.cfg.ByteOrder)
	valueBuf.Init(value, d.cfg.ByteOrder)

	if err := d.cfg.checkKey(&keyBuf); err != nil {
		return nil, err
	}
	if err := d.cfg.checkSchemaVersion(&valueBuf); err != nil {
		return nil, err
	}

	var scratch [16]projection
	pairs := scratch[:0]
	if len(wanted) > len(scratch) {
		pairs = make([]projection, 0, len(wanted))
	}
	for slot, pos := range wanted {
		pairs = append(pairs, projection{pos: pos, slot: slot})
	}
	slices.SortFunc(pairs, func(a, b projection) int {
		if c := cmp.Compare(a.pos, b.pos); c != 0 {
			return c
		}
		return cmp.Compare(a.slot, b.slot)
	})

	row := resize(dst, len(wanted))
	n := 0
	for n < len(pairs) && pairs[n].pos < 0 {
		n++
	}
	for m := range d.fields {
		if n == len(pairs) {
			break
		}
		f := &d.fields[m]
		if pairs[n].pos != m {
			f.decodeOrSkip(&keyBuf, &valueBuf, row, 0, true)
			continue
		}
		slot := pairs[n].slot
		f.decodeOrSkip(&keyBuf, &valueBuf, row, slot, false)
		for n++; n < len(pairs) && pairs[n].pos == m; n++ {
			row[pairs[n].slot] = copyValue(row[slot])
		}
	}
	if err := corruption(&keyBuf, &valueBuf); err != nil {
		return nil, err
	}
	return row, nil
}

// DecodeColumnsKeyValue is DecodeColumns for an encoded pair.
func (d *RecordDecoder) DecodeColumnsKeyValue(kv KeyValue, wanted []int, dst Row) (Row, error) {
	return d.DecodeColumns(kv.Key, kv.Value, wanted, dst)
}

// PhysicalPositions converts logical column indexes into the positions
// DecodeColumns expects. The two differ once columns are reordered or
// dropped.
func (d *RecordDecoder) PhysicalPositions(logical []int) ([]int, error) {
	out := make([]int, len(logical))
	for i, idx := range logical {
		if idx < 0 || idx >= len(d.physical) || d.physical[idx] < 0 {
			return nil, errors.Wrapf(ErrUnknownColumn, "logical index %d", idx)
		}
		out[i] = d.physical[idx]
	}
	return out, nil
}
