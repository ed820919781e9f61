// Package schema defines table columns and the per-type codecs that read,
// skip and write a single column value in a record key or value.
//
// Every encoded column starts with a one-byte null flag. A null column is the
// flag alone; a present column is the flag followed by the type's payload.
// Key columns of numeric type are written so that big-endian keys sort in
// value order, and string keys use a group encoding that preserves byte
// order. List types may only appear in the value.
//
// Skipping a column reads only the flag and any length prefixes or group
// markers. It never allocates.
package schema

import (
	"github.com/cockroachdb/errors"
	"github.com/ssargent/tablekv/pkg/buf"
)

const (
	nullFlag    byte = 0x00
	notNullFlag byte = 0x01
)

var (
	// ErrListKey is returned when a list type is declared as a key column.
	ErrListKey = errors.New("schema: list columns cannot be key columns")
	// ErrInvalidColumn is returned for a column with an unknown type or a
	// bad logical index.
	ErrInvalidColumn = errors.New("schema: invalid column")
)

// Column is the type-erased view of a column codec.
type Column interface {
	Name() string
	Type() Type
	// IsKey reports whether the column is stored in the record key.
	IsKey() bool
	// Index is the column's logical position in the table's declared
	// schema, which is also its slot in a decoded row.
	Index() int
}

// Codec reads, skips and writes values of one Go type. A false ok means the
// value is null.
type Codec[T any] interface {
	Column
	DecodeKey(b *buf.Buf) (v T, ok bool)
	SkipKey(b *buf.Buf)
	DecodeValue(b *buf.Buf) (v T, ok bool)
	SkipValue(b *buf.Buf)
	EncodeKey(w *buf.Writer, v T, ok bool)
	EncodeValue(w *buf.Writer, v T, ok bool)
}

type column struct {
	name  string
	typ   Type
	key   bool
	index int
}

func (c *column) Name() string { return c.name }
func (c *column) Type() Type   { return c.typ }
func (c *column) IsKey() bool  { return c.key }
func (c *column) Index() int   { return c.index }

// New returns the codec for a column of type t.
func New(t Type, name string, index int, isKey bool) (Column, error) {
	if !t.Valid() {
		return nil, errors.Wrapf(ErrInvalidColumn, "column %q: unknown type %d", name, uint8(t))
	}
	if index < 0 {
		return nil, errors.Wrapf(ErrInvalidColumn, "column %q: negative index %d", name, index)
	}
	if isKey && t.IsList() {
		return nil, errors.Wrapf(ErrListKey, "column %q (%s)", name, t)
	}
	c := column{name: name, typ: t, key: isKey, index: index}
	switch t {
	case Bool:
		return &boolCodec{c}, nil
	case Integer:
		return &intCodec{c}, nil
	case Float:
		return &floatCodec{c}, nil
	case Long:
		return &longCodec{c}, nil
	case Double:
		return &doubleCodec{c}, nil
	case String:
		return &stringCodec{c}, nil
	case BoolList:
		return &listCodec[bool]{c, boolElem}, nil
	case IntegerList:
		return &listCodec[int32]{c, intElem}, nil
	case FloatList:
		return &listCodec[float32]{c, floatElem}, nil
	case LongList:
		return &listCodec[int64]{c, longElem}, nil
	case DoubleList:
		return &listCodec[float64]{c, doubleElem}, nil
	default:
		return &listCodec[string]{c, stringElem}, nil
	}
}

// MustNew is like New but panics on error. It is intended for tests and
// static schemas.
func MustNew(t Type, name string, index int, isKey bool) Column {
	c, err := New(t, name, index, isKey)
	if err != nil {
		panic(err)
	}
	return c
}

// Columns is a table schema in physical encoding order. A nil entry is a
// dropped column: it is never decoded and occupies no space in records.
type Columns []Column

// Validate checks that every present column has a supported type and a
// unique logical index that addresses a slot in a row of len(cs) slots.
func (cs Columns) Validate() error {
	seen := make([]bool, len(cs))
	for pos, c := range cs {
		if c == nil {
			continue
		}
		if !c.Type().Valid() {
			return errors.Wrapf(ErrInvalidColumn, "position %d: unknown type %d", pos, uint8(c.Type()))
		}
		if c.IsKey() && c.Type().IsList() {
			return errors.Wrapf(ErrListKey, "position %d (%s)", pos, c.Type())
		}
		idx := c.Index()
		if idx < 0 || idx >= len(cs) {
			return errors.Wrapf(ErrInvalidColumn, "position %d: index %d out of range [0, %d)", pos, idx, len(cs))
		}
		if seen[idx] {
			return errors.Wrapf(ErrInvalidColumn, "position %d: duplicate index %d", pos, idx)
		}
		seen[idx] = true
	}
	return nil
}

// Present returns the number of non-nil columns.
func (cs Columns) Present() int {
	n := 0
	for _, c := range cs {
		if c != nil {
			n++
		}
	}
	return n
}

// ByName returns the present column with the given name.
func (cs Columns) ByName(name string) (Column, bool) {
	for _, c := range cs {
		if c != nil && c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

func readFlag(b *buf.Buf) bool {
	return b.ReadUint8() == notNullFlag
}

func writeFlag(w *buf.Writer, ok bool) {
	if ok {
		w.WriteUint8(notNullFlag)
	} else {
		w.WriteUint8(nullFlag)
	}
}
