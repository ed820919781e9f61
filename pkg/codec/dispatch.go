package codec

import (
	"github.com/ssargent/tablekv/pkg/buf"
	"github.com/ssargent/tablekv/pkg/schema"
)

// decodeOrSkipFunc decodes one column into row[slot], or only advances past
// it when skip is set. Key columns read from key and value columns from
// value.
type decodeOrSkipFunc func(key, value *buf.Buf, row Row, slot int, skip bool)

// encodeFunc writes one column value, which must be nil or of the column's
// Go type.
type encodeFunc func(w *buf.Writer, v any) error

// decodeOrSkipTable is indexed by schema.Type. Each entry binds a column to
// its typed codec once, when a decoder is built, so the per-row path needs
// no type assertions.
var decodeOrSkipTable = [schema.NumTypes]func(schema.Column) (decodeOrSkipFunc, bool){
	schema.Bool:        bindDecodeOrSkip[bool],
	schema.Integer:     bindDecodeOrSkip[int32],
	schema.Float:       bindDecodeOrSkip[float32],
	schema.Long:        bindDecodeOrSkip[int64],
	schema.Double:      bindDecodeOrSkip[float64],
	schema.String:      bindDecodeOrSkip[string],
	schema.BoolList:    bindDecodeOrSkip[[]bool],
	schema.IntegerList: bindDecodeOrSkip[[]int32],
	schema.FloatList:   bindDecodeOrSkip[[]float32],
	schema.LongList:    bindDecodeOrSkip[[]int64],
	schema.DoubleList:  bindDecodeOrSkip[[]float64],
	schema.StringList:  bindDecodeOrSkip[[]string],
}

var encodeTable = [schema.NumTypes]func(schema.Column) (encodeFunc, bool){
	schema.Bool:        bindEncode[bool],
	schema.Integer:     bindEncode[int32],
	schema.Float:       bindEncode[float32],
	schema.Long:        bindEncode[int64],
	schema.Double:      bindEncode[float64],
	schema.String:      bindEncode[string],
	schema.BoolList:    bindEncode[[]bool],
	schema.IntegerList: bindEncode[[]int32],
	schema.FloatList:   bindEncode[[]float32],
	schema.LongList:    bindEncode[[]int64],
	schema.DoubleList:  bindEncode[[]float64],
	schema.StringList:  bindEncode[[]string],
}

func bindDecodeOrSkip[T any](col schema.Column) (decodeOrSkipFunc, bool) {
	c, ok := col.(schema.Codec[T])
	if !ok {
		return nil, false
	}
	if c.IsKey() {
		return func(key, _ *buf.Buf, row Row, slot int, skip bool) {
			if skip {
				c.SkipKey(key)
				return
			}
			v, ok := c.DecodeKey(key)
			set(row, slot, v, ok)
		}, true
	}
	return func(_, value *buf.Buf, row Row, slot int, skip bool) {
		// A value that ends early was written before this column existed.
		if value.IsEnd() {
			if !skip {
				row[slot] = nil
			}
			return
		}
		if skip {
			c.SkipValue(value)
			return
		}
		v, ok := c.DecodeValue(value)
		set(row, slot, v, ok)
	}, true
}

func set[T any](row Row, slot int, v T, ok bool) {
	if ok {
		row[slot] = v
	} else {
		row[slot] = nil
	}
}

func bindEncode[T any](col schema.Column) (encodeFunc, bool) {
	c, ok := col.(schema.Codec[T])
	if !ok {
		return nil, false
	}
	write := c.EncodeValue
	if c.IsKey() {
		write = c.EncodeKey
	}
	return func(w *buf.Writer, v any) error {
		var zero T
		if v == nil {
			write(w, zero, false)
			return nil
		}
		t, ok := v.(T)
		if !ok {
			return typeMismatch(c, zero, v)
		}
		write(w, t, true)
		return nil
	}, true
}
