package schema

import "github.com/ssargent/tablekv/pkg/buf"

// elemCodec reads and writes one list element. A width of 0 marks a
// variable-length element that must be skipped one by one.
type elemCodec[E any] struct {
	width int
	read  func(*buf.Buf) E
	skip  func(*buf.Buf)
	write func(*buf.Writer, E)
}

var (
	boolElem = elemCodec[bool]{
		width: 1,
		read:  func(b *buf.Buf) bool { return b.ReadUint8() != 0 },
		write: func(w *buf.Writer, v bool) {
			if v {
				w.WriteUint8(1)
			} else {
				w.WriteUint8(0)
			}
		},
	}
	intElem = elemCodec[int32]{
		width: 4,
		read:  (*buf.Buf).ReadInt,
		write: (*buf.Writer).WriteInt,
	}
	floatElem = elemCodec[float32]{
		width: 4,
		read:  (*buf.Buf).ReadFloat,
		write: (*buf.Writer).WriteFloat,
	}
	longElem = elemCodec[int64]{
		width: 8,
		read:  (*buf.Buf).ReadLong,
		write: (*buf.Writer).WriteLong,
	}
	doubleElem = elemCodec[float64]{
		width: 8,
		read:  (*buf.Buf).ReadDouble,
		write: (*buf.Writer).WriteDouble,
	}
	stringElem = elemCodec[string]{
		read:  readString,
		skip:  skipString,
		write: writeString,
	}
)

// listCodec encodes a list as a null flag, a uint32 element count and the
// elements. Lists are value-only; the key methods use the value encoding so
// that the type still satisfies Codec, but New never builds a list key
// column.
type listCodec[E any] struct {
	column
	elem elemCodec[E]
}

func (c *listCodec[E]) DecodeKey(b *buf.Buf) ([]E, bool) { return c.DecodeValue(b) }
func (c *listCodec[E]) SkipKey(b *buf.Buf)               { c.SkipValue(b) }

func (c *listCodec[E]) DecodeValue(b *buf.Buf) ([]E, bool) {
	if !readFlag(b) {
		return nil, false
	}
	n := int(b.ReadUint32())
	if b.Err() != nil {
		return nil, true
	}
	// Each element takes at least one byte, which bounds the allocation for
	// corrupt counts.
	out := make([]E, 0, min(n, b.Remaining()))
	for i := 0; i < n; i++ {
		v := c.elem.read(b)
		if b.Err() != nil {
			return out, true
		}
		out = append(out, v)
	}
	return out, true
}

func (c *listCodec[E]) SkipValue(b *buf.Buf) {
	if !readFlag(b) {
		return
	}
	n := int(b.ReadUint32())
	if c.elem.width > 0 {
		b.Skip(n * c.elem.width)
		return
	}
	for i := 0; i < n && b.Err() == nil; i++ {
		c.elem.skip(b)
	}
}

func (c *listCodec[E]) EncodeKey(w *buf.Writer, v []E, ok bool) { c.EncodeValue(w, v, ok) }

func (c *listCodec[E]) EncodeValue(w *buf.Writer, v []E, ok bool) {
	writeFlag(w, ok)
	if !ok {
		return
	}
	w.WriteUint32(uint32(len(v)))
	for _, e := range v {
		c.elem.write(w, e)
	}
}
