package schema

import (
	"math"

	"github.com/ssargent/tablekv/pkg/buf"
)

const (
	signBit32 uint32 = 1 << 31
	signBit64 uint64 = 1 << 63
)

type boolCodec struct{ column }

func (c *boolCodec) DecodeKey(b *buf.Buf) (bool, bool) { return c.DecodeValue(b) }
func (c *boolCodec) SkipKey(b *buf.Buf)                { c.SkipValue(b) }

func (c *boolCodec) DecodeValue(b *buf.Buf) (bool, bool) {
	if !readFlag(b) {
		return false, false
	}
	return b.ReadUint8() != 0, true
}

func (c *boolCodec) SkipValue(b *buf.Buf) {
	if readFlag(b) {
		b.Skip(1)
	}
}

func (c *boolCodec) EncodeKey(w *buf.Writer, v bool, ok bool) { c.EncodeValue(w, v, ok) }

func (c *boolCodec) EncodeValue(w *buf.Writer, v bool, ok bool) {
	writeFlag(w, ok)
	if !ok {
		return
	}
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

type intCodec struct{ column }

func (c *intCodec) DecodeKey(b *buf.Buf) (int32, bool) {
	if !readFlag(b) {
		return 0, false
	}
	return int32(b.ReadUint32() ^ signBit32), true
}

func (c *intCodec) SkipKey(b *buf.Buf) { skipFixed(b, 4) }

func (c *intCodec) DecodeValue(b *buf.Buf) (int32, bool) {
	if !readFlag(b) {
		return 0, false
	}
	return b.ReadInt(), true
}

func (c *intCodec) SkipValue(b *buf.Buf) { skipFixed(b, 4) }

func (c *intCodec) EncodeKey(w *buf.Writer, v int32, ok bool) {
	writeFlag(w, ok)
	if ok {
		w.WriteUint32(uint32(v) ^ signBit32)
	}
}

func (c *intCodec) EncodeValue(w *buf.Writer, v int32, ok bool) {
	writeFlag(w, ok)
	if ok {
		w.WriteInt(v)
	}
}

type longCodec struct{ column }

func (c *longCodec) DecodeKey(b *buf.Buf) (int64, bool) {
	if !readFlag(b) {
		return 0, false
	}
	return int64(b.ReadUint64() ^ signBit64), true
}

func (c *longCodec) SkipKey(b *buf.Buf) { skipFixed(b, 8) }

func (c *longCodec) DecodeValue(b *buf.Buf) (int64, bool) {
	if !readFlag(b) {
		return 0, false
	}
	return b.ReadLong(), true
}

func (c *longCodec) SkipValue(b *buf.Buf) { skipFixed(b, 8) }

func (c *longCodec) EncodeKey(w *buf.Writer, v int64, ok bool) {
	writeFlag(w, ok)
	if ok {
		w.WriteUint64(uint64(v) ^ signBit64)
	}
}

func (c *longCodec) EncodeValue(w *buf.Writer, v int64, ok bool) {
	writeFlag(w, ok)
	if ok {
		w.WriteLong(v)
	}
}

type floatCodec struct{ column }

func (c *floatCodec) DecodeKey(b *buf.Buf) (float32, bool) {
	if !readFlag(b) {
		return 0, false
	}
	bits := b.ReadUint32()
	if bits&signBit32 != 0 {
		bits &^= signBit32
	} else {
		bits = ^bits
	}
	return math.Float32frombits(bits), true
}

func (c *floatCodec) SkipKey(b *buf.Buf) { skipFixed(b, 4) }

func (c *floatCodec) DecodeValue(b *buf.Buf) (float32, bool) {
	if !readFlag(b) {
		return 0, false
	}
	return b.ReadFloat(), true
}

func (c *floatCodec) SkipValue(b *buf.Buf) { skipFixed(b, 4) }

func (c *floatCodec) EncodeKey(w *buf.Writer, v float32, ok bool) {
	writeFlag(w, ok)
	if !ok {
		return
	}
	bits := math.Float32bits(v)
	if bits&signBit32 == 0 {
		bits |= signBit32
	} else {
		bits = ^bits
	}
	w.WriteUint32(bits)
}

func (c *floatCodec) EncodeValue(w *buf.Writer, v float32, ok bool) {
	writeFlag(w, ok)
	if ok {
		w.WriteFloat(v)
	}
}

type doubleCodec struct{ column }

func (c *doubleCodec) DecodeKey(b *buf.Buf) (float64, bool) {
	if !readFlag(b) {
		return 0, false
	}
	bits := b.ReadUint64()
	if bits&signBit64 != 0 {
		bits &^= signBit64
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits), true
}

func (c *doubleCodec) SkipKey(b *buf.Buf) { skipFixed(b, 8) }

func (c *doubleCodec) DecodeValue(b *buf.Buf) (float64, bool) {
	if !readFlag(b) {
		return 0, false
	}
	return b.ReadDouble(), true
}

func (c *doubleCodec) SkipValue(b *buf.Buf) { skipFixed(b, 8) }

func (c *doubleCodec) EncodeKey(w *buf.Writer, v float64, ok bool) {
	writeFlag(w, ok)
	if !ok {
		return
	}
	bits := math.Float64bits(v)
	if bits&signBit64 == 0 {
		bits |= signBit64
	} else {
		bits = ^bits
	}
	w.WriteUint64(bits)
}

func (c *doubleCodec) EncodeValue(w *buf.Writer, v float64, ok bool) {
	writeFlag(w, ok)
	if ok {
		w.WriteDouble(v)
	}
}

// skipFixed skips a nullable fixed-width column.
func skipFixed(b *buf.Buf, width int) {
	if readFlag(b) {
		b.Skip(width)
	}
}
