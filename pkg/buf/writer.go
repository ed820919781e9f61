package buf

import (
	"encoding/binary"
	"math"
)

// Writer appends fixed-width values to a growing byte slice.
type Writer struct {
	data  []byte
	order binary.ByteOrder
}

// NewWriter returns a Writer with the given byte order and initial capacity.
// A nil order means big-endian.
func NewWriter(order binary.ByteOrder, capacity int) *Writer {
	if order == nil {
		order = binary.BigEndian
	}
	return &Writer{data: make([]byte, 0, capacity), order: order}
}

// Bytes returns the written bytes. The slice is owned by the Writer until the
// next write or Reset.
func (w *Writer) Bytes() []byte { return w.data }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.data) }

// Reset discards the written bytes and keeps the allocated space.
func (w *Writer) Reset() { w.data = w.data[:0] }

// WriteUint8 appends a single byte.
func (w *Writer) WriteUint8(c byte) {
	w.data = append(w.data, c)
}

// WriteBytes appends p.
func (w *Writer) WriteBytes(p []byte) {
	w.data = append(w.data, p...)
}

// WriteString appends the bytes of s.
func (w *Writer) WriteString(s string) {
	w.data = append(w.data, s...)
}

// WriteUint32 appends a 4-byte unsigned integer.
func (w *Writer) WriteUint32(v uint32) {
	var tmp [4]byte
	w.order.PutUint32(tmp[:], v)
	w.data = append(w.data, tmp[:]...)
}

// WriteUint64 appends an 8-byte unsigned integer.
func (w *Writer) WriteUint64(v uint64) {
	var tmp [8]byte
	w.order.PutUint64(tmp[:], v)
	w.data = append(w.data, tmp[:]...)
}

// WriteInt appends a 4-byte signed integer.
func (w *Writer) WriteInt(v int32) { w.WriteUint32(uint32(v)) }

// WriteLong appends an 8-byte signed integer.
func (w *Writer) WriteLong(v int64) { w.WriteUint64(uint64(v)) }

// WriteFloat appends a 4-byte IEEE 754 float.
func (w *Writer) WriteFloat(v float32) { w.WriteUint32(math.Float32bits(v)) }

// WriteDouble appends an 8-byte IEEE 754 float.
func (w *Writer) WriteDouble(v float64) { w.WriteUint64(math.Float64bits(v)) }
