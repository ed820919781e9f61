// Package buf provides the byte cursor used to read and write record
// encodings.
//
// A Buf reads an immutable byte slice from both ends: the head moves forward
// from the start of the slice and the tail moves backward from its end. The
// two positions never cross. Fixed-width integers and floats are read in the
// byte order the Buf was created with.
//
// Reads never panic on malformed input. A read or skip that would move past
// the opposite position records ErrOutOfRange, returns the zero value and
// leaves the cursor where it was. The error is sticky and available from Err.
package buf

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// ErrOutOfRange is recorded when a read or skip runs past the readable
// region of a Buf.
var ErrOutOfRange = errors.New("buf: read out of range")

// Buf is a two-ended cursor over an immutable byte slice.
type Buf struct {
	data  []byte
	head  int
	tail  int
	order binary.ByteOrder
	err   error
}

// New returns a Buf over data using the given byte order. A nil order means
// big-endian.
func New(data []byte, order binary.ByteOrder) *Buf {
	b := &Buf{}
	b.Init(data, order)
	return b
}

// Init resets b to read data from both ends. It lets callers keep a Buf on
// the stack.
func (b *Buf) Init(data []byte, order binary.ByteOrder) {
	if order == nil {
		order = binary.BigEndian
	}
	*b = Buf{data: data, tail: len(data), order: order}
}

// Reset points b at new data, keeping its byte order.
func (b *Buf) Reset(data []byte) {
	b.Init(data, b.order)
}

// Err returns the first out-of-range error, if any.
func (b *Buf) Err() error {
	return b.err
}

// IsEnd reports whether the head has reached the tail.
func (b *Buf) IsEnd() bool {
	return b.head >= b.tail
}

// Remaining returns the number of bytes between head and tail.
func (b *Buf) Remaining() int {
	return b.tail - b.head
}

// Order returns the byte order of b.
func (b *Buf) Order() binary.ByteOrder {
	return b.order
}

func (b *Buf) take(n int) []byte {
	if b.err != nil {
		return nil
	}
	if n < 0 || n > b.tail-b.head {
		b.err = errors.Wrapf(ErrOutOfRange, "need %d bytes at offset %d, have %d", n, b.head, b.tail-b.head)
		return nil
	}
	p := b.data[b.head : b.head+n : b.head+n]
	b.head += n
	return p
}

// Skip advances the head by n bytes.
func (b *Buf) Skip(n int) {
	b.take(n)
}

// ReadUint8 reads one byte from the head.
func (b *Buf) ReadUint8() byte {
	p := b.take(1)
	if p == nil {
		return 0
	}
	return p[0]
}

// ReadBytes returns the next n bytes without copying them. The returned
// slice aliases the underlying data.
func (b *Buf) ReadBytes(n int) []byte {
	return b.take(n)
}

// ReadUint32 reads a 4-byte unsigned integer.
func (b *Buf) ReadUint32() uint32 {
	p := b.take(4)
	if p == nil {
		return 0
	}
	return b.order.Uint32(p)
}

// ReadUint64 reads an 8-byte unsigned integer.
func (b *Buf) ReadUint64() uint64 {
	p := b.take(8)
	if p == nil {
		return 0
	}
	return b.order.Uint64(p)
}

// ReadInt reads a 4-byte signed integer.
func (b *Buf) ReadInt() int32 {
	return int32(b.ReadUint32())
}

// ReadLong reads an 8-byte signed integer.
func (b *Buf) ReadLong() int64 {
	return int64(b.ReadUint64())
}

// ReadFloat reads a 4-byte IEEE 754 float.
func (b *Buf) ReadFloat() float32 {
	return math.Float32frombits(b.ReadUint32())
}

// ReadDouble reads an 8-byte IEEE 754 float.
func (b *Buf) ReadDouble() float64 {
	return math.Float64frombits(b.ReadUint64())
}

// ReverseRead consumes one byte from the tail.
func (b *Buf) ReverseRead() byte {
	if b.err != nil {
		return 0
	}
	if b.tail <= b.head {
		b.err = errors.Wrapf(ErrOutOfRange, "reverse read at offset %d", b.tail)
		return 0
	}
	b.tail--
	return b.data[b.tail]
}

// ReverseSkip moves the tail back by n bytes.
func (b *Buf) ReverseSkip(n int) {
	if b.err != nil {
		return
	}
	if n < 0 || n > b.tail-b.head {
		b.err = errors.Wrapf(ErrOutOfRange, "reverse skip %d at offset %d", n, b.tail)
		return
	}
	b.tail -= n
}

// ReversePeek returns the byte before the tail without consuming it. It
// returns 0 if nothing is left.
func (b *Buf) ReversePeek() byte {
	if b.tail <= b.head {
		return 0
	}
	return b.data[b.tail-1]
}
