package schema

import "github.com/ssargent/tablekv/pkg/buf"

// String keys are split into 8-byte groups, each followed by a marker byte.
// A full group that is not the last one has marker 255. The last group is
// zero padded and its marker is 255 minus the padding length, so an empty
// string is one group of padding with marker 247.
const (
	groupSize   = 8
	groupMarker = 0xff
)

var zeroGroup [groupSize]byte

type stringCodec struct{ column }

func (c *stringCodec) DecodeKey(b *buf.Buf) (string, bool) {
	if !readFlag(b) {
		return "", false
	}
	var out []byte
	for {
		group := b.ReadBytes(groupSize)
		marker := b.ReadUint8()
		if b.Err() != nil {
			return "", true
		}
		if marker == groupMarker {
			out = append(out, group...)
			continue
		}
		pad := int(groupMarker - marker)
		if pad > groupSize {
			pad = groupSize
		}
		out = append(out, group[:groupSize-pad]...)
		return string(out), true
	}
}

func (c *stringCodec) SkipKey(b *buf.Buf) {
	if !readFlag(b) {
		return
	}
	for {
		b.Skip(groupSize)
		if b.ReadUint8() != groupMarker || b.Err() != nil {
			return
		}
	}
}

func (c *stringCodec) DecodeValue(b *buf.Buf) (string, bool) {
	if !readFlag(b) {
		return "", false
	}
	return readString(b), true
}

func (c *stringCodec) SkipValue(b *buf.Buf) {
	if readFlag(b) {
		skipString(b)
	}
}

func (c *stringCodec) EncodeKey(w *buf.Writer, v string, ok bool) {
	writeFlag(w, ok)
	if !ok {
		return
	}
	for i := 0; ; i += groupSize {
		remain := len(v) - i
		if remain >= groupSize {
			w.WriteString(v[i : i+groupSize])
			w.WriteUint8(groupMarker)
			continue
		}
		w.WriteString(v[i:])
		w.WriteBytes(zeroGroup[:groupSize-remain])
		w.WriteUint8(byte(groupMarker - (groupSize - remain)))
		return
	}
}

func (c *stringCodec) EncodeValue(w *buf.Writer, v string, ok bool) {
	writeFlag(w, ok)
	if ok {
		writeString(w, v)
	}
}

func readString(b *buf.Buf) string {
	n := b.ReadUint32()
	return string(b.ReadBytes(int(n)))
}

func skipString(b *buf.Buf) {
	n := b.ReadUint32()
	b.Skip(int(n))
}

func writeString(w *buf.Writer, v string) {
	w.WriteUint32(uint32(len(v)))
	w.WriteString(v)
}
