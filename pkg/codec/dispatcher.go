package codec

import (
	"maps"

	"github.com/cockroachdb/errors"
)

// Decoder is implemented by each codec version's record decoder.
type Decoder interface {
	Decode(key, value []byte, dst Row) (Row, error)
	DecodeKey(key []byte, dst Row) (Row, error)
	DecodeColumns(key, value []byte, wanted []int, dst Row) (Row, error)
}

var _ Decoder = (*RecordDecoder)(nil)

// Dispatcher routes a record to the decoder registered for the codec
// version in its key trailer.
type Dispatcher struct {
	decoders map[uint8]Decoder
}

// NewDispatcher returns a dispatcher over the given version to decoder map.
func NewDispatcher(decoders map[uint8]Decoder) *Dispatcher {
	return &Dispatcher{decoders: maps.Clone(decoders)}
}

// For returns the decoder for key's codec version.
func (d *Dispatcher) For(key []byte) (Decoder, error) {
	v, err := PeekCodecVersion(key)
	if err != nil {
		return nil, err
	}
	dec, ok := d.decoders[v]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedCodecVersion, "no decoder for version %d", v)
	}
	return dec, nil
}

// Decode decodes a full record with the matching decoder.
func (d *Dispatcher) Decode(key, value []byte, dst Row) (Row, error) {
	dec, err := d.For(key)
	if err != nil {
		return nil, err
	}
	return dec.Decode(key, value, dst)
}

// DecodeKey decodes the key columns with the matching decoder.
func (d *Dispatcher) DecodeKey(key []byte, dst Row) (Row, error) {
	dec, err := d.For(key)
	if err != nil {
		return nil, err
	}
	return dec.DecodeKey(key, dst)
}

// DecodeColumns decodes a projection with the matching decoder.
func (d *Dispatcher) DecodeColumns(key, value []byte, wanted []int, dst Row) (Row, error) {
	dec, err := d.For(key)
	if err != nil {
		return nil, err
	}
	return dec.DecodeColumns(key, value, wanted, dst)
}
