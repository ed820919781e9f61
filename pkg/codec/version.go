package codec

import (
	"github.com/cockroachdb/errors"
	"github.com/ssargent/tablekv/pkg/buf"
)

var (
	// ErrIdentityMismatch is returned when a key's common id does not match
	// the decoder's, i.e. the record belongs to another table.
	ErrIdentityMismatch = errors.New("codec: common id mismatch")
	// ErrUnsupportedCodecVersion is returned when a key was written by a newer
	// codec than the decoder supports.
	ErrUnsupportedCodecVersion = errors.New("codec: unsupported codec version")
	// ErrUnsupportedSchemaVersion is returned when a value was written by a
	// newer schema than the decoder's.
	ErrUnsupportedSchemaVersion = errors.New("codec: unsupported schema version")
	// ErrCorruptRecord is returned when a key or value is shorter than its
	// contents require.
	ErrCorruptRecord = errors.New("codec: corrupt record")
)

// kindError attaches a sentinel kind to an underlying cause. errors.Is
// matches both the kind and anything in the cause chain.
type kindError struct {
	kind  error
	where string
	cause error
}

func newKindError(kind error, where string, cause error) error {
	return &kindError{kind: kind, where: where, cause: cause}
}

func corrupt(where string, cause error) error {
	return newKindError(ErrCorruptRecord, where, cause)
}

func (e *kindError) Error() string {
	if e.where == "" {
		return e.kind.Error() + ": " + e.cause.Error()
	}
	return e.kind.Error() + ": " + e.where + ": " + e.cause.Error()
}

func (e *kindError) Is(target error) bool { return target == e.kind }

func (e *kindError) Unwrap() error { return e.cause }

// PeekCodecVersion returns the codec version stored in the last byte of key.
// It does not validate the rest of the key.
func PeekCodecVersion(key []byte) (uint8, error) {
	var b buf.Buf
	b.Init(key, nil)
	if b.IsEnd() {
		return 0, errors.Wrap(ErrCorruptRecord, "empty key")
	}
	return b.ReversePeek(), nil
}

// checkPrefix skips the namespace byte and compares the common id.
func (c *Config) checkPrefix(b *buf.Buf) error {
	b.Skip(1)
	id := b.ReadLong()
	if err := b.Err(); err != nil {
		return corrupt("key prefix", err)
	}
	if id != c.CommonID {
		return errors.Wrapf(ErrIdentityMismatch, "key has %d, want %d", id, c.CommonID)
	}
	return nil
}

// checkReverseTag reads the codec version from the key trailer and drops the
// reserved bytes in front of it.
func (c *Config) checkReverseTag(b *buf.Buf) error {
	v := b.ReverseRead()
	if v > c.CodecVersion {
		return errors.Wrapf(ErrUnsupportedCodecVersion, "key has %d, max %d", v, c.CodecVersion)
	}
	b.ReverseSkip(keyTrailerLen - 1)
	if err := b.Err(); err != nil {
		return corrupt("key trailer", err)
	}
	return nil
}

func (c *Config) checkSchemaVersion(b *buf.Buf) error {
	v := b.ReadInt()
	if err := b.Err(); err != nil {
		return corrupt("value prefix", err)
	}
	if v > c.SchemaVersion {
		return errors.Wrapf(ErrUnsupportedSchemaVersion, "value has %d, max %d", v, c.SchemaVersion)
	}
	return nil
}

// checkKey runs the identity and codec version checks, in that order.
func (c *Config) checkKey(b *buf.Buf) error {
	if err := c.checkPrefix(b); err != nil {
		return err
	}
	return c.checkReverseTag(b)
}

// corruption reports an out-of-range read in either buffer after the
// columns were walked.
func corruption(key, value *buf.Buf) error {
	if err := key.Err(); err != nil {
		return corrupt("key columns", err)
	}
	if err := value.Err(); err != nil {
		return corrupt("value columns", err)
	}
	return nil
}
