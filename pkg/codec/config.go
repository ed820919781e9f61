package codec

import "encoding/binary"

const (
	// DefaultCodecVersion is the codec version written by RecordEncoder and
	// accepted by RecordDecoder unless configured otherwise.
	DefaultCodecVersion uint8 = 1
	// DefaultNamespace is the namespace byte that prefixes record keys.
	DefaultNamespace byte = 'r'

	// namespace + common id
	keyPrefixLen = 1 + 8
	// reserved + codec version
	keyTrailerLen = 3 + 1
	// schema version
	valuePrefixLen = 4
)

// Config holds the settings shared by every record a codec reads or writes.
type Config struct {
	SchemaVersion int32
	CommonID      int64
	CodecVersion  uint8
	ByteOrder     binary.ByteOrder
	Namespace     byte
}

// Option configures a RecordDecoder or RecordEncoder.
type Option func(*Config)

// WithByteOrder sets the byte order of every multi-byte field. The default
// is big-endian.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(c *Config) {
		if order != nil {
			c.ByteOrder = order
		}
	}
}

// WithCodecVersion sets the codec version. A decoder accepts keys whose
// version is less than or equal to it.
func WithCodecVersion(v uint8) Option {
	return func(c *Config) { c.CodecVersion = v }
}

// WithNamespace sets the namespace byte written at the start of keys.
func WithNamespace(ns byte) Option {
	return func(c *Config) { c.Namespace = ns }
}

func newConfig(schemaVersion int32, commonID int64, opts []Option) Config {
	cfg := Config{
		SchemaVersion: schemaVersion,
		CommonID:      commonID,
		CodecVersion:  DefaultCodecVersion,
		ByteOrder:     binary.BigEndian,
		Namespace:     DefaultNamespace,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
