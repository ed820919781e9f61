// Package codec decodes table records stored in a key-value engine back into
// typed rows.
//
// A record is a pair of byte strings: the key holds the table identity, the
// key columns and a version trailer; the value holds the schema version and
// the value columns. RecordDecoder validates both strings and then walks the
// table's columns once, in physical order, decoding or skipping each one.
//
// # Record Format
//
// Keys are laid out as:
//
//	[Namespace(1)][CommonID(8)][key columns...][Reserved(3)][CodecVersion(1)]
//
// Values are laid out as:
//
//	[SchemaVersion(4)][value columns...]
//
// Multi-byte integers use the byte order the codec was configured with. The
// namespace byte is not checked. The trailer is read from the end of the key
// because key columns have variable length, so the end of the key is the only
// position known without parsing them.
//
// # Version Checks
//
// Before any column is read, the decoder checks that:
//   - the key's CommonID equals the decoder's (ErrIdentityMismatch)
//   - the key's codec version is not newer than the decoder's
//     (ErrUnsupportedCodecVersion)
//   - the value's schema version is not newer than the decoder's
//     (ErrUnsupportedSchemaVersion)
//
// Records written by an older schema remain readable. Columns appended to
// the schema after a record was written are missing from its value, and
// decode to nil.
//
// # Decode Modes
//
//	row, err := dec.Decode(key, value, nil)              // every column
//	row, err := dec.DecodeKey(key, nil)                  // key columns only
//	row, err := dec.DecodeColumns(key, value, pos, nil)  // a projection
//
// Decode and DecodeKey return rows with one slot per schema entry, addressed
// by logical column index. DecodeColumns returns one slot per requested
// position; positions count the physical order of present (not dropped)
// columns. PhysicalPositions converts logical indexes to those positions.
//
// Projected decoding still has to walk every column up to the last requested
// one, since a column's offset is only known after its predecessors are
// parsed. Unwanted columns are skipped without being materialized, and the
// walk stops as soon as the last requested column is decoded.
//
// Every decode method takes a destination row that is reused when it has
// enough capacity.
//
// # Thread Safety
//
// RecordDecoder and RecordEncoder are immutable after construction and safe
// for concurrent use. Rows and byte strings passed to them belong to the
// caller and are not retained, although decoded strings and lists are copies
// and never alias the input.
package codec
