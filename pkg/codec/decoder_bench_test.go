//go:build bench
// +build bench

package codec

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ssargent/tablekv/pkg/schema"
)

// wideColumns returns a table of n columns: a long key followed by value
// columns cycling through string, long and double.
func wideColumns(n int) schema.Columns {
	columns := schema.Columns{schema.MustNew(schema.Long, "id", 0, true)}
	types := []schema.Type{schema.String, schema.Long, schema.Double}
	for i := 1; i < n; i++ {
		columns = append(columns, schema.MustNew(types[i%len(types)], fmt.Sprintf("c%d", i), i, false))
	}
	return columns
}

func wideRow(n int) Row {
	row := Row{int64(1)}
	for i := 1; i < n; i++ {
		switch i % 3 {
		case 0:
			row = append(row, strings.Repeat("x", 24))
		case 1:
			row = append(row, int64(i))
		default:
			row = append(row, float64(i)/3)
		}
	}
	return row
}

func BenchmarkRecordDecoder(b *testing.B) {
	for _, width := range []int{8, 32, 128} {
		enc, dec := newTestCodec(b, 1, wideColumns(width))
		kv, err := enc.Encode(wideRow(width))
		if err != nil {
			b.Fatal(err)
		}

		b.Run(fmt.Sprintf("Decode/%d", width), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(kv.Key) + len(kv.Value)))
			var dst Row
			for i := 0; i < b.N; i++ {
				if dst, err = dec.DecodeKeyValue(kv, dst); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run(fmt.Sprintf("DecodeColumns/first/%d", width), func(b *testing.B) {
			b.ReportAllocs()
			var dst Row
			wanted := []int{1}
			for i := 0; i < b.N; i++ {
				if dst, err = dec.DecodeColumnsKeyValue(kv, wanted, dst); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run(fmt.Sprintf("DecodeColumns/last/%d", width), func(b *testing.B) {
			b.ReportAllocs()
			var dst Row
			wanted := []int{width - 1}
			for i := 0; i < b.N; i++ {
				if dst, err = dec.DecodeColumnsKeyValue(kv, wanted, dst); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run(fmt.Sprintf("DecodeKey/%d", width), func(b *testing.B) {
			b.ReportAllocs()
			var dst Row
			for i := 0; i < b.N; i++ {
				if dst, err = dec.DecodeKey(kv.Key, dst); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRecordEncoder_Encode(b *testing.B) {
	enc, _ := newTestCodec(b, 1, wideColumns(32))
	row := wideRow(32)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := enc.Encode(row); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPeekCodecVersion(b *testing.B) {
	enc, _ := newTestCodec(b, 1, wideColumns(8))
	kv, _ := enc.Encode(wideRow(8))
	for i := 0; i < b.N; i++ {
		_, _ = PeekCodecVersion(kv.Key)
	}
}
