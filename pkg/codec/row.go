package codec

import (
	"fmt"
	"slices"
	"strings"
)

// Row is a decoded record. A slot holds nil for a null, missing or skipped
// column, and otherwise a value of the column's Go type:
//
//	bool, int32, float32, int64, float64, string,
//	[]bool, []int32, []float32, []int64, []float64, []string
type Row []any

// KeyValue is an encoded record.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// resize returns a row of n nil slots, reusing dst when it is large enough.
func resize(dst Row, n int) Row {
	if cap(dst) < n {
		return make(Row, n)
	}
	dst = dst[:n]
	clear(dst)
	return dst
}

// copyValue returns v with list values copied, so two slots never share a
// backing array.
func copyValue(v any) any {
	switch l := v.(type) {
	case []bool:
		return slices.Clone(l)
	case []int32:
		return slices.Clone(l)
	case []float32:
		return slices.Clone(l)
	case []int64:
		return slices.Clone(l)
	case []float64:
		return slices.Clone(l)
	case []string:
		return slices.Clone(l)
	}
	return v
}

func (r Row) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range r {
		if i > 0 {
			sb.WriteString(", ")
		}
		if v == nil {
			sb.WriteString("NULL")
			continue
		}
		if s, ok := v.(string); ok {
			fmt.Fprintf(&sb, "%q", s)
			continue
		}
		fmt.Fprint(&sb, v)
	}
	sb.WriteByte(']')
	return sb.String()
}
