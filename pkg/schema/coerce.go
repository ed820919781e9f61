package schema

import (
	"encoding/json"
	"math"

	"github.com/cockroachdb/errors"
)

// ErrCoerce is returned when a value cannot be converted to a column type.
var ErrCoerce = errors.New("schema: cannot coerce value")

// Coerce converts a value decoded from JSON (bool, float64, json.Number,
// string, []any or nil) into the Go type of t. Values already of the target
// type are returned as is.
func Coerce(t Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case Bool:
		return coerceBool(v)
	case Integer:
		n, err := coerceInt(v, math.MinInt32, math.MaxInt32)
		return int32(n), err
	case Long:
		return coerceInt(v, math.MinInt64, math.MaxInt64)
	case Float:
		f, err := coerceFloat(v)
		return float32(f), err
	case Double:
		return coerceFloat(v)
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, errors.Wrapf(ErrCoerce, "%T to %s", v, t)
		}
		return s, nil
	case BoolList:
		return coerceList(t, v, coerceBool)
	case IntegerList:
		return coerceList(t, v, func(e any) (int32, error) {
			n, err := coerceInt(e, math.MinInt32, math.MaxInt32)
			return int32(n), err
		})
	case LongList:
		return coerceList(t, v, func(e any) (int64, error) {
			return coerceInt(e, math.MinInt64, math.MaxInt64)
		})
	case FloatList:
		return coerceList(t, v, func(e any) (float32, error) {
			f, err := coerceFloat(e)
			return float32(f), err
		})
	case DoubleList:
		return coerceList(t, v, coerceFloat)
	case StringList:
		return coerceList(t, v, func(e any) (string, error) {
			s, ok := e.(string)
			if !ok {
				return "", errors.Wrapf(ErrCoerce, "%T to string", e)
			}
			return s, nil
		})
	}
	return nil, errors.Wrapf(ErrInvalidColumn, "unknown type %d", uint8(t))
}

func coerceBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.Wrapf(ErrCoerce, "%T to bool", v)
	}
	return b, nil
}

func coerceInt(v any, lo, hi int64) (int64, error) {
	var n int64
	switch x := v.(type) {
	case int32:
		n = int64(x)
	case int64:
		n = x
	case int:
		n = int64(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, errors.Wrapf(ErrCoerce, "%q is not an integer", x)
		}
		n = i
	case float64:
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, errors.Wrapf(ErrCoerce, "%v is not an integer", x)
		}
		n = int64(x)
	default:
		return 0, errors.Wrapf(ErrCoerce, "%T to integer", v)
	}
	if n < lo || n > hi {
		return 0, errors.Wrapf(ErrCoerce, "%d out of range", n)
	}
	return n, nil
}

func coerceFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, errors.Wrapf(ErrCoerce, "%q is not a number", x)
		}
		return f, nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	}
	return 0, errors.Wrapf(ErrCoerce, "%T to float", v)
}

func coerceList[E any](t Type, v any, elem func(any) (E, error)) ([]E, error) {
	if l, ok := v.([]E); ok {
		return l, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, errors.Wrapf(ErrCoerce, "%T to %s", v, t)
	}
	out := make([]E, len(items))
	for i, item := range items {
		e, err := elem(item)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		out[i] = e
	}
	return out, nil
}
