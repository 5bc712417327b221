package datastore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"golang.org/x/xerrors"
)

// Value is a setting value. Once normalized it is one of string, int64,
// float64, bool, or a []interface{} holding only those scalars.
type Value = interface{}

// NormalizeValue checks the shape of the value and converts it to its
// canonical representation. Nested structures under a list are rejected.
func NormalizeValue(v interface{}) (Value, error) {
	list, ok := v.([]interface{})
	if !ok {
		scalar, err := normalizeScalar(v)
		if err != nil {
			return nil, NewSerialization(err.Error(), nil)
		}

		return scalar, nil
	}

	out := make([]interface{}, len(list))
	for i, elem := range list {
		scalar, err := normalizeScalar(elem)
		if err != nil {
			return nil, NewSerialization(fmt.Sprintf("list element #%d: %v", i, err), nil)
		}

		out[i] = scalar
	}

	return out, nil
}

// IsScalar returns true if the value is a scalar in its canonical form.
func IsScalar(v Value) bool {
	switch v.(type) {
	case string, int64, float64, bool:
		return true
	default:
		return false
	}
}

func normalizeScalar(v interface{}) (Value, error) {
	switch e := v.(type) {
	case string:
		if !utf8.ValidString(e) {
			return nil, xerrors.New("string is not valid UTF-8")
		}
		return e, nil
	case bool:
		return e, nil
	case int:
		return int64(e), nil
	case int8:
		return int64(e), nil
	case int16:
		return int64(e), nil
	case int32:
		return int64(e), nil
	case int64:
		return e, nil
	case uint:
		return normalizeUint(uint64(e))
	case uint8:
		return int64(e), nil
	case uint16:
		return int64(e), nil
	case uint32:
		return int64(e), nil
	case uint64:
		return normalizeUint(e)
	case float32:
		return normalizeFloat(float64(e))
	case float64:
		return normalizeFloat(e)
	case json.Number:
		return normalizeNumber(e)
	case nil:
		return nil, xerrors.New("null is not a valid value")
	case []interface{}:
		return nil, xerrors.New("nested list is not supported")
	case map[string]interface{}:
		return nil, xerrors.New("nested object is not supported")
	default:
		return nil, xerrors.Errorf("unsupported type %T", v)
	}
}

func normalizeUint(v uint64) (Value, error) {
	if v > math.MaxInt64 {
		return nil, xerrors.Errorf("integer %d overflows", v)
	}

	return int64(v), nil
}

func normalizeFloat(v float64) (Value, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, xerrors.Errorf("float %v is not supported", v)
	}

	return v, nil
}

func normalizeNumber(n json.Number) (Value, error) {
	i, err := strconv.ParseInt(n.String(), 10, 64)
	if err == nil {
		return i, nil
	}

	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return nil, xerrors.Errorf("invalid number '%s'", n)
	}

	return normalizeFloat(f)
}

// CopyValue returns a copy of a normalized value that shares no memory with
// the original.
func CopyValue(v Value) Value {
	list, ok := v.([]interface{})
	if !ok {
		return v
	}

	out := make([]interface{}, len(list))
	copy(out, list)

	return out
}
