package datastore

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeValue(t *testing.T) {
	var testCases = []struct {
		in  interface{}
		out Value
	}{
		{"a", "a"},
		{true, true},
		{int(1), int64(1)},
		{int8(-2), int64(-2)},
		{uint16(3), int64(3)},
		{uint64(4), int64(4)},
		{float32(0.5), float64(0.5)},
		{1.25, 1.25},
		{json.Number("12"), int64(12)},
		{json.Number("1.5"), 1.5},
		{[]interface{}{"x", 2}, []interface{}{"x", int64(2)}},
		{[]interface{}{}, []interface{}{}},
	}

	for _, tc := range testCases {
		out, err := NormalizeValue(tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.out, out)
	}
}

func TestNormalizeValue_Rejected(t *testing.T) {
	var testCases = []struct {
		in  interface{}
		err string
	}{
		{nil, "serialization failed: null is not a valid value"},
		{map[string]interface{}{}, "serialization failed: nested object is not supported"},
		{[]interface{}{map[string]interface{}{"x": 1}},
			"serialization failed: list element #0: nested object is not supported"},
		{[]interface{}{"a", []interface{}{"b"}},
			"serialization failed: list element #1: nested list is not supported"},
		{math.NaN(), "serialization failed: float NaN is not supported"},
		{math.Inf(1), "serialization failed: float +Inf is not supported"},
		{uint64(math.MaxUint64), "serialization failed: integer 18446744073709551615 overflows"},
		{string([]byte{0xff}), "serialization failed: string is not valid UTF-8"},
		{struct{}{}, "serialization failed: unsupported type struct {}"},
		{json.Number("abc"), "serialization failed: invalid number 'abc'"},
	}

	for _, tc := range testCases {
		_, err := NormalizeValue(tc.in)
		require.EqualError(t, err, tc.err)
		require.Equal(t, KindSerialization, KindOf(err))
	}
}

func TestIsScalar(t *testing.T) {
	require.True(t, IsScalar("a"))
	require.True(t, IsScalar(int64(1)))
	require.False(t, IsScalar(1))
	require.False(t, IsScalar([]interface{}{}))
}

func TestCopyValue(t *testing.T) {
	list := []interface{}{"a"}
	clone := CopyValue(list).([]interface{})
	clone[0] = "b"

	require.Equal(t, "a", list[0])
	require.Equal(t, "x", CopyValue("x"))
}
