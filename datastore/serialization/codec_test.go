package serialization

import (
	"strings"
	"testing"

	"github.com/jmt-lab/bottlerocket/datastore"
	"github.com/stretchr/testify/require"
)

func TestMarshalValue(t *testing.T) {
	var testCases = []struct {
		value datastore.Value
		out   string
	}{
		{"bottlerocket", "\"bottlerocket\"\n"},
		{"true", "\"true\"\n"},
		{"line\nbreak", "\"line\\nbreak\"\n"},
		{"x\x7fy", "\"x\\x7fy\"\n"},
		{"x\u0085y", "\"x\\u0085y\"\n"},
		{"x\uffffy", "\"x\\uffffy\"\n"},
		{int64(-42), "-42\n"},
		{true, "true\n"},
		{1.0, "1.0\n"},
		{0.25, "0.25\n"},
		{1e21, "1e+21\n"},
		{[]interface{}{"x", int64(1)}, "- \"x\"\n- 1\n"},
		{[]interface{}{}, "[]\n"},
	}

	for _, tc := range testCases {
		data, err := MarshalValue(tc.value)
		require.NoError(t, err)
		require.Equal(t, tc.out, string(data))
	}
}

func TestMarshalValue_Invalid(t *testing.T) {
	_, err := MarshalValue([]interface{}{[]interface{}{}})
	require.EqualError(t, err, "serialization failed: list element #0: nested list is not supported")
}

func TestUnmarshalValue_RoundTrip(t *testing.T) {
	values := []datastore.Value{
		"bottlerocket",
		"",
		"123",
		"null",
		"- dash",
		"<tag> & \"quotes\" é",
		"x\x7fy",
		"x\u0085y",
		"x\uffffy",
		"x\u2028y\ufeff",
		"bell\a\x00\x1b",
		"tab\tand\\backslash",
		"emoji \U0001F600",
		int64(0),
		int64(9223372036854775807),
		int64(-9223372036854775808),
		-0.5,
		1.0,
		1e21,
		1e-7,
		true,
		false,
		[]interface{}{},
		[]interface{}{"a", int64(2), 3.5, false},
	}

	for _, value := range values {
		data, err := MarshalValue(value)
		require.NoError(t, err)

		back, err := UnmarshalValue(data)
		require.NoError(t, err, string(data))
		require.Equal(t, value, back, string(data))
	}
}

func TestUnmarshalValue_Corrupted(t *testing.T) {
	_, err := UnmarshalValue([]byte("  \n"))
	require.EqualError(t, err, "empty value")

	_, err = UnmarshalValue([]byte("a: b\n"))
	require.EqualError(t, err,
		"unexpected value: serialization failed: unsupported type map[interface {}]interface {}")

	_, err = UnmarshalValue([]byte("- [1]\n"))
	require.EqualError(t, err,
		"unexpected value: serialization failed: list element #0: nested list is not supported")

	_, err = UnmarshalValue([]byte("\"unterminated\n"))
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "failed to decode: "))
}
