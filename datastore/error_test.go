package datastore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestError_Error(t *testing.T) {
	require.EqualError(t, NewKeyNotFound("a.b"), "key 'a.b' not found")
	require.EqualError(t, NewInvalidKey("a..b", "empty segment"),
		"invalid key 'a..b': empty segment")
	require.EqualError(t, NewSerialization("oops", nil), "serialization failed: oops")
	require.EqualError(t, &Error{Kind: KindSerialization, Key: "a", Msg: "oops"},
		"serialization failed for key 'a': oops")
	require.EqualError(t, NewIO("read", "/tmp/a", os.ErrNotExist),
		"failed to read '/tmp/a': file does not exist")
	require.EqualError(t, NewCorruption("/tmp/a", "bad"), "corrupted data in '/tmp/a': bad")
	require.EqualError(t, &Error{Msg: "plain"}, "plain")
}

func TestError_Is(t *testing.T) {
	err := NewKeyNotFound("a")

	require.True(t, xerrors.Is(err, ErrKeyNotFound))
	require.True(t, xerrors.Is(err, NewKeyNotFound("a")))
	require.False(t, xerrors.Is(err, NewKeyNotFound("b")))
	require.False(t, xerrors.Is(err, ErrIO))
	require.False(t, xerrors.Is(err, os.ErrNotExist))

	wrapped := xerrors.Errorf("context: %w", err)
	require.True(t, xerrors.Is(wrapped, ErrKeyNotFound))
	require.Equal(t, KindKeyNotFound, KindOf(wrapped))

	ioErr := NewIO("write", "/x", os.ErrPermission)
	require.True(t, xerrors.Is(ioErr, os.ErrPermission))
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(nil))
	require.Equal(t, KindUnknown, KindOf(xerrors.New("oops")))
	require.Equal(t, KindCorruption, KindOf(NewCorruption("", "")))
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "io", KindIO.String())
	require.Equal(t, "key not found", KindKeyNotFound.String())
	require.Equal(t, "kind(42)", Kind(42).String())
}
