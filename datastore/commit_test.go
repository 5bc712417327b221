package datastore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParcel_Metadata(t *testing.T) {
	parcel := NewParcel()
	require.True(t, parcel.IsEmpty())

	parcel.SetMetadata(DefaultsMetadata, MustKey(DataKey, "a.b"), true)
	require.False(t, parcel.IsEmpty())
	require.Empty(t, parcel.Keys(""))
	require.Equal(t, map[Key]KeySet{
		MustKey(DataKey, "a.b"): NewKeySet(DefaultsMetadata),
	}, parcel.MetadataKeys("a"))
	require.Empty(t, parcel.MetadataKeys("b"))

	parcel.DeleteMetadata(DefaultsMetadata, MustKey(DataKey, "a.b"))
	require.True(t, parcel.IsEmpty())

	parcel.DeleteMetadata(DefaultsMetadata, MustKey(DataKey, "unknown"))
	require.True(t, parcel.IsEmpty())
}

func TestParcel_Clone(t *testing.T) {
	parcel := NewParcel()
	parcel.Data[MustKey(DataKey, "a")] = []interface{}{"x"}
	parcel.SetMetadata(DefaultsMetadata, MustKey(DataKey, "a"), false)

	clone := parcel.Clone()
	require.Equal(t, parcel, clone)

	clone.Data[MustKey(DataKey, "a")].([]interface{})[0] = "y"
	require.Equal(t, []interface{}{"x"}, parcel.Data[MustKey(DataKey, "a")])
}

func TestMergePending(t *testing.T) {
	live := NewParcel()
	live.Data[MustKey(DataKey, "a")] = "old"
	live.Data[MustKey(DataKey, "b")] = "untouched"
	live.Data[MustKey(DataKey, "c")] = "scalar"
	live.Data[MustKey(DataKey, "d.e")] = "object"
	live.SetMetadata(DefaultsMetadata, MustKey(DataKey, "b"), true)

	pending := NewParcel()
	pending.Data[MustKey(DataKey, "a")] = "new"
	pending.Data[MustKey(DataKey, "c.x")] = int64(1)
	pending.Data[MustKey(DataKey, "d")] = int64(2)
	pending.SetMetadata(DefaultsMetadata, MustKey(DataKey, "a"), false)
	pending.SetMetadata(DefaultsMetadata, MustKey(DataKey, "z"), true)

	merged, committed := MergePending(live, pending)

	require.Equal(t, []string{"a", "c.x", "d"}, committed.Names())
	require.Equal(t, map[Key]Value{
		MustKey(DataKey, "a"):   "new",
		MustKey(DataKey, "b"):   "untouched",
		MustKey(DataKey, "c.x"): int64(1),
		MustKey(DataKey, "d"):   int64(2),
	}, merged.Data)
	require.Equal(t, map[Key]KeySet{
		MustKey(DataKey, "a"): NewKeySet(DefaultsMetadata),
		MustKey(DataKey, "b"): NewKeySet(DefaultsMetadata),
		MustKey(DataKey, "z"): NewKeySet(DefaultsMetadata),
	}, merged.MetadataKeys(""))

	// The live parcel is not modified.
	require.Equal(t, "old", live.Data[MustKey(DataKey, "a")])
	require.Len(t, live.Data, 4)
}

func TestMergePending_Empty(t *testing.T) {
	live := NewParcel()
	live.Data[MustKey(DataKey, "a")] = "x"

	merged, committed := MergePending(live, NewParcel())
	require.Empty(t, committed)
	require.Equal(t, live, merged)
}
