// Package suite provides the behaviour every data store backend must share.
// The memory backend is the reference, and the other backends run the same
// scenarios to prove they are equivalent.
package suite

import (
	"testing"

	"github.com/jmt-lab/bottlerocket/datastore"
	"github.com/jmt-lab/bottlerocket/datastore/serialization"
	"github.com/stretchr/testify/require"
)

// Factory returns a new empty data store. It is called once per scenario.
type Factory func(t *testing.T) datastore.DataStore

// Run executes every scenario against the stores created by the factory.
func Run(t *testing.T, factory Factory) {
	scenarios := []struct {
		name string
		fn   func(*testing.T, datastore.DataStore)
	}{
		{"UnknownKey", testUnknownKey},
		{"SetCommitRead", testSetCommitRead},
		{"Isolation", testIsolation},
		{"EmptyCommit", testEmptyCommit},
		{"Overwrite", testOverwrite},
		{"StructureChange", testStructureChange},
		{"ListPrefix", testListPrefix},
		{"ValueTypes", testValueTypes},
		{"OwnedCopies", testOwnedCopies},
		{"InvalidInput", testInvalidInput},
		{"MetadataIndependence", testMetadataIndependence},
		{"MetadataCommit", testMetadataCommit},
		{"Provenance", testProvenance},
		{"Delete", testDelete},
		{"DeletePending", testDeletePending},
		{"TreeBoundary", testTreeBoundary},
	}

	for _, scenario := range scenarios {
		scenario := scenario

		t.Run(scenario.name, func(t *testing.T) {
			scenario.fn(t, factory(t))
		})
	}
}

func key(name string) datastore.Key {
	return datastore.MustKey(datastore.DataKey, name)
}

func meta(name string) datastore.Key {
	return datastore.MustKey(datastore.MetaKey, name)
}

func testUnknownKey(t *testing.T, store datastore.DataStore) {
	_, err := store.GetKey(key("nonexistent.key"), datastore.Live)
	require.EqualError(t, err, "key 'nonexistent.key' not found")
	require.Equal(t, datastore.KindKeyNotFound, datastore.KindOf(err))

	_, err = store.GetKey(key("nonexistent.key"), datastore.Pending)
	require.Equal(t, datastore.KindKeyNotFound, datastore.KindOf(err))

	keys, err := store.ListPopulatedKeys("", datastore.Pending)
	require.NoError(t, err)
	require.Empty(t, keys)

	metadata, err := store.ListPopulatedMetadata("", datastore.Live)
	require.NoError(t, err)
	require.Empty(t, metadata)
}

func testSetCommitRead(t *testing.T, store datastore.DataStore) {
	err := store.SetKeys(map[datastore.Key]datastore.Value{
		key("network.hostname"): "bottlerocket",
	}, datastore.Pending)
	require.NoError(t, err)

	committed, err := store.Commit()
	require.NoError(t, err)
	require.Equal(t, datastore.NewKeySet(key("network.hostname")), committed)

	value, err := store.GetKey(key("network.hostname"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, "bottlerocket", value)

	keys, err := store.ListPopulatedKeys("", datastore.Pending)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func testIsolation(t *testing.T, store datastore.DataStore) {
	err := store.SetKeys(map[datastore.Key]datastore.Value{
		key("a.b"): "live",
	}, datastore.Live)
	require.NoError(t, err)

	err = store.SetKeys(map[datastore.Key]datastore.Value{
		key("a.b"): "pending",
		key("a.c"): "new",
	}, datastore.Pending)
	require.NoError(t, err)

	value, err := store.GetKey(key("a.b"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, "live", value)

	_, err = store.GetKey(key("a.c"), datastore.Live)
	require.Equal(t, datastore.KindKeyNotFound, datastore.KindOf(err))

	value, err = store.GetKey(key("a.b"), datastore.Pending)
	require.NoError(t, err)
	require.Equal(t, "pending", value)

	keys, err := store.ListPopulatedKeys("", datastore.Live)
	require.NoError(t, err)
	require.Equal(t, []string{"a.b"}, keys.Names())
}

func testEmptyCommit(t *testing.T, store datastore.DataStore) {
	err := store.SetKeys(map[datastore.Key]datastore.Value{
		key("a"): int64(1),
	}, datastore.Live)
	require.NoError(t, err)

	committed, err := store.Commit()
	require.NoError(t, err)
	require.Empty(t, committed)

	values, err := datastore.GetPrefix(store, "", datastore.Live)
	require.NoError(t, err)
	require.Equal(t, map[datastore.Key]datastore.Value{key("a"): int64(1)}, values)

	committed, err = store.Commit()
	require.NoError(t, err)
	require.Empty(t, committed)
}

func testOverwrite(t *testing.T, store datastore.DataStore) {
	err := store.SetKeys(map[datastore.Key]datastore.Value{
		key("list"):      []interface{}{"a", "b", "c"},
		key("untouched"): true,
	}, datastore.Pending)
	require.NoError(t, err)

	_, err = store.Commit()
	require.NoError(t, err)

	err = store.SetKeys(map[datastore.Key]datastore.Value{
		key("list"): []interface{}{"z"},
	}, datastore.Pending)
	require.NoError(t, err)

	committed, err := store.Commit()
	require.NoError(t, err)
	require.Equal(t, []string{"list"}, committed.Names())

	values, err := datastore.GetPrefix(store, "", datastore.Live)
	require.NoError(t, err)
	require.Equal(t, map[datastore.Key]datastore.Value{
		key("list"):      []interface{}{"z"},
		key("untouched"): true,
	}, values)
}

func testStructureChange(t *testing.T, store datastore.DataStore) {
	err := store.SetKeys(map[datastore.Key]datastore.Value{
		key("a.b"): "scalar",
		key("c.d"): "object",
		key("e"):   "untouched",
	}, datastore.Live)
	require.NoError(t, err)

	// Writing under a populated key of the same version is rejected.
	err = store.SetKeys(map[datastore.Key]datastore.Value{
		key("a.b.c"): int64(1),
	}, datastore.Live)
	require.Equal(t, datastore.KindSerialization, datastore.KindOf(err))

	err = store.SetKeys(map[datastore.Key]datastore.Value{
		key("a.b.c"): int64(1),
		key("c"):     int64(2),
	}, datastore.Pending)
	require.NoError(t, err)

	committed, err := store.Commit()
	require.NoError(t, err)
	require.Equal(t, []string{"a.b.c", "c"}, committed.Names())

	values, err := datastore.GetPrefix(store, "", datastore.Live)
	require.NoError(t, err)
	require.Equal(t, map[datastore.Key]datastore.Value{
		key("a.b.c"): int64(1),
		key("c"):     int64(2),
		key("e"):     "untouched",
	}, values)
}

func testListPrefix(t *testing.T, store datastore.DataStore) {
	err := store.SetKeys(map[datastore.Key]datastore.Value{
		key("settings.motd"):         "hi",
		key("settings.network.mtu"):  int64(1500),
		key("services.ntp.restart"):  true,
		key("settings-other.unused"): "x",
	}, datastore.Live)
	require.NoError(t, err)

	keys, err := store.ListPopulatedKeys("settings.", datastore.Live)
	require.NoError(t, err)
	require.Equal(t, []string{"settings.motd", "settings.network.mtu"}, keys.Names())

	keys, err = store.ListPopulatedKeys("se", datastore.Live)
	require.NoError(t, err)
	require.Len(t, keys, 4)

	keys, err = store.ListPopulatedKeys("nothing", datastore.Live)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func testValueTypes(t *testing.T, store datastore.DataStore) {
	err := store.SetKeys(map[datastore.Key]datastore.Value{
		key("s"):      "true",
		key("i"):      42,
		key("f"):      2.0,
		key("b"):      false,
		key("l"):      []interface{}{"x", 1, 1.5, true},
		key("empty"):  []interface{}{},
		key("del"):    "x\x7fy",
		key("nel"):    "x\u0085y",
		key("nonchr"): []interface{}{"x\uffffy"},
	}, datastore.Pending)
	require.NoError(t, err)

	_, err = store.Commit()
	require.NoError(t, err)

	values, err := datastore.GetPrefix(store, "", datastore.Live)
	require.NoError(t, err)
	require.Equal(t, map[datastore.Key]datastore.Value{
		key("s"):      "true",
		key("i"):      int64(42),
		key("f"):      2.0,
		key("b"):      false,
		key("l"):      []interface{}{"x", int64(1), 1.5, true},
		key("empty"):  []interface{}{},
		key("del"):    "x\x7fy",
		key("nel"):    "x\u0085y",
		key("nonchr"): []interface{}{"x\uffffy"},
	}, values)
}

func testOwnedCopies(t *testing.T, store datastore.DataStore) {
	input := []interface{}{"a", "b"}

	err := store.SetKeys(map[datastore.Key]datastore.Value{key("l"): input}, datastore.Live)
	require.NoError(t, err)

	input[0] = "changed"

	value, err := store.GetKey(key("l"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"a", "b"}, value)

	value.([]interface{})[1] = "changed"

	value, err = store.GetKey(key("l"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"a", "b"}, value)
}

func testInvalidInput(t *testing.T, store datastore.DataStore) {
	err := store.SetKeys(map[datastore.Key]datastore.Value{
		key("good"): "ok",
		key("bad"):  []interface{}{map[string]interface{}{"x": 1}},
	}, datastore.Pending)
	require.Equal(t, datastore.KindSerialization, datastore.KindOf(err))

	err = store.SetKeys(map[datastore.Key]datastore.Value{
		key("good"):   "ok",
		meta("wrong"): "ok",
	}, datastore.Pending)
	require.Equal(t, datastore.KindInvalidKey, datastore.KindOf(err))

	// Nothing was written by the rejected batches.
	keys, err := store.ListPopulatedKeys("", datastore.Pending)
	require.NoError(t, err)
	require.Empty(t, keys)

	_, err = store.GetKey(meta("wrong"), datastore.Live)
	require.Equal(t, datastore.KindInvalidKey, datastore.KindOf(err))

	_, err = store.GetKey(datastore.Key{}, datastore.Live)
	require.Equal(t, datastore.KindInvalidKey, datastore.KindOf(err))

	err = store.SetMetadata(key("swapped"), meta("swapped"), true, datastore.Live)
	require.Equal(t, datastore.KindInvalidKey, datastore.KindOf(err))

	err = store.SetMetadata(meta("m"), key("k"), nil, datastore.Live)
	require.Equal(t, datastore.KindSerialization, datastore.KindOf(err))

	err = store.DeleteKey(meta("m"), datastore.Live)
	require.Equal(t, datastore.KindInvalidKey, datastore.KindOf(err))
}

func testMetadataIndependence(t *testing.T, store datastore.DataStore) {
	err := store.SetMetadata(meta("from-defaults"), key("orphan"), true, datastore.Live)
	require.NoError(t, err)

	_, err = store.GetKey(key("orphan"), datastore.Live)
	require.Equal(t, datastore.KindKeyNotFound, datastore.KindOf(err))

	keys, err := store.ListPopulatedKeys("", datastore.Live)
	require.NoError(t, err)
	require.Empty(t, keys)

	value, err := store.GetMetadata(meta("from-defaults"), key("orphan"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, true, value)

	_, err = store.GetMetadata(meta("absent"), key("orphan"), datastore.Live)
	require.Equal(t, datastore.KindKeyNotFound, datastore.KindOf(err))

	names, err := store.GetMetadataKeysFor(key("orphan"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, datastore.NewKeySet(meta("from-defaults")), names)

	names, err = store.GetMetadataKeysFor(key("nobody"), datastore.Live)
	require.NoError(t, err)
	require.Empty(t, names)

	// A plain value write leaves the metadata untouched.
	err = store.SetKeys(map[datastore.Key]datastore.Value{key("orphan"): "x"}, datastore.Live)
	require.NoError(t, err)

	err = store.DeleteKey(key("orphan"), datastore.Live)
	require.NoError(t, err)

	all, err := store.ListPopulatedMetadata("", datastore.Live)
	require.NoError(t, err)
	require.Equal(t, map[datastore.Key]datastore.KeySet{
		key("orphan"): datastore.NewKeySet(meta("from-defaults")),
	}, all)
}

func testMetadataCommit(t *testing.T, store datastore.DataStore) {
	err := store.SetKeys(map[datastore.Key]datastore.Value{
		key("a.b"):   "x",
		key("a.b.c"): "y",
	}, datastore.Pending)
	require.Equal(t, datastore.KindSerialization, datastore.KindOf(err))

	err = store.SetKeys(map[datastore.Key]datastore.Value{
		key("a.b"): "x",
		key("a.c"): []interface{}{"y"},
	}, datastore.Pending)
	require.NoError(t, err)

	err = store.SetMetadata(meta("generator"), key("a.b"), "script", datastore.Pending)
	require.NoError(t, err)

	err = store.SetMetadata(meta("tags"), key("a.b"), []interface{}{"t1", "t2"}, datastore.Pending)
	require.NoError(t, err)

	err = store.SetMetadata(meta("generator"), key("meta.only"), "x", datastore.Pending)
	require.NoError(t, err)

	pending, err := store.ListPopulatedMetadata("a", datastore.Pending)
	require.NoError(t, err)
	require.Equal(t, map[datastore.Key]datastore.KeySet{
		key("a.b"): datastore.NewKeySet(meta("generator"), meta("tags")),
	}, pending)

	committed, err := store.Commit()
	require.NoError(t, err)
	require.Equal(t, []string{"a.b", "a.c"}, committed.Names())

	value, err := store.GetMetadata(meta("tags"), key("a.b"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"t1", "t2"}, value)

	value, err = store.GetMetadata(meta("generator"), key("meta.only"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, "x", value)

	pending, err = store.ListPopulatedMetadata("", datastore.Pending)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func testProvenance(t *testing.T, store datastore.DataStore) {
	p, err := datastore.GetProvenance(store, key("a"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, datastore.ProvenanceUnknown, p)

	err = datastore.SetProvenance(store, key("a"), datastore.ProvenanceDefault, datastore.Live)
	require.NoError(t, err)

	p, err = datastore.GetProvenance(store, key("a"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, datastore.ProvenanceDefault, p)

	err = datastore.SetProvenance(store, key("a"), datastore.ProvenanceUser, datastore.Live)
	require.NoError(t, err)

	p, err = datastore.GetProvenance(store, key("a"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, datastore.ProvenanceUser, p)

	err = datastore.SetProvenance(store, key("a"), datastore.ProvenanceUnknown, datastore.Live)
	require.NoError(t, err)

	p, err = datastore.GetProvenance(store, key("a"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, datastore.ProvenanceUnknown, p)

	err = store.SetMetadata(datastore.DefaultsMetadata, key("a"), "yes", datastore.Live)
	require.NoError(t, err)

	_, err = datastore.GetProvenance(store, key("a"), datastore.Live)
	require.EqualError(t, err,
		"corrupted data in 'a': metadata 'from-defaults' is not a boolean: yes")
}

func testDelete(t *testing.T, store datastore.DataStore) {
	err := store.SetKeys(map[datastore.Key]datastore.Value{key("a.b"): "x"}, datastore.Live)
	require.NoError(t, err)

	err = store.SetMetadata(meta("m"), key("a.b"), int64(1), datastore.Live)
	require.NoError(t, err)

	err = store.DeleteKey(key("a.b"), datastore.Live)
	require.NoError(t, err)

	err = store.DeleteKey(key("a.b"), datastore.Live)
	require.NoError(t, err)

	err = store.DeleteKey(key("never.set"), datastore.Pending)
	require.NoError(t, err)

	_, err = store.GetKey(key("a.b"), datastore.Live)
	require.Equal(t, datastore.KindKeyNotFound, datastore.KindOf(err))

	// The key can be restructured once deleted.
	err = store.SetKeys(map[datastore.Key]datastore.Value{key("a.b.c"): "y"}, datastore.Live)
	require.NoError(t, err)

	err = datastore.DeleteKeyAndMetadata(store, key("a.b"), datastore.Live)
	require.NoError(t, err)

	names, err := store.GetMetadataKeysFor(key("a.b"), datastore.Live)
	require.NoError(t, err)
	require.Empty(t, names)

	err = store.DeleteMetadata(meta("m"), key("a.b"), datastore.Live)
	require.NoError(t, err)

	value, err := store.GetKey(key("a.b.c"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, "y", value)
}

func testDeletePending(t *testing.T, store datastore.DataStore) {
	removed, err := store.DeletePending()
	require.NoError(t, err)
	require.Empty(t, removed)

	err = store.SetKeys(map[datastore.Key]datastore.Value{key("a"): "x", key("b"): "y"},
		datastore.Pending)
	require.NoError(t, err)

	err = store.SetMetadata(meta("m"), key("a"), true, datastore.Pending)
	require.NoError(t, err)

	removed, err = store.DeletePending()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, removed.Names())

	committed, err := store.Commit()
	require.NoError(t, err)
	require.Empty(t, committed)

	metadata, err := store.ListPopulatedMetadata("", datastore.Live)
	require.NoError(t, err)
	require.Empty(t, metadata)
}

func testTreeBoundary(t *testing.T, store datastore.DataStore) {
	tree := serialization.Tree{
		"settings": serialization.Tree{
			"network": serialization.Tree{
				"hostname":    "bottlerocket",
				"nameservers": []interface{}{"1.1.1.1"},
			},
			"kernel": serialization.Tree{"lockdown": "integrity"},
		},
	}

	flat, err := serialization.TreeToFlat(tree)
	require.NoError(t, err)

	err = store.SetKeys(flat, datastore.Pending)
	require.NoError(t, err)

	_, err = store.Commit()
	require.NoError(t, err)

	values, err := datastore.GetPrefix(store, "settings.network", datastore.Live)
	require.NoError(t, err)

	back, err := serialization.FlatToTree(values)
	require.NoError(t, err)
	require.Equal(t, serialization.Tree{
		"settings": serialization.Tree{
			"network": serialization.Tree{
				"hostname":    "bottlerocket",
				"nameservers": []interface{}{"1.1.1.1"},
			},
		},
	}, back)

	_, err = serialization.TreeToFlat(serialization.Tree{"a": []interface{}{serialization.Tree{"x": 1}}})
	require.Equal(t, datastore.KindSerialization, datastore.KindOf(err))
}
