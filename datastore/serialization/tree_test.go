package serialization

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jmt-lab/bottlerocket/datastore"
	"github.com/stretchr/testify/require"
)

func key(name string) datastore.Key {
	return datastore.MustKey(datastore.DataKey, name)
}

func TestTreeToFlat(t *testing.T) {
	tree := Tree{
		"network": Tree{
			"hostname": "bottlerocket",
			"dns": Tree{
				"servers": []interface{}{"1.1.1.1", "8.8.8.8"},
			},
		},
		"kernel": Tree{
			"lockdown": true,
			"sysctl": Tree{
				"vm-max": 42,
			},
		},
		"ratio": 0.5,
	}

	flat, err := TreeToFlat(tree)
	require.NoError(t, err)
	require.Equal(t, map[datastore.Key]datastore.Value{
		key("network.hostname"):     "bottlerocket",
		key("network.dns.servers"):  []interface{}{"1.1.1.1", "8.8.8.8"},
		key("kernel.lockdown"):      true,
		key("kernel.sysctl.vm-max"): int64(42),
		key("ratio"):                0.5,
	}, flat)
}

func TestTreeToFlat_EmptyObject(t *testing.T) {
	flat, err := TreeToFlat(Tree{"a": Tree{}, "b": Tree{"c": "x", "d": Tree{}}})
	require.NoError(t, err)
	require.Equal(t, map[datastore.Key]datastore.Value{key("b.c"): "x"}, flat)

	tree, err := FlatToTree(flat)
	require.NoError(t, err)
	require.Equal(t, Tree{"b": Tree{"c": "x"}}, tree)
}

func TestTreeToFlat_NestedUnderList(t *testing.T) {
	flat, err := TreeToFlat(Tree{"a": []interface{}{Tree{"x": 1}}})
	require.Nil(t, flat)
	require.EqualError(t, err,
		"serialization failed for key 'a': list element #0: nested object is not supported")
	require.Equal(t, datastore.KindSerialization, datastore.KindOf(err))

	_, err = TreeToFlat(Tree{"a": Tree{"b": []interface{}{[]interface{}{1}}}})
	require.EqualError(t, err,
		"serialization failed for key 'a.b': list element #0: nested list is not supported")
}

func TestTreeToFlat_InvalidSegment(t *testing.T) {
	_, err := TreeToFlat(Tree{"a": Tree{"b.c": 1}})
	require.EqualError(t, err, "invalid key 'a.b.c': invalid character '.'")
	require.Equal(t, datastore.KindInvalidKey, datastore.KindOf(err))

	_, err = TreeToFlat(Tree{"": 1})
	require.EqualError(t, err, "invalid key '': empty segment")
}

func TestTreeToFlat_Null(t *testing.T) {
	_, err := TreeToFlat(Tree{"a": nil})
	require.EqualError(t, err, "serialization failed for key 'a': null is not a valid value")
}

func TestFlatToTree(t *testing.T) {
	flat := map[datastore.Key]datastore.Value{
		key("a.b"):   []interface{}{"x", "y"},
		key("a.c.d"): int64(1),
		key("e"):     false,
	}

	tree, err := FlatToTree(flat)
	require.NoError(t, err)
	require.Equal(t, Tree{
		"a": Tree{
			"b": []interface{}{"x", "y"},
			"c": Tree{"d": int64(1)},
		},
		"e": false,
	}, tree)
}

func TestFlatToTree_Incompatible(t *testing.T) {
	flat := map[datastore.Key]datastore.Value{
		key("a"):   "scalar",
		key("a.b"): "child",
	}

	_, err := FlatToTree(flat)
	require.EqualError(t, err,
		"serialization failed: key 'a.b' conflicts with the value of 'a'")
	require.Equal(t, datastore.KindSerialization, datastore.KindOf(err))
}

func TestInsert_ConflictWithChildren(t *testing.T) {
	tree := Tree{"a": Tree{"b": int64(1)}}

	err := insert(tree, key("a"), "x")
	require.EqualError(t, err, "serialization failed: key 'a' conflicts with keys under it")
}

func TestRoundTrip(t *testing.T) {
	trees := []Tree{
		{},
		{"a": Tree{"b": []interface{}{"x", "y"}}},
		{
			"settings": Tree{
				"motd":   "hello",
				"ntp":    Tree{"time-servers": []interface{}{}},
				"kernel": Tree{"modules": Tree{"sctp": Tree{"allowed": false}}},
				"metrics": Tree{
					"send-metrics": true,
					"interval":     int64(10),
					"ratio":        0.25,
				},
			},
		},
	}

	for _, tree := range trees {
		flat, err := TreeToFlat(tree)
		require.NoError(t, err)

		back, err := FlatToTree(flat)
		require.NoError(t, err)
		require.Equal(t, tree, back)
	}
}

func TestRoundTrip_JSON(t *testing.T) {
	doc := `{"network": {"hostname": "x", "ports": [1, 2], "mtu": 1.5}}`

	var tree Tree
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&tree))

	flat, err := TreeToFlat(tree)
	require.NoError(t, err)
	require.Equal(t, []interface{}{int64(1), int64(2)}, flat[key("network.ports")])
	require.Equal(t, 1.5, flat[key("network.mtu")])

	back, err := FlatToTree(flat)
	require.NoError(t, err)

	out, err := json.Marshal(back)
	require.NoError(t, err)
	require.JSONEq(t, doc, string(out))
}

func TestLookup(t *testing.T) {
	tree := Tree{"a": Tree{"b": "x"}}

	node, found := Lookup(tree, key("a.b"))
	require.True(t, found)
	require.Equal(t, "x", node)

	node, found = Lookup(tree, key("a"))
	require.True(t, found)
	require.Equal(t, Tree{"b": "x"}, node)

	_, found = Lookup(tree, key("a.b.c"))
	require.False(t, found)

	_, found = Lookup(tree, key("z"))
	require.False(t, found)
}
