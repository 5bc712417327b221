// Package serialization converts settings between the nested tree used at the
// API boundary, for instance {"network": {"hostname": "x"}}, and the flat
// mapping of dotted keys stored by the backends, {"network.hostname": "x"}.
//
// Both conversions are exact inverses for any tree that has no nested
// structure under a list and no empty object. An empty object produces no key
// and is therefore absent from the rebuilt tree.
//
// The package also defines the plain text encoding of a single value shared by
// the backends that persist data.
package serialization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmt-lab/bottlerocket/datastore"
	"golang.org/x/xerrors"
)

// Tree is the nested representation of the settings.
type Tree = map[string]interface{}

// TreeToFlat walks the tree and returns a dotted key for every leaf. Objects
// become key prefixes, and an empty object produces no key. A list holding
// anything else than scalars is rejected. Nothing is returned on failure.
func TreeToFlat(tree Tree) (map[datastore.Key]datastore.Value, error) {
	flat := make(map[datastore.Key]datastore.Value)

	err := flatten(tree, nil, flat)
	if err != nil {
		return nil, err
	}

	return flat, nil
}

func flatten(node Tree, path []string, flat map[datastore.Key]datastore.Value) error {
	for _, name := range sortedNames(node) {
		segments := append(append([]string{}, path...), name)

		child, isObject := node[name].(Tree)
		if isObject {
			err := flatten(child, segments, flat)
			if err != nil {
				return err
			}

			continue
		}

		key, err := datastore.NewKeyFromSegments(datastore.DataKey, segments)
		if err != nil {
			return err
		}

		value, err := datastore.NormalizeValue(node[name])
		if err != nil {
			return withKey(err, key)
		}

		flat[key] = value
	}

	return nil
}

// FlatToTree rebuilds the nested tree from dotted keys. It fails when two keys
// imply incompatible structures, like "a" holding a value while "a.b" exists.
func FlatToTree(flat map[datastore.Key]datastore.Value) (Tree, error) {
	keys := make([]datastore.Key, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Name() < keys[j].Name()
	})

	tree := make(Tree)

	for _, key := range keys {
		err := insert(tree, key, datastore.CopyValue(flat[key]))
		if err != nil {
			return nil, err
		}
	}

	return tree, nil
}

func insert(tree Tree, key datastore.Key, value datastore.Value) error {
	segments := key.Segments()
	node := tree

	for i, segment := range segments[:len(segments)-1] {
		next, found := node[segment]
		if !found {
			child := make(Tree)
			node[segment] = child
			node = child
			continue
		}

		child, isObject := next.(Tree)
		if !isObject {
			return datastore.NewSerialization(fmt.Sprintf(
				"key '%s' conflicts with the value of '%s'", key, join(segments[:i+1])), nil)
		}

		node = child
	}

	last := segments[len(segments)-1]

	_, found := node[last]
	if found {
		return datastore.NewSerialization(fmt.Sprintf(
			"key '%s' conflicts with keys under it", key), nil)
	}

	node[last] = value

	return nil
}

// Lookup returns the node of the tree addressed by the key, which can be a
// value or a subtree.
func Lookup(tree Tree, key datastore.Key) (interface{}, bool) {
	var node interface{} = tree

	for _, segment := range key.Segments() {
		obj, isObject := node.(Tree)
		if !isObject {
			return nil, false
		}

		var found bool

		node, found = obj[segment]
		if !found {
			return nil, false
		}
	}

	return node, true
}

func sortedNames(node Tree) []string {
	names := make([]string, 0, len(node))
	for name := range node {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func join(segments []string) string {
	return strings.Join(segments, datastore.KeySeparator)
}

// withKey attaches the key to a taxonomy error.
func withKey(err error, key datastore.Key) error {
	var e *datastore.Error
	if !xerrors.As(err, &e) {
		return err
	}

	annotated := *e
	annotated.Key = key.Name()

	return &annotated
}
