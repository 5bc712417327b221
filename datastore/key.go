package datastore

import (
	"fmt"
	"sort"
	"strings"
)

// KeySeparator separates the segments of a dotted key.
const KeySeparator = "."

// MaxSegmentLength is the maximum length in bytes of a key segment. It matches
// the usual limit of a file name.
const MaxSegmentLength = 255

// KeyType tells whether a key addresses a setting or a metadata entry.
type KeyType int

const (
	// DataKey addresses a setting value.
	DataKey KeyType = iota

	// MetaKey names a metadata entry attached to a data key.
	MetaKey
)

// String implements fmt.Stringer.
func (t KeyType) String() string {
	if t == MetaKey {
		return "metadata"
	}

	return "data"
}

// Key is a validated dotted name. The zero value is not a valid key. Keys are
// comparable and can be used in maps.
type Key struct {
	kind KeyType
	name string
}

// NewKey parses and validates the name. A data key is made of one or more
// segments separated by dots, while a metadata key must be a single segment.
func NewKey(kind KeyType, name string) (Key, error) {
	if name == "" {
		return Key{}, NewInvalidKey(name, "empty key")
	}

	segments := strings.Split(name, KeySeparator)

	if kind == MetaKey && len(segments) > 1 {
		return Key{}, NewInvalidKey(name, "metadata key must be a single segment")
	}

	for _, segment := range segments {
		err := checkSegment(segment)
		if err != nil {
			return Key{}, NewInvalidKey(name, err.Error())
		}
	}

	return Key{kind: kind, name: name}, nil
}

// NewKeyFromSegments joins the segments into a key after validating each of
// them.
func NewKeyFromSegments(kind KeyType, segments []string) (Key, error) {
	for _, segment := range segments {
		err := checkSegment(segment)
		if err != nil {
			return Key{}, NewInvalidKey(strings.Join(segments, KeySeparator), err.Error())
		}
	}

	return NewKey(kind, strings.Join(segments, KeySeparator))
}

// MustKey is like NewKey but panics on an invalid name. It is meant for
// constants and tests.
func MustKey(kind KeyType, name string) Key {
	key, err := NewKey(kind, name)
	if err != nil {
		panic(err)
	}

	return key
}

// Type returns the type of the key.
func (k Key) Type() KeyType {
	return k.kind
}

// Name returns the dotted name.
func (k Key) Name() string {
	return k.name
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return k.name
}

// IsZero returns true for the zero value, which is never a valid key.
func (k Key) IsZero() bool {
	return k.name == ""
}

// Segments returns the parts of the dotted name.
func (k Key) Segments() []string {
	if k.name == "" {
		return nil
	}

	return strings.Split(k.name, KeySeparator)
}

// HasPrefix returns true if the dotted name starts with the string. The prefix
// is compared as a plain string, so "settings.ho" matches
// "settings.hostname".
func (k Key) HasPrefix(prefix string) bool {
	return strings.HasPrefix(k.name, prefix)
}

// IsAncestorOf returns true if the other key lives under this one, for
// instance "a.b" is an ancestor of "a.b.c" but not of "a.bc".
func (k Key) IsAncestorOf(other Key) bool {
	return strings.HasPrefix(other.name, k.name+KeySeparator)
}

// Conflicts returns true if both keys can't be leaves of the same tree, which
// happens when one is the ancestor of the other.
func (k Key) Conflicts(other Key) bool {
	return k.IsAncestorOf(other) || other.IsAncestorOf(k)
}

func checkSegment(segment string) error {
	if segment == "" {
		return fmt.Errorf("empty segment")
	}

	if len(segment) > MaxSegmentLength {
		return fmt.Errorf("segment longer than %d bytes", MaxSegmentLength)
	}

	for _, r := range segment {
		if !isSegmentRune(r) {
			return fmt.Errorf("invalid character %q", r)
		}
	}

	return nil
}

func isSegmentRune(r rune) bool {
	return r >= 'a' && r <= 'z' ||
		r >= 'A' && r <= 'Z' ||
		r >= '0' && r <= '9' ||
		r == '_' || r == '-'
}

// ValidSegment returns true if the string can be used as a key segment.
func ValidSegment(segment string) bool {
	return checkSegment(segment) == nil
}

// KeySet is a set of keys.
type KeySet map[Key]struct{}

// NewKeySet returns a set populated with the keys.
func NewKeySet(keys ...Key) KeySet {
	set := make(KeySet, len(keys))
	for _, key := range keys {
		set.Add(key)
	}

	return set
}

// Add inserts the key in the set.
func (s KeySet) Add(key Key) {
	s[key] = struct{}{}
}

// Has returns true if the key is in the set.
func (s KeySet) Has(key Key) bool {
	_, found := s[key]
	return found
}

// Sorted returns the keys ordered by name.
func (s KeySet) Sorted() []Key {
	keys := make([]Key, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].name < keys[j].name
	})

	return keys
}

// Names returns the names of the keys ordered.
func (s KeySet) Names() []string {
	sorted := s.Sorted()

	names := make([]string, len(sorted))
	for i, key := range sorted {
		names[i] = key.name
	}

	return names
}
