// Package datastore defines the storage of the settings of the operating
// system, with the ability to stage changes and commit them in one go.
//
// Every setting is addressed by a dotted key and is stored in two parcels for
// each version of the data: the value itself and a set of metadata entries
// describing where it comes from, for instance whether it was derived from a
// system default.
//
// A store holds two versions of the data. Live is the committed state visible
// to the consumers, and Pending is the scratch space of the transaction in
// progress. Commit merges Pending into Live and clears Pending.
//
// Known limitations:
//   - the caller is responsible for locking, a store has no internal mutual
//     exclusion and two stores on the same location do not coordinate;
//   - there is no rollback once a commit succeeded;
//   - lists can only hold scalars.
//
// Documentation Last Review: 18.10.2026
package datastore

import "fmt"

// Committed selects the version of the data an operation targets.
type Committed int

const (
	// Live is the last committed state.
	Live Committed = iota

	// Pending is the transaction in progress.
	Pending
)

// String implements fmt.Stringer.
func (c Committed) String() string {
	switch c {
	case Live:
		return "live"
	case Pending:
		return "pending"
	default:
		return "unknown"
	}
}

// DataStore is the contract every backend implements. The implementations
// are not safe for concurrent use.
type DataStore interface {
	// ListPopulatedKeys returns the data keys starting with the prefix that
	// have a value. An empty prefix matches every key. Metadata-only entries
	// are ignored.
	ListPopulatedKeys(prefix string, committed Committed) (KeySet, error)

	// ListPopulatedMetadata returns, for every data key starting with the
	// prefix, the names of its metadata entries.
	ListPopulatedMetadata(prefix string, committed Committed) (map[Key]KeySet, error)

	// GetKey returns the value of the data key, or a KeyNotFound error.
	GetKey(key Key, committed Committed) (Value, error)

	// GetMetadata returns the value of a metadata entry of the data key, or a
	// KeyNotFound error.
	GetMetadata(metadataKey, dataKey Key, committed Committed) (Value, error)

	// GetMetadataKeysFor returns the names of the metadata entries of the
	// data key. It is empty when there is none.
	GetMetadataKeysFor(dataKey Key, committed Committed) (KeySet, error)

	// SetKeys writes the values. The input is validated as a whole before
	// anything is written. Metadata is left untouched.
	SetKeys(pairs map[Key]Value, committed Committed) error

	// SetMetadata writes a metadata entry of the data key. The data key does
	// not need to have a value.
	SetMetadata(metadataKey, dataKey Key, value Value, committed Committed) error

	// DeleteKey removes the value of the data key. Deleting an absent key is
	// not an error.
	DeleteKey(key Key, committed Committed) error

	// DeleteMetadata removes a metadata entry. Deleting an absent entry is not
	// an error.
	DeleteMetadata(metadataKey, dataKey Key, committed Committed) error

	// Commit applies the pending values and metadata to the live version and
	// clears the pending version. It returns the data keys that were
	// committed. Live keys that the committed keys make incompatible are
	// removed: committing "a.b.c" drops a live "a.b", and committing "a.b"
	// drops a live "a.b.c". Any other live key keeps its value.
	Commit() (KeySet, error)

	// DeletePending clears the pending version and returns the data keys that
	// were discarded.
	DeletePending() (KeySet, error)
}

// GetPrefix returns the values of every key starting with the prefix.
func GetPrefix(store DataStore, prefix string, committed Committed) (map[Key]Value, error) {
	keys, err := store.ListPopulatedKeys(prefix, committed)
	if err != nil {
		return nil, err
	}

	values := make(map[Key]Value, len(keys))

	for key := range keys {
		value, err := store.GetKey(key, committed)
		if err != nil {
			return nil, err
		}

		values[key] = value
	}

	return values, nil
}

// DeleteKeyAndMetadata removes the value of the data key alongside all of its
// metadata entries.
func DeleteKeyAndMetadata(store DataStore, key Key, committed Committed) error {
	names, err := store.GetMetadataKeysFor(key, committed)
	if err != nil {
		return err
	}

	for name := range names {
		err = store.DeleteMetadata(name, key, committed)
		if err != nil {
			return err
		}
	}

	return store.DeleteKey(key, committed)
}

// CheckKey returns an InvalidKey error if the key is not of the expected type.
func CheckKey(key Key, kind KeyType) error {
	if key.IsZero() {
		return NewInvalidKey("", "empty key")
	}

	if key.Type() != kind {
		return NewInvalidKey(key.Name(), fmt.Sprintf("expected a %s key, got a %s key",
			kind, key.Type()))
	}

	return nil
}
