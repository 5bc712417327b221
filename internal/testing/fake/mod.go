// Package fake provides fake implementations for interfaces commonly used in
// the repository. The implementations can be configured to return errors when
// a unit test needs it.
package fake

import (
	"github.com/jmt-lab/bottlerocket/datastore"
	"github.com/jmt-lab/bottlerocket/datastore/mem"
)

// Err is the error returned by the bad fakes.
var Err = datastore.NewIO("fake", "/fake", nil)

// DataStore is a fake implementation of a data store. It relies on the
// in-memory store unless an error is configured for the operation.
//
// - implements datastore.DataStore
type DataStore struct {
	*mem.DataStore

	ErrRead   error
	ErrWrite  error
	ErrDelete error
	ErrCommit error

	// Commits records the number of commit calls.
	Commits int
}

// NewDataStore creates a new empty data store.
func NewDataStore() *DataStore {
	return &DataStore{
		DataStore: mem.NewDataStore(),
	}
}

// NewBadDataStore creates a new empty data store that will always return an
// error.
func NewBadDataStore() *DataStore {
	return &DataStore{
		DataStore: mem.NewDataStore(),
		ErrRead:   Err,
		ErrWrite:  Err,
		ErrDelete: Err,
		ErrCommit: Err,
	}
}

// ListPopulatedKeys implements datastore.DataStore.
func (s *DataStore) ListPopulatedKeys(prefix string,
	committed datastore.Committed) (datastore.KeySet, error) {

	if s.ErrRead != nil {
		return nil, s.ErrRead
	}

	return s.DataStore.ListPopulatedKeys(prefix, committed)
}

// ListPopulatedMetadata implements datastore.DataStore.
func (s *DataStore) ListPopulatedMetadata(prefix string,
	committed datastore.Committed) (map[datastore.Key]datastore.KeySet, error) {

	if s.ErrRead != nil {
		return nil, s.ErrRead
	}

	return s.DataStore.ListPopulatedMetadata(prefix, committed)
}

// GetKey implements datastore.DataStore.
func (s *DataStore) GetKey(key datastore.Key, committed datastore.Committed) (datastore.Value, error) {
	if s.ErrRead != nil {
		return nil, s.ErrRead
	}

	return s.DataStore.GetKey(key, committed)
}

// GetMetadata implements datastore.DataStore.
func (s *DataStore) GetMetadata(metadataKey, dataKey datastore.Key,
	committed datastore.Committed) (datastore.Value, error) {

	if s.ErrRead != nil {
		return nil, s.ErrRead
	}

	return s.DataStore.GetMetadata(metadataKey, dataKey, committed)
}

// GetMetadataKeysFor implements datastore.DataStore.
func (s *DataStore) GetMetadataKeysFor(dataKey datastore.Key,
	committed datastore.Committed) (datastore.KeySet, error) {

	if s.ErrRead != nil {
		return nil, s.ErrRead
	}

	return s.DataStore.GetMetadataKeysFor(dataKey, committed)
}

// SetKeys implements datastore.DataStore.
func (s *DataStore) SetKeys(pairs map[datastore.Key]datastore.Value,
	committed datastore.Committed) error {

	if s.ErrWrite != nil {
		return s.ErrWrite
	}

	return s.DataStore.SetKeys(pairs, committed)
}

// SetMetadata implements datastore.DataStore.
func (s *DataStore) SetMetadata(metadataKey, dataKey datastore.Key, value datastore.Value,
	committed datastore.Committed) error {

	if s.ErrWrite != nil {
		return s.ErrWrite
	}

	return s.DataStore.SetMetadata(metadataKey, dataKey, value, committed)
}

// DeleteKey implements datastore.DataStore.
func (s *DataStore) DeleteKey(key datastore.Key, committed datastore.Committed) error {
	if s.ErrDelete != nil {
		return s.ErrDelete
	}

	return s.DataStore.DeleteKey(key, committed)
}

// DeleteMetadata implements datastore.DataStore.
func (s *DataStore) DeleteMetadata(metadataKey, dataKey datastore.Key,
	committed datastore.Committed) error {

	if s.ErrDelete != nil {
		return s.ErrDelete
	}

	return s.DataStore.DeleteMetadata(metadataKey, dataKey, committed)
}

// Commit implements datastore.DataStore.
func (s *DataStore) Commit() (datastore.KeySet, error) {
	s.Commits++

	if s.ErrCommit != nil {
		return nil, s.ErrCommit
	}

	return s.DataStore.Commit()
}

// DeletePending implements datastore.DataStore.
func (s *DataStore) DeletePending() (datastore.KeySet, error) {
	if s.ErrDelete != nil {
		return nil, s.ErrDelete
	}

	return s.DataStore.DeletePending()
}
