// Package mem implements an in-memory data store. It is the reference
// implementation of the contract and is used as a test double by the
// consumers of the data store.
//
// The store is not safe for concurrent use.
package mem

import (
	"github.com/jmt-lab/bottlerocket/datastore"
	"github.com/mitchellh/copystructure"
)

// DataStore is an in-memory data store holding one parcel per version.
//
// - implements datastore.DataStore
type DataStore struct {
	live    *datastore.Parcel
	pending *datastore.Parcel
}

// NewDataStore returns a new empty data store.
func NewDataStore() *DataStore {
	return &DataStore{
		live:    datastore.NewParcel(),
		pending: datastore.NewParcel(),
	}
}

func (s *DataStore) parcel(committed datastore.Committed) *datastore.Parcel {
	if committed == datastore.Pending {
		return s.pending
	}

	return s.live
}

// ListPopulatedKeys implements datastore.DataStore.
func (s *DataStore) ListPopulatedKeys(prefix string,
	committed datastore.Committed) (datastore.KeySet, error) {

	return s.parcel(committed).Keys(prefix), nil
}

// ListPopulatedMetadata implements datastore.DataStore.
func (s *DataStore) ListPopulatedMetadata(prefix string,
	committed datastore.Committed) (map[datastore.Key]datastore.KeySet, error) {

	return s.parcel(committed).MetadataKeys(prefix), nil
}

// GetKey implements datastore.DataStore. It returns a copy of the value.
func (s *DataStore) GetKey(key datastore.Key, committed datastore.Committed) (datastore.Value, error) {
	err := datastore.CheckKey(key, datastore.DataKey)
	if err != nil {
		return nil, err
	}

	value, found := s.parcel(committed).Data[key]
	if !found {
		return nil, datastore.NewKeyNotFound(key.Name())
	}

	return copyValue(value)
}

// GetMetadata implements datastore.DataStore. It returns a copy of the value.
func (s *DataStore) GetMetadata(metadataKey, dataKey datastore.Key,
	committed datastore.Committed) (datastore.Value, error) {

	err := checkMetadataKeys(metadataKey, dataKey)
	if err != nil {
		return nil, err
	}

	value, found := s.parcel(committed).Metadata[dataKey][metadataKey]
	if !found {
		return nil, datastore.NewKeyNotFound(dataKey.Name() + "/" + metadataKey.Name())
	}

	return copyValue(value)
}

// GetMetadataKeysFor implements datastore.DataStore.
func (s *DataStore) GetMetadataKeysFor(dataKey datastore.Key,
	committed datastore.Committed) (datastore.KeySet, error) {

	err := datastore.CheckKey(dataKey, datastore.DataKey)
	if err != nil {
		return nil, err
	}

	names := make(datastore.KeySet)
	for name := range s.parcel(committed).Metadata[dataKey] {
		names.Add(name)
	}

	return names, nil
}

// SetKeys implements datastore.DataStore. The batch is validated before any
// value is written.
func (s *DataStore) SetKeys(pairs map[datastore.Key]datastore.Value,
	committed datastore.Committed) error {

	parcel := s.parcel(committed)

	normalized, err := datastore.ValidateWrite(pairs, parcel.Keys(""))
	if err != nil {
		return err
	}

	for key, value := range normalized {
		parcel.Data[key] = value
	}

	return nil
}

// SetMetadata implements datastore.DataStore.
func (s *DataStore) SetMetadata(metadataKey, dataKey datastore.Key, value datastore.Value,
	committed datastore.Committed) error {

	err := checkMetadataKeys(metadataKey, dataKey)
	if err != nil {
		return err
	}

	value, err = datastore.NormalizeValue(value)
	if err != nil {
		return err
	}

	s.parcel(committed).SetMetadata(metadataKey, dataKey, value)

	return nil
}

// DeleteKey implements datastore.DataStore.
func (s *DataStore) DeleteKey(key datastore.Key, committed datastore.Committed) error {
	err := datastore.CheckKey(key, datastore.DataKey)
	if err != nil {
		return err
	}

	delete(s.parcel(committed).Data, key)

	return nil
}

// DeleteMetadata implements datastore.DataStore.
func (s *DataStore) DeleteMetadata(metadataKey, dataKey datastore.Key,
	committed datastore.Committed) error {

	err := checkMetadataKeys(metadataKey, dataKey)
	if err != nil {
		return err
	}

	s.parcel(committed).DeleteMetadata(metadataKey, dataKey)

	return nil
}

// Commit implements datastore.DataStore. The new live parcel is computed aside
// and replaces the previous one in a single assignment.
func (s *DataStore) Commit() (datastore.KeySet, error) {
	if s.pending.IsEmpty() {
		return make(datastore.KeySet), nil
	}

	live, committed := datastore.MergePending(s.live, s.pending)

	s.live = live
	s.pending = datastore.NewParcel()

	return committed, nil
}

// DeletePending implements datastore.DataStore.
func (s *DataStore) DeletePending() (datastore.KeySet, error) {
	removed := s.pending.Keys("")

	s.pending = datastore.NewParcel()

	return removed, nil
}

func checkMetadataKeys(metadataKey, dataKey datastore.Key) error {
	err := datastore.CheckKey(metadataKey, datastore.MetaKey)
	if err != nil {
		return err
	}

	return datastore.CheckKey(dataKey, datastore.DataKey)
}

// copyValue returns a deep copy so that the caller never holds a reference to
// the stored data.
func copyValue(value datastore.Value) (datastore.Value, error) {
	clone, err := copystructure.Copy(value)
	if err != nil {
		return nil, datastore.NewSerialization("failed to copy value", err)
	}

	return clone, nil
}
