// Package filesystem implements a data store persisted in a directory tree.
//
// Each version of the data has its own directory under the base path, and
// each dotted key maps to a file path by replacing the dots with the path
// separator:
//
//	<base>/live -> .live-<id>
//	<base>/.live-<id>/data/network/hostname
//	<base>/.live-<id>/metadata/network/hostname/.from-defaults
//	<base>/pending/data/...
//	<base>/pending/metadata/...
//
// A file holds a single value encoded as plain text, one line per element for
// a list. Metadata files are prefixed with a dot.
//
// The live version is a symbolic link so that a commit can publish a new
// directory in a single rename. Missing directories are read as an empty
// version.
//
// The store is not safe for concurrent use, and two stores on the same base
// path do not coordinate.
//
// Documentation Last Review: 18.10.2026
package filesystem

import (
	"path/filepath"

	"github.com/jmt-lab/bottlerocket"
	"github.com/jmt-lab/bottlerocket/datastore"
	"github.com/rs/zerolog"
)

// DataStore is a data store that uses the filesystem for the data and the
// metadata.
//
// - implements datastore.DataStore
type DataStore struct {
	base   string
	logger zerolog.Logger
}

// Option is the type of option to configure the data store.
type Option func(*DataStore)

// WithLogger sets the logger of the data store.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *DataStore) {
		s.logger = logger
	}
}

// NewDataStore returns a data store rooted at the base path. Nothing is
// created until the first write.
func NewDataStore(base string, opts ...Option) *DataStore {
	s := &DataStore{
		base:   base,
		logger: bottlerocket.Logger.With().Str("datastore", base).Logger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// BasePath returns the base path of the store.
func (s *DataStore) BasePath() string {
	return s.base
}

func (s *DataStore) livePath() string {
	return filepath.Join(s.base, liveDir)
}

func (s *DataStore) pendingPath() string {
	return filepath.Join(s.base, pendingDir)
}

func (s *DataStore) layout(committed datastore.Committed) layout {
	if committed == datastore.Pending {
		return layout{root: s.pendingPath()}
	}

	return layout{root: s.livePath()}
}

// ListPopulatedKeys implements datastore.DataStore. It walks the data
// directory of the version.
func (s *DataStore) ListPopulatedKeys(prefix string,
	committed datastore.Committed) (datastore.KeySet, error) {

	return s.layout(committed).listKeys(prefix)
}

// ListPopulatedMetadata implements datastore.DataStore. It walks the metadata
// directory of the version.
func (s *DataStore) ListPopulatedMetadata(prefix string,
	committed datastore.Committed) (map[datastore.Key]datastore.KeySet, error) {

	return s.layout(committed).listMetadata(prefix)
}

// GetKey implements datastore.DataStore.
func (s *DataStore) GetKey(key datastore.Key, committed datastore.Committed) (datastore.Value, error) {
	err := datastore.CheckKey(key, datastore.DataKey)
	if err != nil {
		return nil, err
	}

	value, found, err := readValue(s.layout(committed).dataPath(key))
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, datastore.NewKeyNotFound(key.Name())
	}

	return value, nil
}

// GetMetadata implements datastore.DataStore.
func (s *DataStore) GetMetadata(metadataKey, dataKey datastore.Key,
	committed datastore.Committed) (datastore.Value, error) {

	err := checkMetadataKeys(metadataKey, dataKey)
	if err != nil {
		return nil, err
	}

	value, found, err := readValue(s.layout(committed).metadataPath(metadataKey, dataKey))
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, datastore.NewKeyNotFound(dataKey.Name() + "/" + metadataKey.Name())
	}

	return value, nil
}

// GetMetadataKeysFor implements datastore.DataStore.
func (s *DataStore) GetMetadataKeysFor(dataKey datastore.Key,
	committed datastore.Committed) (datastore.KeySet, error) {

	err := datastore.CheckKey(dataKey, datastore.DataKey)
	if err != nil {
		return nil, err
	}

	l := s.layout(committed)

	names, err := listMetadataNames(l.metadataDirPath(dataKey))
	if err != nil {
		return nil, err
	}

	return names, nil
}

// SetKeys implements datastore.DataStore. The batch is validated against the
// keys already populated before any file is written. An IO failure in the
// middle of the writes leaves the keys written so far in place.
func (s *DataStore) SetKeys(pairs map[datastore.Key]datastore.Value,
	committed datastore.Committed) error {

	l := s.layout(committed)

	existing, err := l.listKeys("")
	if err != nil {
		return err
	}

	normalized, err := datastore.ValidateWrite(pairs, existing)
	if err != nil {
		return err
	}

	if len(normalized) == 0 {
		return nil
	}

	if committed == datastore.Live {
		err = s.ensureLive()
		if err != nil {
			return err
		}
	}

	parcel := datastore.NewParcel()
	parcel.Data = normalized

	return l.store(parcel)
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

	if committed == datastore.Live {
		err = s.ensureLive()
		if err != nil {
			return err
		}
	}

	return writeValue(s.layout(committed).metadataPath(metadataKey, dataKey), value)
}

// DeleteKey implements datastore.DataStore.
func (s *DataStore) DeleteKey(key datastore.Key, committed datastore.Committed) error {
	err := datastore.CheckKey(key, datastore.DataKey)
	if err != nil {
		return err
	}

	l := s.layout(committed)

	return removeFile(l.dataPath(key), l.dataRoot())
}

// DeleteMetadata implements datastore.DataStore.
func (s *DataStore) DeleteMetadata(metadataKey, dataKey datastore.Key,
	committed datastore.Committed) error {

	err := checkMetadataKeys(metadataKey, dataKey)
	if err != nil {
		return err
	}

	l := s.layout(committed)

	return removeFile(l.metadataPath(metadataKey, dataKey), l.metadataRoot())
}

func checkMetadataKeys(metadataKey, dataKey datastore.Key) error {
	err := datastore.CheckKey(metadataKey, datastore.MetaKey)
	if err != nil {
		return err
	}

	return datastore.CheckKey(dataKey, datastore.DataKey)
}
