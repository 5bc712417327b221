// Package bolt implements a data store persisted in a single bbolt database
// file.
//
// Each version of the data uses two buckets, one for the values and one for
// the metadata:
//
//	live.data        network.hostname           -> "bottlerocket"
//	live.metadata    network.hostname/from-defaults -> true
//	pending.data     ...
//	pending.metadata ...
//
// Values are stored in the same plain text encoding as the filesystem store.
// Every write and the commit run in a single database transaction, so a batch
// is either fully applied or not at all.
//
// Documentation Last Review: 18.10.2026
package bolt

import (
	"strings"

	"github.com/jmt-lab/bottlerocket"
	"github.com/jmt-lab/bottlerocket/datastore"
	"github.com/jmt-lab/bottlerocket/datastore/kv"
	"github.com/jmt-lab/bottlerocket/datastore/serialization"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// metadataSeparator splits the data key from the metadata name in the keys of
// a metadata bucket. It never appears in a key segment.
const metadataSeparator = "/"

var (
	liveData        = []byte("live.data")
	liveMetadata    = []byte("live.metadata")
	pendingData     = []byte("pending.data")
	pendingMetadata = []byte("pending.metadata")
)

// DataStore is a data store backed by a bbolt database.
//
// - implements datastore.DataStore
type DataStore struct {
	db     kv.DB
	path   string
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

// NewDataStore opens or creates the database file at the given path.
func NewDataStore(path string, opts ...Option) (*DataStore, error) {
	db, err := kv.New(path)
	if err != nil {
		return nil, datastore.NewIO("open database", path, err)
	}

	s := &DataStore{
		db:     db,
		path:   path,
		logger: bottlerocket.Logger.With().Str("datastore", path).Logger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Path returns the path of the database file.
func (s *DataStore) Path() string {
	return s.path
}

// Close releases the database file.
func (s *DataStore) Close() error {
	err := s.db.Close()
	if err != nil {
		return datastore.NewIO("close database", s.path, err)
	}

	return nil
}

// ListPopulatedKeys implements datastore.DataStore.
func (s *DataStore) ListPopulatedKeys(prefix string,
	committed datastore.Committed) (datastore.KeySet, error) {

	var keys datastore.KeySet

	err := s.db.View(func(tx kv.ReadableTx) error {
		var err error
		keys, err = readKeys(tx, dataBucket(committed), prefix)
		return err
	})

	if err != nil {
		return nil, s.fail("read", err)
	}

	return keys, nil
}

// ListPopulatedMetadata implements datastore.DataStore.
func (s *DataStore) ListPopulatedMetadata(prefix string,
	committed datastore.Committed) (map[datastore.Key]datastore.KeySet, error) {

	res := make(map[datastore.Key]datastore.KeySet)

	err := s.db.View(func(tx kv.ReadableTx) error {
		return scanMetadata(tx, metadataBucket(committed), prefix,
			func(dataKey, name datastore.Key, _ []byte) error {
				if !dataKey.HasPrefix(prefix) {
					return nil
				}

				names := res[dataKey]
				if names == nil {
					names = make(datastore.KeySet)
					res[dataKey] = names
				}

				names.Add(name)

				return nil
			})
	})

	if err != nil {
		return nil, s.fail("read", err)
	}

	return res, nil
}

// GetKey implements datastore.DataStore.
func (s *DataStore) GetKey(key datastore.Key, committed datastore.Committed) (datastore.Value, error) {
	err := datastore.CheckKey(key, datastore.DataKey)
	if err != nil {
		return nil, err
	}

	var value datastore.Value

	err = s.db.View(func(tx kv.ReadableTx) error {
		var err error
		value, err = readValue(tx, dataBucket(committed), key.Name())
		return err
	})

	if err != nil {
		return nil, s.fail("read", err)
	}

	if value == nil {
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

	var value datastore.Value

	err = s.db.View(func(tx kv.ReadableTx) error {
		var err error
		value, err = readValue(tx, metadataBucket(committed), metadataName(metadataKey, dataKey))
		return err
	})

	if err != nil {
		return nil, s.fail("read", err)
	}

	if value == nil {
		return nil, datastore.NewKeyNotFound(metadataName(metadataKey, dataKey))
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

	names := make(datastore.KeySet)

	err = s.db.View(func(tx kv.ReadableTx) error {
		return scanMetadata(tx, metadataBucket(committed), dataKey.Name()+metadataSeparator,
			func(_, name datastore.Key, _ []byte) error {
				names.Add(name)
				return nil
			})
	})

	if err != nil {
		return nil, s.fail("read", err)
	}

	return names, nil
}

// SetKeys implements datastore.DataStore. The batch is validated and written
// in the same transaction.
func (s *DataStore) SetKeys(pairs map[datastore.Key]datastore.Value,
	committed datastore.Committed) error {

	err := s.db.Update(func(tx kv.WritableTx) error {
		existing, err := readKeys(tx, dataBucket(committed), "")
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

		parcel := datastore.NewParcel()
		parcel.Data = normalized

		return storeParcel(tx, committed, parcel)
	})

	if err != nil {
		return s.fail("write", err)
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

	data, err := serialization.MarshalValue(value)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx kv.WritableTx) error {
		bucket, err := tx.GetBucketOrCreate(metadataBucket(committed))
		if err != nil {
			return err
		}

		return bucket.Set([]byte(metadataName(metadataKey, dataKey)), data)
	})

	if err != nil {
		return s.fail("write", err)
	}

	return nil
}

// DeleteKey implements datastore.DataStore.
func (s *DataStore) DeleteKey(key datastore.Key, committed datastore.Committed) error {
	err := datastore.CheckKey(key, datastore.DataKey)
	if err != nil {
		return err
	}

	return s.delete(dataBucket(committed), key.Name())
}

// DeleteMetadata implements datastore.DataStore.
func (s *DataStore) DeleteMetadata(metadataKey, dataKey datastore.Key,
	committed datastore.Committed) error {

	err := checkMetadataKeys(metadataKey, dataKey)
	if err != nil {
		return err
	}

	return s.delete(metadataBucket(committed), metadataName(metadataKey, dataKey))
}

func (s *DataStore) delete(bucketName []byte, name string) error {
	err := s.db.Update(func(tx kv.WritableTx) error {
		bucket := tx.GetBucket(bucketName)
		if bucket == nil {
			return nil
		}

		return bucket.Delete([]byte(name))
	})

	if err != nil {
		return s.fail("delete", err)
	}

	return nil
}

// fail returns the error of the data store, or wraps an error of the database
// as an IO error.
func (s *DataStore) fail(op string, err error) error {
	if datastore.KindOf(err) != datastore.KindUnknown {
		return err
	}

	return datastore.NewIO(op, s.path, err)
}

func dataBucket(committed datastore.Committed) []byte {
	if committed == datastore.Pending {
		return pendingData
	}

	return liveData
}

func metadataBucket(committed datastore.Committed) []byte {
	if committed == datastore.Pending {
		return pendingMetadata
	}

	return liveMetadata
}

func metadataName(metadataKey, dataKey datastore.Key) string {
	return dataKey.Name() + metadataSeparator + metadataKey.Name()
}

func checkMetadataKeys(metadataKey, dataKey datastore.Key) error {
	err := datastore.CheckKey(metadataKey, datastore.MetaKey)
	if err != nil {
		return err
	}

	return datastore.CheckKey(dataKey, datastore.DataKey)
}

// location returns the name of an entry used in the corruption errors.
func location(bucket []byte, name []byte) string {
	return string(bucket) + metadataSeparator + string(name)
}

// readValue decodes the value of the entry, or returns nil when the entry does
// not exist.
func readValue(tx kv.ReadableTx, bucketName []byte, name string) (datastore.Value, error) {
	bucket := tx.GetBucket(bucketName)
	if bucket == nil {
		return nil, nil
	}

	data := bucket.Get([]byte(name))
	if data == nil {
		return nil, nil
	}

	return decode(bucketName, []byte(name), data)
}

func decode(bucket, name, data []byte) (datastore.Value, error) {
	value, err := serialization.UnmarshalValue(data)
	if err != nil {
		return nil, datastore.NewCorruption(location(bucket, name), err.Error())
	}

	return value, nil
}

// readKeys returns the data keys of the bucket starting with the prefix.
func readKeys(tx kv.ReadableTx, bucketName []byte, prefix string) (datastore.KeySet, error) {
	keys := make(datastore.KeySet)

	bucket := tx.GetBucket(bucketName)
	if bucket == nil {
		return keys, nil
	}

	var names [][]byte

	err := bucket.Scan([]byte(prefix), func(k, _ []byte) error {
		names = append(names, append([]byte{}, k...))
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		key, err := datastore.NewKey(datastore.DataKey, string(name))
		if err != nil {
			return nil, datastore.NewCorruption(location(bucketName, name), "entry is not a valid key")
		}

		keys.Add(key)
	}

	return keys, nil
}

type metadataEntry struct {
	name  []byte
	value []byte
}

// scanMetadata calls the function for every metadata entry whose name starts
// with the prefix.
func scanMetadata(tx kv.ReadableTx, bucketName []byte, prefix string,
	fn func(dataKey, name datastore.Key, value []byte) error) error {

	bucket := tx.GetBucket(bucketName)
	if bucket == nil {
		return nil
	}

	var entries []metadataEntry

	err := bucket.Scan([]byte(prefix), func(k, v []byte) error {
		entries = append(entries, metadataEntry{
			name:  append([]byte{}, k...),
			value: append([]byte{}, v...),
		})
		return nil
	})
	if err != nil {
		return err
	}

	for _, entry := range entries {
		dataKey, name, err := parseMetadataName(string(entry.name))
		if err != nil {
			return datastore.NewCorruption(location(bucketName, entry.name), err.Error())
		}

		err = fn(dataKey, name, entry.value)
		if err != nil {
			return err
		}
	}

	return nil
}

func parseMetadataName(raw string) (datastore.Key, datastore.Key, error) {
	index := strings.LastIndex(raw, metadataSeparator)
	if index < 0 {
		return datastore.Key{}, datastore.Key{}, xerrors.New("missing metadata separator")
	}

	dataKey, err := datastore.NewKey(datastore.DataKey, raw[:index])
	if err != nil {
		return datastore.Key{}, datastore.Key{}, xerrors.New("entry is not a valid key")
	}

	name, err := datastore.NewKey(datastore.MetaKey, raw[index+1:])
	if err != nil {
		return datastore.Key{}, datastore.Key{}, xerrors.New("invalid metadata name")
	}

	return dataKey, name, nil
}
