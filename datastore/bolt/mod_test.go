package bolt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmt-lab/bottlerocket/datastore"
	"github.com/jmt-lab/bottlerocket/datastore/kv"
	"github.com/jmt-lab/bottlerocket/internal/testing/fake"
	"github.com/jmt-lab/bottlerocket/internal/testing/suite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestDataStore_Suite(t *testing.T) {
	suite.Run(t, func(t *testing.T) datastore.DataStore {
		return makeStore(t, WithLogger(zerolog.Nop()))
	})
}

func TestDataStore_New(t *testing.T) {
	store, err := NewDataStore(filepath.Join(makeDir(t), "missing", "datastore.db"))
	require.Nil(t, store)
	require.Equal(t, datastore.KindIO, datastore.KindOf(err))
}

func TestDataStore_Persistence(t *testing.T) {
	path := filepath.Join(makeDir(t), "datastore.db")

	store, err := NewDataStore(path)
	require.NoError(t, err)
	require.Equal(t, path, store.Path())

	err = store.SetKeys(map[datastore.Key]datastore.Value{key("a.b"): 1.5}, datastore.Pending)
	require.NoError(t, err)

	err = store.SetMetadata(datastore.DefaultsMetadata, key("a.b"), true, datastore.Pending)
	require.NoError(t, err)

	require.NoError(t, store.Close())

	store, err = NewDataStore(path)
	require.NoError(t, err)

	defer store.Close()

	committed, err := store.Commit()
	require.NoError(t, err)
	require.Equal(t, []string{"a.b"}, committed.Names())

	value, err := store.GetKey(key("a.b"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, 1.5, value)

	p, err := datastore.GetProvenance(store, key("a.b"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, datastore.ProvenanceDefault, p)
}

func TestDataStore_Encoding(t *testing.T) {
	store := makeStore(t)

	err := store.SetKeys(map[datastore.Key]datastore.Value{
		key("network.dns.resolvers"): []interface{}{"1.1.1.1"},
	}, datastore.Live)
	require.NoError(t, err)

	err = store.SetMetadata(meta("generator"), key("network.dns.resolvers"), "script",
		datastore.Live)
	require.NoError(t, err)

	err = store.db.View(func(tx kv.ReadableTx) error {
		data := tx.GetBucket(liveData).Get([]byte("network.dns.resolvers"))
		require.Equal(t, "- \"1.1.1.1\"\n", string(data))

		data = tx.GetBucket(liveMetadata).Get([]byte("network.dns.resolvers/generator"))
		require.Equal(t, "\"script\"\n", string(data))

		return nil
	})
	require.NoError(t, err)
}

func TestDataStore_Commit_Logs(t *testing.T) {
	logger, check := fake.CheckLog(zerolog.InfoLevel, "committed pending version")

	store := makeStore(t, WithLogger(logger))

	err := store.SetKeys(map[datastore.Key]datastore.Value{key("a"): "x"}, datastore.Pending)
	require.NoError(t, err)

	_, err = store.Commit()
	require.NoError(t, err)

	entry := check(t)
	require.Equal(t, 1.0, entry["keys"])
}

func TestDataStore_Commit_CorruptedPending(t *testing.T) {
	store := makeStore(t, WithLogger(zerolog.Nop()))

	err := store.SetKeys(map[datastore.Key]datastore.Value{key("a"): "x"}, datastore.Live)
	require.NoError(t, err)

	err = store.SetKeys(map[datastore.Key]datastore.Value{key("b"): "y"}, datastore.Pending)
	require.NoError(t, err)

	setRaw(t, store, pendingData, "broken", "a: b\n")

	_, err = store.Commit()
	require.Equal(t, datastore.KindCorruption, datastore.KindOf(err))

	// The transaction is rolled back and both versions are untouched.
	keys, err := store.ListPopulatedKeys("", datastore.Pending)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "broken"}, keys.Names())

	value, err := store.GetKey(key("a"), datastore.Live)
	require.NoError(t, err)
	require.Equal(t, "x", value)
}

func TestDataStore_Corruption(t *testing.T) {
	store := makeStore(t)

	setRaw(t, store, liveData, "bad", "{a: 1}\n")

	_, err := store.GetKey(key("bad"), datastore.Live)
	require.Equal(t, datastore.KindCorruption, datastore.KindOf(err))

	setRaw(t, store, liveData, "bad name", "1\n")

	_, err = store.ListPopulatedKeys("", datastore.Live)
	require.EqualError(t, err,
		"corrupted data in 'live.data/bad name': entry is not a valid key")

	setRaw(t, store, liveMetadata, "orphan", "1\n")

	_, err = store.ListPopulatedMetadata("", datastore.Live)
	require.EqualError(t, err,
		"corrupted data in 'live.metadata/orphan': missing metadata separator")

	setRaw(t, store, pendingMetadata, "a/b.c", "1\n")

	_, err = store.GetMetadataKeysFor(key("a"), datastore.Pending)
	require.EqualError(t, err,
		"corrupted data in 'pending.metadata/a/b.c': invalid metadata name")
}

func TestDataStore_DatabaseFailure(t *testing.T) {
	store := makeStore(t)
	store.db = badDB{}

	_, err := store.ListPopulatedKeys("", datastore.Live)
	require.EqualError(t, err, "failed to read '"+store.path+"': oops")

	_, err = store.GetKey(key("a"), datastore.Live)
	require.Equal(t, datastore.KindIO, datastore.KindOf(err))

	err = store.SetKeys(map[datastore.Key]datastore.Value{key("a"): "x"}, datastore.Live)
	require.EqualError(t, err, "failed to write '"+store.path+"': oops")

	err = store.DeleteKey(key("a"), datastore.Live)
	require.EqualError(t, err, "failed to delete '"+store.path+"': oops")

	_, err = store.Commit()
	require.EqualError(t, err, "failed to commit '"+store.path+"': oops")

	_, err = store.DeletePending()
	require.Equal(t, datastore.KindIO, datastore.KindOf(err))

	err = store.Close()
	require.EqualError(t, err, "failed to close database '"+store.path+"': oops")
}

// -----------------------------------------------------------------------------
// Utility functions

func key(name string) datastore.Key {
	return datastore.MustKey(datastore.DataKey, name)
}

func meta(name string) datastore.Key {
	return datastore.MustKey(datastore.MetaKey, name)
}

func makeDir(t *testing.T) string {
	dir, err := os.MkdirTemp(os.TempDir(), "bottlerocket-bolt")
	require.NoError(t, err)

	t.Cleanup(func() { os.RemoveAll(dir) })

	return dir
}

func makeStore(t *testing.T, opts ...Option) *DataStore {
	store, err := NewDataStore(filepath.Join(makeDir(t), "datastore.db"), opts...)
	require.NoError(t, err)

	db := store.db
	t.Cleanup(func() { db.Close() })

	return store
}

func setRaw(t *testing.T, store *DataStore, bucket []byte, name, value string) {
	err := store.db.Update(func(tx kv.WritableTx) error {
		b, err := tx.GetBucketOrCreate(bucket)
		if err != nil {
			return err
		}

		return b.Set([]byte(name), []byte(value))
	})
	require.NoError(t, err)
}

type badDB struct{}

func (badDB) View(func(kv.ReadableTx) error) error {
	return xerrors.New("oops")
}

func (badDB) Update(func(kv.WritableTx) error) error {
	return xerrors.New("oops")
}

func (badDB) Close() error {
	return xerrors.New("oops")
}
