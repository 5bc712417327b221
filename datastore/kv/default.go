package kv

import (
	"bytes"
	"time"

	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

// openTimeout is the maximum amount of time to wait for the file lock held by
// another process.
const openTimeout = time.Second

// boltDB is an adapter of the KV store using bboltdb.
//
// - implements kv.DB
type boltDB struct {
	bolt *bbolt.DB
}

// New opens the database at the given path, and creates the file if it does
// not exist yet.
func New(path string) (DB, error) {
	db, err := bbolt.Open(path, 0o644, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, xerrors.Errorf("failed to open db: %v", err)
	}

	return boltDB{bolt: db}, nil
}

// View implements kv.DB. It opens a read-only transaction.
func (db boltDB) View(fn func(ReadableTx) error) error {
	return db.bolt.View(func(txn *bbolt.Tx) error {
		return fn(boltTx{txn: txn, cbs: new([]func())})
	})
}

// Update implements kv.DB. It opens a read-write transaction that is committed
// when the function returns without error.
func (db boltDB) Update(fn func(WritableTx) error) error {
	return db.bolt.Update(func(txn *bbolt.Tx) error {
		tx := boltTx{txn: txn, cbs: new([]func())}

		err := fn(tx)
		if err != nil {
			return err
		}

		for _, cb := range tx.callbacks() {
			txn.OnCommit(cb)
		}

		return nil
	})
}

// Close implements kv.DB. It closes the database. Any view or update call will
// result in an error after this function is called.
func (db boltDB) Close() error {
	return db.bolt.Close()
}

// boltTx is the adapter of a bbolt transaction.
//
// - implements kv.WritableTx
type boltTx struct {
	txn *bbolt.Tx
	cbs *[]func()
}

func (tx boltTx) callbacks() []func() {
	return *tx.cbs
}

// GetBucket implements kv.ReadableTx.
func (tx boltTx) GetBucket(name []byte) Bucket {
	bucket := tx.txn.Bucket(name)
	if bucket == nil {
		return nil
	}

	return boltBucket{bucket: bucket}
}

// GetBucketOrCreate implements kv.WritableTx.
func (tx boltTx) GetBucketOrCreate(name []byte) (Bucket, error) {
	bucket, err := tx.txn.CreateBucketIfNotExists(name)
	if err != nil {
		return nil, xerrors.Errorf("failed to create bucket: %v", err)
	}

	return boltBucket{bucket: bucket}, nil
}

// DeleteBucket implements kv.WritableTx.
func (tx boltTx) DeleteBucket(name []byte) error {
	err := tx.txn.DeleteBucket(name)
	if err != nil && !xerrors.Is(err, bbolt.ErrBucketNotFound) {
		return xerrors.Errorf("failed to delete bucket: %v", err)
	}

	return nil
}

// OnCommit implements kv.WritableTx. The callbacks are registered on the
// underlying transaction only when the update function succeeds.
func (tx boltTx) OnCommit(fn func()) {
	*tx.cbs = append(*tx.cbs, fn)
}

// boltBucket is the adapter of a bbolt bucket to the kv.Bucket interface.
//
// - implements kv.Bucket
type boltBucket struct {
	bucket *bbolt.Bucket
}

// Get implements kv.Bucket. It returns the value associated to the key.
func (txn boltBucket) Get(key []byte) []byte {
	return txn.bucket.Get(key)
}

// Set implements kv.Bucket. It sets the provided key to the value.
func (txn boltBucket) Set(key, value []byte) error {
	return txn.bucket.Put(key, value)
}

// Delete implements kv.Bucket. It deletes the key from the bucket.
func (txn boltBucket) Delete(key []byte) error {
	return txn.bucket.Delete(key)
}

// ForEach implements kv.Bucket. It iterates over the whole bucket.
func (txn boltBucket) ForEach(fn func(k, v []byte) error) error {
	return txn.bucket.ForEach(fn)
}

// Scan implements kv.Bucket. It iterates over the keys matching the prefix.
func (txn boltBucket) Scan(prefix []byte, fn func(k, v []byte) error) error {
	cursor := txn.bucket.Cursor()

	for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
		err := fn(k, v)
		if err != nil {
			return xerrors.Errorf("callback failed: %w", err)
		}
	}

	return nil
}
