// Package kv defines the abstraction for a key/value database.
//
// The package also implements a default database implementation that is using
// bbolt as the engine (https://github.com/etcd-io/bbolt).
//
// Documentation Last Review: 18.10.2026
package kv

// Bucket is a general interface to operate on a database bucket.
type Bucket interface {
	// Get reads the key from the bucket and returns the value, or nil if the
	// key does not exist.
	Get(key []byte) []byte

	// Set assigns the value to the provided key.
	Set(key, value []byte) error

	// Delete deletes the key from the bucket.
	Delete(key []byte) error

	// ForEach iterates over all the items in the bucket in the order of the
	// keys. The iteration stops when the callback returns an error.
	ForEach(fn func(k, v []byte) error) error

	// Scan iterates over every key that matches the prefix in the order of the
	// keys. The iteration stops when the callback returns an error.
	Scan(prefix []byte, fn func(k, v []byte) error) error
}

// ReadableTx allows one to perform read-only atomic operations on the database.
type ReadableTx interface {
	// GetBucket returns the bucket of the given name if it exists, otherwise it
	// returns nil.
	GetBucket(name []byte) Bucket
}

// WritableTx allows one to perform atomic operations on the database.
type WritableTx interface {
	ReadableTx

	// GetBucketOrCreate returns the bucket of the given name if it exists, or
	// it creates it.
	GetBucketOrCreate(name []byte) (Bucket, error)

	// DeleteBucket removes the bucket and every key it holds. Removing a
	// bucket that does not exist is not an error.
	DeleteBucket(name []byte) error

	// OnCommit adds a callback to be executed after the transaction
	// successfully commits.
	OnCommit(fn func())
}

// DB is a general interface to operate over a key/value database.
type DB interface {
	// View executes the provided read-only transaction in the context of the
	// database. The error of the function is returned as is.
	View(fn func(ReadableTx) error) error

	// Update executes the provided writable transaction in the context of the
	// database. The transaction is rolled back when the function returns an
	// error, which is then returned as is.
	Update(fn func(WritableTx) error) error

	// Close closes the database and free the resources.
	Close() error
}
