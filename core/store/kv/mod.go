// Package kv defines the abstraction for a key/value database partitioned in
// buckets.
//
// The package implements two engines: bbolt (https://github.com/etcd-io/bbolt)
// which is the default, and LevelDB (https://github.com/syndtr/goleveldb).
package kv

import (
	"golang.org/x/xerrors"
)

// Backend is the name of a database engine.
type Backend string

const (
	// BackendBolt is the bbolt engine.
	BackendBolt Backend = "bolt"
	// BackendLevelDB is the LevelDB engine.
	BackendLevelDB Backend = "leveldb"
)

// ErrBucketNotFound is returned by a read-only transaction when the bucket
// does not exist.
var ErrBucketNotFound = xerrors.New("bucket not found")

// Bucket is a general interface to operate on a database bucket.
type Bucket interface {
	// Get reads the key from the bucket and returns the value, or nil if the
	// key does not exist.
	Get(key []byte) []byte

	// Set assigns the value to the provided key.
	Set(key, value []byte) error

	// Delete deletes the key from the bucket.
	Delete(key []byte) error

	// ForEach iterates over all the items in the bucket in the byte order of
	// the keys. The iteration stops when the callback returns an error, which
	// is returned unchanged.
	ForEach(func(k, v []byte) error) error

	// Scan iterates over every key that matches the prefix in the byte order
	// of the keys. The iteration stops when the callback returns an error,
	// which is returned unchanged.
	Scan(prefix []byte, fn func(k, v []byte) error) error
}

// DB is a general interface to operate over a key/value database.
type DB interface {
	// View executes the provided read-only transaction on the bucket. It
	// returns an error wrapping ErrBucketNotFound if the bucket does not exist.
	View(bucket []byte, fn func(Bucket) error) error

	// Update executes the provided writable transaction on the bucket, which
	// is created if necessary. Nothing is written if the callback fails.
	Update(bucket []byte, fn func(Bucket) error) error

	// Close closes the database and free the resources.
	Close() error
}

// Open opens the database of the backend at the given path.
func Open(backend Backend, path string) (DB, error) {
	switch backend {
	case BackendBolt, "":
		return New(path)
	case BackendLevelDB:
		return NewLevelDB(path)
	default:
		return nil, xerrors.Errorf("unknown backend '%s'", backend)
	}
}
