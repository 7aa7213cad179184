package kv

import (
	"bytes"
	"time"

	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

// boltTimeout is how long opening the file waits for the lock of another
// process.
const boltTimeout = time.Second

// boltDB is the bbolt engine, where a bucket is a native bbolt bucket.
//
// - implements kv.DB
type boltDB struct {
	bolt *bbolt.DB
}

// New opens the bbolt database at the given path, or creates it.
func New(path string) (DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: boltTimeout})
	if err != nil {
		return nil, xerrors.Errorf("failed to open db: %v", err)
	}

	return boltDB{bolt: db}, nil
}

// View implements kv.DB.
func (db boltDB) View(name []byte, fn func(Bucket) error) error {
	return db.bolt.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(name)
		if bucket == nil {
			return xerrors.Errorf("bucket '%x': %w", name, ErrBucketNotFound)
		}

		return fn(boltBucket{inner: bucket})
	})
}

// Update implements kv.DB. bbolt rolls back the transaction when the callback
// fails.
func (db boltDB) Update(name []byte, fn func(Bucket) error) error {
	return db.bolt.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(name)
		if err != nil {
			return xerrors.Errorf("failed to create bucket: %v", err)
		}

		return fn(boltBucket{inner: bucket})
	})
}

// Close implements kv.DB.
func (db boltDB) Close() error {
	return db.bolt.Close()
}

// boltBucket is a bbolt bucket within the transaction of the callback.
//
// - implements kv.Bucket
type boltBucket struct {
	inner *bbolt.Bucket
}

// Get implements kv.Bucket.
func (b boltBucket) Get(key []byte) []byte {
	return b.inner.Get(key)
}

// Set implements kv.Bucket.
func (b boltBucket) Set(key, value []byte) error {
	return b.inner.Put(key, value)
}

// Delete implements kv.Bucket.
func (b boltBucket) Delete(key []byte) error {
	return b.inner.Delete(key)
}

// ForEach implements kv.Bucket.
func (b boltBucket) ForEach(fn func(k, v []byte) error) error {
	return b.Scan(nil, fn)
}

// Scan implements kv.Bucket. The keys and values are only valid during the
// transaction.
func (b boltBucket) Scan(prefix []byte, fn func(k, v []byte) error) error {
	cursor := b.inner.Cursor()

	k, v := cursor.Seek(prefix)
	for k != nil && bytes.HasPrefix(k, prefix) {
		err := fn(k, v)
		if err != nil {
			return err
		}

		k, v = cursor.Next()
	}

	return nil
}
