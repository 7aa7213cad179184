package fake

import (
	"bytes"
	"sort"

	"go.dedis.ch/objdb/core/store/kv"
	"golang.org/x/xerrors"
)

// InMemoryDB is a fake implementation of a key/value database.
//
// - implements kv.DB
type InMemoryDB struct {
	buckets map[string]*InMemoryBucket

	ErrView   error
	ErrUpdate error
	Calls     *Call
}

// NewInMemoryDB returns a new empty database.
func NewInMemoryDB() *InMemoryDB {
	return &InMemoryDB{
		buckets: make(map[string]*InMemoryBucket),
	}
}

// NewBadDB returns a database that returns an error on every transaction.
func NewBadDB() *InMemoryDB {
	db := NewInMemoryDB()
	db.ErrView = fakeErr
	db.ErrUpdate = fakeErr

	return db
}

// SetBucket sets the bucket of the given name.
func (db *InMemoryDB) SetBucket(name []byte, b *InMemoryBucket) {
	db.buckets[string(name)] = b
}

// View implements kv.DB.
func (db *InMemoryDB) View(name []byte, fn func(kv.Bucket) error) error {
	db.Calls.Add("view", name)

	if db.ErrView != nil {
		return db.ErrView
	}

	b, found := db.buckets[string(name)]
	if !found {
		return xerrors.Errorf("bucket '%x': %w", name, kv.ErrBucketNotFound)
	}

	return fn(b)
}

// Update implements kv.DB.
func (db *InMemoryDB) Update(name []byte, fn func(kv.Bucket) error) error {
	db.Calls.Add("update", name)

	if db.ErrUpdate != nil {
		return db.ErrUpdate
	}

	b, found := db.buckets[string(name)]
	if !found {
		b = NewBucket()
		db.buckets[string(name)] = b
	}

	return fn(b)
}

// Close implements kv.DB.
func (db *InMemoryDB) Close() error {
	db.Calls.Add("close")

	return nil
}

// InMemoryBucket is a fake implementation of a bucket.
//
// - implements kv.Bucket
type InMemoryBucket struct {
	values map[string][]byte

	ErrSet    error
	ErrDelete error
	ErrScan   error
}

// NewBucket returns a new empty bucket.
func NewBucket() *InMemoryBucket {
	return &InMemoryBucket{
		values: make(map[string][]byte),
	}
}

// NewBadBucket returns a bucket that fails to write, delete and scan.
func NewBadBucket() *InMemoryBucket {
	b := NewBucket()
	b.ErrSet = fakeErr
	b.ErrDelete = fakeErr
	b.ErrScan = fakeErr

	return b
}

// Get implements kv.Bucket.
func (b *InMemoryBucket) Get(key []byte) []byte {
	return b.values[string(key)]
}

// Set implements kv.Bucket.
func (b *InMemoryBucket) Set(key, value []byte) error {
	if b.ErrSet != nil {
		return b.ErrSet
	}

	b.values[string(key)] = value

	return nil
}

// Delete implements kv.Bucket.
func (b *InMemoryBucket) Delete(key []byte) error {
	if b.ErrDelete != nil {
		return b.ErrDelete
	}

	delete(b.values, string(key))

	return nil
}

// ForEach implements kv.Bucket.
func (b *InMemoryBucket) ForEach(fn func(k, v []byte) error) error {
	return b.Scan(nil, fn)
}

// Scan implements kv.Bucket. It iterates over the keys in byte order.
func (b *InMemoryBucket) Scan(prefix []byte, fn func(k, v []byte) error) error {
	if b.ErrScan != nil {
		return b.ErrScan
	}

	keys := make([]string, 0, len(b.values))
	for key := range b.values {
		if bytes.HasPrefix([]byte(key), prefix) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	for _, key := range keys {
		err := fn([]byte(key), b.values[key])
		if err != nil {
			return err
		}
	}

	return nil
}
