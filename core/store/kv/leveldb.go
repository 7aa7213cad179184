package kv

import (
	"encoding/binary"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"golang.org/x/xerrors"
)

// LevelDB has a single key space, so a bucket is a key prefix made of the
// length of its name followed by the name. The prefix alone is the marker of
// an existing bucket.

// levelDB is an adapter of the KV store using LevelDB.
//
// - implements kv.DB
type levelDB struct {
	db *leveldb.DB
}

// NewLevelDB opens the LevelDB database in the given directory, or creates
// it.
func NewLevelDB(path string) (DB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to open db: %v", err)
	}

	return levelDB{db: db}, nil
}

// NewLevelDBWithStorage opens a LevelDB database on top of the storage, like
// an in-memory one.
func NewLevelDBWithStorage(stor storage.Storage) (DB, error) {
	db, err := leveldb.Open(stor, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to open db: %v", err)
	}

	return levelDB{db: db}, nil
}

// View implements kv.DB. It reads the bucket from a snapshot of the database.
func (db levelDB) View(bucket []byte, fn func(Bucket) error) error {
	snap, err := db.db.GetSnapshot()
	if err != nil {
		return xerrors.Errorf("failed to read snapshot: %v", err)
	}

	defer snap.Release()

	prefix := bucketPrefix(bucket)

	found, err := snap.Has(prefix, nil)
	if err != nil {
		return xerrors.Errorf("failed to read bucket: %v", err)
	}

	if !found {
		return xerrors.Errorf("bucket '%x': %w", bucket, ErrBucketNotFound)
	}

	return fn(levelBucket{prefix: prefix, reader: snap})
}

// Update implements kv.DB. It applies the callback in a LevelDB transaction
// that is committed only if the callback succeeds.
func (db levelDB) Update(bucket []byte, fn func(Bucket) error) error {
	if len(bucket) == 0 {
		return xerrors.New("failed to create bucket: bucket name required")
	}

	txn, err := db.db.OpenTransaction()
	if err != nil {
		return xerrors.Errorf("failed to open transaction: %v", err)
	}

	prefix := bucketPrefix(bucket)

	err = txn.Put(prefix, nil, nil)
	if err != nil {
		txn.Discard()
		return xerrors.Errorf("failed to create bucket: %v", err)
	}

	err = fn(levelBucket{prefix: prefix, reader: txn, writer: txn})
	if err != nil {
		txn.Discard()
		return err
	}

	err = txn.Commit()
	if err != nil {
		return xerrors.Errorf("failed to commit: %v", err)
	}

	return nil
}

// Close implements kv.DB.
func (db levelDB) Close() error {
	return db.db.Close()
}

type levelReader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

type levelWriter interface {
	Put(key, value []byte, wo *opt.WriteOptions) error
	Delete(key []byte, wo *opt.WriteOptions) error
}

// levelBucket is the adapter of a key prefix of LevelDB to the kv.Bucket
// interface.
//
// - implements kv.Bucket
type levelBucket struct {
	prefix []byte
	reader levelReader
	writer levelWriter
}

// Get implements kv.Bucket.
func (b levelBucket) Get(key []byte) []byte {
	if len(key) == 0 {
		return nil
	}

	value, err := b.reader.Get(b.key(key), nil)
	if err != nil {
		return nil
	}

	return value
}

// Set implements kv.Bucket.
func (b levelBucket) Set(key, value []byte) error {
	if b.writer == nil {
		return xerrors.New("tx not writable")
	}

	if len(key) == 0 {
		return xerrors.New("key required")
	}

	return b.writer.Put(b.key(key), value, nil)
}

// Delete implements kv.Bucket.
func (b levelBucket) Delete(key []byte) error {
	if b.writer == nil {
		return xerrors.New("tx not writable")
	}

	if len(key) == 0 {
		return nil
	}

	return b.writer.Delete(b.key(key), nil)
}

// ForEach implements kv.Bucket.
func (b levelBucket) ForEach(fn func(k, v []byte) error) error {
	return b.Scan(nil, fn)
}

// Scan implements kv.Bucket.
func (b levelBucket) Scan(prefix []byte, fn func(k, v []byte) error) error {
	iter := b.reader.NewIterator(util.BytesPrefix(b.key(prefix)), nil)
	defer iter.Release()

	for iter.Next() {
		key := iter.Key()[len(b.prefix):]
		if len(key) == 0 {
			// Bucket marker.
			continue
		}

		// The iterator reuses its buffers.
		k := append([]byte(nil), key...)
		v := append([]byte(nil), iter.Value()...)

		err := fn(k, v)
		if err != nil {
			return err
		}
	}

	err := iter.Error()
	if err != nil {
		return xerrors.Errorf("failed to iterate: %v", err)
	}

	return nil
}

func (b levelBucket) key(key []byte) []byte {
	full := make([]byte, 0, len(b.prefix)+len(key))
	full = append(full, b.prefix...)

	return append(full, key...)
}

func bucketPrefix(name []byte) []byte {
	prefix := binary.AppendUvarint(nil, uint64(len(name)))

	return append(prefix, name...)
}
