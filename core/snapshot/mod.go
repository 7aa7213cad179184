// Package snapshot persists the objects of generic stores into a bucket of a
// key/value database, and restores them.
//
// An object is written under the binary form of its identity, so that the
// objects of a kind share the two bytes of its space and type as a prefix. The
// counter of the allocator of the kind is written under that prefix alone, so
// that identities are never reassigned after a restore.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/rs/zerolog"
	"go.dedis.ch/objdb"
	"go.dedis.ch/objdb/core/generic"
	"go.dedis.ch/objdb/core/object"
	"go.dedis.ch/objdb/core/store/kv"
	"go.dedis.ch/objdb/serde"
	"golang.org/x/xerrors"
)

const counterLength = 8

// Record is the constraint of the objects that can be persisted.
type Record[T any] interface {
	object.Object[T]
	serde.Message
}

// Source is a store that can be written to and read from a bucket.
type Source interface {
	// Name returns the name of the store.
	Name() string

	// Len returns the number of objects in the store.
	Len() int

	save(ctx serde.Context, b kv.Bucket) error
	load(ctx serde.Context, b kv.Bucket) error
}

// Of returns the source of the store. The factory must return objects of the
// type of the store.
func Of[T Record[T]](store *generic.Store[T], factory serde.Factory) Source {
	return storeSource[T]{
		store:   store,
		factory: factory,
	}
}

// Snapshot writes and reads sources to and from a bucket.
type Snapshot struct {
	db     kv.DB
	bucket []byte
	ctx    serde.Context
	logger zerolog.Logger
}

// New returns a snapshot of the bucket of the database. The objects are
// serialized with the context.
func New(db kv.DB, bucket string, ctx serde.Context) Snapshot {
	return Snapshot{
		db:     db,
		bucket: []byte(bucket),
		ctx:    ctx,
		logger: objdb.Logger.With().Str("bucket", bucket).Logger(),
	}
}

// Save replaces the content of the bucket of each source with the current
// objects of the source in a single transaction.
func (s Snapshot) Save(sources ...Source) error {
	err := s.db.Update(s.bucket, func(b kv.Bucket) error {
		for _, src := range sources {
			err := src.save(s.ctx, b)
			if err != nil {
				return xerrors.Errorf("failed to save %s: %v", src.Name(), err)
			}
		}

		return nil
	})

	if err != nil {
		return xerrors.Errorf("failed to write snapshot: %v", err)
	}

	for _, src := range sources {
		s.logger.Debug().Str("store", src.Name()).Int("objects", src.Len()).Msg("saved")
	}

	return nil
}

// Load restores the objects of each source. The stores must be empty, and
// they are left partially restored when an error is returned. A bucket that
// does not exist is an empty snapshot.
func (s Snapshot) Load(sources ...Source) error {
	for _, src := range sources {
		if src.Len() > 0 {
			return xerrors.Errorf("store %s is not empty", src.Name())
		}
	}

	err := s.db.View(s.bucket, func(b kv.Bucket) error {
		for _, src := range sources {
			err := src.load(s.ctx, b)
			if err != nil {
				return xerrors.Errorf("failed to load %s: %w", src.Name(), err)
			}
		}

		return nil
	})

	if errors.Is(err, kv.ErrBucketNotFound) {
		s.logger.Debug().Msg("no snapshot")
		return nil
	}

	if err != nil {
		return xerrors.Errorf("failed to read snapshot: %w", err)
	}

	for _, src := range sources {
		s.logger.Debug().Str("store", src.Name()).Int("objects", src.Len()).Msg("loaded")
	}

	return nil
}

// storeSource is the source of a generic store.
//
// - implements snapshot.Source
type storeSource[T Record[T]] struct {
	store   *generic.Store[T]
	factory serde.Factory
}

// Name implements snapshot.Source.
func (src storeSource[T]) Name() string {
	return src.store.Name()
}

// Len implements snapshot.Source.
func (src storeSource[T]) Len() int {
	return src.store.Len()
}

func (src storeSource[T]) prefix() []byte {
	space, typ := src.store.Kind()

	return []byte{space, typ}
}

func (src storeSource[T]) save(ctx serde.Context, b kv.Bucket) error {
	prefix := src.prefix()

	// Keys are deleted after the scan as some engines forbid writes while
	// iterating.
	var stale [][]byte
	err := b.Scan(prefix, func(k, v []byte) error {
		stale = append(stale, append([]byte(nil), k...))
		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to scan: %v", err)
	}

	for _, key := range stale {
		err = b.Delete(key)
		if err != nil {
			return xerrors.Errorf("failed to delete %x: %v", key, err)
		}
	}

	for obj := range src.store.Each() {
		data, err := obj.Serialize(ctx)
		if err != nil {
			return xerrors.Errorf("failed to serialize %v: %v", obj.GetID(), err)
		}

		err = b.Set(obj.GetID().Bytes(), data)
		if err != nil {
			return xerrors.Errorf("failed to write %v: %v", obj.GetID(), err)
		}
	}

	counter := make([]byte, counterLength)
	binary.BigEndian.PutUint64(counter, src.store.Allocator().Peek(prefix[0], prefix[1]))

	err = b.Set(prefix, counter)
	if err != nil {
		return xerrors.Errorf("failed to write counter: %v", err)
	}

	return nil
}

func (src storeSource[T]) load(ctx serde.Context, b kv.Bucket) error {
	prefix := src.prefix()
	next := uint64(0)

	err := b.Scan(prefix, func(k, v []byte) error {
		if len(k) == len(prefix) {
			if len(v) != counterLength {
				return xerrors.Errorf("invalid counter length: %d", len(v))
			}

			next = binary.BigEndian.Uint64(v)
			return nil
		}

		msg, err := src.factory.Deserialize(ctx, v)
		if err != nil {
			return xerrors.Errorf("failed to deserialize %x: %v", k, err)
		}

		obj, ok := msg.(T)
		if !ok {
			return xerrors.Errorf("invalid message of type '%T'", msg)
		}

		if !bytes.Equal(obj.GetID().Bytes(), k) {
			return xerrors.Errorf("object %v stored under %x", obj.GetID(), k)
		}

		err = src.store.Restore(obj)
		if err != nil {
			return xerrors.Errorf("failed to restore: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	src.store.Allocator().Advance(prefix[0], prefix[1], next)

	return nil
}
