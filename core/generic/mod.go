// Package generic implements the store of a kind of object. The store owns the
// objects and keeps every index consistent with them: a mutation either
// updates all the indices or, when it fails, none of them.
//
// Mutations are recorded in the innermost active session of the undo manager
// of the store, so that they can be reverted.
//
// The store is not safe for concurrent use. Callers must serialize the
// mutations, and protect the reads with an external lock if they happen
// concurrently.
package generic

import (
	"fmt"
	"iter"

	"github.com/rs/zerolog"
	"go.dedis.ch/objdb"
	"go.dedis.ch/objdb/core/identity"
	"go.dedis.ch/objdb/core/index"
	"go.dedis.ch/objdb/core/object"
	"go.dedis.ch/objdb/core/undo"
	"golang.org/x/xerrors"
)

var (
	// ErrValidation is returned when an object breaks one of its invariants.
	ErrValidation = xerrors.New("validation failed")

	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = xerrors.New("not found")

	// ErrConflict is returned when an object uses a projection already taken
	// in a unique index.
	ErrConflict = xerrors.New("unique index conflict")

	// ErrUnknownIndex is returned when an index name is not declared.
	ErrUnknownIndex = xerrors.New("unknown index")
)

// Option is the type of the options to create a store.
type Option[T object.Object[T]] func(*Store[T])

// WithAllocator sets the identity allocator of the store. It allows several
// stores to share the same allocator.
func WithAllocator[T object.Object[T]](alloc *identity.Allocator) Option[T] {
	return func(s *Store[T]) {
		s.alloc = alloc
	}
}

// WithUndo sets the undo manager of the store.
func WithUndo[T object.Object[T]](manager *undo.Manager) Option[T] {
	return func(s *Store[T]) {
		s.undo = manager
	}
}

// WithIndex declares a secondary index.
func WithIndex[T object.Object[T]](idx index.Index[T]) Option[T] {
	return func(s *Store[T]) {
		s.indices = append(s.indices, idx)
	}
}

// WithName sets the name of the store used in the logs and the metrics.
func WithName[T object.Object[T]](name string) Option[T] {
	return func(s *Store[T]) {
		s.name = name
	}
}

// Store is the generic index of the objects of one space and type.
type Store[T object.Object[T]] struct {
	name    string
	space   uint8
	typ     uint8
	alloc   *identity.Allocator
	undo    *undo.Manager
	primary *index.Primary[T]
	indices []index.Index[T]
	byName  map[string]index.Index[T]
	logger  zerolog.Logger
	metrics storeMetrics
}

// NewStore creates an empty store for the objects of the space and type.
func NewStore[T object.Object[T]](space, typ uint8, opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		name:    fmt.Sprintf("%d.%d", space, typ),
		space:   space,
		typ:     typ,
		primary: index.NewPrimary[T](),
		byName:  make(map[string]index.Index[T]),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.alloc == nil {
		s.alloc = identity.NewAllocator()
	}

	if s.undo == nil {
		s.undo = undo.NewManager()
	}

	for _, idx := range s.indices {
		s.byName[idx.Name()] = idx
	}

	s.logger = objdb.Logger.With().Str("store", s.name).Logger()
	s.metrics = newStoreMetrics(s.name)

	return s
}

// Name returns the name of the store.
func (s *Store[T]) Name() string {
	return s.name
}

// Kind returns the space and the type of the objects of the store.
func (s *Store[T]) Kind() (uint8, uint8) {
	return s.space, s.typ
}

// Allocator returns the identity allocator of the store.
func (s *Store[T]) Allocator() *identity.Allocator {
	return s.alloc
}

// Undo returns the undo manager of the store.
func (s *Store[T]) Undo() *undo.Manager {
	return s.undo
}

// Len returns the number of objects.
func (s *Store[T]) Len() int {
	return s.primary.Len()
}

// Indices returns the names of the secondary indices in declaration order.
func (s *Store[T]) Indices() []string {
	names := make([]string, len(s.indices))
	for i, idx := range s.indices {
		names[i] = idx.Name()
	}

	return names
}

// Insert allocates a new identity and builds the object with the constructor.
// The object is inserted if it is valid. The sequence of the identity is
// consumed even when the insertion fails.
func (s *Store[T]) Insert(ctor func(identity.ID) T) (identity.ID, error) {
	id := identity.New(s.space, s.typ, s.alloc.Next(s.space, s.typ))

	obj := ctor(id)

	if obj.GetID() != id {
		return id, xerrors.Errorf("constructor changed identity %v to %v: %w",
			id, obj.GetID(), ErrValidation)
	}

	err := s.check(obj)
	if err != nil {
		return id, xerrors.Errorf("failed to insert %v: %w", id, err)
	}

	// The constructor may keep references to the fields of the object.
	obj = obj.Clone()
	s.add(obj)
	s.undo.Record(insertEntry[T]{store: s, id: id})

	s.metrics.inserted()
	s.logger.Trace().Stringer("id", id).Msg("object inserted")

	return id, nil
}

// Restore inserts an object that already has an identity, typically read back
// from a snapshot. The allocator is advanced past the identity.
func (s *Store[T]) Restore(obj T) error {
	id := obj.GetID()

	if !id.Is(s.space, s.typ) {
		return xerrors.Errorf("identity %v is not of kind %s: %w", id, s.name, ErrValidation)
	}

	if s.primary.Has(id) {
		return xerrors.Errorf("identity %v already exists: %w", id, ErrConflict)
	}

	err := s.check(obj)
	if err != nil {
		return xerrors.Errorf("failed to restore %v: %w", id, err)
	}

	s.alloc.Observe(id)

	obj = obj.Clone()
	s.add(obj)
	s.undo.Record(insertEntry[T]{store: s, id: id})

	s.metrics.inserted()

	return nil
}

// Get returns a copy of the object with the identity.
func (s *Store[T]) Get(id identity.ID) (T, error) {
	obj, found := s.primary.Get(id)
	if !found {
		var zero T
		return zero, xerrors.Errorf("object %v: %w", id, ErrNotFound)
	}

	return obj.Clone(), nil
}

// Has returns true if an object with the identity exists.
func (s *Store[T]) Has(id identity.ID) bool {
	return s.primary.Has(id)
}

// GetBy returns a copy of the object with the key in a unique index.
func (s *Store[T]) GetBy(name string, key any) (T, error) {
	var zero T

	idx, err := s.index(name)
	if err != nil {
		return zero, err
	}

	id, found, err := idx.Lookup(key)
	if err != nil {
		return zero, xerrors.Errorf("lookup failed: %w", err)
	}

	if !found {
		return zero, xerrors.Errorf("key %v in %s: %w", key, name, ErrNotFound)
	}

	return s.Get(id)
}

// FindRange returns the objects of the index whose key is within the range, in
// the order of the index. The sequence is evaluated lazily and can be iterated
// several times. The store must not be modified during an iteration.
func (s *Store[T]) FindRange(name string, r index.Range) (iter.Seq[T], error) {
	idx, err := s.index(name)
	if err != nil {
		return nil, err
	}

	ids, err := idx.Scan(r)
	if err != nil {
		return nil, xerrors.Errorf("scan failed: %w", err)
	}

	return s.resolve(ids), nil
}

// Each returns every object in identity order. This is the enumeration used to
// snapshot the store.
func (s *Store[T]) Each() iter.Seq[T] {
	return func(yield func(T) bool) {
		for obj := range s.primary.All() {
			if !yield(obj.Clone()) {
				return
			}
		}
	}
}

// Modify applies the mutator to a copy of the object, then replaces the object
// with the copy if it is still valid. The object stays unchanged when the
// mutator or the validation fails.
func (s *Store[T]) Modify(id identity.ID, fn func(*T) error) error {
	prev, found := s.primary.Get(id)
	if !found {
		return xerrors.Errorf("object %v: %w", id, ErrNotFound)
	}

	next := prev.Clone()

	err := fn(&next)
	if err != nil {
		return xerrors.Errorf("mutator failed: %w", err)
	}

	if next.GetID() != id {
		return xerrors.Errorf("mutator changed identity %v to %v: %w",
			id, next.GetID(), ErrValidation)
	}

	err = next.Validate()
	if err != nil {
		return xerrors.Errorf("failed to modify %v: %v: %w", id, err, ErrValidation)
	}

	for _, idx := range s.indices {
		if idx.Changed(prev, next) && idx.Conflicts(next) {
			return xerrors.Errorf("failed to modify %v in %s: %w", id, idx.Name(), ErrConflict)
		}
	}

	next = next.Clone()
	s.replace(prev, next)
	s.undo.Record(modifyEntry[T]{store: s, prev: prev})

	s.metrics.modified()
	s.logger.Trace().Stringer("id", id).Msg("object modified")

	return nil
}

// Remove removes the object with the identity from every index.
func (s *Store[T]) Remove(id identity.ID) error {
	obj, found := s.primary.Get(id)
	if !found {
		return xerrors.Errorf("object %v: %w", id, ErrNotFound)
	}

	s.delete(obj)
	s.undo.Record(removeEntry[T]{store: s, obj: obj})

	s.metrics.removed()
	s.logger.Trace().Stringer("id", id).Msg("object removed")

	return nil
}

// Check verifies that every index holds exactly the objects of the primary
// index. It returns the first mismatch found.
func (s *Store[T]) Check() error {
	for _, idx := range s.indices {
		if idx.Len() != s.primary.Len() {
			return xerrors.Errorf("index %s has %d slots for %d objects",
				idx.Name(), idx.Len(), s.primary.Len())
		}

		for obj := range s.primary.All() {
			if !idx.Contains(obj) {
				return xerrors.Errorf("index %s is missing %v", idx.Name(), obj.GetID())
			}
		}
	}

	return nil
}

func (s *Store[T]) index(name string) (index.Index[T], error) {
	idx, found := s.byName[name]
	if !found {
		return nil, xerrors.Errorf("index '%s' in %s: %w", name, s.name, ErrUnknownIndex)
	}

	return idx, nil
}

func (s *Store[T]) resolve(ids iter.Seq[identity.ID]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for id := range ids {
			obj, found := s.primary.Get(id)
			if !found {
				continue
			}

			if !yield(obj.Clone()) {
				return
			}
		}
	}
}

// check verifies the preconditions of the insertion of a new object.
func (s *Store[T]) check(obj T) error {
	err := obj.Validate()
	if err != nil {
		return xerrors.Errorf("%v: %w", err, ErrValidation)
	}

	for _, idx := range s.indices {
		if idx.Conflicts(obj) {
			return xerrors.Errorf("index %s: %w", idx.Name(), ErrConflict)
		}
	}

	return nil
}

// add inserts the object in every index. The preconditions must have been
// checked beforehand.
func (s *Store[T]) add(obj T) {
	s.primary.Set(obj)

	for _, idx := range s.indices {
		err := idx.Insert(obj)
		if err != nil {
			// Unreachable when the preconditions hold.
			panic(fmt.Sprintf("index %s out of sync: %v", idx.Name(), err))
		}
	}

	s.metrics.size(s.primary.Len())
}

func (s *Store[T]) delete(obj T) {
	s.primary.Delete(obj.GetID())

	for _, idx := range s.indices {
		idx.Delete(obj)
	}

	s.metrics.size(s.primary.Len())
}

func (s *Store[T]) replace(prev, next T) {
	for _, idx := range s.indices {
		if idx.Changed(prev, next) {
			idx.Delete(prev)
		}
	}

	for _, idx := range s.indices {
		if idx.Changed(prev, next) {
			err := idx.Insert(next)
			if err != nil {
				panic(fmt.Sprintf("index %s out of sync: %v", idx.Name(), err))
			}
		}
	}

	s.primary.Set(next)
}
