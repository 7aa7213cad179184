// Package index defines the access paths of a store. A store always has a
// primary index ordered by identity, and any number of secondary indices
// ordered by a projection of the objects.
//
// A secondary index orders its slots by the composite key (projection,
// identity) so that objects with an equal projection are still uniquely
// placed, in ascending identity order. An index can additionally be declared
// unique on the projection alone, in which case a second object with an equal
// projection is rejected.
package index

import (
	"iter"

	"go.dedis.ch/objdb/core/identity"
	"go.dedis.ch/objdb/core/object"
	"golang.org/x/xerrors"
)

// DefaultDegree is the degree of the B-trees backing the indices.
const DefaultDegree = 32

var (
	// ErrInvalidKey is returned when a key does not match the type of the
	// projection of the index.
	ErrInvalidKey = xerrors.New("invalid key")

	// ErrDuplicate is returned when a slot of the index is already taken.
	ErrDuplicate = xerrors.New("duplicate key")

	// ErrNotUnique is returned when a lookup by key is performed on an index
	// that is not unique on its projection.
	ErrNotUnique = xerrors.New("index is not unique")
)

// Index is a secondary access path over a collection of objects.
type Index[T object.Identifiable] interface {
	// Name returns the name of the index.
	Name() string

	// Unique returns true if the projection alone is unique.
	Unique() bool

	// Len returns the number of slots.
	Len() int

	// Insert adds the slot of the object. It returns an error if the slot is
	// taken, or if the projection is taken in a unique index.
	Insert(obj T) error

	// Delete removes the slot of the object and returns true if it existed.
	Delete(obj T) bool

	// Contains returns true if the slot of the object exists.
	Contains(obj T) bool

	// Conflicts returns true when the index is unique and another object
	// already uses the projection of the given one.
	Conflicts(obj T) bool

	// Changed returns true when the two versions of an object are placed in
	// different slots.
	Changed(prev, next T) bool

	// IDs returns the identities in the order of the index.
	IDs() iter.Seq[identity.ID]

	// Scan returns the identities of the objects whose projection is within
	// the range, in the order of the index.
	Scan(r Range) (iter.Seq[identity.ID], error)

	// Lookup returns the identity of the object with the given projection. It
	// returns an error if the index is not unique.
	Lookup(key any) (identity.ID, bool, error)
}

// Range is a range of projection keys. Both bounds are inclusive, and a nil
// bound leaves the range open on that side.
type Range struct {
	Lower any
	Upper any
}

// All returns the range that covers every key.
func All() Range {
	return Range{}
}

// Exactly returns the range that only covers the key.
func Exactly(key any) Range {
	return Range{Lower: key, Upper: key}
}

// Between returns the range of keys between lower and upper included.
func Between(lower, upper any) Range {
	return Range{Lower: lower, Upper: upper}
}

// From returns the range of keys greater or equal to the lower bound.
func From(lower any) Range {
	return Range{Lower: lower}
}

// To returns the range of keys smaller or equal to the upper bound.
func To(upper any) Range {
	return Range{Upper: upper}
}

type options struct {
	unique bool
	degree int
}

// Option is the type of the options to create an index.
type Option func(*options)

// WithUnique makes the projection of the index unique.
func WithUnique() Option {
	return func(opts *options) {
		opts.unique = true
	}
}

// WithDegree changes the degree of the B-tree backing the index.
func WithDegree(degree int) Option {
	return func(opts *options) {
		opts.degree = degree
	}
}
