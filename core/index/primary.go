package index

import (
	"iter"

	"github.com/google/btree"
	"go.dedis.ch/objdb/core/identity"
	"go.dedis.ch/objdb/core/object"
)

type row[T any] struct {
	id  identity.ID
	obj T
}

// Primary is the index of the objects by identity. It owns the objects of a
// store.
type Primary[T object.Identifiable] struct {
	tree *btree.BTreeG[row[T]]
}

// NewPrimary creates a new empty primary index.
func NewPrimary[T object.Identifiable]() *Primary[T] {
	return &Primary[T]{
		tree: btree.NewG(DefaultDegree, func(a, b row[T]) bool {
			return a.id.Less(b.id)
		}),
	}
}

// Len returns the number of objects.
func (p *Primary[T]) Len() int {
	return p.tree.Len()
}

// Get returns the object of the identity if it exists.
func (p *Primary[T]) Get(id identity.ID) (T, bool) {
	r, found := p.tree.Get(row[T]{id: id})

	return r.obj, found
}

// Has returns true if an object with the identity exists.
func (p *Primary[T]) Has(id identity.ID) bool {
	return p.tree.Has(row[T]{id: id})
}

// Set stores the object, replacing the previous one with the same identity. It
// returns true if an object has been replaced.
func (p *Primary[T]) Set(obj T) bool {
	_, replaced := p.tree.ReplaceOrInsert(row[T]{id: obj.GetID(), obj: obj})

	return replaced
}

// Delete removes the object with the identity and returns it if it existed.
func (p *Primary[T]) Delete(id identity.ID) (T, bool) {
	r, found := p.tree.Delete(row[T]{id: id})

	return r.obj, found
}

// All returns the objects in ascending identity order.
func (p *Primary[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		p.tree.Ascend(func(r row[T]) bool {
			return yield(r.obj)
		})
	}
}

// IDs returns the identities in ascending order.
func (p *Primary[T]) IDs() iter.Seq[identity.ID] {
	return func(yield func(identity.ID) bool) {
		p.tree.Ascend(func(r row[T]) bool {
			return yield(r.id)
		})
	}
}
