package index

import (
	"cmp"
	"iter"

	"github.com/google/btree"
	"go.dedis.ch/objdb/core/identity"
	"go.dedis.ch/objdb/core/object"
	"golang.org/x/xerrors"
)

// slot is the composite key of an object in an ordered index.
type slot[K any] struct {
	key K
	id  identity.ID
}

// Ordered is a secondary index backed by a B-tree. The slots are sorted by the
// projection of the object, then by identity.
//
// - implements index.Index
type Ordered[T object.Identifiable, K any] struct {
	name    string
	unique  bool
	project func(T) K
	compare func(a, b K) int
	tree    *btree.BTreeG[slot[K]]
}

// NewOrdered creates an ordered index using the projection to extract the key
// of an object and the comparator to order the keys.
func NewOrdered[T object.Identifiable, K any](name string, project func(T) K,
	compare func(a, b K) int, opts ...Option) *Ordered[T, K] {

	tmpl := options{degree: DefaultDegree}
	for _, opt := range opts {
		opt(&tmpl)
	}

	idx := &Ordered[T, K]{
		name:    name,
		unique:  tmpl.unique,
		project: project,
		compare: compare,
	}

	idx.tree = btree.NewG(tmpl.degree, func(a, b slot[K]) bool {
		c := idx.compare(a.key, b.key)
		if c != 0 {
			return c < 0
		}

		return a.id.Less(b.id)
	})

	return idx
}

// NewOrderedKey creates an ordered index for a projection that has a natural
// order.
func NewOrderedKey[T object.Identifiable, K cmp.Ordered](name string,
	project func(T) K, opts ...Option) *Ordered[T, K] {

	return NewOrdered(name, project, cmp.Compare[K], opts...)
}

// Name implements index.Index. It returns the name of the index.
func (idx *Ordered[T, K]) Name() string {
	return idx.name
}

// Unique implements index.Index. It returns true if the projection is unique.
func (idx *Ordered[T, K]) Unique() bool {
	return idx.unique
}

// Len implements index.Index. It returns the number of slots.
func (idx *Ordered[T, K]) Len() int {
	return idx.tree.Len()
}

// Insert implements index.Index. It adds the slot of the object.
func (idx *Ordered[T, K]) Insert(obj T) error {
	s := idx.slotOf(obj)

	if idx.tree.Has(s) {
		return xerrors.Errorf("slot of %v in %s: %w", s.id, idx.name, ErrDuplicate)
	}

	if idx.Conflicts(obj) {
		return xerrors.Errorf("projection of %v in %s: %w", s.id, idx.name, ErrDuplicate)
	}

	idx.tree.ReplaceOrInsert(s)

	return nil
}

// Delete implements index.Index. It removes the slot of the object.
func (idx *Ordered[T, K]) Delete(obj T) bool {
	_, found := idx.tree.Delete(idx.slotOf(obj))

	return found
}

// Contains implements index.Index. It returns true if the slot of the object
// exists.
func (idx *Ordered[T, K]) Contains(obj T) bool {
	return idx.tree.Has(idx.slotOf(obj))
}

// Conflicts implements index.Index. It looks for another object with the same
// projection when the index is unique.
func (idx *Ordered[T, K]) Conflicts(obj T) bool {
	if !idx.unique {
		return false
	}

	s := idx.slotOf(obj)
	conflict := false

	idx.tree.AscendGreaterOrEqual(slot[K]{key: s.key, id: identity.Min}, func(other slot[K]) bool {
		if idx.compare(other.key, s.key) != 0 {
			return false
		}

		if other.id != s.id {
			conflict = true
			return false
		}

		return true
	})

	return conflict
}

// Changed implements index.Index. It returns true if the projections of the
// two versions are different.
func (idx *Ordered[T, K]) Changed(prev, next T) bool {
	return idx.compare(idx.project(prev), idx.project(next)) != 0
}

// IDs implements index.Index. It returns the identities in the index order.
func (idx *Ordered[T, K]) IDs() iter.Seq[identity.ID] {
	return func(yield func(identity.ID) bool) {
		idx.tree.Ascend(func(s slot[K]) bool {
			return yield(s.id)
		})
	}
}

// Scan implements index.Index. It returns the identities of the slots in the
// range. The bounds must be of the type of the projection.
func (idx *Ordered[T, K]) Scan(r Range) (iter.Seq[identity.ID], error) {
	lower, hasLower, err := idx.keyOf(r.Lower)
	if err != nil {
		return nil, xerrors.Errorf("lower bound: %w", err)
	}

	upper, hasUpper, err := idx.keyOf(r.Upper)
	if err != nil {
		return nil, xerrors.Errorf("upper bound: %w", err)
	}

	return idx.scan(lower, hasLower, upper, hasUpper), nil
}

// Range is the typed version of Scan.
func (idx *Ordered[T, K]) Range(lower, upper K) iter.Seq[identity.ID] {
	return idx.scan(lower, true, upper, true)
}

// Lookup implements index.Index. It returns the identity of the object with
// the projection if the index is unique.
func (idx *Ordered[T, K]) Lookup(key any) (identity.ID, bool, error) {
	if !idx.unique {
		return identity.ID{}, false, xerrors.Errorf("%s: %w", idx.name, ErrNotUnique)
	}

	k, ok, err := idx.keyOf(key)
	if err != nil || !ok {
		return identity.ID{}, false, xerrors.Errorf("lookup: %w", ErrInvalidKey)
	}

	for id := range idx.scan(k, true, k, true) {
		return id, true, nil
	}

	return identity.ID{}, false, nil
}

func (idx *Ordered[T, K]) scan(lower K, hasLower bool, upper K, hasUpper bool) iter.Seq[identity.ID] {
	return func(yield func(identity.ID) bool) {
		visit := func(s slot[K]) bool {
			if hasUpper && idx.compare(s.key, upper) > 0 {
				return false
			}

			return yield(s.id)
		}

		if hasLower {
			idx.tree.AscendGreaterOrEqual(slot[K]{key: lower, id: identity.Min}, visit)
		} else {
			idx.tree.Ascend(visit)
		}
	}
}

func (idx *Ordered[T, K]) keyOf(bound any) (K, bool, error) {
	var key K

	if bound == nil {
		return key, false, nil
	}

	key, ok := bound.(K)
	if !ok {
		return key, false, xerrors.Errorf("'%T' for %s: %w", bound, idx.name, ErrInvalidKey)
	}

	return key, true, nil
}

func (idx *Ordered[T, K]) slotOf(obj T) slot[K] {
	return slot[K]{key: idx.project(obj), id: obj.GetID()}
}
