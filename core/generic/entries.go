package generic

import (
	"fmt"

	"go.dedis.ch/objdb/core/identity"
	"go.dedis.ch/objdb/core/object"
	"golang.org/x/xerrors"
)

// insertEntry reverts the insertion of an object by removing it.
//
// - implements undo.Entry
type insertEntry[T object.Object[T]] struct {
	store *Store[T]
	id    identity.ID
}

// Revert implements undo.Entry. It removes the inserted object.
func (e insertEntry[T]) Revert() error {
	obj, found := e.store.primary.Get(e.id)
	if !found {
		return xerrors.Errorf("inserted object %v is missing", e.id)
	}

	err := e.store.indexed(obj)
	if err != nil {
		return err
	}

	e.store.delete(obj)

	return nil
}

// String implements fmt.Stringer.
func (e insertEntry[T]) String() string {
	return fmt.Sprintf("insert(%s:%v)", e.store.name, e.id)
}

// removeEntry reverts the removal of an object by inserting it back with its
// original value.
//
// - implements undo.Entry
type removeEntry[T object.Object[T]] struct {
	store *Store[T]
	obj   T
}

// Revert implements undo.Entry. It inserts the object back.
func (e removeEntry[T]) Revert() error {
	id := e.obj.GetID()

	if e.store.primary.Has(id) {
		return xerrors.Errorf("removed object %v is present", id)
	}

	for _, idx := range e.store.indices {
		if idx.Contains(e.obj) || idx.Conflicts(e.obj) {
			return xerrors.Errorf("slot of removed object %v is taken in %s", id, idx.Name())
		}
	}

	e.store.add(e.obj)

	return nil
}

// String implements fmt.Stringer.
func (e removeEntry[T]) String() string {
	return fmt.Sprintf("remove(%s:%v)", e.store.name, e.obj.GetID())
}

// modifyEntry reverts the modification of an object by setting it back to its
// previous value.
//
// - implements undo.Entry
type modifyEntry[T object.Object[T]] struct {
	store *Store[T]
	prev  T
}

// Revert implements undo.Entry. It restores the previous value of the object.
func (e modifyEntry[T]) Revert() error {
	id := e.prev.GetID()

	curr, found := e.store.primary.Get(id)
	if !found {
		return xerrors.Errorf("modified object %v is missing", id)
	}

	err := e.store.indexed(curr)
	if err != nil {
		return err
	}

	for _, idx := range e.store.indices {
		if idx.Changed(curr, e.prev) && idx.Conflicts(e.prev) {
			return xerrors.Errorf("previous slot of %v is taken in %s", id, idx.Name())
		}
	}

	e.store.replace(curr, e.prev)

	return nil
}

// String implements fmt.Stringer.
func (e modifyEntry[T]) String() string {
	return fmt.Sprintf("modify(%s:%v)", e.store.name, e.prev.GetID())
}

// indexed returns an error if one of the indices misses the object.
func (s *Store[T]) indexed(obj T) error {
	for _, idx := range s.indices {
		if !idx.Contains(obj) {
			return xerrors.Errorf("object %v is missing in %s", obj.GetID(), idx.Name())
		}
	}

	return nil
}
