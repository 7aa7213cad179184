package index

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/objdb/core/identity"
)

type fakeObject struct {
	id    identity.ID
	time  int
	owner string
}

func (o fakeObject) GetID() identity.ID {
	return o.id
}

func makeObject(seq uint64, time int, owner string) fakeObject {
	return fakeObject{id: identity.New(2, 1, seq), time: time, owner: owner}
}

func byTime(opts ...Option) *Ordered[fakeObject, int] {
	return NewOrderedKey("by_time", func(o fakeObject) int { return o.time }, opts...)
}

func TestRange_Constructors(t *testing.T) {
	require.Equal(t, Range{}, All())
	require.Equal(t, Range{Lower: 1, Upper: 1}, Exactly(1))
	require.Equal(t, Range{Lower: 1, Upper: 3}, Between(1, 3))
	require.Equal(t, Range{Lower: 1}, From(1))
	require.Equal(t, Range{Upper: 3}, To(3))
}

func TestOrdered_Order(t *testing.T) {
	idx := byTime()

	a := makeObject(0, 5, "")
	b := makeObject(1, 3, "")
	c := makeObject(2, 5, "")

	require.NoError(t, idx.Insert(a))
	require.NoError(t, idx.Insert(b))
	require.NoError(t, idx.Insert(c))

	require.Equal(t, "by_time", idx.Name())
	require.False(t, idx.Unique())
	require.Equal(t, 3, idx.Len())
	require.Equal(t, []identity.ID{b.id, a.id, c.id}, slices.Collect(idx.IDs()))
}

func TestOrdered_Insert(t *testing.T) {
	idx := byTime()

	obj := makeObject(0, 1, "")
	require.NoError(t, idx.Insert(obj))

	err := idx.Insert(obj)
	require.True(t, errors.Is(err, ErrDuplicate))
	require.EqualError(t, err, "slot of 2.1.0 in by_time: duplicate key")

	unique := byTime(WithUnique(), WithDegree(4))
	require.NoError(t, unique.Insert(obj))

	err = unique.Insert(makeObject(1, 1, ""))
	require.EqualError(t, err, "projection of 2.1.1 in by_time: duplicate key")
	require.Equal(t, 1, unique.Len())
}

func TestOrdered_Delete(t *testing.T) {
	idx := byTime()

	obj := makeObject(0, 1, "")
	require.NoError(t, idx.Insert(obj))
	require.True(t, idx.Contains(obj))

	require.True(t, idx.Delete(obj))
	require.False(t, idx.Delete(obj))
	require.False(t, idx.Contains(obj))
	require.Equal(t, 0, idx.Len())
}

func TestOrdered_Conflicts(t *testing.T) {
	idx := byTime()
	require.NoError(t, idx.Insert(makeObject(0, 1, "")))
	require.False(t, idx.Conflicts(makeObject(1, 1, "")))

	unique := byTime(WithUnique())
	require.NoError(t, unique.Insert(makeObject(0, 1, "")))
	require.NoError(t, unique.Insert(makeObject(1, 2, "")))

	require.True(t, unique.Conflicts(makeObject(5, 1, "")))
	require.False(t, unique.Conflicts(makeObject(0, 1, "")))
	require.False(t, unique.Conflicts(makeObject(5, 3, "")))
}

func TestOrdered_Changed(t *testing.T) {
	idx := byTime()

	require.False(t, idx.Changed(makeObject(0, 1, "a"), makeObject(0, 1, "b")))
	require.True(t, idx.Changed(makeObject(0, 1, "a"), makeObject(0, 2, "a")))
}

func TestOrdered_Scan(t *testing.T) {
	idx := NewOrderedKey("by_owner", func(o fakeObject) string { return o.owner })

	objs := []fakeObject{
		makeObject(0, 0, "bob"),
		makeObject(1, 0, "alice"),
		makeObject(2, 0, "bob"),
		makeObject(3, 0, "carol"),
	}

	for _, obj := range objs {
		require.NoError(t, idx.Insert(obj))
	}

	seq, err := idx.Scan(Exactly("bob"))
	require.NoError(t, err)
	require.Equal(t, []identity.ID{objs[0].id, objs[2].id}, slices.Collect(seq))

	// The sequence can be restarted.
	require.Equal(t, []identity.ID{objs[0].id, objs[2].id}, slices.Collect(seq))

	seq, err = idx.Scan(From("bob"))
	require.NoError(t, err)
	require.Equal(t, []identity.ID{objs[0].id, objs[2].id, objs[3].id}, slices.Collect(seq))

	seq, err = idx.Scan(To("bob"))
	require.NoError(t, err)
	require.Equal(t, []identity.ID{objs[1].id, objs[0].id, objs[2].id}, slices.Collect(seq))

	seq, err = idx.Scan(All())
	require.NoError(t, err)
	require.Len(t, slices.Collect(seq), 4)

	seq, err = idx.Scan(Exactly("dave"))
	require.NoError(t, err)
	require.Empty(t, slices.Collect(seq))

	require.Equal(t, []identity.ID{objs[3].id}, slices.Collect(idx.Range("c", "d")))

	// Early stop of the iteration.
	count := 0
	for range idx.IDs() {
		count++
		break
	}
	require.Equal(t, 1, count)

	_, err = idx.Scan(From(1))
	require.True(t, errors.Is(err, ErrInvalidKey))
	require.EqualError(t, err, "lower bound: 'int' for by_owner: invalid key")

	_, err = idx.Scan(To(1))
	require.EqualError(t, err, "upper bound: 'int' for by_owner: invalid key")
}

func TestOrdered_Lookup(t *testing.T) {
	idx := byTime()

	_, _, err := idx.Lookup(1)
	require.True(t, errors.Is(err, ErrNotUnique))

	unique := byTime(WithUnique())
	require.NoError(t, unique.Insert(makeObject(3, 1, "")))

	id, found, err := unique.Lookup(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, identity.New(2, 1, 3), id)

	_, found, err = unique.Lookup(2)
	require.NoError(t, err)
	require.False(t, found)

	_, _, err = unique.Lookup("1")
	require.True(t, errors.Is(err, ErrInvalidKey))
}

func TestPrimary(t *testing.T) {
	p := NewPrimary[fakeObject]()

	a := makeObject(2, 1, "a")
	b := makeObject(0, 1, "b")

	require.False(t, p.Set(a))
	require.False(t, p.Set(b))
	require.Equal(t, 2, p.Len())
	require.True(t, p.Has(a.id))

	obj, found := p.Get(b.id)
	require.True(t, found)
	require.Equal(t, b, obj)

	require.Equal(t, []identity.ID{b.id, a.id}, slices.Collect(p.IDs()))
	require.Equal(t, []fakeObject{b, a}, slices.Collect(p.All()))

	a.owner = "c"
	require.True(t, p.Set(a))

	obj, found = p.Delete(a.id)
	require.True(t, found)
	require.Equal(t, "c", obj.owner)

	_, found = p.Delete(a.id)
	require.False(t, found)

	_, found = p.Get(a.id)
	require.False(t, found)
}
