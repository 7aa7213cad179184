package undo

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestState_String(t *testing.T) {
	require.Equal(t, "active", Active.String())
	require.Equal(t, "committed", Committed.String())
	require.Equal(t, "aborted", Aborted.String())
	require.Equal(t, "unknown", State(42).String())
}

func TestManager_Record(t *testing.T) {
	m := NewManager()
	log := &journal{}

	// Without a session, entries are dropped.
	m.Record(log.entry("a"))
	require.False(t, m.Active())

	sess := m.Begin()
	require.True(t, m.Active())
	require.Equal(t, 1, m.Depth())
	require.Equal(t, Active, sess.State())
	require.False(t, sess.ID().IsNil())

	m.Record(log.entry("b"))
	m.Record(log.entry("c"))
	require.Equal(t, 2, sess.Len())
}

func TestSession_Abort(t *testing.T) {
	m := NewManager()
	log := &journal{}

	before := testutil.ToFloat64(promReverted)

	sess := m.Begin()
	m.Record(log.entry("a"))
	m.Record(log.entry("b"))
	m.Record(log.entry("c"))

	require.NoError(t, sess.Abort())
	require.Equal(t, []string{"c", "b", "a"}, log.reverted)
	require.Equal(t, Aborted, sess.State())
	require.False(t, m.Active())
	require.Equal(t, 0, sess.Len())
	require.Equal(t, before+3, testutil.ToFloat64(promReverted))

	err := sess.Abort()
	require.True(t, errors.Is(err, ErrInvalidState))

	err = sess.Commit()
	require.True(t, errors.Is(err, ErrInvalidState))
}

func TestSession_Commit(t *testing.T) {
	m := NewManager()
	log := &journal{}

	sess := m.Begin()
	m.Record(log.entry("a"))

	require.NoError(t, sess.Commit())
	require.Equal(t, Committed, sess.State())
	require.False(t, m.Active())
	require.Equal(t, 0, m.Revisions())

	err := sess.Commit()
	require.True(t, errors.Is(err, ErrInvalidState))
	require.EqualError(t, err,
		"commit: session "+sess.ID().String()+" is committed: invalid session state")

	sess.Close()
	require.Empty(t, log.reverted)
}

func TestSession_Nested(t *testing.T) {
	m := NewManager()
	log := &journal{}

	outer := m.Begin()
	m.Record(log.entry("x"))

	inner := m.Begin()
	m.Record(log.entry("y"))
	require.Equal(t, 2, m.Depth())

	err := outer.Commit()
	require.True(t, errors.Is(err, ErrInvalidState))

	err = outer.Abort()
	require.True(t, errors.Is(err, ErrInvalidState))

	require.NoError(t, inner.Abort())
	require.Equal(t, []string{"y"}, log.reverted)
	require.Equal(t, 1, outer.Len())

	inner = m.Begin()
	m.Record(log.entry("z"))
	require.NoError(t, inner.Commit())
	require.Equal(t, 2, outer.Len())

	require.NoError(t, outer.Abort())
	require.Equal(t, []string{"y", "z", "x"}, log.reverted)
}

func TestSession_Close(t *testing.T) {
	m := NewManager()
	log := &journal{}

	outer := m.Begin()
	m.Record(log.entry("a"))

	inner := m.Begin()
	m.Record(log.entry("b"))

	outer.Close()
	require.Equal(t, Aborted, inner.State())
	require.Equal(t, Aborted, outer.State())
	require.Equal(t, []string{"b", "a"}, log.reverted)
	require.False(t, m.Active())

	// Closing again does nothing.
	outer.Close()
	require.Equal(t, []string{"b", "a"}, log.reverted)
}

func TestSession_CloseWithDefer(t *testing.T) {
	m := NewManager()
	log := &journal{}

	run := func(fail bool) error {
		sess := m.Begin()
		defer sess.Close()

		m.Record(log.entry("a"))

		if fail {
			return xerrors.New("oops")
		}

		return sess.Commit()
	}

	require.NoError(t, run(false))
	require.Empty(t, log.reverted)

	require.EqualError(t, run(true), "oops")
	require.Equal(t, []string{"a"}, log.reverted)
}

func TestSession_ReplayInconsistency(t *testing.T) {
	m := NewManager()
	log := &journal{}

	sess := m.Begin()
	m.Record(log.entry("a"))
	m.Record(badEntry{})

	defer func() {
		r := recover()
		require.NotNil(t, r)

		err, ok := r.(error)
		require.True(t, ok)
		require.True(t, errors.Is(err, ErrReplayInconsistency))
		require.EqualError(t, err, "failed to revert bad (oops): undo replay inconsistency")
		require.Empty(t, log.reverted)
	}()

	_ = sess.Abort()
}

func TestManager_History(t *testing.T) {
	m := NewManager(WithHistory(2))
	log := &journal{}

	err := m.PopRevision()
	require.EqualError(t, err, "no revision to pop: invalid session state")

	for _, name := range []string{"a", "b", "c"} {
		sess := m.Begin()
		m.Record(log.entry(name))
		require.NoError(t, sess.Commit())
	}

	require.Equal(t, 2, m.Revisions())

	sess := m.Begin()
	err = m.PopRevision()
	require.EqualError(t, err, "1 session(s) active: invalid session state")

	// An empty session is also a revision, the oldest one is dropped.
	require.NoError(t, sess.Commit())
	require.Equal(t, 2, m.Revisions())

	require.NoError(t, m.PopRevision())
	require.Empty(t, log.reverted)

	require.NoError(t, m.PopRevision())
	require.Equal(t, []string{"c"}, log.reverted)
	require.Equal(t, 0, m.Revisions())

	err = m.PopRevision()
	require.True(t, errors.Is(err, ErrInvalidState))
}

func TestManager_RecordOutsideSessionDropsHistory(t *testing.T) {
	m := NewManager(WithHistory(4))
	log := &journal{}

	sess := m.Begin()
	m.Record(log.entry("a"))
	require.NoError(t, sess.Commit())
	require.Equal(t, 1, m.Revisions())

	m.Record(log.entry("b"))
	require.Equal(t, 0, m.Revisions())

	err := m.PopRevision()
	require.True(t, errors.Is(err, ErrInvalidState))
	require.Empty(t, log.reverted)

	// Revisions are kept again for the sessions that follow.
	sess = m.Begin()
	m.Record(log.entry("c"))
	require.NoError(t, sess.Commit())

	require.NoError(t, m.PopRevision())
	require.Equal(t, []string{"c"}, log.reverted)
}

// -----------------------------------------------------------------------------
// Utility functions

type journal struct {
	reverted []string
}

func (j *journal) entry(name string) Entry {
	return fakeEntry{name: name, journal: j}
}

type fakeEntry struct {
	name    string
	journal *journal
}

func (e fakeEntry) Revert() error {
	e.journal.reverted = append(e.journal.reverted, e.name)
	return nil
}

func (e fakeEntry) String() string {
	return e.name
}

type badEntry struct{}

func (badEntry) Revert() error {
	return xerrors.New("oops")
}

func (badEntry) String() string {
	return "bad"
}
