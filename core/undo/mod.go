// Package undo implements the sessions that make the mutations of the object
// database reversible.
//
// A session records the reversing action of every mutation performed while it
// is the innermost active session. Aborting a session replays those actions in
// reverse order. Committing a nested session hands its actions over to the
// enclosing one so that an abort of the outer session still reverts them.
//
//	sess := manager.Begin()
//	defer sess.Close()
//
//	... mutations ...
//
//	return sess.Commit()
//
// The identity counters are not part of the state restored by an abort:
// sequences consumed inside an aborted session are never handed out again.
package undo

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/objdb"
	"golang.org/x/xerrors"
)

var (
	// ErrInvalidState is returned when the session API is misused, like a
	// double commit or the commit of a session with an active inner session.
	ErrInvalidState = xerrors.New("invalid session state")

	// ErrReplayInconsistency is the value the manager panics with when a
	// reversing action does not match the state of the store. It means the
	// store was corrupted before the abort and cannot be trusted anymore.
	ErrReplayInconsistency = xerrors.New("undo replay inconsistency")
)

var (
	promSessions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "objdb_undo_sessions_total",
		Help: "total number of terminated sessions by outcome",
	}, []string{"outcome"})

	promReverted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "objdb_undo_reverted_entries_total",
		Help: "total number of undo entries replayed",
	})
)

func init() {
	objdb.PromCollectors = append(objdb.PromCollectors, promSessions, promReverted)
}

// Entry is the reversing action of a mutation.
type Entry interface {
	fmt.Stringer

	// Revert applies the reversing action. It returns an error if the state
	// does not match the mutation that was recorded.
	Revert() error
}

// State is the state of a session.
type State int

const (
	// Active is the state of a session that accepts entries.
	Active State = iota
	// Committed is the terminal state of a committed session.
	Committed
	// Aborted is the terminal state of an aborted session.
	Aborted
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Option is the type of the options to create a manager.
type Option func(*Manager)

// WithHistory keeps the undo log of the last n committed top-level sessions so
// that they can be reverted later with PopRevision.
func WithHistory(n int) Option {
	return func(m *Manager) {
		m.maxHistory = n
	}
}

// WithLogger sets the logger of the manager.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager tracks the stack of active sessions. It is shared by every store
// whose mutations must be reverted together. It is not safe for concurrent
// use.
type Manager struct {
	sessions   []*Session
	history    [][]Entry
	maxHistory int
	logger     zerolog.Logger
}

// NewManager creates a new manager without any active session.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger: objdb.Logger.With().Str("component", "undo").Logger(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Begin starts a new session. It becomes the innermost session and receives
// the entries until it terminates.
func (m *Manager) Begin() *Session {
	sess := &Session{
		id:      xid.New(),
		manager: m,
		depth:   len(m.sessions),
	}

	m.sessions = append(m.sessions, sess)

	m.logger.Trace().
		Stringer("session", sess.id).
		Int("depth", sess.depth).
		Msg("session started")

	return sess
}

// Record appends the entry to the innermost active session. The entry is
// dropped when no session is active, and the history is discarded as the
// revisions no longer apply to the state.
func (m *Manager) Record(entry Entry) {
	sess := m.current()
	if sess == nil {
		if len(m.history) > 0 {
			m.logger.Warn().
				Stringer("entry", entry).
				Int("revisions", len(m.history)).
				Msg("mutation outside of a session discards the history")

			m.history = nil
		}

		return
	}

	sess.entries = append(sess.entries, entry)
}

// Active returns true when at least one session is active.
func (m *Manager) Active() bool {
	return len(m.sessions) > 0
}

// Depth returns the number of active sessions.
func (m *Manager) Depth() int {
	return len(m.sessions)
}

// Revisions returns the number of committed sessions that can still be
// reverted.
func (m *Manager) Revisions() int {
	return len(m.history)
}

// PopRevision reverts the most recent committed top-level session kept in the
// history. It must be called outside of any session.
func (m *Manager) PopRevision() error {
	if m.Active() {
		return xerrors.Errorf("%d session(s) active: %w", len(m.sessions), ErrInvalidState)
	}

	if len(m.history) == 0 {
		return xerrors.Errorf("no revision to pop: %w", ErrInvalidState)
	}

	last := len(m.history) - 1
	entries := m.history[last]
	m.history = m.history[:last]

	m.replay(entries)

	m.logger.Info().
		Int("entries", len(entries)).
		Int("revisions", len(m.history)).
		Msg("revision reverted")

	return nil
}

func (m *Manager) current() *Session {
	if len(m.sessions) == 0 {
		return nil
	}

	return m.sessions[len(m.sessions)-1]
}

func (m *Manager) pop() {
	m.sessions = m.sessions[:len(m.sessions)-1]
}

func (m *Manager) keep(entries []Entry) {
	if m.maxHistory <= 0 {
		return
	}

	m.history = append(m.history, entries)

	if len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}
}

// replay reverts the entries in reverse order. A failure leaves the store in
// an unknown state and the manager panics.
func (m *Manager) replay(entries []Entry) {
	for i := len(entries) - 1; i >= 0; i-- {
		err := entries[i].Revert()
		if err != nil {
			m.logger.Error().
				Err(err).
				Stringer("entry", entries[i]).
				Msg("store is inconsistent")

			panic(xerrors.Errorf("failed to revert %v (%v): %w",
				entries[i], err, ErrReplayInconsistency))
		}

		promReverted.Inc()
	}
}

// Session is a scope of mutations that can be committed or aborted.
type Session struct {
	id      xid.ID
	manager *Manager
	depth   int
	entries []Entry
	state   State
}

// ID returns the unique identifier of the session.
func (s *Session) ID() xid.ID {
	return s.id
}

// State returns the current state of the session.
func (s *Session) State() State {
	return s.state
}

// Len returns the number of entries recorded by the session.
func (s *Session) Len() int {
	return len(s.entries)
}

// Commit terminates the session and keeps the mutations. A nested session
// merges its entries into the enclosing session.
func (s *Session) Commit() error {
	err := s.checkCurrent()
	if err != nil {
		return xerrors.Errorf("commit: %w", err)
	}

	m := s.manager
	m.pop()

	parent := m.current()
	if parent != nil {
		parent.entries = append(parent.entries, s.entries...)
	} else {
		m.keep(s.entries)
	}

	m.logger.Debug().
		Stringer("session", s.id).
		Int("depth", s.depth).
		Int("entries", len(s.entries)).
		Msg("session committed")

	s.entries = nil
	s.state = Committed
	promSessions.WithLabelValues("committed").Inc()

	return nil
}

// Abort terminates the session and reverts the mutations it recorded, in
// reverse chronological order.
func (s *Session) Abort() error {
	err := s.checkCurrent()
	if err != nil {
		return xerrors.Errorf("abort: %w", err)
	}

	m := s.manager
	m.pop()
	s.state = Aborted

	m.replay(s.entries)

	m.logger.Warn().
		Stringer("session", s.id).
		Int("depth", s.depth).
		Int("entries", len(s.entries)).
		Msg("session aborted")

	s.entries = nil
	promSessions.WithLabelValues("aborted").Inc()

	return nil
}

// Close aborts the session if it is still active, after aborting any inner
// session still active. It does nothing on a terminated session.
func (s *Session) Close() {
	if s.state != Active {
		return
	}

	m := s.manager
	for m.current() != s {
		m.current().Close()
	}

	// The session is the innermost one at this point so the abort can only
	// panic.
	_ = s.Abort()
}

func (s *Session) checkCurrent() error {
	if s.state != Active {
		return xerrors.Errorf("session %v is %v: %w", s.id, s.state, ErrInvalidState)
	}

	if s.manager.current() != s {
		return xerrors.Errorf("session %v has an active inner session: %w", s.id, ErrInvalidState)
	}

	return nil
}
