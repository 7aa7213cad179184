package rewardqueue

import (
	"slices"
	"time"

	"github.com/rs/zerolog"
	"go.dedis.ch/objdb"
	"go.dedis.ch/objdb/core/generic"
	"go.dedis.ch/objdb/core/identity"
	"go.dedis.ch/objdb/core/index"
	"go.dedis.ch/objdb/core/undo"
	"golang.org/x/xerrors"
)

const (
	// ByTime is the name of the index of the entries by submission time.
	ByTime = "by_time"

	// ByAccount is the name of the index of the entries by account.
	ByAccount = "by_account"
)

// NewStore returns the store of the reward queue entries with its indices.
func NewStore(alloc *identity.Allocator, manager *undo.Manager) *generic.Store[Entry] {
	byTime := index.NewOrdered(ByTime,
		func(e Entry) time.Time { return e.Time },
		func(a, b time.Time) int { return a.Compare(b) })

	byAccount := index.NewOrdered(ByAccount,
		func(e Entry) identity.ID { return e.Account },
		identity.ID.Compare)

	return generic.NewStore[Entry](identity.ImplementationSpace, EntryType,
		generic.WithName[Entry]("reward_queue"),
		generic.WithAllocator[Entry](alloc),
		generic.WithUndo[Entry](manager),
		generic.WithIndex[Entry](byTime),
		generic.WithIndex[Entry](byAccount),
	)
}

// NewTotalsStore returns the store of the totals object.
func NewTotalsStore(alloc *identity.Allocator, manager *undo.Manager) *generic.Store[Totals] {
	return generic.NewStore[Totals](identity.ImplementationSpace, TotalsType,
		generic.WithName[Totals]("reward_queue_totals"),
		generic.WithAllocator[Totals](alloc),
		generic.WithUndo[Totals](manager),
	)
}

// Submission is the request to add cycles to the queue.
type Submission struct {
	Origin     Origin
	License    *identity.ID
	Account    identity.ID
	Amount     int64
	Frequency  int16
	Time       time.Time
	Comment    string
	Extensions []Extension
}

// Queue is the reward queue. Every operation runs in its own session nested in
// the current one, so that a failed operation leaves the queue unchanged.
type Queue struct {
	entries *generic.Store[Entry]
	totals  *generic.Store[Totals]
	undo    *undo.Manager
	logger  zerolog.Logger
}

// NewQueue creates an empty queue. The stores use the allocator and record
// their mutations in the undo manager.
func NewQueue(alloc *identity.Allocator, manager *undo.Manager) *Queue {
	return &Queue{
		entries: NewStore(alloc, manager),
		totals:  NewTotalsStore(alloc, manager),
		undo:    manager,
		logger:  objdb.Logger.With().Str("component", "rewardqueue").Logger(),
	}
}

// Entries returns the store of the entries.
func (q *Queue) Entries() *generic.Store[Entry] {
	return q.entries
}

// TotalsStore returns the store of the totals object.
func (q *Queue) TotalsStore() *generic.Store[Totals] {
	return q.totals
}

// Len returns the number of entries in the queue.
func (q *Queue) Len() int {
	return q.entries.Len()
}

// Totals returns the current totals of the queue.
func (q *Queue) Totals() Totals {
	for totals := range q.totals.Each() {
		return totals
	}

	return Totals{}
}

// Submit adds an entry to the queue. The entry receives the next submission
// number and the historic sum including its amount.
func (q *Queue) Submit(sub Submission) (Entry, error) {
	sess := q.undo.Begin()
	defer sess.Close()

	totals, err := q.ensureTotals()
	if err != nil {
		return Entry{}, err
	}

	id, err := q.entries.Insert(func(id identity.ID) Entry {
		return Entry{
			ID:          id,
			Number:      totals.NextNumber,
			Origin:      sub.Origin,
			License:     sub.License,
			Account:     sub.Account,
			Amount:      sub.Amount,
			Frequency:   sub.Frequency,
			Time:        time.Unix(sub.Time.Unix(), 0).UTC(),
			Comment:     sub.Comment,
			HistoricSum: totals.HistoricSum + sub.Amount,
			Extensions:  sub.Extensions,
		}.Clone()
	})
	if err != nil {
		return Entry{}, xerrors.Errorf("failed to submit: %w", err)
	}

	err = q.totals.Modify(totals.ID, func(t *Totals) error {
		t.NextNumber++
		t.HistoricSum += sub.Amount
		return nil
	})
	if err != nil {
		return Entry{}, xerrors.Errorf("failed to update totals: %w", err)
	}

	entry, err := q.entries.Get(id)
	if err != nil {
		return Entry{}, xerrors.Errorf("failed to read entry: %w", err)
	}

	err = sess.Commit()
	if err != nil {
		return Entry{}, xerrors.Errorf("failed to commit: %w", err)
	}

	q.logger.Debug().
		Stringer("id", id).
		Stringer("account", sub.Account).
		Int64("amount", sub.Amount).
		Msg("cycles submitted")

	return entry, nil
}

// Get returns the entry with the identity.
func (q *Queue) Get(id identity.ID) (Entry, error) {
	return q.entries.Get(id)
}

// Remove removes the entry from the queue.
func (q *Queue) Remove(id identity.ID) error {
	sess := q.undo.Begin()
	defer sess.Close()

	err := q.entries.Remove(id)
	if err != nil {
		return xerrors.Errorf("failed to remove: %w", err)
	}

	err = sess.Commit()
	if err != nil {
		return xerrors.Errorf("failed to commit: %w", err)
	}

	return nil
}

// All returns the entries in submission time order.
func (q *Queue) All() ([]Entry, error) {
	return q.Find(ByTime, index.All())
}

// ByAccount returns the entries of the account in identity order.
func (q *Queue) ByAccount(account identity.ID) ([]Entry, error) {
	return q.Find(ByAccount, index.Exactly(account))
}

// ByTime returns the entries submitted between from and to included, in time
// order.
func (q *Queue) ByTime(from, to time.Time) ([]Entry, error) {
	return q.Find(ByTime, index.Between(from, to))
}

// Distribute removes the oldest entries from the queue as long as their amount
// fits in the budget, and returns them. It stops at the first entry that does
// not fit so that the order of the queue is respected.
func (q *Queue) Distribute(budget int64) ([]Entry, error) {
	if budget < 0 {
		return nil, xerrors.Errorf("negative budget: %d", budget)
	}

	sess := q.undo.Begin()
	defer sess.Close()

	seq, err := q.entries.FindRange(ByTime, index.All())
	if err != nil {
		return nil, xerrors.Errorf("failed to read queue: %v", err)
	}

	var minted []Entry
	remaining := budget

	for entry := range seq {
		if entry.Amount > remaining {
			break
		}

		minted = append(minted, entry)
		remaining -= entry.Amount
	}

	for _, entry := range minted {
		err = q.entries.Remove(entry.ID)
		if err != nil {
			return nil, xerrors.Errorf("failed to remove: %w", err)
		}
	}

	err = sess.Commit()
	if err != nil {
		return nil, xerrors.Errorf("failed to commit: %w", err)
	}

	q.logger.Info().
		Int("entries", len(minted)).
		Int64("minted", budget-remaining).
		Msg("queue distributed")

	return minted, nil
}

// Find returns the entries in the range of the index.
func (q *Queue) Find(name string, r index.Range) ([]Entry, error) {
	seq, err := q.entries.FindRange(name, r)
	if err != nil {
		return nil, xerrors.Errorf("failed to find: %w", err)
	}

	return slices.Collect(seq), nil
}

func (q *Queue) ensureTotals() (Totals, error) {
	for totals := range q.totals.Each() {
		return totals, nil
	}

	id, err := q.totals.Insert(func(id identity.ID) Totals {
		return Totals{ID: id}
	})
	if err != nil {
		return Totals{}, xerrors.Errorf("failed to create totals: %w", err)
	}

	return Totals{ID: id}, nil
}
