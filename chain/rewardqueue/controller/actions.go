package controller

import (
	"fmt"
	"math"
	"time"

	"go.dedis.ch/objdb/chain/rewardqueue"
	"go.dedis.ch/objdb/cli"
	"go.dedis.ch/objdb/core/identity"
	"go.dedis.ch/objdb/core/index"
	"golang.org/x/xerrors"
)

func (c Controller) submit(flags cli.Flags) error {
	origin, err := rewardqueue.ParseOrigin(flags.String(originFlag))
	if err != nil {
		return xerrors.Errorf("invalid origin: %v", err)
	}

	frequency := flags.Int(frequencyFlag)
	if frequency < math.MinInt16 || frequency > math.MaxInt16 {
		return xerrors.Errorf("invalid frequency: %d", frequency)
	}

	ts := c.now()
	if flags.IsSet(timeFlag) {
		ts, err = time.Parse(time.RFC3339, flags.String(timeFlag))
		if err != nil {
			return xerrors.Errorf("invalid time: %v", err)
		}
	}

	sub := rewardqueue.Submission{
		Origin:    origin,
		Account:   rewardqueue.AccountID(flags.Uint64(accountFlag)),
		Amount:    flags.Int64(amountFlag),
		Frequency: int16(frequency),
		Time:      ts,
		Comment:   flags.String(commentFlag),
	}

	if flags.IsSet(licenseFlag) {
		license := rewardqueue.LicenseID(flags.Uint64(licenseFlag))
		sub.License = &license
	}

	ws, err := openWorkspace(flags)
	if err != nil {
		return err
	}

	defer ws.Close()

	var entry rewardqueue.Entry

	err = ws.update(func(q *rewardqueue.Queue) error {
		entry, err = q.Submit(sub)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to submit: %v", err)
	}

	fmt.Fprintf(c.out, "%s %s\n", success("submitted"), formatEntry(entry))

	return nil
}

func (c Controller) list(flags cli.Flags) error {
	from, err := parseBound(flags, fromFlag)
	if err != nil {
		return err
	}

	to, err := parseBound(flags, toFlag)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(flags)
	if err != nil {
		return err
	}

	defer ws.Close()

	var entries []rewardqueue.Entry

	if flags.IsSet(accountFlag) {
		entries, err = ws.queue.ByAccount(rewardqueue.AccountID(flags.Uint64(accountFlag)))
	} else {
		entries, err = ws.queue.Find(rewardqueue.ByTime, index.Range{Lower: from, Upper: to})
	}

	if err != nil {
		return xerrors.Errorf("failed to list: %v", err)
	}

	for _, entry := range entries {
		fmt.Fprintln(c.out, formatEntry(entry))
	}

	totals := ws.queue.Totals()

	fmt.Fprintf(c.out, "%d entries, next number %d, historic sum %s\n",
		len(entries), totals.NextNumber, amount(totals.HistoricSum))

	return nil
}

func (c Controller) remove(flags cli.Flags) error {
	id, err := identity.Parse(flags.String(idFlag))
	if err != nil {
		return xerrors.Errorf("invalid id: %v", err)
	}

	ws, err := openWorkspace(flags)
	if err != nil {
		return err
	}

	defer ws.Close()

	err = ws.update(func(q *rewardqueue.Queue) error {
		return q.Remove(id)
	})
	if err != nil {
		return xerrors.Errorf("failed to remove: %v", err)
	}

	fmt.Fprintf(c.out, "%s %s\n", success("removed"), ident(id))

	return nil
}

func (c Controller) distribute(flags cli.Flags) error {
	ws, err := openWorkspace(flags)
	if err != nil {
		return err
	}

	defer ws.Close()

	var entries []rewardqueue.Entry

	err = ws.update(func(q *rewardqueue.Queue) error {
		entries, err = q.Distribute(flags.Int64(budgetFlag))
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to distribute: %v", err)
	}

	total := int64(0)
	for _, entry := range entries {
		total += entry.Amount
		fmt.Fprintf(c.out, "%s %s\n", success("distributed"), formatEntry(entry))
	}

	fmt.Fprintf(c.out, "%d entries, %s distributed, %d left\n",
		len(entries), amount(total), ws.queue.Len())

	return nil
}

func (c Controller) schema(flags cli.Flags) error {
	fmt.Fprintf(c.out, "%s (%s)\n", rewardqueue.Schema.Name, ident(identity.New(
		identity.ImplementationSpace, rewardqueue.EntryType, 0)))

	for _, field := range rewardqueue.Schema.Fields {
		optional := ""
		if field.Optional {
			optional = " (optional)"
		}

		fmt.Fprintf(c.out, "  %-14s %s%s\n", field.Name, kind(string(field.Kind)), optional)
	}

	return nil
}

// parseBound returns the time of the flag, or nil when the flag is not set so
// that the bound of the range is open.
func parseBound(flags cli.Flags, name string) (any, error) {
	if !flags.IsSet(name) {
		return nil, nil
	}

	ts, err := time.Parse(time.RFC3339, flags.String(name))
	if err != nil {
		return nil, xerrors.Errorf("invalid %s: %v", name, err)
	}

	return ts, nil
}
