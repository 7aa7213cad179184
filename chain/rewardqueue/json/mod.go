// Package json implements the JSON format of the reward queue objects. The
// fields of an entry are written in the order of the schema of the entry.
package json

import (
	"time"

	"go.dedis.ch/objdb/chain/rewardqueue"
	"go.dedis.ch/objdb/core/identity"
	"go.dedis.ch/objdb/serde"
	"golang.org/x/xerrors"
)

// TimeLayout is the layout of the timestamps, always in UTC.
const TimeLayout = "2006-01-02T15:04:05"

func init() {
	rewardqueue.RegisterEntryFormat(serde.FormatJSON, entryFormat{})
	rewardqueue.RegisterTotalsFormat(serde.FormatJSON, totalsFormat{})
}

// ExtensionJSON is the JSON message of an extension.
type ExtensionJSON struct {
	Tag  uint16 `json:"tag"`
	Data []byte `json:"data"`
}

// EntryJSON is the JSON message of a reward queue entry.
type EntryJSON struct {
	ID          identity.ID     `json:"id"`
	Number      uint64          `json:"number"`
	Origin      string          `json:"origin"`
	License     *identity.ID    `json:"license,omitempty"`
	Account     identity.ID     `json:"account"`
	Amount      int64           `json:"amount"`
	Frequency   int16           `json:"frequency"`
	Time        string          `json:"time"`
	Extensions  []ExtensionJSON `json:"extensions"`
	Comment     string          `json:"comment"`
	HistoricSum int64           `json:"historic_sum"`
}

// TotalsJSON is the JSON message of the totals of the queue.
type TotalsJSON struct {
	ID          identity.ID `json:"id"`
	NextNumber  uint64      `json:"next_number"`
	HistoricSum int64       `json:"historic_sum"`
}

// entryFormat is the JSON format engine of the entries.
//
// - implements serde.FormatEngine
type entryFormat struct{}

// Encode implements serde.FormatEngine. It returns the JSON data of the entry.
func (f entryFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	entry, ok := msg.(rewardqueue.Entry)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	exts := make([]ExtensionJSON, len(entry.Extensions))
	for i, ext := range entry.Extensions {
		exts[i] = ExtensionJSON{Tag: ext.Tag, Data: ext.Data}
	}

	m := EntryJSON{
		ID:          entry.ID,
		Number:      entry.Number,
		Origin:      string(entry.Origin),
		License:     entry.License,
		Account:     entry.Account,
		Amount:      entry.Amount,
		Frequency:   entry.Frequency,
		Time:        entry.Time.UTC().Format(TimeLayout),
		Extensions:  exts,
		Comment:     entry.Comment,
		HistoricSum: entry.HistoricSum,
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine. It returns the entry of the JSON data.
func (f entryFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := EntryJSON{}

	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	ts, err := time.ParseInLocation(TimeLayout, m.Time, time.UTC)
	if err != nil {
		return nil, xerrors.Errorf("invalid time: %v", err)
	}

	var exts []rewardqueue.Extension
	if len(m.Extensions) > 0 {
		exts = make([]rewardqueue.Extension, len(m.Extensions))
		for i, ext := range m.Extensions {
			exts[i] = rewardqueue.Extension{Tag: ext.Tag, Data: ext.Data}
		}
	}

	entry := rewardqueue.Entry{
		ID:          m.ID,
		Number:      m.Number,
		Origin:      rewardqueue.Origin(m.Origin),
		License:     m.License,
		Account:     m.Account,
		Amount:      m.Amount,
		Frequency:   m.Frequency,
		Time:        ts.UTC(),
		Comment:     m.Comment,
		HistoricSum: m.HistoricSum,
		Extensions:  exts,
	}

	return entry, nil
}

// totalsFormat is the JSON format engine of the totals.
//
// - implements serde.FormatEngine
type totalsFormat struct{}

// Encode implements serde.FormatEngine.
func (f totalsFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	totals, ok := msg.(rewardqueue.Totals)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	m := TotalsJSON{
		ID:          totals.ID,
		NextNumber:  totals.NextNumber,
		HistoricSum: totals.HistoricSum,
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine.
func (f totalsFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := TotalsJSON{}

	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	totals := rewardqueue.Totals{
		ID:          m.ID,
		NextNumber:  m.NextNumber,
		HistoricSum: m.HistoricSum,
	}

	return totals, nil
}
