package rewardqueue

import (
	"go.dedis.ch/objdb/core/identity"
	"go.dedis.ch/objdb/serde"
	"go.dedis.ch/objdb/serde/registry"
	"golang.org/x/xerrors"
)

var totalsFormats = registry.NewSimpleRegistry()

// RegisterTotalsFormat registers the engine for the provided format.
func RegisterTotalsFormat(f serde.Format, e serde.FormatEngine) {
	totalsFormats.Register(f, e)
}

// Totals is the singleton object that tracks the next submission number and
// the sum of every amount submitted so far. It lives in the object database so
// that it is reverted together with the entries.
//
// - implements object.Object
// - implements serde.Message
type Totals struct {
	ID          identity.ID
	NextNumber  uint64
	HistoricSum int64
}

// GetID implements object.Identifiable.
func (t Totals) GetID() identity.ID {
	return t.ID
}

// Validate implements object.Object.
func (t Totals) Validate() error {
	if t.HistoricSum < 0 {
		return xerrors.Errorf("negative historic sum: %d", t.HistoricSum)
	}

	return nil
}

// Clone implements object.Object.
func (t Totals) Clone() Totals {
	return t
}

// Serialize implements serde.Message.
func (t Totals) Serialize(ctx serde.Context) ([]byte, error) {
	format := totalsFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, t)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode: %v", err)
	}

	return data, nil
}

// TotalsFactory is the factory of the totals object.
//
// - implements serde.Factory
type TotalsFactory struct{}

// NewTotalsFactory returns a new factory of the totals object.
func NewTotalsFactory() TotalsFactory {
	return TotalsFactory{}
}

// Deserialize implements serde.Factory.
func (f TotalsFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	format := totalsFormats.Get(ctx.GetFormat())

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode: %v", err)
	}

	return msg, nil
}
