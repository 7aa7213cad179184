// Package rewardqueue implements the queue of cycle submissions waiting to be
// minted. Each submission is an entry of the object database indexed by
// submission time and by account.
package rewardqueue

import (
	"slices"
	"time"

	"go.dedis.ch/objdb/core/identity"
	"go.dedis.ch/objdb/core/object"
	"go.dedis.ch/objdb/serde"
	"go.dedis.ch/objdb/serde/registry"
	"golang.org/x/xerrors"
)

const (
	// AccountType is the type of the account objects in the protocol space.
	AccountType uint8 = 2

	// LicenseType is the type of the license objects in the protocol space.
	LicenseType uint8 = 13

	// EntryType is the type of the reward queue entries in the implementation
	// space.
	EntryType uint8 = 9

	// TotalsType is the type of the totals object of the queue in the
	// implementation space.
	TotalsType uint8 = 10
)

const (
	// MinFrequency is the smallest frequency of a submission.
	MinFrequency int16 = 1

	// MaxFrequency is the largest frequency of a submission, with a precision
	// of two decimals.
	MaxFrequency int16 = 10000

	// MinYear and MaxYear bound the year of the submission time.
	MinYear = 0
	MaxYear = 9999
)

// Origin is the kind of a submission.
type Origin string

const (
	// OriginUserSubmit is a submission of cycles by the account itself.
	OriginUserSubmit Origin = "user_submit"
	// OriginReserveCycles is a submission of reserved cycles.
	OriginReserveCycles Origin = "reserve_cycles"
	// OriginChartered is a submission of the cycles of a chartered license.
	OriginChartered Origin = "charter_license"
	// OriginPromoCycles is a submission of promotional cycles.
	OriginPromoCycles Origin = "promo_cycles"
)

var origins = []Origin{OriginUserSubmit, OriginReserveCycles, OriginChartered, OriginPromoCycles}

// Valid returns true if the origin is known.
func (o Origin) Valid() bool {
	return slices.Contains(origins, o)
}

// ParseOrigin returns the origin of the name, or an error if it is unknown.
func ParseOrigin(name string) (Origin, error) {
	o := Origin(name)
	if !o.Valid() {
		return "", xerrors.Errorf("unknown origin '%s'", name)
	}

	return o, nil
}

// AccountID returns the identity of the account with the sequence.
func AccountID(seq uint64) identity.ID {
	return identity.New(identity.ProtocolSpace, AccountType, seq)
}

// LicenseID returns the identity of the license with the sequence.
func LicenseID(seq uint64) identity.ID {
	return identity.New(identity.ProtocolSpace, LicenseType, seq)
}

var entryFormats = registry.NewSimpleRegistry()

// RegisterEntryFormat registers the engine for the provided format.
func RegisterEntryFormat(f serde.Format, e serde.FormatEngine) {
	entryFormats.Register(f, e)
}

// Schema is the description of the fields of an entry in serialization order.
var Schema = object.Schema{
	Name: "reward_queue_object",
	Fields: []object.Field{
		{Name: "number", Kind: object.KindUint},
		{Name: "origin", Kind: object.KindString},
		{Name: "license", Kind: object.KindIdentity, Optional: true},
		{Name: "account", Kind: object.KindIdentity},
		{Name: "amount", Kind: object.KindInt},
		{Name: "frequency", Kind: object.KindInt},
		{Name: "time", Kind: object.KindTime},
		{Name: "extensions", Kind: object.KindExtensions},
		{Name: "comment", Kind: object.KindString},
		{Name: "historic_sum", Kind: object.KindInt},
	},
}

// Extension is an opaque field kept for forward compatibility.
type Extension struct {
	Tag  uint16
	Data []byte
}

// Entry is a submission of cycles to the reward queue.
//
// - implements object.Object
// - implements serde.Message
type Entry struct {
	ID identity.ID

	// Number is the unique number of the submission in the minting history.
	Number  uint64
	Origin  Origin
	License *identity.ID
	Account identity.ID
	Amount  int64

	Frequency   int16
	Time        time.Time
	Comment     string
	HistoricSum int64
	Extensions  []Extension
}

// GetID implements object.Identifiable.
func (e Entry) GetID() identity.ID {
	return e.ID
}

// Validate implements object.Object. It checks the amount, the frequency and
// that a license is attached if and only if the origin is a chartered one.
func (e Entry) Validate() error {
	if e.Amount < 0 {
		return xerrors.Errorf("negative amount: %d", e.Amount)
	}

	if !e.Origin.Valid() {
		return xerrors.Errorf("unknown origin '%s'", e.Origin)
	}

	if e.Origin == OriginChartered && e.License == nil {
		return xerrors.Errorf("origin '%s' requires a license", e.Origin)
	}

	if e.Origin != OriginChartered && e.License != nil {
		return xerrors.Errorf("origin '%s' does not accept a license", e.Origin)
	}

	if e.License != nil && !e.License.Is(identity.ProtocolSpace, LicenseType) {
		return xerrors.Errorf("invalid license %v", e.License)
	}

	if !e.Account.Is(identity.ProtocolSpace, AccountType) {
		return xerrors.Errorf("invalid account %v", e.Account)
	}

	if e.Frequency < MinFrequency || e.Frequency > MaxFrequency {
		return xerrors.Errorf("frequency %d out of [%d, %d]", e.Frequency, MinFrequency, MaxFrequency)
	}

	if e.HistoricSum < 0 {
		return xerrors.Errorf("negative historic sum: %d", e.HistoricSum)
	}

	// The serialized time only holds a four-digit year.
	year := e.Time.UTC().Year()
	if year < MinYear || year > MaxYear {
		return xerrors.Errorf("time out of range: year %d", year)
	}

	return nil
}

// Clone implements object.Object. It returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	if e.License != nil {
		license := *e.License
		e.License = &license
	}

	if e.Extensions != nil {
		exts := make([]Extension, len(e.Extensions))
		for i, ext := range e.Extensions {
			exts[i] = Extension{Tag: ext.Tag, Data: slices.Clone(ext.Data)}
		}

		e.Extensions = exts
	}

	return e
}

// Serialize implements serde.Message. It returns the data of the entry in the
// format of the context.
func (e Entry) Serialize(ctx serde.Context) ([]byte, error) {
	format := entryFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, e)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode: %v", err)
	}

	return data, nil
}

// EntryFactory is the factory of the reward queue entries.
//
// - implements serde.Factory
type EntryFactory struct{}

// NewEntryFactory returns a new factory.
func NewEntryFactory() EntryFactory {
	return EntryFactory{}
}

// Deserialize implements serde.Factory. It returns the entry of the data.
func (f EntryFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	format := entryFormats.Get(ctx.GetFormat())

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode: %v", err)
	}

	return msg, nil
}
