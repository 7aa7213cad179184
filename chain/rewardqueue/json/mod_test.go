package json

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/objdb/chain/rewardqueue"
	"go.dedis.ch/objdb/core/identity"
	"go.dedis.ch/objdb/internal/testing/fake"
	"go.dedis.ch/objdb/serde"
)

func TestEntryFormat_Encode(t *testing.T) {
	format := entryFormat{}
	ctx := serde.NewContext(jsonEngine{})

	data, err := format.Encode(ctx, makeEntry())
	require.NoError(t, err)
	require.Equal(t, `{"id":"2.9.3","number":7,"origin":"charter_license",`+
		`"license":"1.13.1","account":"1.2.5","amount":10,"frequency":200,`+
		`"time":"2018-01-02T03:04:05","extensions":[{"tag":1,"data":"AQI="}],`+
		`"comment":"hello","historic_sum":42}`, string(data))

	_, err = format.Encode(ctx, rewardqueue.Totals{})
	require.EqualError(t, err, "unsupported message of type 'rewardqueue.Totals'")

	_, err = format.Encode(fake.NewBadContext(), makeEntry())
	require.EqualError(t, err, fake.Err("failed to marshal"))
}

func TestEntryFormat_FieldOrder(t *testing.T) {
	data, err := entryFormat{}.Encode(serde.NewContext(jsonEngine{}), makeEntry())
	require.NoError(t, err)

	keys := topLevelKeys(t, data)

	expected := append([]string{"id"}, rewardqueue.Schema.Names()...)
	require.Equal(t, expected, keys)
}

func TestEntryFormat_Decode(t *testing.T) {
	format := entryFormat{}
	ctx := serde.NewContext(jsonEngine{})

	entry := makeEntry()

	data, err := format.Encode(ctx, entry)
	require.NoError(t, err)

	msg, err := format.Decode(ctx, data)
	require.NoError(t, err)
	require.Equal(t, entry, msg)

	entry.License = nil
	entry.Origin = rewardqueue.OriginUserSubmit
	entry.Extensions = nil

	data, err = format.Encode(ctx, entry)
	require.NoError(t, err)
	require.NotContains(t, string(data), "license")

	msg, err = format.Decode(ctx, data)
	require.NoError(t, err)
	require.Equal(t, entry, msg)

	_, err = format.Decode(fake.NewBadContext(), nil)
	require.EqualError(t, err, fake.Err("failed to unmarshal"))

	_, err = format.Decode(ctx, []byte(`{"time":"yesterday"}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid time: ")
}

func TestTotalsFormat(t *testing.T) {
	format := totalsFormat{}
	ctx := serde.NewContext(jsonEngine{})

	totals := rewardqueue.Totals{ID: identity.New(2, 10, 0), NextNumber: 3, HistoricSum: 60}

	data, err := format.Encode(ctx, totals)
	require.NoError(t, err)
	require.Equal(t, `{"id":"2.10.0","next_number":3,"historic_sum":60}`, string(data))

	msg, err := format.Decode(ctx, data)
	require.NoError(t, err)
	require.Equal(t, totals, msg)

	_, err = format.Encode(ctx, makeEntry())
	require.EqualError(t, err, "unsupported message of type 'rewardqueue.Entry'")

	_, err = format.Encode(fake.NewBadContext(), totals)
	require.EqualError(t, err, fake.Err("failed to marshal"))

	_, err = format.Decode(fake.NewBadContext(), nil)
	require.EqualError(t, err, fake.Err("failed to unmarshal"))
}

func TestRegistration(t *testing.T) {
	ctx := serde.NewContext(jsonEngine{})

	data, err := makeEntry().Serialize(ctx)
	require.NoError(t, err)

	msg, err := rewardqueue.NewEntryFactory().Deserialize(ctx, data)
	require.NoError(t, err)
	require.Equal(t, makeEntry(), msg)
}

// -----------------------------------------------------------------------------
// Utility functions

func makeEntry() rewardqueue.Entry {
	license := rewardqueue.LicenseID(1)

	return rewardqueue.Entry{
		ID:          identity.New(2, 9, 3),
		Number:      7,
		Origin:      rewardqueue.OriginChartered,
		License:     &license,
		Account:     rewardqueue.AccountID(5),
		Amount:      10,
		Frequency:   200,
		Time:        time.Date(2018, 1, 2, 3, 4, 5, 0, time.UTC),
		Comment:     "hello",
		HistoricSum: 42,
		Extensions:  []rewardqueue.Extension{{Tag: 1, Data: []byte{1, 2}}},
	}
}

func topLevelKeys(t *testing.T, data []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(data))

	_, err := dec.Token()
	require.NoError(t, err)

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		require.NoError(t, err)

		keys = append(keys, tok.(string))

		var skip json.RawMessage
		require.NoError(t, dec.Decode(&skip))
	}

	return keys
}

type jsonEngine struct{}

func (jsonEngine) GetFormat() serde.Format {
	return serde.FormatJSON
}

func (jsonEngine) Marshal(m interface{}) ([]byte, error) {
	return json.Marshal(m)
}

func (jsonEngine) Unmarshal(data []byte, m interface{}) error {
	return json.Unmarshal(data, m)
}
