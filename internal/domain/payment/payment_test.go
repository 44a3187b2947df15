package payment

import (
	"testing"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountDecimalString(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		want  string
	}{
		{"whole dollars", 20000, "200.00"},
		{"with cents", 1234, "12.34"},
		{"under one unit", 7, "0.07"},
		{"negative", -1234, "-12.34"},
		{"zero", 0, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Amount{ValueCents: tt.cents, Currency: "usd"}
			assert.Equal(t, tt.want, a.DecimalString())
		})
	}
}

func TestAmountValidate(t *testing.T) {
	assert.NoError(t, Amount{ValueCents: 100, Currency: "usd"}.Validate())
	assert.ErrorIs(t, Amount{ValueCents: 0, Currency: "usd"}.Validate(), domainErrors.ErrInvalidAmount)
	assert.ErrorIs(t, Amount{ValueCents: -1, Currency: "usd"}.Validate(), domainErrors.ErrInvalidAmount)
	assert.Error(t, Amount{ValueCents: 100, Currency: "us"}.Validate())
	assert.Error(t, Amount{ValueCents: 100, Currency: ""}.Validate())
}

func TestNewRecord(t *testing.T) {
	rec, err := NewRecord("stripe_checkout", Amount{ValueCents: 20000, Currency: "usd"})
	require.NoError(t, err)

	assert.Equal(t, StatusWaiting, rec.Status)
	assert.Equal(t, FraudUnknown, rec.FraudStatus)
	assert.Equal(t, "stripe_checkout", rec.Variant)
	assert.NotNil(t, rec.ExtraData)
	assert.NotZero(t, rec.ID)
}

func TestNewRecordRejectsInvalidInput(t *testing.T) {
	_, err := NewRecord("", Amount{ValueCents: 100, Currency: "usd"})
	assert.Error(t, err)

	_, err = NewRecord("stripe", Amount{ValueCents: -1, Currency: "usd"})
	assert.ErrorIs(t, err, domainErrors.ErrInvalidAmount)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusWaiting, StatusConfirmed, true},
		{StatusWaiting, StatusRejected, true},
		{StatusWaiting, StatusError, true},
		{StatusWaiting, StatusInput, true},
		{StatusWaiting, StatusPreauth, true},
		{StatusWaiting, StatusRefunded, false},
		{StatusInput, StatusConfirmed, true},
		{StatusInput, StatusWaiting, false},
		{StatusPreauth, StatusConfirmed, true},
		{StatusPreauth, StatusRejected, false},
		{StatusConfirmed, StatusRefunded, true},
		{StatusConfirmed, StatusRejected, false},
		{StatusConfirmed, StatusWaiting, false},
		{StatusRejected, StatusConfirmed, false},
		{StatusRefunded, StatusConfirmed, false},
		{StatusError, StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			rec := &Record{Status: tt.from}
			assert.Equal(t, tt.allowed, rec.CanTransitionTo(tt.to))

			err := rec.TransitionTo(tt.to)
			if tt.allowed {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, rec.Status)
			} else {
				assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
				assert.Equal(t, tt.from, rec.Status)
			}
		})
	}
}

func TestSameStatusTransitionIsIdempotent(t *testing.T) {
	for _, st := range []Status{StatusWaiting, StatusConfirmed, StatusRejected, StatusRefunded, StatusError} {
		rec := &Record{Status: st}
		assert.NoError(t, rec.TransitionTo(st), "same-status transition must be a no-op for %s", st)
	}
}

func TestSetSnapshotIsAdditive(t *testing.T) {
	rec := &Record{}
	rec.SetSnapshot(SnapshotSession, map[string]any{"id": "cs_1"})
	rec.SetSnapshot(SnapshotOrder, map[string]any{"id": "ord_1"})
	rec.SetSnapshot(SnapshotSession, map[string]any{"id": "cs_2"})

	session, ok := rec.Snapshot(SnapshotSession)
	require.True(t, ok)
	assert.Equal(t, "cs_2", session.(map[string]any)["id"])

	_, ok = rec.Snapshot(SnapshotOrder)
	assert.True(t, ok, "writing one snapshot key must not evict another")
}

func TestValidateCustomerIP(t *testing.T) {
	assert.NoError(t, (&Record{CustomerIP: ""}).ValidateCustomerIP())
	assert.NoError(t, (&Record{CustomerIP: "192.0.2.1"}).ValidateCustomerIP())
	assert.NoError(t, (&Record{CustomerIP: "2001:db8::1"}).ValidateCustomerIP())
	assert.Error(t, (&Record{CustomerIP: "not-an-ip"}).ValidateCustomerIP())
}

func TestUpdateApply(t *testing.T) {
	rec := &Record{Status: StatusWaiting, ExtraData: map[string]any{"card": "kept"}}

	status := StatusConfirmed
	txid := "txn_1"
	upd := Update{
		Status:        &status,
		TransactionID: &txid,
		Snapshots:     map[string]any{"session": map[string]any{"id": "cs_1"}},
	}
	assert.False(t, upd.IsZero())
	upd.Apply(rec)

	assert.Equal(t, StatusConfirmed, rec.Status)
	assert.Equal(t, "txn_1", rec.TransactionID)
	assert.Equal(t, "kept", rec.ExtraData["card"], "snapshot merge must not clobber other keys")
	assert.Contains(t, rec.ExtraData, "session")
}

func TestUpdateIsZero(t *testing.T) {
	assert.True(t, Update{}.IsZero())
	st := StatusConfirmed
	assert.False(t, Update{Status: &st}.IsZero())
	assert.False(t, Update{Snapshots: map[string]any{"a": 1}}.IsZero())
}
