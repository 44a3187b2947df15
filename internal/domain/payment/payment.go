package payment

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the payment status in the state machine.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusInput     Status = "input"
	StatusPreauth   Status = "preauth"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusRefunded  Status = "refunded"
	StatusError     Status = "error"
)

// FraudStatus is tracked independently of the payment lifecycle. Core logic
// never branches on it; it is preserved for downstream risk tooling.
type FraudStatus string

const (
	FraudUnknown FraudStatus = "unknown"
	FraudAccept  FraudStatus = "accept"
	FraudReject  FraudStatus = "reject"
	FraudReview  FraudStatus = "review"
)

// Well-known ExtraData snapshot keys. Every gateway interaction appends its
// raw response under one of these; entries are additive and never evict a
// snapshot stored under a different key.
const (
	SnapshotCard          = "card"
	SnapshotSession       = "session"
	SnapshotOrder         = "order"
	SnapshotPaymentIntent = "payment_intent"
	SnapshotTransaction   = "transaction"
	SnapshotRefund        = "refund"
	SnapshotErrors        = "errors"
	// SnapshotIntentEvent is the key used by the payment_intent.succeeded
	// webhook rule. The upstream gateway spells it this way; changing it
	// would break consumers reading historical rows.
	SnapshotIntentEvent = "payment_intend"
)

// Amount represents a monetary amount in fixed-point cents. Floating point is
// never used for currency math to avoid rounding drift.
type Amount struct {
	ValueCents int64
	Currency   string
}

// String returns a human-readable representation of the amount.
func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.DecimalString(), a.Currency)
}

// DecimalString renders the amount as a decimal string ("12.34") for
// gateways that accept decimal amounts directly.
func (a Amount) DecimalString() string {
	sign := ""
	cents := a.ValueCents
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// Validate checks that the amount is valid.
func (a Amount) Validate() error {
	if a.ValueCents <= 0 {
		return errors.ErrInvalidAmount
	}
	if len(a.Currency) != 3 {
		return errors.NewValidationError("currency", "must be a 3-letter code")
	}
	return nil
}

// Record is the canonical state of one payment attempt. It is created by the
// caller with StatusWaiting before any gateway call and mutated exclusively
// by provider adapters and the webhook reconciler. This subsystem never
// deletes records.
type Record struct {
	ID            uuid.UUID
	Variant       string
	Status        Status
	FraudStatus   FraudStatus
	TransactionID string

	Total    Amount
	Tax      int64
	Delivery int64

	Description string

	// Billing and contact fields are pass-through data for gateways that
	// want them; nothing here interprets them.
	BillingFirstName   string
	BillingLastName    string
	BillingAddress1    string
	BillingAddress2    string
	BillingCity        string
	BillingPostcode    string
	BillingCountryCode string
	BillingCountryArea string
	BillingEmail       string
	CustomerIP         string

	// ExtraData is the audit trail: named snapshots of raw gateway
	// responses, keyed by the Snapshot* constants.
	ExtraData map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord creates a payment record in the waiting state.
func NewRecord(variant string, total Amount) (*Record, error) {
	if variant == "" {
		return nil, errors.NewValidationError("variant", "cannot be empty")
	}
	if err := total.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Record{
		ID:          uuid.New(),
		Variant:     variant,
		Status:      StatusWaiting,
		FraudStatus: FraudUnknown,
		Total:       total,
		ExtraData:   make(map[string]any),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// statusTransitions is the closed state machine. Transitions are monotone:
// nothing moves backward, and the only exit from confirmed is an explicit
// refund.
var statusTransitions = map[Status][]Status{
	StatusWaiting:   {StatusInput, StatusPreauth, StatusConfirmed, StatusRejected, StatusError},
	StatusInput:     {StatusPreauth, StatusConfirmed, StatusRejected, StatusError},
	StatusPreauth:   {StatusConfirmed, StatusError},
	StatusConfirmed: {StatusRefunded},
	StatusRejected:  {}, // terminal
	StatusRefunded:  {}, // terminal
	StatusError:     {}, // terminal
}

// CanTransitionTo reports whether the record may move to newStatus. A
// same-status transition is always allowed so that redelivered webhooks stay
// idempotent.
func (r *Record) CanTransitionTo(newStatus Status) bool {
	if r.Status == newStatus {
		return true
	}
	for _, allowed := range statusTransitions[r.Status] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo moves the record to a new status, enforcing the state machine.
func (r *Record) TransitionTo(newStatus Status) error {
	if !r.CanTransitionTo(newStatus) {
		return fmt.Errorf("cannot transition from %s to %s: %w",
			r.Status, newStatus, errors.ErrInvalidStateTransition)
	}
	r.Status = newStatus
	r.UpdatedAt = time.Now()
	return nil
}

// SetSnapshot stores a gateway response under a well-known key. Additive:
// writing one key never touches another; rewriting the same key replaces
// only that snapshot.
func (r *Record) SetSnapshot(key string, value any) {
	if r.ExtraData == nil {
		r.ExtraData = make(map[string]any)
	}
	r.ExtraData[key] = value
}

// Snapshot returns the snapshot stored under key, if any.
func (r *Record) Snapshot(key string) (any, bool) {
	v, ok := r.ExtraData[key]
	return v, ok
}

// ValidateCustomerIP checks the optional customer IP field.
func (r *Record) ValidateCustomerIP() error {
	if r.CustomerIP == "" {
		return nil
	}
	if _, err := netip.ParseAddr(r.CustomerIP); err != nil {
		return errors.NewValidationError("customer_ip", "not a valid IP address")
	}
	return nil
}

// Update is a partial-field write descriptor. Adapters and the reconciler
// persist only the fields they touched; a nil pointer means "leave alone".
// Snapshots are merged per-key into ExtraData, never replacing the whole map.
type Update struct {
	Status        *Status
	TransactionID *string
	FraudStatus   *FraudStatus
	Snapshots     map[string]any
}

// IsZero reports whether the update would write nothing.
func (u Update) IsZero() bool {
	return u.Status == nil && u.TransactionID == nil && u.FraudStatus == nil && len(u.Snapshots) == 0
}

// Apply mutates the in-memory record to match the update.
func (u Update) Apply(r *Record) {
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.TransactionID != nil {
		r.TransactionID = *u.TransactionID
	}
	if u.FraudStatus != nil {
		r.FraudStatus = *u.FraudStatus
	}
	for k, v := range u.Snapshots {
		r.SetSnapshot(k, v)
	}
	r.UpdatedAt = time.Now()
}
