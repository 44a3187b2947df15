package providers

import (
	"context"

	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/google/uuid"
)

// Session describes a hosted checkout session (or an order approval page)
// the buyer must be redirected to. Adapters whose gateways confirm
// synchronously return nil instead.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Provider is the contract every gateway adapter implements. Methods mutate
// the record in memory and persist exactly the fields they touched through
// the adapter's RecordStore; they never overwrite the full record.
type Provider interface {
	// Name returns the configured variant name.
	Name() string
	// ProcessPayment runs one payment attempt through the gateway. It
	// returns a Session when the buyer must complete the payment on the
	// gateway's side, nil when the gateway decided synchronously.
	ProcessPayment(ctx context.Context, rec *payment.Record) (*Session, error)
	// Refund refunds a confirmed payment. A nil amount refunds the full
	// record total. Returns the refunded amount in gateway minor units.
	Refund(ctx context.Context, rec *payment.Record, amountCents *int64) (int64, error)
}

// Capturer is implemented by two-phase order gateways whose funds are
// captured explicitly after buyer approval.
type Capturer interface {
	Capture(ctx context.Context, rec *payment.Record) error
}

// ClientTokener is implemented by gateways that need a client-side token to
// render their payment form. A failed fetch degrades to nil so that page
// rendering is never blocked on the gateway.
type ClientTokener interface {
	ClientToken(ctx context.Context) *string
}

// WebhookNotification is the parsed content of a signed webhook payload.
type WebhookNotification struct {
	TransactionID string
}

// WebhookVerifier is implemented by gateways that sign their webhook
// deliveries. The signed payload is not trusted as a data source: after
// verification the reconciler re-fetches the transaction from the gateway.
type WebhookVerifier interface {
	VerifyWebhook(signature, payload string) (*WebhookNotification, error)
	FetchTransaction(ctx context.Context, transactionID string) (map[string]any, error)
}

// RecordStore is the persistence surface adapters need: partial-field
// updates only. payment.Repository satisfies it.
type RecordStore interface {
	UpdateFields(ctx context.Context, id uuid.UUID, upd payment.Update) error
}

func ptr[T any](v T) *T { return &v }
