package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/rs/zerolog"
)

// HostedCheckout creates hosted checkout sessions: the buyer pays on the
// gateway's page and confirmation arrives later through the
// checkout.session.completed webhook.
type HostedCheckout struct {
	variant    string
	secretKey  string
	endpoint   string
	successURL string
	failureURL string
	client     *http.Client
	store      RecordStore
	logger     zerolog.Logger
}

// NewHostedCheckout creates a hosted-checkout adapter.
func NewHostedCheckout(variant string, cfg VariantConfig, redirects RedirectURLs, store RecordStore, logger zerolog.Logger) *HostedCheckout {
	return &HostedCheckout{
		variant:    variant,
		secretKey:  cfg.SecretKey,
		endpoint:   cfg.Endpoint,
		successURL: redirects.SuccessURL,
		failureURL: redirects.FailureURL,
		client:     newGatewayClient(),
		store:      store,
		logger:     logger.With().Str("variant", variant).Logger(),
	}
}

func (g *HostedCheckout) Name() string { return g.variant }

// ProcessPayment creates a checkout session carrying one line item for the
// record total and the record id as the session's client reference, which is
// how the completion webhook finds its way back to this record.
func (g *HostedCheckout) ProcessPayment(ctx context.Context, rec *payment.Record) (*Session, error) {
	if rec.TransactionID != "" {
		return nil, domainErrors.NewGatewayError(g.variant, domainErrors.ErrAlreadyProcessed.Error(), domainErrors.ErrAlreadyProcessed)
	}

	sessionData := map[string]any{
		"mode": "payment",
		"line_items": []any{
			map[string]any{
				"quantity": 1,
				"price_data": map[string]any{
					"currency":    strings.ToLower(rec.Total.Currency),
					"unit_amount": MinorUnits(rec.Total),
					"product_data": map[string]any{
						"name": fmt.Sprintf("Order #%s", rec.ID),
					},
				},
			},
		},
		"success_url":         g.successURL,
		"cancel_url":          g.failureURL,
		"client_reference_id": rec.ID.String(),
	}
	if rec.BillingEmail != "" {
		sessionData["customer_email"] = rec.BillingEmail
	}

	session, err := jsonRequest(ctx, g.client, http.MethodPost,
		g.endpoint+"/v1/checkout/sessions", "Bearer "+g.secretKey, sessionData)
	if err != nil {
		g.logger.Warn().Err(err).Msg("checkout session creation failed")
		return nil, domainErrors.NewGatewayError(g.variant, "checkout session creation failed", err)
	}

	sessionID, _ := session["id"].(string)
	rec.TransactionID = sessionID
	rec.SetSnapshot(payment.SnapshotSession, session)
	if err := g.store.UpdateFields(ctx, rec.ID, payment.Update{
		TransactionID: ptr(sessionID),
		Snapshots:     map[string]any{payment.SnapshotSession: session},
	}); err != nil {
		return nil, err
	}

	sessionURL, _ := session["url"].(string)
	return &Session{ID: sessionID, URL: sessionURL}, nil
}

// Refund refunds through the charge reference stored in the session
// snapshot. A nil amount refunds the full record total.
func (g *HostedCheckout) Refund(ctx context.Context, rec *payment.Record, amountCents *int64) (int64, error) {
	if rec.Status != payment.StatusConfirmed {
		return 0, domainErrors.NewGatewayError(g.variant, domainErrors.ErrNotConfirmed.Error(), domainErrors.ErrNotConfirmed)
	}

	session, _ := rec.Snapshot(payment.SnapshotSession)
	intentID := digString(session, "payment_intent")
	if intentID == "" {
		return 0, domainErrors.NewGatewayError(g.variant, "can't refund, payment_intent does not exist", nil)
	}

	toRefund := rec.Total.ValueCents
	if amountCents != nil {
		toRefund = *amountCents
	}
	minor := MinorUnits(payment.Amount{ValueCents: toRefund, Currency: rec.Total.Currency})

	refund, err := jsonRequest(ctx, g.client, http.MethodPost,
		g.endpoint+"/v1/refunds", "Bearer "+g.secretKey, map[string]any{
			"payment_intent": intentID,
			"amount":         minor,
			"reason":         "requested_by_customer",
		})
	if err != nil {
		g.logger.Warn().Err(err).Msg("refund failed")
		return 0, domainErrors.NewGatewayError(g.variant, "refund failed", err)
	}

	if err := rec.TransitionTo(payment.StatusRefunded); err != nil {
		return 0, err
	}
	rec.SetSnapshot(payment.SnapshotRefund, refund)
	if err := g.store.UpdateFields(ctx, rec.ID, payment.Update{
		Status:    ptr(payment.StatusRefunded),
		Snapshots: map[string]any{payment.SnapshotRefund: refund},
	}); err != nil {
		return 0, err
	}
	return minor, nil
}
