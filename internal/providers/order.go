package providers

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/rs/zerolog"
)

// OrderCapture integrates a two-phase order gateway: an order is created
// here, approved by the buyer on the gateway's page, captured by this
// system when the approval webhook lands, and only then refundable.
//
// Every call acquires a fresh bearer token through the client-credentials
// exchange; the gateway's tokens are short-lived and not worth caching.
type OrderCapture struct {
	variant    string
	clientID   string
	secretKey  string
	endpoint   string
	successURL string
	failureURL string
	client     *http.Client
	store      RecordStore
	logger     zerolog.Logger
}

// NewOrderCapture creates an order/capture adapter.
func NewOrderCapture(variant string, cfg VariantConfig, redirects RedirectURLs, store RecordStore, logger zerolog.Logger) *OrderCapture {
	return &OrderCapture{
		variant:    variant,
		clientID:   cfg.ClientID,
		secretKey:  cfg.SecretKey,
		endpoint:   cfg.Endpoint,
		successURL: redirects.SuccessURL,
		failureURL: redirects.FailureURL,
		client:     newGatewayClient(),
		store:      store,
		logger:     logger.With().Str("variant", variant).Logger(),
	}
}

func (g *OrderCapture) Name() string { return g.variant }

func (g *OrderCapture) createToken(ctx context.Context) (string, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(g.clientID + ":" + g.secretKey))

	body, _, err := formRequest(ctx, g.client, g.endpoint+"/v1/oauth2/token",
		"Basic "+basic, url.Values{"grant_type": {"client_credentials"}})
	if err != nil {
		return "", domainErrors.NewGatewayError(g.variant, "can't create token", err)
	}

	var parsed map[string]any
	token := ""
	if jsonErr := decodeJSON(body, &parsed); jsonErr == nil {
		token, _ = parsed["access_token"].(string)
	}
	if token == "" {
		return "", domainErrors.NewGatewayError(g.variant, "can't create token", nil)
	}
	return token, nil
}

// ProcessPayment creates an order with intent CAPTURE. The gateway accepts
// decimal amount strings directly; no minor-unit conversion happens here.
func (g *OrderCapture) ProcessPayment(ctx context.Context, rec *payment.Record) (*Session, error) {
	if rec.TransactionID != "" {
		return nil, domainErrors.NewGatewayError(g.variant, domainErrors.ErrAlreadyProcessed.Error(), domainErrors.ErrAlreadyProcessed)
	}

	token, err := g.createToken(ctx)
	if err != nil {
		return nil, err
	}

	order, err := jsonRequest(ctx, g.client, http.MethodPost,
		g.endpoint+"/v2/checkout/orders", "Bearer "+token, map[string]any{
			"intent": "CAPTURE",
			"application_context": map[string]any{
				"return_url": g.successURL,
				"cancel_url": g.failureURL,
			},
			"purchase_units": []any{
				map[string]any{
					"amount": map[string]any{
						"currency_code": strings.ToUpper(rec.Total.Currency),
						"value":         rec.Total.DecimalString(),
					},
				},
			},
		})
	if err != nil {
		g.logger.Warn().Err(err).Msg("order creation failed")
		return nil, domainErrors.NewGatewayError(g.variant, "order creation failed", err)
	}

	orderID, _ := order["id"].(string)
	rec.TransactionID = orderID
	rec.SetSnapshot(payment.SnapshotOrder, order)
	if err := g.store.UpdateFields(ctx, rec.ID, payment.Update{
		TransactionID: ptr(orderID),
		Snapshots:     map[string]any{payment.SnapshotOrder: order},
	}); err != nil {
		return nil, err
	}
	return &Session{ID: orderID, URL: approveLink(order)}, nil
}

// Capture finalizes an approved order. Invoked by the webhook reconciler
// when the buyer's approval event lands; the capture response replaces the
// order snapshot so the capture id is available for refunds.
func (g *OrderCapture) Capture(ctx context.Context, rec *payment.Record) error {
	token, err := g.createToken(ctx)
	if err != nil {
		return err
	}

	capture, err := jsonRequest(ctx, g.client, http.MethodPost,
		g.endpoint+"/v2/checkout/orders/"+rec.TransactionID+"/capture", "Bearer "+token, map[string]any{})
	if err != nil {
		g.logger.Warn().Err(err).Msg("order capture failed")
		return domainErrors.NewGatewayError(g.variant, "order capture failed", err)
	}

	rec.SetSnapshot(payment.SnapshotOrder, capture)
	return g.store.UpdateFields(ctx, rec.ID, payment.Update{
		Snapshots: map[string]any{payment.SnapshotOrder: capture},
	})
}

// Refund refunds the captured funds. The capture id lives at a fixed path in
// the order snapshot; if it is missing the payment was never captured.
func (g *OrderCapture) Refund(ctx context.Context, rec *payment.Record, amountCents *int64) (int64, error) {
	if rec.Status != payment.StatusConfirmed {
		return 0, domainErrors.NewGatewayError(g.variant, domainErrors.ErrNotConfirmed.Error(), domainErrors.ErrNotConfirmed)
	}

	order, _ := rec.Snapshot(payment.SnapshotOrder)
	captureID := digString(order, "purchase_units", 0, "payments", "captures", 0, "id")
	if captureID == "" {
		return 0, domainErrors.NewGatewayError(g.variant, domainErrors.ErrNotCaptured.Error(), domainErrors.ErrNotCaptured)
	}

	token, err := g.createToken(ctx)
	if err != nil {
		return 0, err
	}

	refund, err := jsonRequest(ctx, g.client, http.MethodPost,
		g.endpoint+"/v2/payments/captures/"+captureID+"/refund", "Bearer "+token, map[string]any{})
	if err != nil {
		g.logger.Warn().Err(err).Msg("refund failed")
		return 0, domainErrors.NewGatewayError(g.variant, "refund failed", err)
	}

	toRefund := rec.Total.ValueCents
	if amountCents != nil {
		toRefund = *amountCents
	}

	if err := rec.TransitionTo(payment.StatusRefunded); err != nil {
		return 0, err
	}
	rec.SetSnapshot(payment.SnapshotOrder, refund)
	if err := g.store.UpdateFields(ctx, rec.ID, payment.Update{
		Status:    ptr(payment.StatusRefunded),
		Snapshots: map[string]any{payment.SnapshotOrder: refund},
	}); err != nil {
		return 0, err
	}
	return MinorUnits(payment.Amount{ValueCents: toRefund, Currency: rec.Total.Currency}), nil
}

// approveLink finds the buyer-approval link in the order's links array.
func approveLink(order map[string]any) string {
	links, _ := order["links"].([]any)
	for _, l := range links {
		if digString(l, "rel") == "approve" {
			return digString(l, "href")
		}
	}
	return ""
}
