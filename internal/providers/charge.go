package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/rs/zerolog"
)

// TokenCharge charges a client-side payment-method token immediately. The
// record arrives with its transaction id holding the token minted on the
// client; after the charge the id is swapped for the gateway's intent id.
//
// This gateway also signs its webhook deliveries and issues client tokens
// for rendering its payment form, so the adapter carries the WebhookVerifier
// and ClientTokener capabilities.
type TokenCharge struct {
	variant   string
	secretKey string
	publicKey string
	endpoint  string
	client    *http.Client
	store     RecordStore
	logger    zerolog.Logger
}

// NewTokenCharge creates a tokenized direct-charge adapter.
func NewTokenCharge(variant string, cfg VariantConfig, store RecordStore, logger zerolog.Logger) *TokenCharge {
	return &TokenCharge{
		variant:   variant,
		secretKey: cfg.SecretKey,
		publicKey: cfg.PublicKey,
		endpoint:  cfg.Endpoint,
		client:    newGatewayClient(),
		store:     store,
		logger:    logger.With().Str("variant", variant).Logger(),
	}
}

func (g *TokenCharge) Name() string { return g.variant }

// ProcessPayment charges the payment-method token carried in the record's
// transaction id, then replaces that id with the gateway's intent id and
// snapshots the raw intent.
func (g *TokenCharge) ProcessPayment(ctx context.Context, rec *payment.Record) (*Session, error) {
	if rec.TransactionID == "" {
		return nil, domainErrors.NewGatewayError(g.variant, "payment method token is required", nil)
	}

	intent, err := jsonRequest(ctx, g.client, http.MethodPost,
		g.endpoint+"/v1/payment_intents", "Bearer "+g.secretKey, map[string]any{
			"payment_method":      rec.TransactionID,
			"amount":              MinorUnits(rec.Total),
			"currency":            strings.ToLower(rec.Total.Currency),
			"confirmation_method": "automatic",
			"confirm":             true,
			"metadata":            map[string]any{"order_no": rec.ID.String()},
		})
	if err != nil {
		g.logger.Warn().Err(err).Msg("payment intent creation failed")
		return nil, domainErrors.NewGatewayError(g.variant, "payment intent creation failed", err)
	}

	intentID, _ := intent["id"].(string)
	rec.TransactionID = intentID
	rec.SetSnapshot(payment.SnapshotPaymentIntent, intent)
	if err := g.store.UpdateFields(ctx, rec.ID, payment.Update{
		TransactionID: ptr(intentID),
		Snapshots:     map[string]any{payment.SnapshotPaymentIntent: intent},
	}); err != nil {
		return nil, err
	}
	return nil, nil
}

// Refund refunds through the intent id stored in the payment_intent
// snapshot. A nil amount refunds the full record total.
func (g *TokenCharge) Refund(ctx context.Context, rec *payment.Record, amountCents *int64) (int64, error) {
	if rec.Status != payment.StatusConfirmed {
		return 0, domainErrors.NewGatewayError(g.variant, domainErrors.ErrNotConfirmed.Error(), domainErrors.ErrNotConfirmed)
	}

	intentSnap, _ := rec.Snapshot(payment.SnapshotPaymentIntent)
	intentID := digString(intentSnap, "id")
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

// ClientToken fetches a token for the client-side payment form. Failure
// degrades to nil: a missing token must not block page rendering.
func (g *TokenCharge) ClientToken(ctx context.Context) *string {
	resp, err := jsonRequest(ctx, g.client, http.MethodPost,
		g.endpoint+"/v1/client_tokens", "Bearer "+g.secretKey, map[string]any{})
	if err != nil {
		g.logger.Warn().Err(err).Msg("client token fetch failed")
		return nil
	}
	token, _ := resp["token"].(string)
	if token == "" {
		return nil
	}
	return &token
}

// VerifyWebhook checks the delivery signature and parses the notification.
// The signature format is "<public key>|<hex hmac-sha256 of payload>", keyed
// with the secret key.
func (g *TokenCharge) VerifyWebhook(signature, payload string) (*WebhookNotification, error) {
	pub, mac, ok := strings.Cut(signature, "|")
	if !ok || pub != g.publicKey {
		return nil, fmt.Errorf("signature does not match a known public key")
	}

	h := hmac.New(sha256.New, []byte(g.secretKey))
	h.Write([]byte(payload))
	expected := hex.EncodeToString(h.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(mac)) {
		return nil, fmt.Errorf("signature verification failed")
	}

	var parsed struct {
		Transaction struct {
			ID string `json:"id"`
		} `json:"transaction"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	if parsed.Transaction.ID == "" {
		return nil, fmt.Errorf("webhook payload carries no transaction id")
	}
	return &WebhookNotification{TransactionID: parsed.Transaction.ID}, nil
}

// FetchTransaction re-fetches the authoritative transaction detail. The
// signed webhook payload is not trusted as a data source.
func (g *TokenCharge) FetchTransaction(ctx context.Context, transactionID string) (map[string]any, error) {
	tx, err := jsonRequest(ctx, g.client, http.MethodGet,
		g.endpoint+"/v1/payment_intents/"+transactionID, "Bearer "+g.secretKey, nil)
	if err != nil {
		return nil, domainErrors.NewGatewayError(g.variant, "transaction fetch failed", err)
	}
	return tx, nil
}
