package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/rs/zerolog"
)

// cardResponseStatus maps the gateway's numeric result code (field 0 of the
// pipe-delimited reply) to a payment status. Any other code is an error.
var cardResponseStatus = map[string]payment.Status{
	"1": payment.StatusConfirmed,
	"2": payment.StatusRejected,
}

// CardGateway charges raw card data against a direct card-network gateway.
// The sandbox integration has no webhook, so the payment status is decided
// synchronously from the gateway's reply. Card data must already sit in the
// record's "card" snapshot; the HTTP layer puts it there before dispatch.
type CardGateway struct {
	variant        string
	loginID        string
	transactionKey string
	endpoint       string
	client         *http.Client
	store          RecordStore
	logger         zerolog.Logger
}

// NewCardGateway creates a card gateway adapter.
func NewCardGateway(variant string, cfg VariantConfig, store RecordStore, logger zerolog.Logger) *CardGateway {
	return &CardGateway{
		variant:        variant,
		loginID:        cfg.LoginID,
		transactionKey: cfg.TransactionKey,
		endpoint:       cfg.Endpoint,
		client:         newGatewayClient(),
		store:          store,
		logger:         logger.With().Str("variant", variant).Logger(),
	}
}

func (g *CardGateway) Name() string { return g.variant }

// ProcessPayment posts a flat form-encoded transaction request and maps the
// pipe-delimited reply onto the record: code "1" confirms, "2" rejects,
// anything else errors the payment with the gateway's message retained under
// the "errors" snapshot.
func (g *CardGateway) ProcessPayment(ctx context.Context, rec *payment.Record) (*Session, error) {
	data := url.Values{}
	data.Set("x_amount", rec.Total.DecimalString())
	data.Set("x_refId", rec.ID.String())
	data.Set("x_currency_code", rec.Total.Currency)
	data.Set("x_description", rec.Description)
	data.Set("x_first_name", rec.BillingFirstName)
	data.Set("x_last_name", rec.BillingLastName)
	data.Set("x_address", fmt.Sprintf("%s, %s", rec.BillingAddress1, rec.BillingAddress2))
	data.Set("x_city", rec.BillingCity)
	data.Set("x_zip", rec.BillingPostcode)
	data.Set("x_country", rec.BillingCountryArea)
	data.Set("x_customer_ip", rec.CustomerIP)
	data.Set("x_login", g.loginID)
	data.Set("x_tran_key", g.transactionKey)
	data.Set("x_delim_data", "TRUE")
	data.Set("x_delim_char", "|")
	data.Set("x_method", "CC")
	data.Set("x_type", "AUTH_CAPTURE")

	// Card data arrives out-of-band and is merged into the "card"
	// snapshot before this call.
	if card, ok := rec.Snapshot(payment.SnapshotCard); ok {
		if fields, ok := card.(map[string]any); ok {
			for k, v := range fields {
				data.Set(k, fmt.Sprint(v))
			}
		}
	}

	body, statusCode, err := formRequest(ctx, g.client, g.endpoint, "", data)
	if err != nil {
		g.logger.Warn().Err(err).Msg("card transaction request failed")
		if uerr := g.persistError(ctx, rec, err.Error()); uerr != nil {
			return nil, uerr
		}
		return nil, domainErrors.NewGatewayError(g.variant, "transaction request failed", err)
	}

	fields := strings.Split(body, "|")
	if len(fields) < 4 {
		return nil, domainErrors.NewGatewayError(g.variant, "Wrong response", nil)
	}
	message := fields[3]

	status, known := cardResponseStatus[fields[0]]
	if statusCode < 200 || statusCode >= 300 || !known {
		g.logger.Info().Str("code", fields[0]).Str("message", message).Msg("card transaction not approved")
		return nil, g.persistError(ctx, rec, message)
	}
	if len(fields) < 7 {
		return nil, domainErrors.NewGatewayError(g.variant, "Wrong response", nil)
	}

	transactionID := fields[6]
	if err := rec.TransitionTo(status); err != nil {
		return nil, err
	}
	rec.TransactionID = transactionID
	if err := g.store.UpdateFields(ctx, rec.ID, payment.Update{
		Status:        ptr(status),
		TransactionID: ptr(transactionID),
	}); err != nil {
		return nil, err
	}
	return nil, nil
}

// Refund is not offered by this gateway's integration.
func (g *CardGateway) Refund(ctx context.Context, rec *payment.Record, amountCents *int64) (int64, error) {
	if rec.Status != payment.StatusConfirmed {
		return 0, domainErrors.NewGatewayError(g.variant, domainErrors.ErrNotConfirmed.Error(), domainErrors.ErrNotConfirmed)
	}
	return 0, domainErrors.NewGatewayError(g.variant, "refunds are not supported by this gateway", nil)
}

func (g *CardGateway) persistError(ctx context.Context, rec *payment.Record, message string) error {
	if err := rec.TransitionTo(payment.StatusError); err != nil {
		return err
	}
	rec.SetSnapshot(payment.SnapshotErrors, []any{message})
	return g.store.UpdateFields(ctx, rec.ID, payment.Update{
		Status:    ptr(payment.StatusError),
		Snapshots: map[string]any{payment.SnapshotErrors: []any{message}},
	})
}
