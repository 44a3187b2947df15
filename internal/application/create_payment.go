package application

import (
	"context"
	"errors"
	"time"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/cassiomorais/payhub/internal/providers"
	"github.com/sony/gobreaker/v2"
)

// CardData is the raw card input for direct-card gateways. It is forwarded
// to the gateway and never persisted outside the gateway request itself.
type CardData struct {
	Number     string
	Expiration string
	CVV        string
}

// CreatePaymentInput carries everything needed to open a payment attempt.
type CreatePaymentInput struct {
	Variant       string
	AmountCents   int64
	Currency      string
	TaxCents      int64
	DeliveryCents int64
	Description   string

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

	// Card is required for direct-card variants and rejected otherwise.
	Card *CardData
	// PaymentMethodToken is the client-side token required by token-charge
	// variants.
	PaymentMethodToken string
}

// CreatePaymentResult is the outcome of one payment attempt. Session is set
// when the buyer must finish the flow on the gateway's page.
type CreatePaymentResult struct {
	Record  *payment.Record
	Session *providers.Session
}

// CreatePayment creates a payment record and runs it through the configured
// gateway. The record is persisted before the gateway call so that a crash
// mid-call leaves an auditable waiting row rather than nothing.
func (s *Service) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error) {
	kind, err := s.registry.Kind(in.Variant)
	if err != nil {
		return nil, err
	}

	rec, err := payment.NewRecord(in.Variant, payment.Amount{ValueCents: in.AmountCents, Currency: in.Currency})
	if err != nil {
		return nil, err
	}
	rec.Tax = in.TaxCents
	rec.Delivery = in.DeliveryCents
	rec.Description = in.Description
	rec.BillingFirstName = in.BillingFirstName
	rec.BillingLastName = in.BillingLastName
	rec.BillingAddress1 = in.BillingAddress1
	rec.BillingAddress2 = in.BillingAddress2
	rec.BillingCity = in.BillingCity
	rec.BillingPostcode = in.BillingPostcode
	rec.BillingCountryCode = in.BillingCountryCode
	rec.BillingCountryArea = in.BillingCountryArea
	rec.BillingEmail = in.BillingEmail
	rec.CustomerIP = in.CustomerIP
	if err := rec.ValidateCustomerIP(); err != nil {
		return nil, err
	}

	switch kind {
	case providers.KindCard:
		if in.Card == nil || in.Card.Number == "" || in.Card.Expiration == "" || in.Card.CVV == "" {
			return nil, domainErrors.ErrMissingCardData
		}
		rec.SetSnapshot(payment.SnapshotCard, map[string]any{
			"x_card_num":  in.Card.Number,
			"x_exp_date":  in.Card.Expiration,
			"x_card_code": in.Card.CVV,
		})
	case providers.KindCharge:
		if in.PaymentMethodToken == "" {
			return nil, domainErrors.NewValidationError("payment_method_token", "required for this variant")
		}
		rec.TransactionID = in.PaymentMethodToken
	default:
		if in.Card != nil {
			return nil, domainErrors.NewValidationError("card", "not accepted by this variant")
		}
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	provider, breaker, err := s.registry.Get(in.Variant)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := breaker.Execute(func() (any, error) {
		return provider.ProcessPayment(ctx, rec)
	})
	if s.metrics != nil {
		s.metrics.GatewayDuration.WithLabelValues(in.Variant, "process").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.GatewayErrors.WithLabelValues(in.Variant, "process").Inc()
		}
		s.countPayment(in.Variant, rec.Status)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domainErrors.NewGatewayError(in.Variant, "provider temporarily unavailable", domainErrors.ErrProviderUnavailable)
		}
		return nil, err
	}

	s.countPayment(in.Variant, rec.Status)

	var session *providers.Session
	if result != nil {
		session, _ = result.(*providers.Session)
	}

	s.logger.Info().
		Str("payment_id", rec.ID.String()).
		Str("variant", in.Variant).
		Str("status", string(rec.Status)).
		Msg("payment processed")

	return &CreatePaymentResult{Record: rec, Session: session}, nil
}
