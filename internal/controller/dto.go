package controller

import (
	"time"

	"github.com/cassiomorais/payhub/internal/application"
	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/cassiomorais/payhub/internal/providers"
)

// CreatePaymentRequest is the payment creation payload. Card fields are
// write-only: they are forwarded to the gateway and never echoed back.
type CreatePaymentRequest struct {
	Variant       string `json:"variant" validate:"required"`
	AmountCents   int64  `json:"amount_cents" validate:"required,gt=0"`
	Currency      string `json:"currency" validate:"required,len=3"`
	TaxCents      int64  `json:"tax_cents" validate:"gte=0"`
	DeliveryCents int64  `json:"delivery_cents" validate:"gte=0"`
	Description   string `json:"description"`

	BillingFirstName   string `json:"billing_first_name"`
	BillingLastName    string `json:"billing_last_name"`
	BillingAddress1    string `json:"billing_address_1"`
	BillingAddress2    string `json:"billing_address_2"`
	BillingCity        string `json:"billing_city"`
	BillingPostcode    string `json:"billing_postcode"`
	BillingCountryCode string `json:"billing_country_code"`
	BillingCountryArea string `json:"billing_country_area"`
	BillingEmail       string `json:"billing_email" validate:"omitempty,email"`
	CustomerIP         string `json:"customer_ip" validate:"omitempty,ip"`

	Card               string `json:"card,omitempty"`
	CardExpiration     string `json:"card_expiration,omitempty"`
	CardCVV            string `json:"card_cvv,omitempty"`
	PaymentMethodToken string `json:"payment_method_token,omitempty"`
}

func (r CreatePaymentRequest) toInput() application.CreatePaymentInput {
	in := application.CreatePaymentInput{
		Variant:            r.Variant,
		AmountCents:        r.AmountCents,
		Currency:           r.Currency,
		TaxCents:           r.TaxCents,
		DeliveryCents:      r.DeliveryCents,
		Description:        r.Description,
		BillingFirstName:   r.BillingFirstName,
		BillingLastName:    r.BillingLastName,
		BillingAddress1:    r.BillingAddress1,
		BillingAddress2:    r.BillingAddress2,
		BillingCity:        r.BillingCity,
		BillingPostcode:    r.BillingPostcode,
		BillingCountryCode: r.BillingCountryCode,
		BillingCountryArea: r.BillingCountryArea,
		BillingEmail:       r.BillingEmail,
		CustomerIP:         r.CustomerIP,
		PaymentMethodToken: r.PaymentMethodToken,
	}
	if r.Card != "" || r.CardExpiration != "" || r.CardCVV != "" {
		in.Card = &application.CardData{
			Number:     r.Card,
			Expiration: r.CardExpiration,
			CVV:        r.CardCVV,
		}
	}
	return in
}

// RefundRequest optionally narrows a refund to a partial amount.
type RefundRequest struct {
	AmountCents *int64 `json:"amount_cents" validate:"omitempty,gt=0"`
}

// PaymentResponse is the read model for one payment record.
type PaymentResponse struct {
	ID            string         `json:"id"`
	Variant       string         `json:"variant"`
	Status        string         `json:"status"`
	FraudStatus   string         `json:"fraud_status"`
	TransactionID string         `json:"transaction_id,omitempty"`
	AmountCents   int64          `json:"amount_cents"`
	Currency      string         `json:"currency"`
	TaxCents      int64          `json:"tax_cents"`
	DeliveryCents int64          `json:"delivery_cents"`
	Description   string         `json:"description,omitempty"`
	ExtraData     map[string]any `json:"extra_data,omitempty"`
	URL           string         `json:"url,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func toPaymentResponse(rec *payment.Record, session *providers.Session) PaymentResponse {
	resp := PaymentResponse{
		ID:            rec.ID.String(),
		Variant:       rec.Variant,
		Status:        string(rec.Status),
		FraudStatus:   string(rec.FraudStatus),
		TransactionID: rec.TransactionID,
		AmountCents:   rec.Total.ValueCents,
		Currency:      rec.Total.Currency,
		TaxCents:      rec.Tax,
		DeliveryCents: rec.Delivery,
		Description:   rec.Description,
		ExtraData:     rec.ExtraData,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
	if session != nil {
		resp.URL = session.URL
	}
	return resp
}

// RefundResponse reports the refunded amount in gateway minor units.
type RefundResponse struct {
	RefundedMinorUnits int64 `json:"refunded_minor_units"`
}
