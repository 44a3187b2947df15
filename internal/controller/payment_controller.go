package controller

import (
	"net/http"
	"strconv"

	"github.com/cassiomorais/payhub/internal/application"
	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaymentController exposes the payment REST endpoints.
type PaymentController struct {
	service *application.Service
	logger  zerolog.Logger
}

// NewPaymentController creates a payment controller.
func NewPaymentController(service *application.Service, logger zerolog.Logger) *PaymentController {
	return &PaymentController{service: service, logger: logger}
}

// Create handles POST /api/v1/payments.
func (c *PaymentController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, c.logger, err)
		return
	}

	result, err := c.service.CreatePayment(r.Context(), req.toInput())
	if err != nil {
		writeError(w, c.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentResponse(result.Record, result.Session))
}

// Get handles GET /api/v1/payments/{id}.
func (c *PaymentController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, c.logger, domainErrors.NewValidationError("id", "must be a UUID"))
		return
	}

	rec, err := c.service.GetPayment(r.Context(), id)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(rec, nil))
}

// List handles GET /api/v1/payments.
func (c *PaymentController) List(w http.ResponseWriter, r *http.Request) {
	var f payment.ListFilter
	q := r.URL.Query()
	if v := q.Get("variant"); v != "" {
		f.Variant = &v
	}
	if v := q.Get("status"); v != "" {
		st := payment.Status(v)
		f.Status = &st
	}
	f.SortBy = q.Get("sort_by")
	f.SortOrder = q.Get("sort_order")
	f.Limit = intQuery(q.Get("limit"))
	f.Offset = intQuery(q.Get("offset"))

	records, err := c.service.ListPayments(r.Context(), f)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}

	responses := make([]PaymentResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, toPaymentResponse(rec, nil))
	}
	writeJSON(w, http.StatusOK, responses)
}

// Refund handles POST /api/v1/payments/{id}/refund. An empty body refunds
// the full amount.
func (c *PaymentController) Refund(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, c.logger, domainErrors.NewValidationError("id", "must be a UUID"))
		return
	}

	var req RefundRequest
	if r.ContentLength > 0 {
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, c.logger, err)
			return
		}
	}

	refunded, err := c.service.RefundPayment(r.Context(), id, req.AmountCents)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, RefundResponse{RefundedMinorUnits: refunded})
}

// Settings handles GET /api/v1/payment-settings?variant=...
func (c *PaymentController) Settings(w http.ResponseWriter, r *http.Request) {
	variant := r.URL.Query().Get("variant")
	if variant == "" {
		writeError(w, c.logger, domainErrors.NewValidationError("variant", "query parameter is required"))
		return
	}

	settings, err := c.service.GetPaymentSettings(r.Context(), variant)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func intQuery(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
