package controller

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domainErrors.ErrPaymentNotFound, http.StatusNotFound},
		{"unknown variant", domainErrors.NewConfigurationError("x", "missing", domainErrors.ErrVariantNotFound), http.StatusNotFound},
		{"misconfigured variant", domainErrors.NewConfigurationError("x", "bad", nil), http.StatusBadRequest},
		{"reconciliation failure", domainErrors.NewReconciliationError("c1", "no record", nil), http.StatusBadRequest},
		{"validation", domainErrors.NewValidationError("currency", "bad"), http.StatusBadRequest},
		{"invalid amount", domainErrors.ErrInvalidAmount, http.StatusBadRequest},
		{"missing card data", domainErrors.ErrMissingCardData, http.StatusBadRequest},
		{"already processed", domainErrors.NewGatewayError("x", "done", domainErrors.ErrAlreadyProcessed), http.StatusConflict},
		{"not confirmed", domainErrors.NewGatewayError("x", "nope", domainErrors.ErrNotConfirmed), http.StatusConflict},
		{"not captured", domainErrors.NewGatewayError("x", "nope", domainErrors.ErrNotCaptured), http.StatusConflict},
		{"invalid transition", domainErrors.ErrInvalidStateTransition, http.StatusConflict},
		{"breaker open", domainErrors.NewGatewayError("x", "down", domainErrors.ErrProviderUnavailable), http.StatusServiceUnavailable},
		{"plain gateway failure", domainErrors.NewGatewayError("x", "boom", nil), http.StatusBadGateway},
		{"unknown", errors.New("surprise"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, zerolog.Nop(), tt.err)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
