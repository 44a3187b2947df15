package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = validator.New()

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes. Gateway and
// reconciliation failures are the caller's problem (4xx); everything
// unrecognized is a 500 with a generic body.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var (
		gatewayErr   *domainErrors.GatewayError
		configErr    *domainErrors.ConfigurationError
		reconcileErr *domainErrors.ReconciliationError
		validErr     *domainErrors.ValidationError
	)

	switch {
	case errors.Is(err, domainErrors.ErrPaymentNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &configErr):
		if errors.Is(err, domainErrors.ErrVariantNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &reconcileErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &validErr),
		errors.Is(err, domainErrors.ErrInvalidAmount),
		errors.Is(err, domainErrors.ErrMissingCardData),
		errors.Is(err, domainErrors.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domainErrors.ErrInvalidStateTransition),
		errors.Is(err, domainErrors.ErrAlreadyProcessed),
		errors.Is(err, domainErrors.ErrNotConfirmed),
		errors.Is(err, domainErrors.ErrNotCaptured):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domainErrors.ErrProviderUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.As(err, &gatewayErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		logger.Error().Err(err).Msg("unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation.
func decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON payload")
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return domainErrors.NewValidationError(fe.Field(), "failed on "+fe.Tag())
		}
		return domainErrors.ErrValidationFailed
	}
	return nil
}
