package controller

import (
	"io"
	"net/http"

	"github.com/cassiomorais/payhub/internal/application"
	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/rs/zerolog"
)

const maxCallbackBody = 1 << 20 // 1 MiB

// CallbackController receives provider webhooks on a single shared endpoint
// and hands them to the reconciler.
type CallbackController struct {
	service *application.Service
	logger  zerolog.Logger
}

// NewCallbackController creates a callback controller.
func NewCallbackController(service *application.Service, logger zerolog.Logger) *CallbackController {
	return &CallbackController{service: service, logger: logger}
}

// Handle processes POST /callback. A reconciled or unmatched event is
// acknowledged with 201 so providers stop redelivering; a matched event
// that cannot be applied yet returns 400 and will be redelivered.
func (c *CallbackController) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		writeError(w, c.logger, domainErrors.NewValidationError("body", "could not read request body"))
		return
	}

	if err := c.service.ReconcileWebhook(r.Context(), body); err != nil {
		c.logger.Warn().Err(err).Msg("webhook reconciliation failed")
		writeError(w, c.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "Your payment was successful"})
}
