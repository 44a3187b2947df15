package errors

import (
	"errors"
	"fmt"
)

var (
	// Payment errors
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrAlreadyProcessed       = errors.New("payment has already been processed")
	ErrNotConfirmed           = errors.New("only confirmed payments can be refunded")
	ErrNotCaptured            = errors.New("payment has not been captured yet")

	// Provider errors
	ErrVariantNotFound     = errors.New("payment variant does not exist")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrMissingCardData     = errors.New("card, card_expiration and card_cvv are required")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// GatewayError wraps any failure from an external gateway call: transport
// failures, malformed responses and precondition violations alike. Callers
// decide retry policy; this subsystem never retries.
type GatewayError struct {
	Variant string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Variant != "" {
		return fmt.Sprintf("%s: %s", e.Variant, e.Message)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a new GatewayError.
func NewGatewayError(variant, message string, err error) *GatewayError {
	return &GatewayError{Variant: variant, Message: message, Err: err}
}

// ConfigurationError signals an unknown or misconfigured provider variant.
// Fatal to the calling request, not retryable.
type ConfigurationError struct {
	Variant string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Variant != "" {
		return fmt.Sprintf("variant %q: %s", e.Variant, e.Message)
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(variant, message string, err error) *ConfigurationError {
	return &ConfigurationError{Variant: variant, Message: message, Err: err}
}

// ReconciliationError signals that a webhook event matched a known shape but
// could not be applied: its correlation id resolved to no record, or the
// signed payload failed to parse. Deterministic for a given body so provider
// redelivery keeps producing the same answer until the record appears.
type ReconciliationError struct {
	CorrelationID string
	Message       string
	Err           error
}

func (e *ReconciliationError) Error() string {
	return e.Message
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// NewReconciliationError creates a ReconciliationError for the given correlation id.
func NewReconciliationError(correlationID, message string, err error) *ReconciliationError {
	return &ReconciliationError{CorrelationID: correlationID, Message: message, Err: err}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
