package application

import (
	"context"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/cassiomorais/payhub/internal/providers"
)

// PaymentSettings is what a payment page needs before rendering a gateway
// form: the gateway kind and, for token-charge gateways, a fresh client
// token.
type PaymentSettings struct {
	Variant     string  `json:"variant"`
	Kind        string  `json:"kind"`
	ClientToken *string `json:"client_token,omitempty"`
}

// GetPaymentSettings resolves the client-side settings for a variant. A
// failed token fetch degrades to a nil token; rendering the page never
// blocks on the gateway.
func (s *Service) GetPaymentSettings(ctx context.Context, variant string) (*PaymentSettings, error) {
	provider, _, err := s.registry.Get(variant)
	if err != nil {
		return nil, err
	}
	kind, err := s.registry.Kind(variant)
	if err != nil {
		return nil, err
	}

	settings := &PaymentSettings{Variant: variant, Kind: string(kind)}

	tokener, ok := provider.(providers.ClientTokener)
	if !ok {
		return nil, domainErrors.NewConfigurationError(variant, "variant does not issue client tokens", nil)
	}
	settings.ClientToken = tokener.ClientToken(ctx)
	if settings.ClientToken == nil {
		s.logger.Warn().Str("variant", variant).Msg("client token fetch failed, rendering without token")
	}
	return settings, nil
}

// Variants lists the configured variant names.
func (s *Service) Variants() []string {
	return s.registry.Variants()
}
