package providers

import (
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Kind is the closed set of gateway integrations. Variants are resolved
// through a registration table built at startup; there is no reflection and
// unknown kinds are rejected when the registry is constructed, not at first
// use.
type Kind string

const (
	KindCard     Kind = "card"
	KindCheckout Kind = "checkout"
	KindCharge   Kind = "charge"
	KindOrder    Kind = "order"
)

// ParseKind validates a configuration string against the closed kind set.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCard, KindCheckout, KindCharge, KindOrder:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown provider kind %q", s)
}

// VariantConfig is the per-variant static credential set, immutable after
// process start. Which fields are required depends on the kind.
type VariantConfig struct {
	Kind           string `mapstructure:"kind"`
	Endpoint       string `mapstructure:"endpoint"`
	SecretKey      string `mapstructure:"secret_key"`
	PublicKey      string `mapstructure:"public_key"`
	LoginID        string `mapstructure:"login_id"`
	TransactionKey string `mapstructure:"transaction_key"`
	ClientID       string `mapstructure:"client_id"`
	Sandbox        bool   `mapstructure:"sandbox"`
}

// Validate checks kind and per-kind required credentials.
func (c VariantConfig) Validate(variant string) error {
	kind, err := ParseKind(c.Kind)
	if err != nil {
		return domainErrors.NewConfigurationError(variant, err.Error(), domainErrors.ErrVariantNotFound)
	}
	if c.Endpoint == "" {
		return domainErrors.NewConfigurationError(variant, "endpoint is required", nil)
	}
	switch kind {
	case KindCard:
		if c.LoginID == "" || c.TransactionKey == "" {
			return domainErrors.NewConfigurationError(variant, "login_id and transaction_key are required", nil)
		}
	case KindCheckout:
		if c.SecretKey == "" {
			return domainErrors.NewConfigurationError(variant, "secret_key is required", nil)
		}
	case KindCharge:
		if c.SecretKey == "" || c.PublicKey == "" {
			return domainErrors.NewConfigurationError(variant, "secret_key and public_key are required", nil)
		}
	case KindOrder:
		if c.ClientID == "" || c.SecretKey == "" {
			return domainErrors.NewConfigurationError(variant, "client_id and secret_key are required", nil)
		}
	}
	return nil
}

// RedirectURLs are the hosted-checkout success/failure pages, shared by
// every variant that redirects the buyer.
type RedirectURLs struct {
	SuccessURL string
	FailureURL string
}

// Deps are the collaborators handed to every adapter at construction.
type Deps struct {
	Store     RecordStore
	Redirects RedirectURLs
	Logger    zerolog.Logger
	// OnBreakerStateChange, when set, observes circuit breaker state
	// transitions (for metrics export).
	OnBreakerStateChange func(name string, state gobreaker.State)
}

// Registry resolves a variant name to its configured adapter and circuit
// breaker. It is built once at startup and safe for concurrent use
// afterwards: all maps are read-only after New returns.
type Registry struct {
	providers map[string]Provider
	kinds     map[string]Kind
	breakers  map[string]*gobreaker.CircuitBreaker[any]
}

// NewRegistry builds every configured adapter up front. Unknown kinds or
// missing credentials fail construction with a ConfigurationError so that a
// misconfigured variant is caught at boot, not on the first payment.
func NewRegistry(variants map[string]VariantConfig, deps Deps) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]Provider, len(variants)),
		kinds:     make(map[string]Kind, len(variants)),
		breakers:  make(map[string]*gobreaker.CircuitBreaker[any], len(variants)),
	}

	for variant, cfg := range variants {
		if err := cfg.Validate(variant); err != nil {
			return nil, err
		}
		kind, _ := ParseKind(cfg.Kind)

		var p Provider
		switch kind {
		case KindCard:
			p = NewCardGateway(variant, cfg, deps.Store, deps.Logger)
		case KindCheckout:
			p = NewHostedCheckout(variant, cfg, deps.Redirects, deps.Store, deps.Logger)
		case KindCharge:
			p = NewTokenCharge(variant, cfg, deps.Store, deps.Logger)
		case KindOrder:
			p = NewOrderCapture(variant, cfg, deps.Redirects, deps.Store, deps.Logger)
		}

		r.providers[variant] = p
		r.kinds[variant] = kind
		r.breakers[variant] = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        variant,
			MaxRequests: 10,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 10 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				if deps.OnBreakerStateChange != nil {
					deps.OnBreakerStateChange(name, to)
				}
			},
		})
	}

	return r, nil
}

// NewStaticRegistry builds a registry from pre-built providers, with default
// breaker settings. Used by tests that script provider behavior.
func NewStaticRegistry(providersByVariant map[string]Provider, kinds map[string]Kind) *Registry {
	r := &Registry{
		providers: make(map[string]Provider, len(providersByVariant)),
		kinds:     make(map[string]Kind, len(providersByVariant)),
		breakers:  make(map[string]*gobreaker.CircuitBreaker[any], len(providersByVariant)),
	}
	for variant, p := range providersByVariant {
		r.providers[variant] = p
		r.kinds[variant] = kinds[variant]
		r.breakers[variant] = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        variant,
			MaxRequests: 10,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 10 && failureRatio >= 0.6
			},
		})
	}
	return r
}

// Get resolves a variant to its cached adapter instance and breaker.
func (r *Registry) Get(variant string) (Provider, *gobreaker.CircuitBreaker[any], error) {
	p, ok := r.providers[variant]
	if !ok {
		return nil, nil, domainErrors.NewConfigurationError(variant, "payment variant does not exist", domainErrors.ErrVariantNotFound)
	}
	return p, r.breakers[variant], nil
}

// Kind returns the gateway kind behind a variant name.
func (r *Registry) Kind(variant string) (Kind, error) {
	k, ok := r.kinds[variant]
	if !ok {
		return "", domainErrors.NewConfigurationError(variant, "payment variant does not exist", domainErrors.ErrVariantNotFound)
	}
	return k, nil
}

// Variants lists the configured variant names.
func (r *Registry) Variants() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
