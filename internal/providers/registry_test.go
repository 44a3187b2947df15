package providers

import (
	"testing"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVariants() map[string]VariantConfig {
	return map[string]VariantConfig{
		"authorize_net": {Kind: "card", Endpoint: "https://card.example", LoginID: "l", TransactionKey: "k"},
		"stripe":        {Kind: "checkout", Endpoint: "https://checkout.example", SecretKey: "sk"},
		"braintree":     {Kind: "charge", Endpoint: "https://charge.example", SecretKey: "sk", PublicKey: "pk"},
		"paypal":        {Kind: "order", Endpoint: "https://order.example", ClientID: "c", SecretKey: "sk"},
	}
}

func TestNewRegistryBuildsAllKinds(t *testing.T) {
	r, err := NewRegistry(testVariants(), Deps{Store: &fakeStore{}, Logger: zerolog.Nop()})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"authorize_net", "stripe", "braintree", "paypal"}, r.Variants())

	for variant, wantKind := range map[string]Kind{
		"authorize_net": KindCard,
		"stripe":        KindCheckout,
		"braintree":     KindCharge,
		"paypal":        KindOrder,
	} {
		p, breaker, err := r.Get(variant)
		require.NoError(t, err, variant)
		assert.Equal(t, variant, p.Name())
		assert.NotNil(t, breaker)

		kind, err := r.Kind(variant)
		require.NoError(t, err)
		assert.Equal(t, wantKind, kind)
	}
}

func TestNewRegistryRejectsUnknownKind(t *testing.T) {
	_, err := NewRegistry(map[string]VariantConfig{
		"mystery": {Kind: "telepathy", Endpoint: "https://x"},
	}, Deps{Store: &fakeStore{}, Logger: zerolog.Nop()})

	require.Error(t, err)
	var cfgErr *domainErrors.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRegistryGetUnknownVariant(t *testing.T) {
	r, err := NewRegistry(testVariants(), Deps{Store: &fakeStore{}, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, _, err = r.Get("nope")
	assert.ErrorIs(t, err, domainErrors.ErrVariantNotFound)

	_, err = r.Kind("nope")
	assert.ErrorIs(t, err, domainErrors.ErrVariantNotFound)
}

func TestVariantConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     VariantConfig
		wantErr bool
	}{
		{"valid card", VariantConfig{Kind: "card", Endpoint: "e", LoginID: "l", TransactionKey: "k"}, false},
		{"card missing key", VariantConfig{Kind: "card", Endpoint: "e", LoginID: "l"}, true},
		{"valid checkout", VariantConfig{Kind: "checkout", Endpoint: "e", SecretKey: "s"}, false},
		{"checkout missing secret", VariantConfig{Kind: "checkout", Endpoint: "e"}, true},
		{"valid charge", VariantConfig{Kind: "charge", Endpoint: "e", SecretKey: "s", PublicKey: "p"}, false},
		{"charge missing public key", VariantConfig{Kind: "charge", Endpoint: "e", SecretKey: "s"}, true},
		{"valid order", VariantConfig{Kind: "order", Endpoint: "e", ClientID: "c", SecretKey: "s"}, false},
		{"order missing client id", VariantConfig{Kind: "order", Endpoint: "e", SecretKey: "s"}, true},
		{"missing endpoint", VariantConfig{Kind: "card", LoginID: "l", TransactionKey: "k"}, true},
		{"unknown kind", VariantConfig{Kind: "nope", Endpoint: "e"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate("test_variant")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"card", "checkout", "charge", "order"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, Kind(s), k)
	}
	_, err := ParseKind("other")
	assert.Error(t, err)
}
