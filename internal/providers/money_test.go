package providers

import (
	"testing"

	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/stretchr/testify/assert"
)

func TestIsZeroDecimal(t *testing.T) {
	for _, c := range []string{"jpy", "krw", "vnd", "xof", "clp", "bif"} {
		assert.True(t, IsZeroDecimal(c), c)
	}
	for _, c := range []string{"usd", "eur", "brl", "gbp", ""} {
		assert.False(t, IsZeroDecimal(c), c)
	}
	assert.True(t, IsZeroDecimal("JPY"), "currency comparison must be case-insensitive")
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		cents    int64
		currency string
		want     int64
	}{
		{"usd keeps cents", 20000, "usd", 20000},
		{"jpy drops the cent scale", 20000, "jpy", 200},
		{"krw drops the cent scale", 50000, "krw", 500},
		{"eur keeps cents", 1234, "eur", 1234},
		{"uppercase jpy", 20000, "JPY", 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinorUnits(payment.Amount{ValueCents: tt.cents, Currency: tt.currency})
			assert.Equal(t, tt.want, got)
		})
	}
}
