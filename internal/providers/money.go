package providers

import (
	"strings"

	"github.com/cassiomorais/payhub/internal/domain/payment"
)

// zeroDecimalCurrencies are the currencies whose smallest unit is the whole
// unit: gateways take "200", not "20000", for 200 JPY. This table determines
// monetary correctness; do not edit it without checking the gateway docs.
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {},
	"clp": {},
	"djf": {},
	"gnf": {},
	"jpy": {},
	"kmf": {},
	"krw": {},
	"mga": {},
	"pyg": {},
	"rwf": {},
	"ugx": {},
	"vnd": {},
	"vuv": {},
	"xaf": {},
	"xof": {},
	"xpf": {},
}

// IsZeroDecimal reports whether the currency has no minor unit.
func IsZeroDecimal(currency string) bool {
	_, ok := zeroDecimalCurrencies[strings.ToLower(currency)]
	return ok
}

// MinorUnits converts a fixed-point amount to gateway minor units: the cent
// value as-is for decimal currencies, the whole-unit value for zero-decimal
// ones. Amounts are stored as cents, so the zero-decimal case divides the
// stored value back down.
func MinorUnits(a payment.Amount) int64 {
	if IsZeroDecimal(a.Currency) {
		return a.ValueCents / 100
	}
	return a.ValueCents
}
