package domain

import (
	"github.com/shopspring/decimal"
)

// DefaultDecimals is the number of decimals of the base token when config does not say otherwise.
const DefaultDecimals = 18

// MulDiv returns a*b/c truncated toward zero and whether the division was exact.
// The caller guarantees c != 0.
func MulDiv(a, b, c decimal.Decimal) (decimal.Decimal, bool) {
	q, r := a.Mul(b).QuoRem(c, 0)
	return q, r.IsZero()
}

// FormatAmount renders an amount of smallest units as a fixed-point string with the given decimals.
// FormatAmount(1500000000000000000, 18) = "1.500000000000000000".
func FormatAmount(amount decimal.Decimal, decimals int32) string {
	return amount.Shift(-decimals).StringFixed(decimals)
}

// IsUnits reports whether d is a non-negative integer amount of smallest units.
func IsUnits(d decimal.Decimal) bool {
	return !d.IsNegative() && d.IsInteger()
}

// ParseUnits parses a non-negative integer amount of smallest units.
func ParseUnits(value string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(value)
	if err != nil || !IsUnits(d) {
		return decimal.Zero, false
	}
	return d, true
}
