// Package core holds the domain model shared by the report engine:
// records, canonical report rows, tax computation and category taxonomy.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 rounds to the cent, half away from zero. Every monetary value
// crossing a component boundary goes through this.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatAmount renders a monetary value with exactly two decimals,
// the fixed-point form the CSV export is byte-compatible with.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ParseAmount parses a decimal amount string. It accepts both dot and
// comma decimal separators so that values typed in a French locale
// ("12,34") parse the same as "12.34".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
