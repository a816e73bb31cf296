// Package money normalizes user-facing amounts and PSP units.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// Parse accepts "1000.50", "1.000,50" or "1000,50" and returns the amount
// rounded to cents.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return Prepare(d), nil
}

// Prepare rounds to two decimal places.
func Prepare(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ToCents converts a decimal amount into integer minor units.
func ToCents(d decimal.Decimal) int64 {
	return Prepare(d).Mul(hundred).IntPart()
}

// FromCents is the inverse of ToCents.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// Percentage returns rate% of amount, rounded to cents.
func Percentage(rate, amount decimal.Decimal) decimal.Decimal {
	return Prepare(amount.Mul(rate).Div(hundred))
}

// Digits strips every non-digit rune (CPF/CNPJ and phone numbers).
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
