// Package money holds the exact decimal arithmetic used for invoice amounts.
// Amounts are never converted between currencies; a currency code travels
// beside the amount as an opaque string.
package money

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	// PriceScale is the most fractional digits a unit price may carry.
	PriceScale = 2
	// QuantityScale is the most fractional digits a quantity may carry.
	QuantityScale = 4
	// AmountScale bounds line totals and sums: QuantityScale + PriceScale.
	AmountScale = QuantityScale + PriceScale

	displayScale = 2
)

var ErrInvalidAmount = errors.New("invalid_amount")

// Parse reads a decimal amount from its textual form.
func Parse(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, errors.Wrap(ErrInvalidAmount, "empty amount")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "parse %q", raw)
	}
	return d, nil
}

// LineTotal is quantity × price, computed exactly.
func LineTotal(quantity, price decimal.Decimal) decimal.Decimal {
	return quantity.Mul(price)
}

// Sum adds amounts exactly. The sum of nothing is zero.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	return lo.Reduce(amounts, func(acc decimal.Decimal, d decimal.Decimal, _ int) decimal.Decimal {
		return acc.Add(d)
	}, decimal.Zero)
}

// FitsScale reports whether d has at most places fractional digits.
func FitsScale(d decimal.Decimal, places int32) bool {
	return d.Truncate(places).Equal(d)
}

// Format renders an amount with at least two fractional digits. Sub-cent
// amounts keep every significant digit rather than being rounded away.
func Format(d decimal.Decimal) string {
	if FitsScale(d, displayScale) {
		return d.StringFixed(displayScale)
	}
	return d.String()
}

func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero)
}
