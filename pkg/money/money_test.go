package money

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumIsExact(t *testing.T) {
	total := Sum(
		LineTotal(decimal.RequireFromString("10"), decimal.RequireFromString("100.00")),
		LineTotal(decimal.RequireFromString("1"), decimal.RequireFromString("500.00")),
	)
	assert.Equal(t, "1500.00", Format(total))

	cents := Sum(decimal.RequireFromString("0.1"), decimal.RequireFromString("0.2"))
	assert.True(t, cents.Equal(decimal.RequireFromString("0.3")))
}

func TestSumEmpty(t *testing.T) {
	assert.True(t, Sum().IsZero())
}

func TestParse(t *testing.T) {
	d, err := Parse(" 42.50 ")
	require.NoError(t, err)
	assert.Equal(t, "42.50", Format(d))

	_, err = Parse("")
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	_, err = Parse("12,00")
	assert.True(t, errors.Is(err, ErrInvalidAmount))
}

func TestLineTotalKeepsSubCentDigits(t *testing.T) {
	total := LineTotal(decimal.RequireFromString("1.5"), decimal.RequireFromString("0.33"))
	assert.True(t, total.Equal(decimal.RequireFromString("0.495")))
	assert.Equal(t, "0.495", Format(total))
	assert.Equal(t, "2.345", Format(decimal.RequireFromString("2.345")))
	assert.Equal(t, "7.50", Format(decimal.RequireFromString("7.5")))
}

func TestFitsScale(t *testing.T) {
	assert.True(t, FitsScale(decimal.RequireFromString("1.2345"), QuantityScale))
	assert.False(t, FitsScale(decimal.RequireFromString("1.23456"), QuantityScale))
	assert.True(t, FitsScale(decimal.RequireFromString("10"), PriceScale))
	assert.False(t, FitsScale(decimal.RequireFromString("0.333"), PriceScale))
	assert.True(t, IsPositive(decimal.RequireFromString("0.01")))
	assert.False(t, IsPositive(decimal.Zero))
}
