package format

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/smallbiznis/billfold/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	cases := []struct {
		prefix string
		year   int
		seq    int64
		want   string
	}{
		{"INV", 2025, 1, "INV-2025-0001"},
		{"INV", 2025, 42, "INV-2025-0042"},
		{"ACME", 2026, 9999, "ACME-2026-9999"},
		{"INV", 2025, 10000, "INV-2025-10000"},
		{"X-1", 2025, 7, "X-1-2025-0007"},
	}
	for _, tc := range cases {
		got, err := FormatInvoiceNumber(tc.prefix, tc.year, tc.seq)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestFormatInvoiceNumberRejectsBadInput(t *testing.T) {
	_, err := FormatInvoiceNumber("", 2025, 1)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = FormatInvoiceNumber("INV", 2025, 0)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = FormatInvoiceNumber("IN V", 2025, 1)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestParseRoundTrip(t *testing.T) {
	for _, p := range []domain.InvoiceNumber{
		{Prefix: "INV", Year: 2025, Sequence: 1},
		{Prefix: "INV", Year: 2025, Sequence: 9999},
		{Prefix: "INV", Year: 2025, Sequence: 10000},
		{Prefix: "A-1234", Year: 2030, Sequence: 123456},
	} {
		s, err := FormatInvoiceNumber(p.Prefix, p.Year, p.Sequence)
		require.NoError(t, err)
		got, err := ParseInvoiceNumber(s)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"INV-2025",
		"INV-2025-001",
		"INV-25-0001",
		"-2025-0001",
		"INV-2025-00001",
		"INV-2025-0000",
		"INV-2025-0001 ",
		"INV_2025_0001",
	} {
		_, err := ParseInvoiceNumber(raw)
		assert.True(t, errors.Is(err, domain.ErrMalformedInvoiceNumber), raw)
	}
}
