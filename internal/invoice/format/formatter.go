package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/smallbiznis/billfold/internal/invoice/domain"
)

// MinSequenceWidth is the zero-padded width of the sequence field. Larger
// sequences widen the field instead of truncating.
const MinSequenceWidth = 4

var numberRe = regexp.MustCompile(`^(.+)-(\d{4})-(\d{4,})$`)

// FormatInvoiceNumber renders {prefix}-{year}-{sequence}.
//
// This function is PURE:
// - No side effects
// - No DB access
// - Fully deterministic
func FormatInvoiceNumber(prefix string, year int, seq int64) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", errors.Wrap(domain.ErrValidation, "invoice number prefix is empty")
	}
	if strings.ContainsAny(prefix, " \t\r\n") {
		return "", errors.Wrapf(domain.ErrValidation, "invoice number prefix %q contains whitespace", prefix)
	}
	if year < 1000 || year > 9999 {
		return "", errors.Wrapf(domain.ErrValidation, "invalid invoice year: %d", year)
	}
	if seq <= 0 {
		return "", errors.Wrapf(domain.ErrValidation, "invalid invoice sequence: %d", seq)
	}

	return fmt.Sprintf("%s-%04d-%0*d", prefix, year, MinSequenceWidth, seq), nil
}

// ParseInvoiceNumber is the inverse of FormatInvoiceNumber. Only canonical
// numbers are accepted: a sequence wider than four digits must not start
// with zero.
func ParseInvoiceNumber(raw string) (domain.InvoiceNumber, error) {
	m := numberRe.FindStringSubmatch(raw)
	if m == nil {
		return domain.InvoiceNumber{}, errors.Wrapf(domain.ErrMalformedInvoiceNumber, "%q", raw)
	}

	seqDigits := m[3]
	if len(seqDigits) > MinSequenceWidth && seqDigits[0] == '0' {
		return domain.InvoiceNumber{}, errors.Wrapf(domain.ErrMalformedInvoiceNumber, "%q: non-canonical sequence", raw)
	}

	year, err := strconv.Atoi(m[2])
	if err != nil {
		return domain.InvoiceNumber{}, errors.Wrapf(domain.ErrMalformedInvoiceNumber, "%q", raw)
	}
	seq, err := strconv.ParseInt(seqDigits, 10, 64)
	if err != nil || seq <= 0 {
		return domain.InvoiceNumber{}, errors.Wrapf(domain.ErrMalformedInvoiceNumber, "%q", raw)
	}

	return domain.InvoiceNumber{Prefix: m[1], Year: year, Sequence: seq}, nil
}
