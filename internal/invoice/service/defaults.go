package service

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	invoicedomain "github.com/smallbiznis/billfold/internal/invoice/domain"
)

const maxPrefixLength = 10

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// invoiceDefaults are the values Create falls back to when a request leaves
// them out.
type invoiceDefaults struct {
	Prefix           string
	Currency         string
	PaymentTermsDays int
}

// defaultsFor prefers the tenant's saved settings over deployment config.
func (s *Service) defaultsFor(ctx context.Context, tenantID string) (invoiceDefaults, error) {
	invoicing := s.invoicing.Get()
	d := invoiceDefaults{
		Prefix:           invoicing.NumberPrefix,
		Currency:         s.cfg.DefaultCurrency,
		PaymentTermsDays: invoicing.PaymentTermsDays,
	}
	if s.settings == nil {
		return d, nil
	}

	stored, err := s.settings.ForTenant(ctx, tenantID)
	if err != nil {
		return invoiceDefaults{}, err
	}
	if stored.InvoicePrefix != "" {
		d.Prefix = stored.InvoicePrefix
	}
	if stored.Currency != "" {
		d.Currency = stored.Currency
	}
	if stored.PaymentTermsDays > 0 {
		d.PaymentTermsDays = stored.PaymentTermsDays
	}
	return d, nil
}

// resolvePrefix trims raw and falls back to fallback when it is empty.
func resolvePrefix(raw, fallback string) (string, error) {
	prefix := strings.TrimSpace(raw)
	if prefix == "" {
		prefix = fallback
	}
	if utf8.RuneCountInString(prefix) > maxPrefixLength {
		return "", invoicedomain.NewValidationError("prefix", "at most 10 characters")
	}
	if !prefixPattern.MatchString(prefix) {
		return "", invoicedomain.NewValidationError("prefix", "letters and digits only")
	}
	return prefix, nil
}
