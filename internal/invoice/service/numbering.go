package service

import (
	"context"
	"strings"

	invoicedomain "github.com/smallbiznis/billfold/internal/invoice/domain"
	"github.com/smallbiznis/billfold/internal/invoice/format"
	"gorm.io/gorm"
)

// AllocateInvoiceNumber reserves a number outside of invoice creation, in
// its own transaction, for the current calendar year.
func (s *Service) AllocateInvoiceNumber(ctx context.Context, tenantID, prefix string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", invoicedomain.ErrInvalidTenant
	}
	defaults, err := s.defaultsFor(ctx, tenantID)
	if err != nil {
		return "", err
	}
	prefix, err = resolvePrefix(prefix, defaults.Prefix)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	var number string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		number, err = s.sequencer.Allocate(ctx, tx, tenantID, prefix, now.Year(), now)
		return err
	})
	if err != nil {
		s.metrics.RecordSequenceAllocation(outcomeError)
		return "", mapStoreError(err)
	}
	s.metrics.RecordSequenceAllocation(outcomeOK)
	return number, nil
}

func (s *Service) CurrentSequence(ctx context.Context, tenantID string, year int) (int64, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return 0, invoicedomain.ErrInvalidTenant
	}
	return s.sequencer.Current(ctx, s.db, tenantID, year)
}

func (s *Service) ParseInvoiceNumber(raw string) (invoicedomain.InvoiceNumber, error) {
	return format.ParseInvoiceNumber(strings.TrimSpace(raw))
}
