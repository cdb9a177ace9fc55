// Package sequence allocates per-tenant, per-year invoice numbers.
//
// Allocation is a single upsert on invoice_sequences keyed by
// (tenant_id, year). The row lock taken by the upsert serializes concurrent
// allocators for the same key until the surrounding transaction ends, so two
// committed invoices never share a number. A rolled-back transaction returns
// its increment, a committed one whose invoice insert later fails leaves a
// gap. Gaps are allowed; reuse is not.
package sequence

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/smallbiznis/billfold/internal/invoice/domain"
	"github.com/smallbiznis/billfold/internal/invoice/format"
	"github.com/smallbiznis/billfold/pkg/db"
	"gorm.io/gorm"
)

const upsertReturning = `
INSERT INTO invoice_sequences (tenant_id, year, sequence, created_at, updated_at)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT (tenant_id, year) DO UPDATE
SET sequence = invoice_sequences.sequence + 1,
    updated_at = excluded.updated_at
RETURNING sequence`

// MySQL has no RETURNING; LAST_INSERT_ID(expr) carries the new value back on
// the same connection.
const upsertMySQL = `
INSERT INTO invoice_sequences (tenant_id, year, sequence, created_at, updated_at)
VALUES (?, ?, LAST_INSERT_ID(1), ?, ?)
ON DUPLICATE KEY UPDATE
  sequence = LAST_INSERT_ID(sequence + 1),
  updated_at = VALUES(updated_at)`

type Sequencer struct{}

func New() *Sequencer {
	return &Sequencer{}
}

// Next increments and returns the sequence for (tenantID, year). The first
// call for a key returns 1. Run it inside the transaction that inserts the
// invoice.
func (s *Sequencer) Next(ctx context.Context, tx *gorm.DB, tenantID string, year int, now time.Time) (int64, error) {
	if tenantID == "" {
		return 0, domain.ErrInvalidTenant
	}

	var seq int64
	var err error
	if tx.Dialector.Name() == db.DialectMySQL {
		seq, err = s.nextMySQL(ctx, tx, tenantID, year, now)
	} else {
		err = tx.WithContext(ctx).Raw(upsertReturning, tenantID, year, now, now).Scan(&seq).Error
	}
	if err != nil {
		return 0, errors.Wrap(db.Classify(err), "allocate invoice sequence")
	}
	if seq <= 0 {
		return 0, errors.Newf("allocate invoice sequence: no value returned for %s/%d", tenantID, year)
	}
	return seq, nil
}

func (s *Sequencer) nextMySQL(ctx context.Context, tx *gorm.DB, tenantID string, year int, now time.Time) (int64, error) {
	var seq int64
	err := tx.WithContext(ctx).Transaction(func(conn *gorm.DB) error {
		if err := conn.Exec(upsertMySQL, tenantID, year, now, now).Error; err != nil {
			return err
		}
		return conn.Raw("SELECT LAST_INSERT_ID()").Scan(&seq).Error
	})
	return seq, err
}

// Allocate reserves the next sequence and formats it as an invoice number.
func (s *Sequencer) Allocate(ctx context.Context, tx *gorm.DB, tenantID, prefix string, year int, now time.Time) (string, error) {
	seq, err := s.Next(ctx, tx, tenantID, year, now)
	if err != nil {
		return "", err
	}
	return format.FormatInvoiceNumber(prefix, year, seq)
}

// Current returns the last allocated sequence without incrementing it, or 0
// when nothing was allocated for the key yet.
func (s *Sequencer) Current(ctx context.Context, conn *gorm.DB, tenantID string, year int) (int64, error) {
	var row domain.InvoiceSequence
	err := conn.WithContext(ctx).
		Where("tenant_id = ? AND year = ?", tenantID, year).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Sequence, nil
}
