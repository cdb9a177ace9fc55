package domain

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

var ErrInvalidTenant = errors.New("invalid_tenant")

// Service is the read side of invoicing. Every figure is computed at
// calendar-day granularity relative to the supplied now.
type Service interface {
	MonthlyIncome(ctx context.Context, tenantID string, now time.Time) ([]MonthlyIncomePoint, error)
	OutstandingTotal(ctx context.Context, tenantID string) (decimal.Decimal, error)
	OverdueList(ctx context.Context, tenantID string, now time.Time) ([]OverdueEntry, error)
	UpcomingList(ctx context.Context, tenantID string, now time.Time, horizonDays int) ([]UpcomingEntry, error)
	GetAnalytics(ctx context.Context, tenantID string, now time.Time) (Analytics, error)
}
