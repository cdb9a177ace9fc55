package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	analyticsdomain "github.com/smallbiznis/billfold/internal/analytics/domain"
	clientdomain "github.com/smallbiznis/billfold/internal/client/domain"
	"github.com/smallbiznis/billfold/internal/config"
	invoicedomain "github.com/smallbiznis/billfold/internal/invoice/domain"
	"github.com/smallbiznis/billfold/pkg/calendar"
	"github.com/smallbiznis/billfold/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Invoices  invoicedomain.Repository
	Clients   clientdomain.Repository
	Invoicing *config.InvoicingConfigHolder
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	invoices  invoicedomain.Repository
	clients   clientdomain.Repository
	invoicing *config.InvoicingConfigHolder
}

func NewService(p Params) analyticsdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("analytics.service"),
		invoices:  p.Invoices,
		clients:   p.Clients,
		invoicing: p.Invoicing,
	}
}

var outstandingStatuses = lo.Filter(invoicedomain.AllStatuses, func(s invoicedomain.InvoiceStatus, _ int) bool {
	return s.IsOutstanding()
})

// MonthlyIncome sums paid invoices by the month of paid_at, over the twelve
// months ending with now's month. Months without payments are zero.
func (s *Service) MonthlyIncome(ctx context.Context, tenantID string, now time.Time) ([]analyticsdomain.MonthlyIncomePoint, error) {
	tenantID, err := normalizeTenant(tenantID)
	if err != nil {
		return nil, err
	}

	months := calendar.TrailingMonths(now, analyticsdomain.TrailingMonths)
	paid, err := s.invoices.ListPaidSince(ctx, s.db, tenantID, months[0])
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]decimal.Decimal, len(months))
	for _, inv := range paid {
		key := calendar.MonthKey(inv.PaidAt.UTC())
		buckets[key] = buckets[key].Add(inv.TotalAmount)
	}

	return lo.Map(months, func(month time.Time, _ int) analyticsdomain.MonthlyIncomePoint {
		key := calendar.MonthKey(month)
		return analyticsdomain.MonthlyIncomePoint{Month: key, Amount: buckets[key]}
	}), nil
}

// OutstandingTotal sums every invoice that is neither PAID nor VOID, drafts
// included.
func (s *Service) OutstandingTotal(ctx context.Context, tenantID string) (decimal.Decimal, error) {
	tenantID, err := normalizeTenant(tenantID)
	if err != nil {
		return decimal.Zero, err
	}

	invoices, err := s.invoices.List(ctx, s.db, tenantID, invoicedomain.ListFilter{Statuses: outstandingStatuses})
	if err != nil {
		return decimal.Zero, err
	}
	return money.Sum(lo.Map(invoices, func(inv invoicedomain.Invoice, _ int) decimal.Decimal {
		return inv.TotalAmount
	})...), nil
}

func (s *Service) OverdueList(ctx context.Context, tenantID string, now time.Time) ([]analyticsdomain.OverdueEntry, error) {
	tenantID, err := normalizeTenant(tenantID)
	if err != nil {
		return nil, err
	}

	invoices, err := s.invoices.List(ctx, s.db, tenantID, invoicedomain.ListFilter{
		Statuses: []invoicedomain.InvoiceStatus{invoicedomain.InvoiceStatusOverdue},
		Order:    invoicedomain.OrderDueDateAsc,
	})
	if err != nil {
		return nil, err
	}

	names, err := s.clientNames(ctx, tenantID, invoices)
	if err != nil {
		return nil, err
	}

	today := calendar.Day(now)
	return lo.Map(invoices, func(inv invoicedomain.Invoice, _ int) analyticsdomain.OverdueEntry {
		return analyticsdomain.OverdueEntry{
			Invoice:     inv,
			ClientName:  names[inv.ClientID],
			DaysOverdue: max(0, calendar.DaysBetween(inv.DueDate.UTC(), today)),
		}
	}), nil
}

// UpcomingList returns unsettled invoices due between today and today plus
// horizonDays, both inclusive, earliest first.
func (s *Service) UpcomingList(ctx context.Context, tenantID string, now time.Time, horizonDays int) ([]analyticsdomain.UpcomingEntry, error) {
	tenantID, err := normalizeTenant(tenantID)
	if err != nil {
		return nil, err
	}
	if horizonDays < 0 {
		horizonDays = 0
	}

	invoices, err := s.invoices.List(ctx, s.db, tenantID, invoicedomain.ListFilter{
		Statuses: outstandingStatuses,
		Order:    invoicedomain.OrderDueDateAsc,
	})
	if err != nil {
		return nil, err
	}

	today := calendar.Day(now)
	horizon := calendar.AddDays(today, horizonDays)
	due := lo.Filter(invoices, func(inv invoicedomain.Invoice, _ int) bool {
		return calendar.InRange(inv.DueDate.UTC(), today, horizon)
	})

	names, err := s.clientNames(ctx, tenantID, due)
	if err != nil {
		return nil, err
	}
	return lo.Map(due, func(inv invoicedomain.Invoice, _ int) analyticsdomain.UpcomingEntry {
		return analyticsdomain.UpcomingEntry{Invoice: inv, ClientName: names[inv.ClientID]}
	}), nil
}

// clientNames resolves the client of each invoice in one query. A client
// that no longer exists maps to the empty name.
func (s *Service) clientNames(ctx context.Context, tenantID string, invoices []invoicedomain.Invoice) (map[snowflake.ID]string, error) {
	ids := lo.Uniq(lo.Map(invoices, func(inv invoicedomain.Invoice, _ int) snowflake.ID { return inv.ClientID }))
	clients, err := s.clients.FindByIDs(ctx, s.db, tenantID, ids)
	if err != nil {
		return nil, err
	}
	return lo.Associate(clients, func(c clientdomain.Client) (snowflake.ID, string) {
		return c.ID, c.Name
	}), nil
}

func (s *Service) GetAnalytics(ctx context.Context, tenantID string, now time.Time) (analyticsdomain.Analytics, error) {
	income, err := s.MonthlyIncome(ctx, tenantID, now)
	if err != nil {
		return analyticsdomain.Analytics{}, err
	}
	outstanding, err := s.OutstandingTotal(ctx, tenantID)
	if err != nil {
		return analyticsdomain.Analytics{}, err
	}
	overdue, err := s.OverdueList(ctx, tenantID, now)
	if err != nil {
		return analyticsdomain.Analytics{}, err
	}
	upcoming, err := s.UpcomingList(ctx, tenantID, now, s.invoicing.Get().UpcomingHorizonDays)
	if err != nil {
		return analyticsdomain.Analytics{}, err
	}

	return analyticsdomain.Analytics{
		MonthlyIncome:    income,
		OutstandingTotal: outstanding,
		OverdueInvoices:  overdue,
		UpcomingInvoices: upcoming,
	}, nil
}

func normalizeTenant(tenantID string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", analyticsdomain.ErrInvalidTenant
	}
	return tenantID, nil
}
