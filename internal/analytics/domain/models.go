package domain

import (
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/billfold/internal/invoice/domain"
)

// TrailingMonths is the length of the income series.
const TrailingMonths = 12

type MonthlyIncomePoint struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

type OverdueEntry struct {
	Invoice     invoicedomain.Invoice `json:"invoice"`
	ClientName  string                `json:"client_name"`
	DaysOverdue int                   `json:"days_overdue"`
}

type UpcomingEntry struct {
	Invoice    invoicedomain.Invoice `json:"invoice"`
	ClientName string                `json:"client_name"`
}

type Analytics struct {
	MonthlyIncome    []MonthlyIncomePoint `json:"monthly_income"`
	OutstandingTotal decimal.Decimal      `json:"outstanding_total"`
	OverdueInvoices  []OverdueEntry       `json:"overdue_invoices"`
	UpcomingInvoices []UpcomingEntry      `json:"upcoming_invoices"`
}
