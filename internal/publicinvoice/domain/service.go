package domain

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Service serves invoices to holders of the public link. Lookups are by
// token only and never scoped to a tenant.
type Service interface {
	GetInvoiceForPublicView(ctx context.Context, token string) (*PublicInvoiceResponse, error)
	RenderInvoiceHTML(ctx context.Context, token string) (string, error)
}

type PublicInvoiceStatus string

const (
	PublicInvoiceStatusUnpaid PublicInvoiceStatus = "unpaid"
	PublicInvoiceStatusPaid   PublicInvoiceStatus = "paid"
	PublicInvoiceStatusVoid   PublicInvoiceStatus = "void"
)

type PublicInvoiceItem struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
}

type PublicInvoiceView struct {
	InvoiceNumber string              `json:"invoice_number"`
	InvoiceStatus string              `json:"invoice_status"`
	IssueDate     string              `json:"issue_date"`
	DueDate       string              `json:"due_date"`
	PaidDate      string              `json:"paid_date,omitempty"`
	BillToName    string              `json:"bill_to_name"`
	Currency      string              `json:"currency"`
	TotalAmount   string              `json:"total_amount"`
	Notes         string              `json:"notes,omitempty"`
	Items         []PublicInvoiceItem `json:"items"`
}

type PublicInvoiceResponse struct {
	Status  PublicInvoiceStatus `json:"status"`
	Invoice PublicInvoiceView   `json:"invoice"`
}

var ErrInvoiceUnavailable = errors.New("invoice_unavailable")
