package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billfold/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateInvoiceItem struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type CreateInvoiceRequest struct {
	ClientID  string              `json:"client_id" validate:"required"`
	IssueDate *time.Time          `json:"issue_date"`
	DueDate   *time.Time          `json:"due_date"`
	Currency  string              `json:"currency" validate:"omitempty,len=3,alpha"`
	Prefix    string              `json:"prefix" validate:"omitempty,max=10,alphanum"`
	Notes     string              `json:"notes" validate:"max=2000"`
	Items     []CreateInvoiceItem `json:"items" validate:"required,min=1,dive"`
	Metadata  map[string]any      `json:"metadata"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	Status *InvoiceStatus
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type SendInvoiceRequest struct {
	To      string `json:"to" validate:"omitempty,email"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"max=5000"`
}

// TransitionRequest is the input of the generic transition dispatcher.
type TransitionRequest struct {
	Action Action
	Method PaymentMethod
	Send   SendInvoiceRequest
}

// InvoiceNumber is a parsed invoice number.
type InvoiceNumber struct {
	Prefix   string `json:"prefix"`
	Year     int    `json:"year"`
	Sequence int64  `json:"sequence"`
}

type Service interface {
	Create(ctx context.Context, tenantID string, req CreateInvoiceRequest) (Invoice, error)
	Get(ctx context.Context, tenantID, id string) (Invoice, error)
	List(ctx context.Context, tenantID string, req ListInvoiceRequest) (ListInvoiceResponse, error)
	Delete(ctx context.Context, tenantID, id string) error

	Send(ctx context.Context, tenantID, id string, req SendInvoiceRequest) (Invoice, error)
	RecordFirstView(ctx context.Context, publicToken string) (Invoice, error)
	RecordPayment(ctx context.Context, tenantID, id string, method PaymentMethod) (Invoice, error)
	RecordPaymentByID(ctx context.Context, id string, method PaymentMethod) (Invoice, error)
	Void(ctx context.Context, tenantID, id string) (Invoice, error)
	SweepOverdue(ctx context.Context, tenantID string, today time.Time) (int64, error)
	Transition(ctx context.Context, tenantID, id string, req TransitionRequest) (Invoice, error)

	GetByPublicToken(ctx context.Context, publicToken string) (Invoice, error)

	AllocateInvoiceNumber(ctx context.Context, tenantID, prefix string) (string, error)
	CurrentSequence(ctx context.Context, tenantID string, year int) (int64, error)
	ParseInvoiceNumber(raw string) (InvoiceNumber, error)
}

// Repository persists invoices. Every method takes the handle to run on so
// callers can pass a transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	InsertItems(ctx context.Context, db *gorm.DB, items []InvoiceItem) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID) (*Invoice, error)
	FindByIDAnyTenant(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindByPublicToken(ctx context.Context, db *gorm.DB, token string) (*Invoice, error)
	ListItems(ctx context.Context, db *gorm.DB, tenantID string, invoiceID snowflake.ID) ([]InvoiceItem, error)
	List(ctx context.Context, db *gorm.DB, tenantID string, filter ListFilter) ([]Invoice, error)
	ListPaidSince(ctx context.Context, db *gorm.DB, tenantID string, since time.Time) ([]Invoice, error)
	CompareAndSwapStatus(ctx context.Context, db *gorm.DB, swap StatusSwap) (int64, error)
	MarkOverdue(ctx context.Context, db *gorm.DB, tenantID string, today, now time.Time) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID, deletable []InvoiceStatus) (int64, error)
}

type ListOrder int

const (
	OrderNewestFirst ListOrder = iota
	OrderDueDateAsc
)

type ListFilter struct {
	Statuses []InvoiceStatus
	// BeforeID is an exclusive keyset cursor for OrderNewestFirst.
	BeforeID snowflake.ID
	Limit    int
	Order    ListOrder
}

// StatusSwap is a single-row conditional status update.
type StatusSwap struct {
	TenantID string
	ID       snowflake.ID
	From     []InvoiceStatus
	To       InvoiceStatus
	// RequireUnviewed adds viewed_at IS NULL to the guard.
	RequireUnviewed bool
	Set             map[string]any
}
