// Package domain contains persistence models and the status vocabulary for
// invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentMethod records how an invoice was settled.
type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodManual PaymentMethod = "manual"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodStripe || m == PaymentMethodManual
}

// Invoice represents an invoice issued by a tenant to one of its clients.
// IssueDate and DueDate are calendar dates stored at midnight UTC.
type Invoice struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID      string            `gorm:"type:varchar(64);not null;index;uniqueIndex:ux_invoices_tenant_number" json:"-"`
	ClientID      snowflake.ID      `gorm:"not null;index" json:"client_id"`
	InvoiceNumber string            `gorm:"type:varchar(64);not null;uniqueIndex:ux_invoices_tenant_number" json:"invoice_number"`
	Status        InvoiceStatus     `gorm:"type:varchar(16);not null;default:'DRAFT';index" json:"status"`
	IssueDate     time.Time         `gorm:"not null" json:"issue_date"`
	DueDate       time.Time         `gorm:"not null;index" json:"due_date"`
	Currency      string            `gorm:"type:varchar(8);not null" json:"currency"`
	TotalAmount   decimal.Decimal   `gorm:"type:numeric(24,6);not null" json:"total_amount"`
	SentAt        *time.Time        `json:"sent_at,omitempty"`
	ViewedAt      *time.Time        `json:"viewed_at,omitempty"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	PaymentMethod *PaymentMethod    `gorm:"type:varchar(16)" json:"payment_method,omitempty"`
	PublicToken   string            `gorm:"type:varchar(64);not null;uniqueIndex" json:"public_token"`
	Notes         string            `gorm:"type:text" json:"notes,omitempty"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updated_at"`

	Items []InvoiceItem `gorm:"-" json:"items,omitempty"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is a line on an invoice. Items are written once with the
// invoice and never updated.
type InvoiceItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID    string          `gorm:"type:varchar(64);not null;index" json:"-"`
	InvoiceID   snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	Position    int             `gorm:"not null" json:"position"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"price"`
	Amount      decimal.Decimal `gorm:"type:numeric(24,6);not null" json:"amount"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }

// InvoiceSequence is the per-tenant, per-year invoice number counter.
type InvoiceSequence struct {
	TenantID  string    `gorm:"type:varchar(64);primaryKey"`
	Year      int       `gorm:"primaryKey;autoIncrement:false"`
	Sequence  int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (InvoiceSequence) TableName() string { return "invoice_sequences" }
