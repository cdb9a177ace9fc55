package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Expense is a business cost a tenant records against its income.
type Expense struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID    string          `gorm:"type:varchar(64);not null;index" json:"-"`
	Description string          `gorm:"type:varchar(500);not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	Date        time.Time       `gorm:"not null" json:"date"`
	ReceiptURL  string          `gorm:"type:varchar(2048)" json:"receipt_url,omitempty"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`
}

func (Expense) TableName() string { return "expenses" }
