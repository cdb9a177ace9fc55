package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings holds a tenant's business profile and invoicing defaults.
type Settings struct {
	TenantID         string           `gorm:"primaryKey;type:varchar(64)" json:"-"`
	BusinessName     string           `gorm:"type:varchar(200)" json:"business_name" validate:"max=200"`
	BusinessAddress  string           `gorm:"type:text" json:"business_address" validate:"max=2000"`
	LogoURL          string           `gorm:"type:varchar(2048)" json:"logo_url" validate:"omitempty,url,max=2048"`
	Currency         string           `gorm:"type:varchar(8);not null" json:"currency" validate:"len=3,alpha"`
	HourlyRate       *decimal.Decimal `gorm:"type:numeric(18,2)" json:"hourly_rate,omitempty"`
	InvoicePrefix    string           `gorm:"type:varchar(10);not null" json:"invoice_prefix" validate:"min=1,max=10,alphanum"`
	PaymentTermsDays int              `gorm:"not null" json:"payment_terms_days" validate:"min=1,max=365"`
	CreatedAt        time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null" json:"updated_at"`
}

func (Settings) TableName() string { return "tenant_settings" }
