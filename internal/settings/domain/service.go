package domain

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// UpdateSettingsRequest is a partial update. Nil fields keep their value.
type UpdateSettingsRequest struct {
	BusinessName     *string          `json:"business_name"`
	BusinessAddress  *string          `json:"business_address"`
	LogoURL          *string          `json:"logo_url"`
	Currency         *string          `json:"currency"`
	HourlyRate       *decimal.Decimal `json:"hourly_rate"`
	InvoicePrefix    *string          `json:"invoice_prefix"`
	PaymentTermsDays *int             `json:"payment_terms_days"`
}

type Service interface {
	Get(context.Context) (Settings, error)
	Update(context.Context, UpdateSettingsRequest) (Settings, error)
	// ForTenant returns the stored settings, or the deployment defaults
	// when the tenant never saved any.
	ForTenant(ctx context.Context, tenantID string) (Settings, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidField  = errors.New("invalid_field")
)
