package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billfold/pkg/db/pagination"
)

type CreateExpenseRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Amount      decimal.Decimal `json:"amount"`
	Date        *time.Time      `json:"date"`
	ReceiptURL  string          `json:"receipt_url" validate:"omitempty,url,max=2048"`
}

type ListExpenseRequest struct {
	pagination.Pagination
}

type ListExpenseFilter struct {
	BeforeID snowflake.ID
	Limit    int
}

type ListExpenseResponse struct {
	pagination.PageInfo
	Expenses []Expense `json:"expenses"`
}

type Service interface {
	Create(context.Context, CreateExpenseRequest) (Expense, error)
	// List pages newest-recorded first.
	List(context.Context, ListExpenseRequest) (ListExpenseResponse, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidField  = errors.New("invalid_field")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("expense_not_found")
)
