package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, expense *Expense) error
	List(ctx context.Context, db *gorm.DB, tenantID string, filter ListExpenseFilter) ([]Expense, error)
	Delete(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID) (int64, error)
}
