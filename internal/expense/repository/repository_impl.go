package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billfold/internal/expense/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, expense *domain.Expense) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO expenses (id, tenant_id, description, amount, date, receipt_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID,
		expense.TenantID,
		expense.Description,
		expense.Amount,
		expense.Date,
		expense.ReceiptURL,
		expense.CreatedAt,
		expense.UpdatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID string, filter domain.ListExpenseFilter) ([]domain.Expense, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Expense{}).
		Where("tenant_id = ?", tenantID)
	if filter.BeforeID != 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var expenses []domain.Expense
	if err := stmt.Order("id desc").Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM expenses WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	)
	return res.RowsAffected, res.Error
}
