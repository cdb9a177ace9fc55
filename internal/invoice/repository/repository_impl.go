package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billfold/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID) (*domain.Invoice, error) {
	return r.findOne(ctx, db, "tenant_id = ? AND id = ?", tenantID, id)
}

// FindByIDAnyTenant is reserved for callers that authenticated the request
// by other means, such as a verified payment webhook.
func (r *repo) FindByIDAnyTenant(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByPublicToken(ctx context.Context, db *gorm.DB, token string) (*domain.Invoice, error) {
	return r.findOne(ctx, db, "public_token = ?", token)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Invoice, error) {
	var invoices []domain.Invoice
	err := db.WithContext(ctx).
		Where(query, args...).
		Limit(1).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return &invoices[0], nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, tenantID string, invoiceID snowflake.ID) ([]domain.InvoiceItem, error) {
	var items []domain.InvoiceItem
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("position asc").
		Find(&items).Error
	return items, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID string, filter domain.ListFilter) ([]domain.Invoice, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("tenant_id = ?", tenantID)
	if len(filter.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", filter.Statuses)
	}

	switch filter.Order {
	case domain.OrderDueDateAsc:
		stmt = stmt.Order("due_date asc, id asc")
	default:
		if filter.BeforeID != 0 {
			stmt = stmt.Where("id < ?", filter.BeforeID)
		}
		stmt = stmt.Order("id desc")
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var invoices []domain.Invoice
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListPaidSince(ctx context.Context, db *gorm.DB, tenantID string, since time.Time) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND paid_at IS NOT NULL AND paid_at >= ?", tenantID, domain.InvoiceStatusPaid, since).
		Order("paid_at asc").
		Find(&invoices).Error
	return invoices, err
}

// CompareAndSwapStatus applies swap only while the row is still in one of
// swap.From. It returns the number of rows written, 0 or 1.
func (r *repo) CompareAndSwapStatus(ctx context.Context, db *gorm.DB, swap domain.StatusSwap) (int64, error) {
	values := make(map[string]any, len(swap.Set)+1)
	for k, v := range swap.Set {
		values[k] = v
	}
	values["status"] = swap.To

	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ? AND tenant_id = ? AND status IN ?", swap.ID, swap.TenantID, swap.From)
	if swap.RequireUnviewed {
		stmt = stmt.Where("viewed_at IS NULL")
	}
	res := stmt.Updates(values)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkOverdue(ctx context.Context, db *gorm.DB, tenantID string, today, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ?
		 WHERE tenant_id = ? AND status IN ? AND due_date < ?`,
		domain.InvoiceStatusOverdue,
		now,
		tenantID,
		[]domain.InvoiceStatus{domain.InvoiceStatusSent, domain.InvoiceStatusViewed},
		today,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID, deletable []domain.InvoiceStatus) (int64, error) {
	var deleted int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(
			`DELETE FROM invoices WHERE tenant_id = ? AND id = ? AND status IN ?`,
			tenantID, id, deletable,
		)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		if deleted == 0 {
			return nil
		}
		return tx.Exec(`DELETE FROM invoice_items WHERE tenant_id = ? AND invoice_id = ?`, tenantID, id).Error
	})
	return deleted, err
}
