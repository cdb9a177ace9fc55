package repository

import (
	"context"

	"github.com/smallbiznis/billfold/internal/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, tenantID string) (*domain.Settings, error) {
	var settings domain.Settings
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Limit(1).
		Find(&settings).Error
	if err != nil {
		return nil, err
	}
	if settings.TenantID == "" {
		return nil, nil
	}
	return &settings, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, settings *domain.Settings) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"business_name",
				"business_address",
				"logo_url",
				"currency",
				"hourly_rate",
				"invoice_prefix",
				"payment_terms_days",
				"updated_at",
			}),
		}).
		Create(settings).Error
}
