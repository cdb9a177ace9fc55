package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, tenantID string) (*Settings, error)
	Upsert(ctx context.Context, db *gorm.DB, settings *Settings) error
}
