package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billfold/internal/client/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (id, tenant_id, name, email, company, address, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.TenantID,
		client.Name,
		client.Email,
		client.Company,
		client.Address,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, email, company, address, created_at, updated_at
		 FROM clients WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, tenantID string, ids []snowflake.ID) ([]domain.Client, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var clients []domain.Client
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&clients).Error
	return clients, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID string, filter domain.ListClientFilter) ([]domain.Client, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("tenant_id = ?", tenantID)
	if filter.Email != "" {
		stmt = stmt.Where("email = ?", filter.Email)
	}
	if filter.BeforeID != 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var clients []domain.Client
	if err := stmt.Order("id desc").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}
