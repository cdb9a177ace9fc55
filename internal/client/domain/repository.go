package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID) (*Client, error)
	FindByIDs(ctx context.Context, db *gorm.DB, tenantID string, ids []snowflake.ID) ([]Client, error)
	List(ctx context.Context, db *gorm.DB, tenantID string, filter ListClientFilter) ([]Client, error)
}
