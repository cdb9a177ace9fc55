package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Client is a party a tenant invoices.
type Client struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  string       `gorm:"type:varchar(64);not null;index" json:"-"`
	Name      string       `gorm:"type:varchar(200);not null" json:"name"`
	Email     string       `gorm:"type:varchar(320);not null" json:"email"`
	Company   string       `gorm:"type:varchar(200)" json:"company,omitempty"`
	Address   string       `gorm:"type:text" json:"address,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }
