package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/cockroachdb/errors"
	"github.com/smallbiznis/billfold/pkg/db/pagination"
)

type ListClientRequest struct {
	pagination.Pagination
	Email string
}

type ListClientFilter struct {
	Email    string
	BeforeID snowflake.ID
	Limit    int
}

type ListClientResponse struct {
	pagination.PageInfo
	Clients []Client `json:"clients"`
}

type CreateClientRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=320"`
	Company string `json:"company" validate:"max=200"`
	Address string `json:"address" validate:"max=2000"`
}

type Service interface {
	Create(context.Context, CreateClientRequest) (Client, error)
	List(context.Context, ListClientRequest) (ListClientResponse, error)
	GetByID(ctx context.Context, id string) (Client, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrInvalidField  = errors.New("invalid_field")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("client_not_found")
)
