package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/billfold/internal/client/domain"
	"github.com/smallbiznis/billfold/internal/clock"
	"github.com/smallbiznis/billfold/pkg/db/pagination"
	"github.com/smallbiznis/billfold/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	validate *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("client.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		validate: validator.New(),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidTenant
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return domain.Client{}, classifyValidation(err)
	}

	now := s.clock.Now()
	client := domain.Client{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		Name:      req.Name,
		Email:     req.Email,
		Company:   strings.TrimSpace(req.Company),
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		return domain.Client{}, err
	}

	return client, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClientRequest) (domain.ListClientResponse, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return domain.ListClientResponse{}, domain.ErrInvalidTenant
	}

	limit := req.Size()
	filter := domain.ListClientFilter{
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Limit: limit + 1,
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListClientResponse{}, domain.ErrInvalidID
		}
		if filter.BeforeID, err = s.parseID(cursor.ID); err != nil {
			return domain.ListClientResponse{}, err
		}
	}

	items, err := s.repo.List(ctx, s.db, tenantID, filter)
	if err != nil {
		return domain.ListClientResponse{}, err
	}

	clients, pageInfo := pagination.Page(items, limit, func(c domain.Client) string { return c.ID.String() })
	return domain.ListClientResponse{PageInfo: pageInfo, Clients: clients}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Client, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidTenant
	}

	clientID, err := s.parseID(id)
	if err != nil {
		return domain.Client{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func classifyValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	switch fieldErrs[0].Field() {
	case "Name":
		return domain.ErrInvalidName
	case "Email":
		return domain.ErrInvalidEmail
	default:
		return errors.Wrapf(domain.ErrInvalidField, "%s failed %s", strings.ToLower(fieldErrs[0].Field()), fieldErrs[0].Tag())
	}
}
