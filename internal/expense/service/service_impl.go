package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/billfold/internal/clock"
	"github.com/smallbiznis/billfold/internal/expense/domain"
	"github.com/smallbiznis/billfold/pkg/calendar"
	"github.com/smallbiznis/billfold/pkg/db/pagination"
	"github.com/smallbiznis/billfold/pkg/money"
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
		log:      p.Log.Named("expense.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		validate: validator.New(),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateExpenseRequest) (domain.Expense, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return domain.Expense{}, domain.ErrInvalidTenant
	}

	req.Description = strings.TrimSpace(req.Description)
	req.ReceiptURL = strings.TrimSpace(req.ReceiptURL)
	if err := s.validate.Struct(req); err != nil {
		return domain.Expense{}, classifyValidation(err)
	}
	if !money.IsPositive(req.Amount) || !money.FitsScale(req.Amount, money.PriceScale) {
		return domain.Expense{}, domain.ErrInvalidAmount
	}
	if req.Date == nil {
		return domain.Expense{}, errors.Wrap(domain.ErrInvalidField, "date is required")
	}

	now := s.clock.Now()
	expense := domain.Expense{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        calendar.Day(*req.Date),
		ReceiptURL:  req.ReceiptURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &expense); err != nil {
		return domain.Expense{}, err
	}
	return expense, nil
}

func (s *Service) List(ctx context.Context, req domain.ListExpenseRequest) (domain.ListExpenseResponse, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return domain.ListExpenseResponse{}, domain.ErrInvalidTenant
	}

	limit := req.Size()
	filter := domain.ListExpenseFilter{Limit: limit + 1}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListExpenseResponse{}, domain.ErrInvalidID
		}
		if filter.BeforeID, err = parseID(cursor.ID); err != nil {
			return domain.ListExpenseResponse{}, err
		}
	}

	items, err := s.repo.List(ctx, s.db, tenantID, filter)
	if err != nil {
		return domain.ListExpenseResponse{}, err
	}

	expenses, pageInfo := pagination.Page(items, limit, func(e domain.Expense) string { return e.ID.String() })
	return domain.ListExpenseResponse{PageInfo: pageInfo, Expenses: expenses}, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return domain.ErrInvalidTenant
	}
	expenseID, err := parseID(id)
	if err != nil {
		return err
	}

	n, err := s.repo.Delete(ctx, s.db, tenantID, expenseID)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("expense deleted",
		zap.String("tenant_id", tenantID),
		zap.String("expense_id", expenseID.String()),
	)
	return nil
}

func parseID(value string) (snowflake.ID, error) {
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
	case "ReceiptURL":
		return errors.Wrapf(domain.ErrInvalidField, "receipt_url failed %s", fieldErrs[0].Tag())
	default:
		return errors.Wrapf(domain.ErrInvalidField, "%s failed %s", strings.ToLower(fieldErrs[0].Field()), fieldErrs[0].Tag())
	}
}
