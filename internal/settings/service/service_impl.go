package service

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/billfold/internal/clock"
	"github.com/smallbiznis/billfold/internal/config"
	"github.com/smallbiznis/billfold/internal/settings/domain"
	"github.com/smallbiznis/billfold/pkg/money"
	"github.com/smallbiznis/billfold/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Config    config.Config
	Invoicing *config.InvoicingConfigHolder
	Repo      domain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	cfg       config.Config
	invoicing *config.InvoicingConfigHolder
	repo      domain.Repository
	validate  *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("settings.service"),
		clock:     p.Clock,
		cfg:       p.Config,
		invoicing: p.Invoicing,
		repo:      p.Repo,
		validate:  validator.New(),
	}
}

func (s *Service) Get(ctx context.Context) (domain.Settings, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return domain.Settings{}, domain.ErrInvalidTenant
	}
	return s.ForTenant(ctx, tenantID)
}

func (s *Service) ForTenant(ctx context.Context, tenantID string) (domain.Settings, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return domain.Settings{}, domain.ErrInvalidTenant
	}

	stored, err := s.repo.Find(ctx, s.db, tenantID)
	if err != nil {
		return domain.Settings{}, err
	}
	if stored != nil {
		return *stored, nil
	}
	return s.defaults(tenantID), nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateSettingsRequest) (domain.Settings, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return domain.Settings{}, domain.ErrInvalidTenant
	}

	var saved domain.Settings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.Find(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		next := s.defaults(tenantID)
		if current != nil {
			next = *current
		}
		apply(&next, req)

		if err := s.validate.Struct(next); err != nil {
			return classifyValidation(err)
		}
		if next.HourlyRate != nil && (next.HourlyRate.IsNegative() || !money.FitsScale(*next.HourlyRate, money.PriceScale)) {
			return errors.Wrap(domain.ErrInvalidField, "hourly_rate must be a non-negative amount with at most 2 decimal places")
		}

		now := s.clock.Now()
		if next.CreatedAt.IsZero() {
			next.CreatedAt = now
		}
		next.UpdatedAt = now
		if err := s.repo.Upsert(ctx, tx, &next); err != nil {
			return err
		}
		saved = next
		return nil
	})
	if err != nil {
		return domain.Settings{}, err
	}

	s.log.Info("tenant settings updated",
		zap.String("tenant_id", tenantID),
		zap.String("invoice_prefix", saved.InvoicePrefix),
		zap.Int("payment_terms_days", saved.PaymentTermsDays),
	)
	return saved, nil
}

func (s *Service) defaults(tenantID string) domain.Settings {
	invoicing := s.invoicing.Get()
	return domain.Settings{
		TenantID:         tenantID,
		Currency:         strings.ToUpper(s.cfg.DefaultCurrency),
		InvoicePrefix:    invoicing.NumberPrefix,
		PaymentTermsDays: invoicing.PaymentTermsDays,
	}
}

func apply(dst *domain.Settings, req domain.UpdateSettingsRequest) {
	if req.BusinessName != nil {
		dst.BusinessName = strings.TrimSpace(*req.BusinessName)
	}
	if req.BusinessAddress != nil {
		dst.BusinessAddress = strings.TrimSpace(*req.BusinessAddress)
	}
	if req.LogoURL != nil {
		dst.LogoURL = strings.TrimSpace(*req.LogoURL)
	}
	if req.Currency != nil {
		dst.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.HourlyRate != nil {
		rate := *req.HourlyRate
		dst.HourlyRate = &rate
	}
	if req.InvoicePrefix != nil {
		dst.InvoicePrefix = strings.TrimSpace(*req.InvoicePrefix)
	}
	if req.PaymentTermsDays != nil {
		dst.PaymentTermsDays = *req.PaymentTermsDays
	}
}

var fieldNames = map[string]string{
	"BusinessName":     "business_name",
	"BusinessAddress":  "business_address",
	"LogoURL":          "logo_url",
	"Currency":         "currency",
	"InvoicePrefix":    "invoice_prefix",
	"PaymentTermsDays": "payment_terms_days",
}

func classifyValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	name, ok := fieldNames[fe.Field()]
	if !ok {
		name = strings.ToLower(fe.Field())
	}
	return errors.Wrapf(domain.ErrInvalidField, "%s failed %s", name, fe.Tag())
}
