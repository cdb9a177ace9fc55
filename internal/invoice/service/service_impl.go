package service

import (
	"context"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/billfold/internal/client/domain"
	"github.com/smallbiznis/billfold/internal/clock"
	"github.com/smallbiznis/billfold/internal/config"
	invoicedomain "github.com/smallbiznis/billfold/internal/invoice/domain"
	"github.com/smallbiznis/billfold/internal/invoice/render"
	"github.com/smallbiznis/billfold/internal/invoice/sequence"
	"github.com/smallbiznis/billfold/internal/invoice/token"
	"github.com/smallbiznis/billfold/internal/observability/metrics"
	"github.com/smallbiznis/billfold/internal/providers/email"
	settingsdomain "github.com/smallbiznis/billfold/internal/settings/domain"
	"github.com/smallbiznis/billfold/pkg/calendar"
	dbpkg "github.com/smallbiznis/billfold/pkg/db"
	"github.com/smallbiznis/billfold/pkg/db/pagination"
	"github.com/smallbiznis/billfold/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Config    config.Config
	Invoicing *config.InvoicingConfigHolder
	Repo      invoicedomain.Repository
	Clients   clientdomain.Repository
	Sequencer *sequence.Sequencer
	Email     email.Provider
	Renderer  render.Renderer
	Settings  settingsdomain.Service `optional:"true"`
	Metrics   *metrics.Metrics       `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	clock     clock.Clock
	cfg       config.Config
	invoicing *config.InvoicingConfigHolder
	repo      invoicedomain.Repository
	clients   clientdomain.Repository
	sequencer *sequence.Sequencer
	email     email.Provider
	renderer  render.Renderer
	settings  settingsdomain.Service
	metrics   *metrics.Metrics
	validate  *validator.Validate
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,

		clock:     p.Clock,
		cfg:       p.Config,
		invoicing: p.Invoicing,
		repo:      p.Repo,
		clients:   p.Clients,
		sequencer: p.Sequencer,
		email:     p.Email,
		renderer:  p.Renderer,
		settings:  p.Settings,
		metrics:   p.Metrics,
		validate:  newValidator(),
	}
}

func (s *Service) Create(ctx context.Context, tenantID string, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidTenant
	}
	if err := s.validate.Struct(req); err != nil {
		return invoicedomain.Invoice{}, toValidationError(err)
	}

	clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
	if err != nil || clientID == 0 {
		return invoicedomain.Invoice{}, invoicedomain.NewValidationError("client_id", "invalid id")
	}

	defaults, err := s.defaultsFor(ctx, tenantID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	prefix, err := resolvePrefix(req.Prefix, defaults.Prefix)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	now := s.clock.Now()

	issueDate := calendar.Day(now)
	if req.IssueDate != nil {
		issueDate = calendar.Day(*req.IssueDate)
	}
	dueDate := calendar.AddDays(issueDate, defaults.PaymentTermsDays)
	if req.DueDate != nil {
		dueDate = calendar.Day(*req.DueDate)
	}
	if dueDate.Before(issueDate) {
		return invoicedomain.Invoice{}, invoicedomain.NewValidationError("due_date", "must not precede issue_date")
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaults.Currency
	}

	invoiceID := s.genID.Generate()
	items, total, err := s.buildItems(tenantID, invoiceID, req.Items, now)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	publicToken, err := token.Generate()
	if err != nil {
		return invoicedomain.Invoice{}, errors.Wrap(err, "generate public token")
	}

	invoice := invoicedomain.Invoice{
		ID:          invoiceID,
		TenantID:    tenantID,
		ClientID:    clientID,
		Status:      invoicedomain.InvoiceStatusDraft,
		IssueDate:   issueDate,
		DueDate:     dueDate,
		Currency:    currency,
		TotalAmount: total,
		PublicToken: publicToken,
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(req.Metadata) > 0 {
		invoice.Metadata = datatypes.JSONMap(req.Metadata)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client, err := s.clients.FindByID(ctx, tx, tenantID, clientID)
		if err != nil {
			return err
		}
		if client == nil {
			return errors.Wrap(invoicedomain.ErrNotFound, "client")
		}

		number, err := s.sequencer.Allocate(ctx, tx, tenantID, prefix, now.Year(), now)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number

		if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
			return err
		}
		return s.repo.InsertItems(ctx, tx, items)
	})
	if err != nil {
		s.metrics.RecordSequenceAllocation("error")
		return invoicedomain.Invoice{}, mapStoreError(err)
	}
	s.metrics.RecordSequenceAllocation("ok")

	invoice.Items = items
	s.log.Info("invoice created",
		zap.String("tenant_id", tenantID),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
	)
	return invoice, nil
}

func (s *Service) buildItems(tenantID string, invoiceID snowflake.ID, in []invoicedomain.CreateInvoiceItem, now time.Time) ([]invoicedomain.InvoiceItem, decimal.Decimal, error) {
	items := make([]invoicedomain.InvoiceItem, 0, len(in))
	amounts := make([]decimal.Decimal, 0, len(in))
	for i, item := range in {
		description := strings.TrimSpace(item.Description)
		if description == "" {
			return nil, decimal.Zero, invoicedomain.NewValidationError(itemField(i, "description"), "required")
		}
		if !money.IsPositive(item.Quantity) {
			return nil, decimal.Zero, invoicedomain.NewValidationError(itemField(i, "quantity"), "must be greater than zero")
		}
		if !money.FitsScale(item.Quantity, money.QuantityScale) {
			return nil, decimal.Zero, invoicedomain.NewValidationError(itemField(i, "quantity"), "at most 4 decimal places")
		}
		if !money.IsPositive(item.Price) {
			return nil, decimal.Zero, invoicedomain.NewValidationError(itemField(i, "price"), "must be greater than zero")
		}
		if !money.FitsScale(item.Price, money.PriceScale) {
			return nil, decimal.Zero, invoicedomain.NewValidationError(itemField(i, "price"), "at most 2 decimal places")
		}

		amount := money.LineTotal(item.Quantity, item.Price)
		amounts = append(amounts, amount)
		items = append(items, invoicedomain.InvoiceItem{
			ID:          s.genID.Generate(),
			TenantID:    tenantID,
			InvoiceID:   invoiceID,
			Position:    i,
			Description: description,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Amount:      amount,
			CreatedAt:   now,
		})
	}
	return items, money.Sum(amounts...), nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (invoicedomain.Invoice, error) {
	invoice, err := s.load(ctx, tenantID, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return s.withItems(ctx, *invoice)
}

func (s *Service) GetByPublicToken(ctx context.Context, publicToken string) (invoicedomain.Invoice, error) {
	invoice, err := s.loadByToken(ctx, publicToken)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return s.withItems(ctx, *invoice)
}

func (s *Service) List(ctx context.Context, tenantID string, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidTenant
	}

	limit := req.Size()
	filter := invoicedomain.ListFilter{Limit: limit + 1}
	if req.Status != nil {
		filter.Statuses = []invoicedomain.InvoiceStatus{*req.Status}
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.NewValidationError("page_token", "malformed")
		}
		if filter.BeforeID, err = parseID(cursor.ID); err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.NewValidationError("page_token", "malformed")
		}
	}

	items, err := s.repo.List(ctx, s.db, tenantID, filter)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	invoices, pageInfo := pagination.Page(items, limit, func(inv invoicedomain.Invoice) string { return inv.ID.String() })
	return invoicedomain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

// Delete removes an invoice and its items. Paid invoices are permanent.
func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	invoice, err := s.load(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if invoice.Status == invoicedomain.InvoiceStatusPaid {
		return invoicedomain.NewTransitionError(invoice.Status, invoicedomain.StatusDeleted)
	}

	deletable := []invoicedomain.InvoiceStatus{
		invoicedomain.InvoiceStatusDraft,
		invoicedomain.InvoiceStatusSent,
		invoicedomain.InvoiceStatusViewed,
		invoicedomain.InvoiceStatusOverdue,
		invoicedomain.InvoiceStatusVoid,
	}
	n, err := s.repo.Delete(ctx, s.db, invoice.TenantID, invoice.ID, deletable)
	if err != nil {
		return mapStoreError(err)
	}
	if n == 0 {
		return invoicedomain.ErrConcurrencyConflict
	}

	s.log.Info("invoice deleted",
		zap.String("tenant_id", invoice.TenantID),
		zap.String("invoice_id", invoice.ID.String()),
	)
	return nil
}

func (s *Service) load(ctx context.Context, tenantID, id string) (*invoicedomain.Invoice, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, invoicedomain.ErrInvalidTenant
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	return invoice, nil
}

func (s *Service) loadByToken(ctx context.Context, publicToken string) (*invoicedomain.Invoice, error) {
	publicToken = strings.TrimSpace(publicToken)
	if publicToken == "" {
		return nil, invoicedomain.ErrNotFound
	}
	invoice, err := s.repo.FindByPublicToken(ctx, s.db, publicToken)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	return invoice, nil
}

func (s *Service) reload(ctx context.Context, invoice *invoicedomain.Invoice) (invoicedomain.Invoice, error) {
	fresh, err := s.repo.FindByID(ctx, s.db, invoice.TenantID, invoice.ID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if fresh == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}
	return *fresh, nil
}

func (s *Service) withItems(ctx context.Context, invoice invoicedomain.Invoice) (invoicedomain.Invoice, error) {
	items, err := s.repo.ListItems(ctx, s.db, invoice.TenantID, invoice.ID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoice.Items = items
	return invoice, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invoicedomain.ErrInvalidID
	}
	return id, nil
}

// mapStoreError turns lock and serialization failures into
// ErrConcurrencyConflict so callers know a retry is safe.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if dbpkg.IsConflictErr(err) || dbpkg.IsDuplicateKeyErr(err) {
		return errors.Mark(err, invoicedomain.ErrConcurrencyConflict)
	}
	return err
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return invoicedomain.NewValidationError("", err.Error())
	}
	fe := fieldErrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return invoicedomain.NewValidationError(field, "failed "+fe.Tag())
}

func itemField(i int, name string) string {
	return "items[" + strconv.Itoa(i) + "]." + name
}
