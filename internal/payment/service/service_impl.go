package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/cockroachdb/errors"
	"github.com/smallbiznis/billfold/internal/clock"
	invoicedomain "github.com/smallbiznis/billfold/internal/invoice/domain"
	"github.com/smallbiznis/billfold/internal/observability/metrics"
	"github.com/smallbiznis/billfold/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/billfold/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     paymentdomain.Repository
	Adapters *adapters.Registry
	Invoices invoicedomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     paymentdomain.Repository
	adapters *adapters.Registry
	invoices invoicedomain.Service
	metrics  *metrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.webhook"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		adapters: p.Adapters,
		invoices: p.Invoices,
		metrics:  p.Metrics,
	}
}

// IngestWebhook verifies a provider delivery and settles the referenced
// invoice. Every delivery of a processed event after the first is
// acknowledged without touching the invoice.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	adapter, err := s.adapters.Adapter(provider)
	if err != nil {
		return err
	}
	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.metrics.RecordPaymentEvent(provider, "unknown", "invalid_signature")
		return err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			s.metrics.RecordPaymentEvent(provider, "unknown", "ignored")
			return nil
		}
		return err
	}

	err = s.ProcessEvent(ctx, event)
	if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
		s.metrics.RecordPaymentEvent(provider, event.Type, "duplicate")
		s.log.Info("payment event already processed",
			zap.String("provider", provider),
			zap.String("provider_event_id", event.ProviderEventID),
		)
		return nil
	}
	return err
}

// ProcessEvent applies a verified payment event exactly once. A stored
// event without processed_at is retried.
func (s *Service) ProcessEvent(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	record, err := s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
	if err != nil {
		return err
	}
	if record != nil && record.ProcessedAt != nil {
		return paymentdomain.ErrEventAlreadyProcessed
	}

	if record == nil {
		record = &paymentdomain.EventRecord{
			ID:              s.genID.Generate(),
			Provider:        event.Provider,
			ProviderEventID: event.ProviderEventID,
			EventType:       event.ProviderType,
			Outcome:         paymentdomain.OutcomeReceived,
			Payload:         datatypes.JSON(event.RawPayload),
			ReceivedAt:      s.clock.Now(),
		}
		inserted, err := s.repo.InsertEvent(ctx, s.db, record)
		if err != nil {
			return err
		}
		if !inserted {
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	result, err := s.settle(ctx, event)
	if err != nil {
		s.metrics.RecordPaymentEvent(event.Provider, event.Type, "error")
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, record.ID, result, s.clock.Now()); err != nil {
		return err
	}
	s.metrics.RecordPaymentEvent(event.Provider, event.Type, result.Outcome)
	return nil
}

// settle records the payment. An unknown or voided invoice is a terminal
// outcome for the event, not a delivery failure.
func (s *Service) settle(ctx context.Context, event *paymentdomain.PaymentEvent) (paymentdomain.EventResult, error) {
	invoice, err := s.invoices.RecordPaymentByID(ctx, event.InvoiceID, invoicedomain.PaymentMethodStripe)
	switch {
	case err == nil:
		invoiceID := invoice.ID
		s.log.Info("invoice paid via provider",
			zap.String("provider", event.Provider),
			zap.String("provider_event_id", event.ProviderEventID),
			zap.String("tenant_id", invoice.TenantID),
			zap.String("invoice_id", invoice.ID.String()),
		)
		return paymentdomain.EventResult{
			TenantID:  invoice.TenantID,
			InvoiceID: &invoiceID,
			Outcome:   paymentdomain.OutcomeApplied,
		}, nil
	case errors.Is(err, invoicedomain.ErrNotFound), errors.Is(err, invoicedomain.ErrInvalidID):
		s.log.Warn("payment event references unknown invoice",
			zap.String("provider_event_id", event.ProviderEventID),
			zap.String("invoice_id", event.InvoiceID),
		)
		return paymentdomain.EventResult{Outcome: paymentdomain.OutcomeUnmatched}, nil
	case errors.Is(err, invoicedomain.ErrInvalidTransition):
		s.log.Warn("payment event rejected by invoice state",
			zap.String("provider_event_id", event.ProviderEventID),
			zap.String("invoice_id", event.InvoiceID),
			zap.Error(err),
		)
		return paymentdomain.EventResult{Outcome: paymentdomain.OutcomeRejected}, nil
	default:
		return paymentdomain.EventResult{}, err
	}
}
