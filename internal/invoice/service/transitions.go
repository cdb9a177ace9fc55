package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	invoicedomain "github.com/smallbiznis/billfold/internal/invoice/domain"
	"github.com/smallbiznis/billfold/internal/invoice/render"
	"github.com/smallbiznis/billfold/pkg/calendar"
	"go.uber.org/zap"
)

const (
	outcomeOK       = "ok"
	outcomeNoop     = "noop"
	outcomeRejected = "rejected"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)

// Send emails the invoice to the client and then marks it SENT. Nothing is
// written when delivery fails.
func (s *Service) Send(ctx context.Context, tenantID, id string, req invoicedomain.SendInvoiceRequest) (invoicedomain.Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return invoicedomain.Invoice{}, toValidationError(err)
	}

	invoice, err := s.load(ctx, tenantID, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	rule, _ := invoicedomain.RuleFor(invoicedomain.ActionSend)
	if !rule.Allows(invoice.Status) {
		s.metrics.RecordTransition(string(invoicedomain.ActionSend), outcomeRejected)
		return invoicedomain.Invoice{}, invoicedomain.NewTransitionError(invoice.Status, rule.To)
	}

	client, err := s.clients.FindByID(ctx, s.db, invoice.TenantID, invoice.ClientID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	recipient := strings.TrimSpace(req.To)
	clientName := ""
	if client != nil {
		clientName = client.Name
		if recipient == "" {
			recipient = strings.TrimSpace(client.Email)
		}
	}
	if recipient == "" {
		return invoicedomain.Invoice{}, invoicedomain.NewValidationError("to", "no recipient email")
	}

	withItems, err := s.withItems(ctx, *invoice)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	body, err := s.renderer.RenderEmail(render.EmailInput{
		Invoice:    withItems,
		ClientName: clientName,
		Message:    strings.TrimSpace(req.Message),
		PublicURL:  s.publicURL(invoice.PublicToken),
	})
	if err != nil {
		return invoicedomain.Invoice{}, errors.Wrap(err, "render invoice email")
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = fmt.Sprintf("Invoice %s", invoice.InvoiceNumber)
	}

	if err := s.email.Send(ctx, []string{recipient}, subject, body); err != nil {
		s.metrics.RecordEmailDelivery(outcomeError)
		s.log.Warn("invoice email delivery failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
		return invoicedomain.Invoice{}, errors.Mark(errors.Wrap(err, "deliver invoice email"), invoicedomain.ErrDeliveryFailed)
	}
	s.metrics.RecordEmailDelivery(outcomeOK)

	return s.apply(ctx, invoice, invoicedomain.ActionSend, map[string]any{
		"sent_at": s.clock.Now(),
	}, false)
}

// RecordFirstView marks a SENT invoice VIEWED the first time its public
// link is opened. Every other case is a silent no-op.
func (s *Service) RecordFirstView(ctx context.Context, publicToken string) (invoicedomain.Invoice, error) {
	invoice, err := s.loadByToken(ctx, publicToken)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	rule, _ := invoicedomain.RuleFor(invoicedomain.ActionRecordFirstView)
	if !rule.Allows(invoice.Status) || invoice.ViewedAt != nil {
		s.metrics.RecordTransition(string(invoicedomain.ActionRecordFirstView), outcomeNoop)
		return s.withItems(ctx, *invoice)
	}

	updated, err := s.apply(ctx, invoice, invoicedomain.ActionRecordFirstView, map[string]any{
		"viewed_at": s.clock.Now(),
	}, true)
	if errors.Is(err, invoicedomain.ErrConcurrencyConflict) {
		// another request recorded the view or moved the invoice on
		updated, err = s.reload(ctx, invoice)
	}
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return s.withItems(ctx, updated)
}

func (s *Service) RecordPayment(ctx context.Context, tenantID, id string, method invoicedomain.PaymentMethod) (invoicedomain.Invoice, error) {
	invoice, err := s.load(ctx, tenantID, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return s.recordPayment(ctx, invoice, method)
}

// RecordPaymentByID settles an invoice without a tenant scope. Only callers
// that authenticated the payment out of band may use it.
func (s *Service) RecordPaymentByID(ctx context.Context, id string, method invoicedomain.PaymentMethod) (invoicedomain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoice, err := s.repo.FindByIDAnyTenant(ctx, s.db, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}
	return s.recordPayment(ctx, invoice, method)
}

func (s *Service) recordPayment(ctx context.Context, invoice *invoicedomain.Invoice, method invoicedomain.PaymentMethod) (invoicedomain.Invoice, error) {
	if !method.Valid() {
		return invoicedomain.Invoice{}, invoicedomain.NewValidationError("method", "must be stripe or manual")
	}

	rule, _ := invoicedomain.RuleFor(invoicedomain.ActionRecordPayment)
	if rule.IsNoop(invoice.Status) {
		s.metrics.RecordTransition(string(invoicedomain.ActionRecordPayment), outcomeNoop)
		return *invoice, nil
	}
	if !rule.Allows(invoice.Status) {
		s.metrics.RecordTransition(string(invoicedomain.ActionRecordPayment), outcomeRejected)
		return invoicedomain.Invoice{}, invoicedomain.NewTransitionError(invoice.Status, rule.To)
	}

	return s.apply(ctx, invoice, invoicedomain.ActionRecordPayment, map[string]any{
		"paid_at":        s.clock.Now(),
		"payment_method": method,
	}, false)
}

func (s *Service) Void(ctx context.Context, tenantID, id string) (invoicedomain.Invoice, error) {
	invoice, err := s.load(ctx, tenantID, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	rule, _ := invoicedomain.RuleFor(invoicedomain.ActionVoid)
	if rule.IsNoop(invoice.Status) {
		s.metrics.RecordTransition(string(invoicedomain.ActionVoid), outcomeNoop)
		return *invoice, nil
	}
	if !rule.Allows(invoice.Status) {
		s.metrics.RecordTransition(string(invoicedomain.ActionVoid), outcomeRejected)
		return invoicedomain.Invoice{}, invoicedomain.NewTransitionError(invoice.Status, rule.To)
	}

	return s.apply(ctx, invoice, invoicedomain.ActionVoid, nil, false)
}

// SweepOverdue moves every SENT or VIEWED invoice of the tenant whose due
// date is before today to OVERDUE in one statement. Running it twice for the
// same day changes nothing the second time.
func (s *Service) SweepOverdue(ctx context.Context, tenantID string, today time.Time) (int64, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return 0, invoicedomain.ErrInvalidTenant
	}

	n, err := s.repo.MarkOverdue(ctx, s.db, tenantID, calendar.Day(today), s.clock.Now())
	if err != nil {
		s.metrics.RecordTransition(string(invoicedomain.ActionSweepOverdue), outcomeError)
		return 0, mapStoreError(err)
	}
	s.metrics.RecordTransition(string(invoicedomain.ActionSweepOverdue), outcomeOK)
	s.metrics.RecordOverdueSwept(n)
	if n > 0 {
		s.log.Info("invoices marked overdue",
			zap.String("tenant_id", tenantID),
			zap.Int64("count", n),
		)
	}
	return n, nil
}

// Transition dispatches a named action to its transition.
func (s *Service) Transition(ctx context.Context, tenantID, id string, req invoicedomain.TransitionRequest) (invoicedomain.Invoice, error) {
	switch req.Action {
	case invoicedomain.ActionSend:
		return s.Send(ctx, tenantID, id, req.Send)
	case invoicedomain.ActionRecordFirstView:
		invoice, err := s.load(ctx, tenantID, id)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		return s.RecordFirstView(ctx, invoice.PublicToken)
	case invoicedomain.ActionRecordPayment:
		return s.RecordPayment(ctx, tenantID, id, req.Method)
	case invoicedomain.ActionVoid:
		return s.Void(ctx, tenantID, id)
	case invoicedomain.ActionSweepOverdue:
		if _, err := s.SweepOverdue(ctx, tenantID, s.clock.Now()); err != nil {
			return invoicedomain.Invoice{}, err
		}
		return s.Get(ctx, tenantID, id)
	default:
		return invoicedomain.Invoice{}, invoicedomain.NewValidationError("action", fmt.Sprintf("unknown action %q", req.Action))
	}
}

// apply performs the compare-and-swap for action and returns the stored row.
// A swap that matches no row means another writer changed the status after
// it was read.
func (s *Service) apply(ctx context.Context, invoice *invoicedomain.Invoice, action invoicedomain.Action, set map[string]any, requireUnviewed bool) (invoicedomain.Invoice, error) {
	rule, ok := invoicedomain.RuleFor(action)
	if !ok {
		return invoicedomain.Invoice{}, errors.Newf("no transition rule for %s", action)
	}

	if set == nil {
		set = make(map[string]any, 1)
	}
	set["updated_at"] = s.clock.Now()

	n, err := s.repo.CompareAndSwapStatus(ctx, s.db, invoicedomain.StatusSwap{
		TenantID:        invoice.TenantID,
		ID:              invoice.ID,
		From:            rule.From,
		To:              rule.To,
		RequireUnviewed: requireUnviewed,
		Set:             set,
	})
	if err != nil {
		s.metrics.RecordTransition(string(action), outcomeError)
		return invoicedomain.Invoice{}, mapStoreError(err)
	}
	if n == 0 {
		s.metrics.RecordTransition(string(action), outcomeConflict)
		return invoicedomain.Invoice{}, errors.Wrapf(invoicedomain.ErrConcurrencyConflict,
			"%s on invoice %s", action, invoice.ID)
	}
	s.metrics.RecordTransition(string(action), outcomeOK)

	s.log.Info("invoice transitioned",
		zap.String("tenant_id", invoice.TenantID),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("action", string(action)),
		zap.String("from", string(invoice.Status)),
		zap.String("to", string(rule.To)),
	)
	return s.reload(ctx, invoice)
}

func (s *Service) publicURL(publicToken string) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/public/invoices/" + publicToken
}
