package service

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	clientdomain "github.com/smallbiznis/billfold/internal/client/domain"
	invoicedomain "github.com/smallbiznis/billfold/internal/invoice/domain"
	"github.com/smallbiznis/billfold/internal/invoice/render"
	publicinvoicedomain "github.com/smallbiznis/billfold/internal/publicinvoice/domain"
	"github.com/smallbiznis/billfold/pkg/calendar"
	"github.com/smallbiznis/billfold/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Invoices invoicedomain.Service
	Clients  clientdomain.Repository
	Renderer render.Renderer
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	invoices invoicedomain.Service
	clients  clientdomain.Repository
	renderer render.Renderer
}

func New(p Params) publicinvoicedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("publicinvoice.service"),
		invoices: p.Invoices,
		clients:  p.Clients,
		renderer: p.Renderer,
	}
}

// GetInvoiceForPublicView returns the redacted invoice behind token and
// records the first view when the invoice is awaiting one.
func (s *Service) GetInvoiceForPublicView(ctx context.Context, token string) (*publicinvoicedomain.PublicInvoiceResponse, error) {
	invoice, clientName, err := s.open(ctx, token)
	if err != nil {
		return nil, err
	}

	return &publicinvoicedomain.PublicInvoiceResponse{
		Status:  publicInvoiceStatus(invoice.Status),
		Invoice: buildPublicInvoiceView(invoice, clientName),
	}, nil
}

func (s *Service) RenderInvoiceHTML(ctx context.Context, token string) (string, error) {
	invoice, clientName, err := s.open(ctx, token)
	if err != nil {
		return "", err
	}
	return s.renderer.RenderInvoice(render.InvoiceInput{Invoice: invoice, ClientName: clientName})
}

// open records the view and resolves the client name. Drafts have not been
// issued yet and stay hidden.
func (s *Service) open(ctx context.Context, token string) (invoicedomain.Invoice, string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return invoicedomain.Invoice{}, "", publicinvoicedomain.ErrInvoiceUnavailable
	}

	invoice, err := s.invoices.RecordFirstView(ctx, token)
	if err != nil {
		if errors.Is(err, invoicedomain.ErrNotFound) {
			return invoicedomain.Invoice{}, "", publicinvoicedomain.ErrInvoiceUnavailable
		}
		return invoicedomain.Invoice{}, "", err
	}
	if invoice.Status == invoicedomain.InvoiceStatusDraft {
		return invoicedomain.Invoice{}, "", publicinvoicedomain.ErrInvoiceUnavailable
	}

	client, err := s.clients.FindByID(ctx, s.db, invoice.TenantID, invoice.ClientID)
	if err != nil {
		return invoicedomain.Invoice{}, "", err
	}
	clientName := ""
	if client != nil {
		clientName = client.Name
	}
	return invoice, clientName, nil
}

func buildPublicInvoiceView(invoice invoicedomain.Invoice, clientName string) publicinvoicedomain.PublicInvoiceView {
	view := publicinvoicedomain.PublicInvoiceView{
		InvoiceNumber: invoice.InvoiceNumber,
		InvoiceStatus: strings.ToLower(string(invoice.Status)),
		IssueDate:     calendar.FormatDate(invoice.IssueDate),
		DueDate:       calendar.FormatDate(invoice.DueDate),
		BillToName:    clientName,
		Currency:      invoice.Currency,
		TotalAmount:   money.Format(invoice.TotalAmount),
		Notes:         invoice.Notes,
		Items: lo.Map(invoice.Items, func(item invoicedomain.InvoiceItem, _ int) publicinvoicedomain.PublicInvoiceItem {
			return publicinvoicedomain.PublicInvoiceItem{
				Description: item.Description,
				Quantity:    item.Quantity.String(),
				UnitPrice:   money.Format(item.Price),
				Amount:      money.Format(item.Amount),
			}
		}),
	}
	if invoice.PaidAt != nil {
		view.PaidDate = calendar.FormatDate(invoice.PaidAt.UTC())
	}
	return view
}

func publicInvoiceStatus(status invoicedomain.InvoiceStatus) publicinvoicedomain.PublicInvoiceStatus {
	switch status {
	case invoicedomain.InvoiceStatusPaid:
		return publicinvoicedomain.PublicInvoiceStatusPaid
	case invoicedomain.InvoiceStatusVoid:
		return publicinvoicedomain.PublicInvoiceStatusVoid
	default:
		return publicinvoicedomain.PublicInvoiceStatusUnpaid
	}
}
