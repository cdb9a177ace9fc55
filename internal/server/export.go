package server

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/samber/lo"
	clientdomain "github.com/smallbiznis/billfold/internal/client/domain"
	expensedomain "github.com/smallbiznis/billfold/internal/expense/domain"
	invoicedomain "github.com/smallbiznis/billfold/internal/invoice/domain"
	"github.com/smallbiznis/billfold/pkg/calendar"
	"github.com/smallbiznis/billfold/pkg/csvcodec"
	"github.com/smallbiznis/billfold/pkg/db/pagination"
	"github.com/smallbiznis/billfold/pkg/money"
)

var invoiceExportColumns = []csvcodec.Column{
	{Key: "invoice_number", Label: "Invoice Number"},
	{Key: "client_name", Label: "Client Name"},
	{Key: "client_email", Label: "Client Email"},
	{Key: "status", Label: "Status"},
	{Key: "issue_date", Label: "Issue Date"},
	{Key: "due_date", Label: "Due Date"},
	{Key: "total_amount", Label: "Total Amount"},
	{Key: "currency", Label: "Currency"},
	{Key: "sent_at", Label: "Sent At"},
	{Key: "paid_at", Label: "Paid At"},
	{Key: "payment_method", Label: "Payment Method"},
}

var clientExportColumns = []csvcodec.Column{
	{Key: "name", Label: "Name"},
	{Key: "email", Label: "Email"},
	{Key: "company", Label: "Company"},
	{Key: "address", Label: "Address"},
	{Key: "created_at", Label: "Created At"},
}

var expenseExportColumns = []csvcodec.Column{
	{Key: "description", Label: "Description"},
	{Key: "amount", Label: "Amount"},
	{Key: "date", Label: "Date"},
	{Key: "receipt_url", Label: "Receipt URL"},
	{Key: "created_at", Label: "Created At"},
}

func (s *Server) ExportInvoices(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := tenantIDFromContext(c)

	invoices, err := s.allInvoices(ctx, tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	clients, err := s.allClients(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	byID := lo.KeyBy(clients, func(cl clientdomain.Client) snowflake.ID { return cl.ID })

	records := lo.Map(invoices, func(inv invoicedomain.Invoice, _ int) csvcodec.Record {
		cl := byID[inv.ClientID]
		record := csvcodec.Record{
			"invoice_number": inv.InvoiceNumber,
			"client_name":    cl.Name,
			"client_email":   cl.Email,
			"status":         string(inv.Status),
			"issue_date":     calendar.FormatDate(inv.IssueDate),
			"due_date":       calendar.FormatDate(inv.DueDate),
			"total_amount":   money.Format(inv.TotalAmount),
			"currency":       inv.Currency,
			"sent_at":        formatOptionalTimestamp(inv.SentAt),
			"paid_at":        formatOptionalTimestamp(inv.PaidAt),
		}
		if inv.PaymentMethod != nil {
			record["payment_method"] = string(*inv.PaymentMethod)
		}
		return record
	})

	s.writeCSV(c, "invoices", records, invoiceExportColumns)
}

func (s *Server) ExportClients(c *gin.Context) {
	clients, err := s.allClients(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	records := lo.Map(clients, func(cl clientdomain.Client, _ int) csvcodec.Record {
		return csvcodec.Record{
			"name":       cl.Name,
			"email":      cl.Email,
			"company":    cl.Company,
			"address":    cl.Address,
			"created_at": cl.CreatedAt.UTC().Format(time.RFC3339),
		}
	})

	s.writeCSV(c, "clients", records, clientExportColumns)
}

// ExportExpenses lists expenses by expense date, newest first.
func (s *Server) ExportExpenses(c *gin.Context) {
	expenses, err := s.allExpenses(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Date.After(expenses[j].Date)
	})

	records := lo.Map(expenses, func(e expensedomain.Expense, _ int) csvcodec.Record {
		return csvcodec.Record{
			"description": e.Description,
			"amount":      money.Format(e.Amount),
			"date":        calendar.FormatDate(e.Date),
			"receipt_url": e.ReceiptURL,
			"created_at":  e.CreatedAt.UTC().Format(time.RFC3339),
		}
	})

	s.writeCSV(c, "expenses", records, expenseExportColumns)
}

func (s *Server) writeCSV(c *gin.Context, kind string, records []csvcodec.Record, columns []csvcodec.Column) {
	body, err := csvcodec.EncodeString(records, columns)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	name := slug.Make(fmt.Sprintf("%s %s %s", tenantIDFromContext(c), kind, calendar.FormatDate(s.clock.Now())))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(body))
}

func (s *Server) allInvoices(ctx context.Context, tenantID string) ([]invoicedomain.Invoice, error) {
	var out []invoicedomain.Invoice
	req := invoicedomain.ListInvoiceRequest{Pagination: pagination.Pagination{PageSize: pagination.MaxPageSize}}
	for {
		resp, err := s.invoiceSvc.List(ctx, tenantID, req)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Invoices...)
		if !resp.HasMore {
			return out, nil
		}
		req.PageToken = resp.NextPageToken
	}
}

func (s *Server) allClients(ctx context.Context) ([]clientdomain.Client, error) {
	var out []clientdomain.Client
	req := clientdomain.ListClientRequest{Pagination: pagination.Pagination{PageSize: pagination.MaxPageSize}}
	for {
		resp, err := s.clientSvc.List(ctx, req)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Clients...)
		if !resp.HasMore {
			return out, nil
		}
		req.PageToken = resp.NextPageToken
	}
}

func (s *Server) allExpenses(ctx context.Context) ([]expensedomain.Expense, error) {
	var out []expensedomain.Expense
	req := expensedomain.ListExpenseRequest{Pagination: pagination.Pagination{PageSize: pagination.MaxPageSize}}
	for {
		resp, err := s.expenseSvc.List(ctx, req)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Expenses...)
		if !resp.HasMore {
			return out, nil
		}
		req.PageToken = resp.NextPageToken
	}
}

func formatOptionalTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
