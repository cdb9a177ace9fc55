package render

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billfold/internal/invoice/domain"
	"github.com/smallbiznis/billfold/pkg/calendar"
	"github.com/smallbiznis/billfold/pkg/money"
)

type Renderer interface {
	RenderEmail(input EmailInput) (string, error)
	RenderInvoice(input InvoiceInput) (string, error)
}

type EmailInput struct {
	Invoice    domain.Invoice
	ClientName string
	Message    string
	PublicURL  string
}

type InvoiceInput struct {
	Invoice    domain.Invoice
	ClientName string
}

const emailTemplate = `<!doctype html>
<html lang="en">
<body style="font-family: -apple-system, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: #1a1f36;">
  <p>Hi {{.ClientName}},</p>
  {{if .Message}}<p>{{.Message}}</p>{{end}}
  <p>Invoice <strong>{{.Invoice.InvoiceNumber}}</strong> for
     <strong>{{formatMoney .Invoice.TotalAmount .Invoice.Currency}}</strong>
     is due on {{formatDate .Invoice.DueDate}}.</p>
  <p><a href="{{.PublicURL}}">View invoice</a></p>
</body>
</html>
`

const invoiceTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Invoice {{.Invoice.InvoiceNumber}}</title>
  <style>
    body { margin: 0; padding: 40px; font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; color: #1a1f36; background: #f7f9fc; }
    .invoice-card { background: #fff; max-width: 760px; margin: 0 auto; padding: 60px; border-radius: 4px; }
    table { width: 100%; border-collapse: collapse; margin: 32px 0; }
    th, td { padding: 8px 0; border-bottom: 1px solid #e3e8ee; text-align: left; }
    .td-right { text-align: right; }
    .status { color: #8792a2; font-weight: 600; }
  </style>
</head>
<body>
  <div class="invoice-card">
    <h1>Invoice {{.Invoice.InvoiceNumber}}</h1>
    <div class="status">{{.Invoice.Status}}</div>
    <p>Billed to {{.ClientName}}<br>
       Issued {{formatDate .Invoice.IssueDate}} &middot; Due {{formatDate .Invoice.DueDate}}</p>
    <table>
      <thead>
        <tr>
          <th style="width: 50%;">Description</th>
          <th class="td-right">Qty</th>
          <th class="td-right">Price</th>
          <th class="td-right">Amount</th>
        </tr>
      </thead>
      <tbody>
        {{range .Invoice.Items}}
        <tr>
          <td>{{.Description}}</td>
          <td class="td-right">{{formatQuantity .Quantity}}</td>
          <td class="td-right">{{formatMoney .Price $.Invoice.Currency}}</td>
          <td class="td-right">{{formatMoney .Amount $.Invoice.Currency}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    <p class="td-right"><strong>Total {{formatMoney .Invoice.TotalAmount .Invoice.Currency}}</strong></p>
  </div>
</body>
</html>
`

type HTMLRenderer struct {
	email   *template.Template
	invoice *template.Template
}

func NewRenderer() Renderer {
	funcs := template.FuncMap{
		"formatMoney":    formatMoney,
		"formatDate":     formatDate,
		"formatQuantity": formatQuantity,
	}
	return &HTMLRenderer{
		email:   template.Must(template.New("email").Funcs(funcs).Parse(emailTemplate)),
		invoice: template.Must(template.New("invoice").Funcs(funcs).Parse(invoiceTemplate)),
	}
}

func (r *HTMLRenderer) RenderEmail(input EmailInput) (string, error) {
	if strings.TrimSpace(input.ClientName) == "" {
		input.ClientName = "there"
	}
	return execute(r.email, input)
}

func (r *HTMLRenderer) RenderInvoice(input InvoiceInput) (string, error) {
	return execute(r.invoice, input)
}

func execute(tpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatMoney(amount decimal.Decimal, currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency)) + " " + money.Format(amount)
}

func formatDate(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return calendar.FormatDate(value)
}

func formatQuantity(value decimal.Decimal) string {
	return value.String()
}
