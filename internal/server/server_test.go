package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	analyticsdomain "github.com/smallbiznis/billfold/internal/analytics/domain"
	analyticsservice "github.com/smallbiznis/billfold/internal/analytics/service"
	clientdomain "github.com/smallbiznis/billfold/internal/client/domain"
	clientrepository "github.com/smallbiznis/billfold/internal/client/repository"
	clientservice "github.com/smallbiznis/billfold/internal/client/service"
	"github.com/smallbiznis/billfold/internal/clock"
	"github.com/smallbiznis/billfold/internal/config"
	expensedomain "github.com/smallbiznis/billfold/internal/expense/domain"
	expenserepository "github.com/smallbiznis/billfold/internal/expense/repository"
	expenseservice "github.com/smallbiznis/billfold/internal/expense/service"
	invoicedomain "github.com/smallbiznis/billfold/internal/invoice/domain"
	"github.com/smallbiznis/billfold/internal/invoice/render"
	invoicerepository "github.com/smallbiznis/billfold/internal/invoice/repository"
	"github.com/smallbiznis/billfold/internal/invoice/sequence"
	invoiceservice "github.com/smallbiznis/billfold/internal/invoice/service"
	"github.com/smallbiznis/billfold/internal/migration"
	"github.com/smallbiznis/billfold/internal/observability"
	"github.com/smallbiznis/billfold/internal/payment/adapters"
	paymentrepository "github.com/smallbiznis/billfold/internal/payment/repository"
	paymentservice "github.com/smallbiznis/billfold/internal/payment/service"
	publicinvoicedomain "github.com/smallbiznis/billfold/internal/publicinvoice/domain"
	publicinvoiceservice "github.com/smallbiznis/billfold/internal/publicinvoice/service"
	"github.com/smallbiznis/billfold/internal/ratelimit"
	settingsdomain "github.com/smallbiznis/billfold/internal/settings/domain"
	settingsrepository "github.com/smallbiznis/billfold/internal/settings/repository"
	settingsservice "github.com/smallbiznis/billfold/internal/settings/service"
	"github.com/smallbiznis/billfold/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

const (
	testTenant        = "tenant-a"
	testWebhookSecret = "whsec_server_test"
)

var testStart = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

type fakeEmail struct {
	mu   sync.Mutex
	sent [][]string
	err  error
}

func (f *fakeEmail) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type testOptions struct {
	cfg       config.Config
	invoicing config.InvoicingConfig
	limiter   *ratelimit.PublicViewLimiter
}

type testServer struct {
	engine *gin.Engine
	clock  *clock.FakeClock
	email  *fakeEmail
}

func newTestServer(t *testing.T, opts testOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migration.AutoMigrate(dbConn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	cfg := opts.cfg
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "https://billfold.test"
	}
	if opts.invoicing.NumberPrefix == "" {
		opts.invoicing = config.DefaultInvoicingConfig()
	}
	invoicing := config.NewStaticInvoicingConfigHolder(opts.invoicing)

	log := zap.NewNop()
	fakeClock := clock.NewFakeClock(testStart)
	email := &fakeEmail{}
	clientRepo := clientrepository.Provide()
	invoiceRepo := invoicerepository.Provide()
	renderer := render.NewRenderer()

	settingsSvc := settingsservice.New(settingsservice.Params{
		DB:        dbConn,
		Log:       log,
		Clock:     fakeClock,
		Config:    cfg,
		Invoicing: invoicing,
		Repo:      settingsrepository.Provide(),
	})
	expenseSvc := expenseservice.New(expenseservice.Params{
		DB:    dbConn,
		Log:   log,
		GenID: node,
		Clock: fakeClock,
		Repo:  expenserepository.Provide(),
	})

	invoiceSvc := invoiceservice.NewService(invoiceservice.ServiceParam{
		DB:        dbConn,
		Log:       log,
		GenID:     node,
		Clock:     fakeClock,
		Config:    cfg,
		Invoicing: invoicing,
		Repo:      invoiceRepo,
		Clients:   clientRepo,
		Sequencer: sequence.New(),
		Email:     email,
		Renderer:  renderer,
		Settings:  settingsSvc,
	})

	clientSvc := clientservice.New(clientservice.Params{
		DB:    dbConn,
		Log:   log,
		GenID: node,
		Clock: fakeClock,
		Repo:  clientRepo,
	})
	analyticsSvc := analyticsservice.NewService(analyticsservice.Params{
		DB:        dbConn,
		Log:       log,
		Invoices:  invoiceRepo,
		Clients:   clientRepo,
		Invoicing: invoicing,
	})
	publicInvoiceSvc := publicinvoiceservice.New(publicinvoiceservice.Params{
		DB:       dbConn,
		Log:      log,
		Invoices: invoiceSvc,
		Clients:  clientRepo,
		Renderer: renderer,
	})
	paymentSvc := paymentservice.NewService(paymentservice.Params{
		DB:       dbConn,
		Log:      log,
		GenID:    node,
		Clock:    fakeClock,
		Repo:     paymentrepository.Provide(),
		Adapters: adapters.FromConfig(cfg),
		Invoices: invoiceSvc,
	})

	engine := NewEngine(observability.Config{}, nil)
	NewServer(ServerParams{
		Gin:               engine,
		Cfg:               cfg,
		Log:               log,
		Clock:             fakeClock,
		InvoiceSvc:        invoiceSvc,
		ClientSvc:         clientSvc,
		SettingsSvc:       settingsSvc,
		ExpenseSvc:        expenseSvc,
		AnalyticsSvc:      analyticsSvc,
		PublicInvoiceSvc:  publicInvoiceSvc,
		PaymentSvc:        paymentSvc,
		PublicViewLimiter: opts.limiter,
	})

	return &testServer{engine: engine, clock: fakeClock, email: email}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) api(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, method, path, body, map[string]string{HeaderTenant: testTenant})
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return envelope.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error %q: %v", rec.Body.String(), err)
	}
	return resp.Error
}

func (s *testServer) createClient(t *testing.T) clientdomain.Client {
	t.Helper()
	rec := s.api(t, http.MethodPost, "/api/clients", map[string]any{
		"name":  "Acme",
		"email": "billing@acme.test",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[clientdomain.Client](t, rec)
}

func (s *testServer) createInvoice(t *testing.T, clientID snowflake.ID, extra map[string]any) invoicedomain.Invoice {
	t.Helper()
	body := map[string]any{
		"client_id": clientID.String(),
		"items": []map[string]any{
			{"description": "Design", "quantity": 10, "price": "100.00"},
			{"description": "Setup", "quantity": 1, "price": "500.00"},
		},
	}
	for k, v := range extra {
		body[k] = v
	}
	rec := s.api(t, http.MethodPost, "/api/invoices", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[invoicedomain.Invoice](t, rec)
}

func TestTenantRequired(t *testing.T) {
	s := newTestServer(t, testOptions{})

	rec := s.do(t, http.MethodGet, "/api/invoices", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)

	rec = s.api(t, http.MethodGet, "/api/invoices", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTenantFromBearerToken(t *testing.T) {
	s := newTestServer(t, testOptions{cfg: config.Config{AuthJWTSecret: "signing-secret"}})

	sign := func(secret, subject string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		raw, err := token.SignedString([]byte(secret))
		require.NoError(t, err)
		return raw
	}

	rec := s.do(t, http.MethodGet, "/api/clients", nil, map[string]string{
		"Authorization": "Bearer " + sign("signing-secret", testTenant),
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/clients", nil, map[string]string{
		"Authorization": "Bearer " + sign("other-secret", testTenant),
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// the header shortcut is off once a secret is configured
	rec = s.do(t, http.MethodGet, "/api/clients", nil, map[string]string{HeaderTenant: testTenant})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvoiceLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, testOptions{})
	client := s.createClient(t)

	inv := s.createInvoice(t, client.ID, nil)
	assert.Equal(t, "INV-2025-0001", inv.InvoiceNumber)
	assert.Equal(t, invoicedomain.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, "1500", inv.TotalAmount.String())
	assert.True(t, inv.DueDate.Equal(time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC)))
	id := inv.ID.String()

	rec := s.do(t, http.MethodGet, "/public/invoices/"+inv.PublicToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVOICE_NOT_AVAILABLE")

	rec = s.api(t, http.MethodPost, "/api/invoices/"+id+"/send", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, invoicedomain.InvoiceStatusSent, decodeData[invoicedomain.Invoice](t, rec).Status)
	assert.Equal(t, [][]string{{"billing@acme.test"}}, s.email.sent)

	rec = s.do(t, http.MethodGet, "/public/invoices/"+inv.PublicToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var public publicinvoicedomain.PublicInvoiceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &public))
	assert.Equal(t, publicinvoicedomain.PublicInvoiceStatusUnpaid, public.Status)
	assert.Equal(t, "INV-2025-0001", public.Invoice.InvoiceNumber)
	assert.Equal(t, "Acme", public.Invoice.BillToName)
	assert.Len(t, public.Invoice.Items, 2)

	rec = s.api(t, http.MethodGet, "/api/invoices/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, invoicedomain.InvoiceStatusViewed, decodeData[invoicedomain.Invoice](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/public/invoices/"+inv.PublicToken+"/html", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "INV-2025-0001")

	rec = s.api(t, http.MethodPost, "/api/invoices/"+id+"/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decodeData[invoicedomain.Invoice](t, rec)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentMethod)
	assert.Equal(t, invoicedomain.PaymentMethodManual, *paid.PaymentMethod)

	rec = s.api(t, http.MethodPost, "/api/invoices/"+id+"/void", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "invalid_transition", payload.Type)
	assert.Equal(t, "PAID", payload.From)
	assert.Equal(t, "VOID", payload.To)

	rec = s.api(t, http.MethodDelete, "/api/invoices/"+id, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "deleted", decodeError(t, rec).To)
}

func TestTransitionEndpoint(t *testing.T) {
	s := newTestServer(t, testOptions{})
	client := s.createClient(t)
	inv := s.createInvoice(t, client.ID, nil)
	path := "/api/invoices/" + inv.ID.String() + "/transitions"

	rec := s.api(t, http.MethodPost, path, map[string]any{"action": "teleport"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Type)

	rec = s.api(t, http.MethodPost, path, map[string]any{"action": "void"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, invoicedomain.InvoiceStatusVoid, decodeData[invoicedomain.Invoice](t, rec).Status)

	rec = s.api(t, http.MethodPost, path, map[string]any{"action": "send"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, s.email.sent)
}

func TestCreateInvoiceValidation(t *testing.T) {
	s := newTestServer(t, testOptions{})
	client := s.createClient(t)

	rec := s.api(t, http.MethodPost, "/api/invoices", map[string]any{
		"client_id": client.ID.String(),
		"items":     []map[string]any{{"description": "Design", "quantity": 0, "price": "100.00"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Type)

	rec = s.api(t, http.MethodPost, "/api/invoices", map[string]any{
		"client_id": client.ID.String(),
		"due_date":  "next tuesday",
		"items":     []map[string]any{{"description": "Design", "quantity": 1, "price": "100.00"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	other := s.do(t, http.MethodGet, "/api/clients/"+client.ID.String(), nil, map[string]string{HeaderTenant: "tenant-b"})
	assert.Equal(t, http.StatusNotFound, other.Code)
}

func TestDashboardSweepsOverdue(t *testing.T) {
	s := newTestServer(t, testOptions{})
	client := s.createClient(t)

	late := s.createInvoice(t, client.ID, map[string]any{"issue_date": "2024-12-01", "due_date": "2025-01-05"})
	soon := s.createInvoice(t, client.ID, map[string]any{"due_date": "2025-01-14"})
	for _, inv := range []invoicedomain.Invoice{late, soon} {
		rec := s.api(t, http.MethodPost, "/api/invoices/"+inv.ID.String()+"/send", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := s.api(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	analytics := decodeData[analyticsdomain.Analytics](t, rec)

	assert.Equal(t, "3000", analytics.OutstandingTotal.String())
	require.Len(t, analytics.OverdueInvoices, 1)
	assert.Equal(t, late.ID, analytics.OverdueInvoices[0].Invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusOverdue, analytics.OverdueInvoices[0].Invoice.Status)
	assert.Equal(t, 5, analytics.OverdueInvoices[0].DaysOverdue)
	assert.Equal(t, "Acme", analytics.OverdueInvoices[0].ClientName)
	require.Len(t, analytics.UpcomingInvoices, 1)
	assert.Equal(t, soon.ID, analytics.UpcomingInvoices[0].Invoice.ID)
	assert.Equal(t, "Acme", analytics.UpcomingInvoices[0].ClientName)
	assert.Len(t, analytics.MonthlyIncome, analyticsdomain.TrailingMonths)
}

func TestInvoiceNumberEndpoints(t *testing.T) {
	s := newTestServer(t, testOptions{})

	rec := s.api(t, http.MethodGet, "/api/invoice-numbers/INV-2025-0042", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	parsed := decodeData[invoicedomain.InvoiceNumber](t, rec)
	assert.Equal(t, invoicedomain.InvoiceNumber{Prefix: "INV", Year: 2025, Sequence: 42}, parsed)

	rec = s.api(t, http.MethodGet, "/api/invoice-numbers/INV-25-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_invoice_number", decodeError(t, rec).Errors[0].Code)

	type current struct {
		Year     int   `json:"year"`
		Sequence int64 `json:"sequence"`
	}
	rec = s.api(t, http.MethodGet, "/api/invoice-numbers/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, current{Year: 2025, Sequence: 0}, decodeData[current](t, rec))

	client := s.createClient(t)
	s.createInvoice(t, client.ID, nil)

	rec = s.api(t, http.MethodGet, "/api/invoice-numbers/current?year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, current{Year: 2025, Sequence: 1}, decodeData[current](t, rec))

	rec = s.api(t, http.MethodGet, "/api/invoice-numbers/current?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportInvoicesCSV(t *testing.T) {
	s := newTestServer(t, testOptions{})
	client := s.createClient(t)
	s.createInvoice(t, client.ID, nil)

	rec := s.api(t, http.MethodGet, "/api/export/invoices", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="tenant-a-invoices-2025-01-10.csv"`, rec.Header().Get("Content-Disposition"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Invoice Number,Client Name,Client Email,Status,Issue Date,Due Date,Total Amount,Currency,Sent At,Paid At,Payment Method", lines[0])
	assert.Equal(t, "INV-2025-0001,Acme,billing@acme.test,DRAFT,2025-01-10,2025-02-09,1500.00,USD,,,", lines[1])

	rec = s.api(t, http.MethodGet, "/api/export/clients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Name,Email,Company,Address,Created At\n"))
	assert.Contains(t, rec.Body.String(), "Acme,billing@acme.test,,,2025-01-10T09:00:00Z")
}

func TestSettingsDriveInvoiceDefaults(t *testing.T) {
	s := newTestServer(t, testOptions{})

	rec := s.api(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	defaults := decodeData[settingsdomain.Settings](t, rec)
	assert.Equal(t, "INV", defaults.InvoicePrefix)
	assert.Equal(t, 30, defaults.PaymentTermsDays)

	rec = s.api(t, http.MethodPut, "/api/settings", map[string]any{"invoice_prefix": "TOOLONGPREFIX"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_field", decodeError(t, rec).Errors[0].Code)

	rec = s.api(t, http.MethodPut, "/api/settings", map[string]any{
		"invoice_prefix":     "ACME",
		"currency":           "eur",
		"payment_terms_days": 14,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	client := s.createClient(t)
	inv := s.createInvoice(t, client.ID, nil)
	assert.Equal(t, "ACME-2025-0001", inv.InvoiceNumber)
	assert.Equal(t, "EUR", inv.Currency)
	assert.True(t, inv.DueDate.Equal(time.Date(2025, 1, 24, 0, 0, 0, 0, time.UTC)))

	rec = s.api(t, http.MethodPost, "/api/invoices", map[string]any{
		"client_id": client.ID.String(),
		"prefix":    "ABCDEFGHIJK",
		"items":     []map[string]any{{"description": "Design", "quantity": 1, "price": "100.00"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "prefix", decodeError(t, rec).Errors[0].Field)
}

func TestExpensesAndExport(t *testing.T) {
	s := newTestServer(t, testOptions{})

	rec := s.api(t, http.MethodPost, "/api/expenses", map[string]any{
		"description": "Hosting",
		"amount":      "19.99",
		"date":        "2025-01-03",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	hosting := decodeData[expensedomain.Expense](t, rec)

	rec = s.api(t, http.MethodPost, "/api/expenses", map[string]any{
		"description": "Desk, standing",
		"amount":      "350",
		"date":        "2025-01-08",
		"receipt_url": "https://receipts.test/desk",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.api(t, http.MethodPost, "/api/expenses", map[string]any{"description": "Nothing", "amount": "0", "date": "2025-01-08"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_amount", decodeError(t, rec).Errors[0].Code)

	rec = s.api(t, http.MethodGet, "/api/export/expenses", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="tenant-a-expenses-2025-01-10.csv"`, rec.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Description,Amount,Date,Receipt URL,Created At", lines[0])
	assert.Equal(t, `"Desk, standing",350.00,2025-01-08,https://receipts.test/desk,2025-01-10T09:00:00Z`, lines[1])
	assert.Equal(t, "Hosting,19.99,2025-01-03,,2025-01-10T09:00:00Z", lines[2])

	rec = s.do(t, http.MethodDelete, "/api/expenses/"+hosting.ID.String(), nil, map[string]string{HeaderTenant: "tenant-b"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.api(t, http.MethodDelete, "/api/expenses/"+hosting.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.api(t, http.MethodGet, "/api/expenses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]expensedomain.Expense](t, rec), 1)
}

func stripeCheckoutCompleted(t *testing.T, eventID string, invoiceID snowflake.ID) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":     eventID,
		"object": "event",
		"type":   "checkout.session.completed",
		"data": map[string]any{
			"object": map[string]any{
				"id":             "cs_" + eventID,
				"object":         "checkout.session",
				"payment_status": "paid",
				"metadata":       map[string]any{"invoice_id": invoiceID.String()},
			},
		},
	})
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return payload, signed.Header
}

func TestStripeWebhookSettlesInvoice(t *testing.T) {
	s := newTestServer(t, testOptions{cfg: config.Config{StripeWebhookSecret: testWebhookSecret}})
	client := s.createClient(t)
	inv := s.createInvoice(t, client.ID, nil)
	rec := s.api(t, http.MethodPost, "/api/invoices/"+inv.ID.String()+"/send", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	payload, signature := stripeCheckoutCompleted(t, "evt_http_1", inv.ID)

	rec = s.do(t, http.MethodPost, "/webhooks/stripe", payload, map[string]string{"Stripe-Signature": "t=1,v1=bad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for i := 0; i < 2; i++ {
		rec = s.do(t, http.MethodPost, "/webhooks/stripe", payload, map[string]string{"Stripe-Signature": signature})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = s.api(t, http.MethodGet, "/api/invoices/"+inv.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	paid := decodeData[invoicedomain.Invoice](t, rec)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentMethod)
	assert.Equal(t, invoicedomain.PaymentMethodStripe, *paid.PaymentMethod)
}

func TestStripeWebhookWithoutSecret(t *testing.T) {
	s := newTestServer(t, testOptions{})
	payload, signature := stripeCheckoutCompleted(t, "evt_http_2", snowflake.ID(1))

	rec := s.do(t, http.MethodPost, "/webhooks/stripe", payload, map[string]string{"Stripe-Signature": signature})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPublicViewRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.SetTime(testStart)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	invoicing := config.DefaultInvoicingConfig()
	invoicing.PublicViewBurst = 2
	limiter := ratelimit.NewPublicViewLimiterWithClient(rdb, config.NewStaticInvoicingConfigHolder(invoicing))
	s := newTestServer(t, testOptions{invoicing: invoicing, limiter: limiter})

	for i := 0; i < 2; i++ {
		rec := s.do(t, http.MethodGet, "/public/invoices/unknown-token", nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, "request %d", i)
	}

	rec := s.do(t, http.MethodGet, "/public/invoices/unknown-token", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeError(t, rec).Type)
}

func TestPublicViewRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	limiter := ratelimit.NewPublicViewLimiterWithClient(rdb, config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig()))
	s := newTestServer(t, testOptions{limiter: limiter})

	mr.Close()

	rec := s.do(t, http.MethodGet, "/public/invoices/unknown-token", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testOptions{})
	rec := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
