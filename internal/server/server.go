package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/billfold/internal/analytics"
	analyticsdomain "github.com/smallbiznis/billfold/internal/analytics/domain"
	"github.com/smallbiznis/billfold/internal/client"
	clientdomain "github.com/smallbiznis/billfold/internal/client/domain"
	"github.com/smallbiznis/billfold/internal/clock"
	"github.com/smallbiznis/billfold/internal/config"
	"github.com/smallbiznis/billfold/internal/expense"
	expensedomain "github.com/smallbiznis/billfold/internal/expense/domain"
	"github.com/smallbiznis/billfold/internal/invoice"
	invoicedomain "github.com/smallbiznis/billfold/internal/invoice/domain"
	"github.com/smallbiznis/billfold/internal/observability"
	obsmiddleware "github.com/smallbiznis/billfold/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/billfold/internal/observability/metrics"
	obstracing "github.com/smallbiznis/billfold/internal/observability/tracing"
	"github.com/smallbiznis/billfold/internal/payment"
	paymentdomain "github.com/smallbiznis/billfold/internal/payment/domain"
	"github.com/smallbiznis/billfold/internal/providers"
	"github.com/smallbiznis/billfold/internal/publicinvoice"
	publicinvoicedomain "github.com/smallbiznis/billfold/internal/publicinvoice/domain"
	"github.com/smallbiznis/billfold/internal/ratelimit"
	"github.com/smallbiznis/billfold/internal/settings"
	settingsdomain "github.com/smallbiznis/billfold/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	providers.Module,
	client.Module,
	settings.Module,
	expense.Module,
	invoice.Module,
	analytics.Module,
	publicinvoice.Module,
	payment.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine            *gin.Engine
	cfg               config.Config
	log               *zap.Logger
	clock             clock.Clock
	invoiceSvc        invoicedomain.Service
	clientSvc         clientdomain.Service
	settingsSvc       settingsdomain.Service
	expenseSvc        expensedomain.Service
	analyticsSvc      analyticsdomain.Service
	publicInvoiceSvc  publicinvoicedomain.Service
	paymentSvc        paymentdomain.Service
	publicViewLimiter *ratelimit.PublicViewLimiter
	obsMetrics        *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin               *gin.Engine
	Cfg               config.Config
	Log               *zap.Logger
	Clock             clock.Clock
	InvoiceSvc        invoicedomain.Service
	ClientSvc         clientdomain.Service
	SettingsSvc       settingsdomain.Service
	ExpenseSvc        expensedomain.Service
	AnalyticsSvc      analyticsdomain.Service
	PublicInvoiceSvc  publicinvoicedomain.Service
	PaymentSvc        paymentdomain.Service
	PublicViewLimiter *ratelimit.PublicViewLimiter `optional:"true"`
	ObsMetrics        *obsmetrics.Metrics          `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:            p.Gin,
		cfg:               p.Cfg,
		log:               p.Log.Named("http.server"),
		clock:             p.Clock,
		invoiceSvc:        p.InvoiceSvc,
		clientSvc:         p.ClientSvc,
		settingsSvc:       p.SettingsSvc,
		expenseSvc:        p.ExpenseSvc,
		analyticsSvc:      p.AnalyticsSvc,
		publicInvoiceSvc:  p.PublicInvoiceSvc,
		paymentSvc:        p.PaymentSvc,
		publicViewLimiter: p.PublicViewLimiter,
		obsMetrics:        p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerPublicRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.TenantRequired())

	// -------- Clients --------
	api.GET("/clients", s.ListClients)
	api.POST("/clients", s.CreateClient)
	api.GET("/clients/:id", s.GetClientByID)

	// -------- Settings --------
	api.GET("/settings", s.GetSettings)
	api.PUT("/settings", s.UpdateSettings)

	// -------- Expenses --------
	api.GET("/expenses", s.ListExpenses)
	api.POST("/expenses", s.CreateExpense)
	api.DELETE("/expenses/:id", s.DeleteExpense)

	// -------- Invoices --------
	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.DELETE("/invoices/:id", s.DeleteInvoice)
	api.POST("/invoices/:id/send", s.SendInvoice)
	api.POST("/invoices/:id/payments", s.RecordManualPayment)
	api.POST("/invoices/:id/void", s.VoidInvoice)
	api.POST("/invoices/:id/transitions", s.TransitionInvoice)

	// -------- Invoice numbers --------
	api.GET("/invoice-numbers/current", s.GetCurrentSequence)
	api.GET("/invoice-numbers/:number", s.ParseInvoiceNumber)

	// -------- Dashboard --------
	api.GET("/dashboard", s.GetDashboard)

	// -------- Exports --------
	api.GET("/export/invoices", s.ExportInvoices)
	api.GET("/export/clients", s.ExportClients)
	api.GET("/export/expenses", s.ExportExpenses)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public", s.PublicViewRateLimit())

	public.GET("/invoices/:token", s.GetPublicInvoice)
	public.GET("/invoices/:token/html", s.GetPublicInvoiceHTML)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/:provider", s.HandlePaymentWebhook)
}
