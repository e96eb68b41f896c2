// Package server is the inbound transport layer. It translates HTTP events
// into the billing, entitlement and user entry points and renders their
// results; it holds no business state of its own.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	billingdomain "github.com/subgate/subgate/internal/billing/domain"
	"github.com/subgate/subgate/internal/clock"
	"github.com/subgate/subgate/internal/config"
	entitlementdomain "github.com/subgate/subgate/internal/entitlement/domain"
	invoicedomain "github.com/subgate/subgate/internal/invoice/domain"
	"github.com/subgate/subgate/internal/observability/metrics"
	"github.com/subgate/subgate/internal/observability/tracing"
	"github.com/subgate/subgate/internal/operation"
	userdomain "github.com/subgate/subgate/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Engine         *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	Log            *zap.Logger
	Clock          clock.Clock
	BillingSvc     billingdomain.Service
	EntitlementSvc entitlementdomain.Service
	UserSvc        userdomain.Service
	Invoices       invoicedomain.Repository
	Runner         operation.Runner
	Metrics        *metrics.Metrics `optional:"true"`
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	log            *zap.Logger
	clock          clock.Clock
	billingSvc     billingdomain.Service
	entitlementSvc entitlementdomain.Service
	userSvc        userdomain.Service
	invoices       invoicedomain.Repository
	runner         operation.Runner
	metrics        *metrics.Metrics
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:         p.Engine,
		cfg:            p.Cfg,
		db:             p.DB,
		log:            p.Log.Named("server"),
		clock:          p.Clock,
		billingSvc:     p.BillingSvc,
		entitlementSvc: p.EntitlementSvc,
		userSvc:        p.UserSvc,
		invoices:       p.Invoices,
		runner:         p.Runner,
		metrics:        p.Metrics,
	}
	s.registerRoutes()
	return s
}

func NewEngine(m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(tracing.GinMiddleware())
	r.Use(metrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")
	v1.GET("/tiers", s.ListTiers)
	v1.GET("/users/:external_id", s.GetProfile)
	v1.POST("/users/:external_id/invoices", s.PurchaseTier)
	v1.POST("/users/:external_id/operations", s.RunOperation)
	v1.POST("/invoices/:invoice_id/confirm", s.ConfirmInvoice)
	v1.POST("/invoices/:invoice_id/cancel", s.CancelInvoice)

	admin := s.engine.Group("/admin/v1")
	admin.Use(s.AdminAuthMiddleware())
	admin.POST("/grants", s.GrantEntitlement)
	admin.GET("/stats", s.GetStats)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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
