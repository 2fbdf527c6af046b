// Package server wires the HTTP surface for the contractor directory
// back office.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/renolink/renolink/internal/clock"
	"github.com/renolink/renolink/internal/config"
	"github.com/renolink/renolink/internal/content"
	contentdomain "github.com/renolink/renolink/internal/content/domain"
	"github.com/renolink/renolink/internal/gateway"
	"github.com/renolink/renolink/internal/inquiry"
	inquirydomain "github.com/renolink/renolink/internal/inquiry/domain"
	"github.com/renolink/renolink/internal/metrics"
	"github.com/renolink/renolink/internal/payment"
	paymentdomain "github.com/renolink/renolink/internal/payment/domain"
	"github.com/renolink/renolink/internal/providers/email"
	"github.com/renolink/renolink/internal/scheduler"
	"github.com/renolink/renolink/internal/subscription"
	subscriptiondomain "github.com/renolink/renolink/internal/subscription/domain"
	"github.com/renolink/renolink/internal/tenant"
	tenantdomain "github.com/renolink/renolink/internal/tenant/domain"
	"github.com/renolink/renolink/internal/waitinglist"
	waitinglistdomain "github.com/renolink/renolink/internal/waitinglist/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	metrics.Module,
	email.Module,
	gateway.Module,
	tenant.Module,
	waitinglist.Module,
	subscription.Module,
	payment.Module,
	content.Module,
	inquiry.Module,
	scheduler.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	clock           clock.Clock
	tenantSvc       tenantdomain.Service
	waitingListSvc  waitinglistdomain.Service
	subscriptionSvc subscriptiondomain.Service
	paymentSvc      paymentdomain.Service
	paymentRepo     paymentdomain.Repository
	contentSvc      contentdomain.Service
	inquirySvc      inquirydomain.Service
	gatewaySvc      gateway.Client
	scheduler       *scheduler.Scheduler
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	Clock           clock.Clock
	TenantSvc       tenantdomain.Service
	WaitingListSvc  waitinglistdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	PaymentSvc      paymentdomain.Service
	PaymentRepo     paymentdomain.Repository
	ContentSvc      contentdomain.Service
	InquirySvc      inquirydomain.Service
	GatewaySvc      gateway.Client
	Scheduler       *scheduler.Scheduler
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		clock:           p.Clock,
		tenantSvc:       p.TenantSvc,
		waitingListSvc:  p.WaitingListSvc,
		subscriptionSvc: p.SubscriptionSvc,
		paymentSvc:      p.PaymentSvc,
		paymentRepo:     p.PaymentRepo,
		contentSvc:      p.ContentSvc,
		inquirySvc:      p.InquirySvc,
		gatewaySvc:      p.GatewaySvc,
		scheduler:       p.Scheduler,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Tenants --------
	api.POST("/tenants/register", s.RegisterTenant)
	api.GET("/tenants", s.ListTenants)
	api.GET("/tenants/:id", s.GetTenantByID)
	api.GET("/tenants/:id/posts", s.GetTenantPosts)
	api.POST("/tenants/:id/inquiries", s.CreateInquiry)

	// -------- Subscriptions --------
	api.POST("/tenants/:id/subscription/checkout", s.StartCheckout)
	api.POST("/tenants/:id/subscription/cancel", s.CancelSubscription)
	api.POST("/tenants/:id/subscription/resume", s.ResumeSubscription)
	api.GET("/tenants/:id/subscription", s.GetSubscription)
	api.GET("/tenants/:id/payments", s.ListTenantPayments)

	// -------- Waiting list --------
	api.POST("/waiting-list", s.EnqueueWaitingList)
	api.GET("/waiting-list/:id/position", s.GetWaitingListPosition)

	// -------- Payment Webhooks --------
	api.POST("/payments/webhooks/:provider", s.HandlePaymentWebhook)

	// -------- Stats --------
	api.GET("/stats", s.GetCapacityStats)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AdminRequired())

	// -------- Tenants --------
	admin.GET("/tenants", s.AdminListTenants)
	admin.PATCH("/tenants/:id", s.AdminUpdateTenant)
	admin.PATCH("/tenants/:id/status", s.AdminUpdateTenantStatus)
	admin.DELETE("/tenants/:id", s.AdminDeleteTenant)
	admin.GET("/tenants/:id/inquiries", s.AdminListInquiries)

	// -------- Waiting list --------
	admin.GET("/waiting-list", s.AdminListWaitingList)
	admin.POST("/waiting-list/:id/invite", s.AdminInviteWaitingListEntry)
	admin.POST("/waiting-list/:id/expire", s.AdminExpireWaitingListEntry)

	// -------- Inquiries --------
	admin.PATCH("/inquiries/:id/status", s.AdminUpdateInquiryStatus)

	// -------- Content cache --------
	admin.POST("/content/sync", s.AdminTriggerContentSync)
	admin.GET("/content/sync/status", s.AdminContentSyncStatus)
	admin.GET("/content/stats", s.AdminContentStats)
	admin.POST("/tenants/:id/content/refresh", s.AdminRefreshTenantContent)
	admin.GET("/tenants/:id/content/stats", s.AdminTenantContentStats)
	admin.DELETE("/tenants/:id/content", s.AdminClearTenantContent)

	// -------- Billing --------
	admin.GET("/payment-events", s.AdminListPaymentEvents)
	admin.GET("/revenue", s.AdminRevenueMetrics)
}
