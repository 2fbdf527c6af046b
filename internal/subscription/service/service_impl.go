package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/renolink/renolink/internal/clock"
	"github.com/renolink/renolink/internal/config"
	"github.com/renolink/renolink/internal/gateway"
	subscriptiondomain "github.com/renolink/renolink/internal/subscription/domain"
	tenantdomain "github.com/renolink/renolink/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       subscriptiondomain.Repository
	TenantRepo tenantdomain.Repository
	Gateway    gateway.Client
	Clock      clock.Clock
	Cfg        config.Config
}

type service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       subscriptiondomain.Repository
	tenantRepo tenantdomain.Repository
	gateway    gateway.Client
	clock      clock.Clock
	cfg        config.Config
}

func Provide(p Params) subscriptiondomain.Service {
	return &service{
		db:         p.DB,
		log:        p.Log.Named("subscription.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		tenantRepo: p.TenantRepo,
		gateway:    p.Gateway,
		clock:      p.Clock,
		cfg:        p.Cfg,
	}
}

// StartCheckout resolves the tenant to a provider customer and opens a
// hosted checkout session. The local subscription row is created later
// by the provider's creation event, keyed by the tenant id stamped into
// the session metadata.
func (s *service) StartCheckout(ctx context.Context, req subscriptiondomain.CheckoutRequest) (*subscriptiondomain.CheckoutResult, error) {
	if req.SuccessURL == "" || req.CancelURL == "" {
		return nil, subscriptiondomain.ErrInvalidRequest
	}
	priceID := strings.TrimSpace(req.PriceID)
	if priceID == "" {
		priceID = s.cfg.Stripe.PriceID
	}

	tenant, err := s.tenantRepo.FindByID(ctx, s.db, req.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, tenantdomain.ErrNotFound
	}

	customer, err := s.gateway.EnsureCustomer(ctx, tenant.Email, tenant.Name, map[string]string{
		"tenant_id": tenant.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, gateway.CheckoutParams{
		CustomerID: customer.ID,
		PriceID:    priceID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		Metadata: map[string]string{
			"tenant_id": tenant.ID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("checkout session created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("session_id", session.ID),
	)
	return &subscriptiondomain.CheckoutResult{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}

// Cancel requests cancellation at the provider and mirrors the outcome
// locally. Period-end cancellation keeps the row active with the flag
// set; the provider's deletion event finishes the transition.
func (s *service) Cancel(ctx context.Context, tenantID snowflake.ID, req subscriptiondomain.CancelRequest) (*subscriptiondomain.Subscription, error) {
	subscription, err := s.repo.FindActiveByTenant(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, subscriptiondomain.ErrSubscriptionNotFound
	}

	if _, err := s.gateway.CancelSubscription(ctx, subscription.ProviderSubID, !req.Immediate); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if req.Immediate {
		subscription.Status = subscriptiondomain.SubscriptionStatusCancelled
		subscription.EndDate = &now
	} else {
		subscription.CancelAtPeriodEnd = true
	}
	subscription.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, subscription); err != nil {
		return nil, err
	}

	s.log.Info("subscription cancelled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider_subscription_id", subscription.ProviderSubID),
		zap.Bool("immediate", req.Immediate),
	)
	return subscription, nil
}

// Resume clears a pending period-end cancellation.
func (s *service) Resume(ctx context.Context, tenantID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	subscription, err := s.repo.FindActiveByTenant(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, subscriptiondomain.ErrSubscriptionNotFound
	}
	if !subscription.CancelAtPeriodEnd {
		return nil, subscriptiondomain.ErrInvalidRequest
	}

	if _, err := s.gateway.ResumeSubscription(ctx, subscription.ProviderSubID); err != nil {
		return nil, err
	}

	subscription.CancelAtPeriodEnd = false
	subscription.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, subscription); err != nil {
		return nil, err
	}

	s.log.Info("subscription resumed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider_subscription_id", subscription.ProviderSubID),
	)
	return subscription, nil
}

func (s *service) GetForTenant(ctx context.Context, tenantID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	subscription, err := s.repo.FindActiveByTenant(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, subscriptiondomain.ErrSubscriptionNotFound
	}
	return subscription, nil
}

func (s *service) ListPayments(ctx context.Context, tenantID snowflake.ID, limit int) ([]subscriptiondomain.Payment, error) {
	return s.repo.ListPaymentsByTenant(ctx, s.db, tenantID, limit)
}
