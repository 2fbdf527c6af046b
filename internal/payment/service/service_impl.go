package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/renolink/renolink/internal/clock"
	paymentdomain "github.com/renolink/renolink/internal/payment/domain"
	subscriptiondomain "github.com/renolink/renolink/internal/subscription/domain"
	tenantdomain "github.com/renolink/renolink/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       paymentdomain.Repository
	SubRepo    subscriptiondomain.Repository
	TenantRepo tenantdomain.Repository
	Clock      clock.Clock
}

// Service reconciles provider billing events into local subscription
// and tenant state. All state transitions run inside one transaction
// per event so a partial failure leaves nothing half-applied.
type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       paymentdomain.Repository
	subRepo    subscriptiondomain.Repository
	tenantRepo tenantdomain.Repository
	clock      clock.Clock
}

func NewService(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		subRepo:    p.SubRepo,
		tenantRepo: p.TenantRepo,
		clock:      p.Clock,
	}
}

// ProcessEvent applies one canonical event. The dedupe record is
// written first; a replayed event that was already processed returns
// ErrEventAlreadyProcessed without touching any state.
func (s *Service) ProcessEvent(ctx context.Context, event *paymentdomain.SubscriptionEvent, payload []byte) error {
	if err := validateEvent(event); err != nil {
		return err
	}

	now := s.clock.Now()
	received := paymentdomain.EventRecord{
		ID:               s.genID.Generate(),
		Provider:         event.Provider,
		ProviderEventID:  event.ProviderEventID,
		EventType:        event.Type,
		ProviderObjectID: event.ProviderSubscriptionID,
		Payload:          datatypes.JSON(payload),
		ReceivedAt:       now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	switch event.Type {
	case paymentdomain.EventTypeSubscriptionCreated, paymentdomain.EventTypeSubscriptionUpdated:
		err = s.applySubscriptionState(ctx, event, false)
	case paymentdomain.EventTypeSubscriptionDeleted:
		err = s.applySubscriptionState(ctx, event, true)
	case paymentdomain.EventTypePaymentSucceeded:
		err = s.recordPayment(ctx, event, true)
	case paymentdomain.EventTypePaymentFailed:
		err = s.recordPayment(ctx, event, false)
	case paymentdomain.EventTypeCheckoutCompleted:
		// The subscription creation event carries the durable state;
		// the checkout completion is acknowledged and logged only.
		s.log.Info("checkout completed",
			zap.String("provider", event.Provider),
			zap.String("provider_subscription_id", event.ProviderSubscriptionID),
			zap.String("tenant_id", event.TenantID.String()),
		)
	default:
		err = paymentdomain.ErrInvalidEvent
	}
	if err != nil {
		return err
	}

	return s.repo.MarkProcessed(ctx, s.db, stored.ID, s.clock.Now())
}

func validateEvent(event *paymentdomain.SubscriptionEvent) error {
	if event == nil {
		return paymentdomain.ErrInvalidEvent
	}
	event.Provider = strings.ToLower(strings.TrimSpace(event.Provider))
	if event.Provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	event.ProviderEventID = strings.TrimSpace(event.ProviderEventID)
	if event.ProviderEventID == "" {
		return paymentdomain.ErrInvalidEvent
	}
	if strings.TrimSpace(event.Type) == "" {
		return paymentdomain.ErrInvalidEvent
	}
	if event.OccurredAt.IsZero() {
		return paymentdomain.ErrInvalidEvent
	}
	return nil
}

// mapProviderStatus folds the provider's subscription lifecycle into
// the local three-state model. A past-due subscription keeps access
// until the provider gives up and cancels it.
func mapProviderStatus(status string) subscriptiondomain.SubscriptionStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing", "past_due":
		return subscriptiondomain.SubscriptionStatusActive
	case "canceled", "cancelled", "unpaid", "incomplete_expired":
		return subscriptiondomain.SubscriptionStatusCancelled
	default:
		return subscriptiondomain.SubscriptionStatusPending
	}
}

func (s *Service) applySubscriptionState(ctx context.Context, event *paymentdomain.SubscriptionEvent, deleted bool) error {
	target := mapProviderStatus(event.ProviderStatus)
	if deleted {
		target = subscriptiondomain.SubscriptionStatusCancelled
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		subscription, err := s.subRepo.FindByProviderSubID(ctx, tx, event.ProviderSubscriptionID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if subscription == nil {
			subscription, err = s.createFromEvent(ctx, tx, event, target, now)
			if err != nil || subscription == nil {
				return err
			}
		} else {
			if subscription.Status == subscriptiondomain.SubscriptionStatusCancelled {
				// Cancelled is terminal. A late or out-of-order event
				// cannot revive the row.
				s.log.Warn("ignoring event for cancelled subscription",
					zap.String("provider_subscription_id", event.ProviderSubscriptionID),
					zap.String("event_type", event.Type),
				)
				return nil
			}
			subscription.Status = target
			subscription.CancelAtPeriodEnd = event.CancelAtPeriodEnd
			if event.CurrentPeriodStart != nil {
				subscription.CurrentPeriodStart = event.CurrentPeriodStart
			}
			if event.CurrentPeriodEnd != nil {
				subscription.CurrentPeriodEnd = event.CurrentPeriodEnd
			}
			if event.ProviderCustomerID != "" {
				subscription.ProviderCustomerID = event.ProviderCustomerID
			}
			if event.PriceID != "" {
				subscription.Plan = event.PriceID
			}
			if event.Amount > 0 {
				subscription.Price = event.Amount
			}
			if event.Currency != "" {
				subscription.Currency = event.Currency
			}
			if target == subscriptiondomain.SubscriptionStatusCancelled {
				subscription.EndDate = &now
			}
			subscription.UpdatedAt = now
			if err := s.subRepo.Update(ctx, tx, subscription); err != nil {
				return err
			}
		}

		return s.cascadeTenantStatus(ctx, tx, subscription, target)
	})
}

// createFromEvent materializes a subscription first seen through a
// webhook. The tenant is resolved from the metadata stamped at
// checkout; an event with no resolvable tenant is logged and dropped.
func (s *Service) createFromEvent(
	ctx context.Context,
	tx *gorm.DB,
	event *paymentdomain.SubscriptionEvent,
	target subscriptiondomain.SubscriptionStatus,
	now time.Time,
) (*subscriptiondomain.Subscription, error) {
	if event.TenantID == 0 {
		s.log.Warn("subscription event without tenant mapping",
			zap.String("provider_subscription_id", event.ProviderSubscriptionID),
			zap.String("provider_customer_id", event.ProviderCustomerID),
		)
		return nil, nil
	}
	tenant, err := s.tenantRepo.FindByID(ctx, tx, event.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		s.log.Warn("subscription event for unknown tenant",
			zap.String("tenant_id", event.TenantID.String()),
			zap.String("provider_subscription_id", event.ProviderSubscriptionID),
		)
		return nil, nil
	}

	subscription := &subscriptiondomain.Subscription{
		ID:                 s.genID.Generate(),
		TenantID:           tenant.ID,
		Plan:               event.PriceID,
		Price:              event.Amount,
		Currency:           event.Currency,
		Status:             target,
		StartDate:          event.OccurredAt,
		CurrentPeriodStart: event.CurrentPeriodStart,
		CurrentPeriodEnd:   event.CurrentPeriodEnd,
		CancelAtPeriodEnd:  event.CancelAtPeriodEnd,
		ProviderSubID:      event.ProviderSubscriptionID,
		ProviderCustomerID: event.ProviderCustomerID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if target == subscriptiondomain.SubscriptionStatusCancelled {
		subscription.EndDate = &now
	}
	if err := s.subRepo.Insert(ctx, tx, subscription); err != nil {
		return nil, err
	}
	s.log.Info("subscription created from event",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("provider_subscription_id", subscription.ProviderSubID),
		zap.String("status", string(target)),
	)
	return subscription, nil
}

// cascadeTenantStatus keeps the tenant's directory state in step with
// its subscription. Activation also cancels any other row still marked
// active so a tenant never carries two live subscriptions.
func (s *Service) cascadeTenantStatus(
	ctx context.Context,
	tx *gorm.DB,
	subscription *subscriptiondomain.Subscription,
	target subscriptiondomain.SubscriptionStatus,
) error {
	switch target {
	case subscriptiondomain.SubscriptionStatusActive:
		if err := s.subRepo.CancelOtherActive(ctx, tx, subscription.TenantID, subscription.ID); err != nil {
			return err
		}
		return s.tenantRepo.UpdateStatus(ctx, tx, subscription.TenantID, tenantdomain.StatusActive)
	case subscriptiondomain.SubscriptionStatusCancelled:
		remaining, err := s.subRepo.FindActiveByTenant(ctx, tx, subscription.TenantID)
		if err != nil {
			return err
		}
		if remaining == nil {
			return s.tenantRepo.UpdateStatus(ctx, tx, subscription.TenantID, tenantdomain.StatusInactive)
		}
		return nil
	default:
		return nil
	}
}

func (s *Service) recordPayment(ctx context.Context, event *paymentdomain.SubscriptionEvent, succeeded bool) error {
	if strings.TrimSpace(event.ProviderInvoiceID) == "" {
		return paymentdomain.ErrInvalidEvent
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		subscription, err := s.subRepo.FindByProviderSubID(ctx, tx, event.ProviderSubscriptionID)
		if err != nil {
			return err
		}

		tenantID := event.TenantID
		var subscriptionID *snowflake.ID
		if subscription != nil {
			tenantID = subscription.TenantID
			subscriptionID = &subscription.ID
		}
		if tenantID == 0 {
			s.log.Warn("payment event without tenant mapping",
				zap.String("provider_invoice_id", event.ProviderInvoiceID),
				zap.String("provider_subscription_id", event.ProviderSubscriptionID),
			)
			return nil
		}

		now := s.clock.Now()
		status := subscriptiondomain.PaymentStatusFailed
		var paidAt *time.Time
		if succeeded {
			status = subscriptiondomain.PaymentStatusSucceeded
			occurred := event.OccurredAt
			paidAt = &occurred
		}

		inserted, err := s.subRepo.InsertPayment(ctx, tx, &subscriptiondomain.Payment{
			ID:                s.genID.Generate(),
			TenantID:          tenantID,
			SubscriptionID:    subscriptionID,
			Amount:            event.Amount,
			Currency:          event.Currency,
			Status:            status,
			ProviderInvoiceID: event.ProviderInvoiceID,
			ProviderIntentID:  event.ProviderIntentID,
			PaidAt:            paidAt,
			CreatedAt:         now,
		})
		if err != nil {
			return err
		}
		if !inserted {
			s.log.Info("duplicate payment ledger row dropped",
				zap.String("provider_invoice_id", event.ProviderInvoiceID),
			)
		}

		if !succeeded {
			s.log.Warn("payment failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("provider_invoice_id", event.ProviderInvoiceID),
				zap.Int64("amount", event.Amount),
			)
			return nil
		}

		// A successful charge confirms the subscription. The pending
		// placeholder from an incomplete signup becomes active here if
		// the creation event has not arrived yet.
		if subscription != nil && subscription.Status == subscriptiondomain.SubscriptionStatusPending {
			subscription.Status = subscriptiondomain.SubscriptionStatusActive
			subscription.UpdatedAt = now
			if err := s.subRepo.Update(ctx, tx, subscription); err != nil {
				return err
			}
		}
		if subscription != nil && subscription.Status == subscriptiondomain.SubscriptionStatusActive {
			if err := s.subRepo.CancelOtherActive(ctx, tx, tenantID, subscription.ID); err != nil {
				return err
			}
			if err := s.tenantRepo.UpdateStatus(ctx, tx, tenantID, tenantdomain.StatusActive); err != nil {
				return err
			}
		}
		return nil
	})
}
