// Package webhook verifies and dispatches provider webhook deliveries.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/renolink/renolink/internal/clock"
	"github.com/renolink/renolink/internal/config"
	"github.com/renolink/renolink/internal/metrics"
	"github.com/renolink/renolink/internal/payment/adapters"
	paymentdomain "github.com/renolink/renolink/internal/payment/domain"
	paymentservice "github.com/renolink/renolink/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Reconciler *paymentservice.Service
	Adapters   *adapters.Registry
	Clock      clock.Clock
	Cfg        config.Config
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	reconciler *paymentservice.Service
	adapters   *adapters.Registry
	clock      clock.Clock
	cfg        config.Config
	metrics    *metrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		reconciler: p.Reconciler,
		adapters:   p.Adapters,
		clock:      p.Clock,
		cfg:        p.Cfg,
		metrics:    p.Metrics,
	}
}

// IngestWebhook verifies the delivery against the raw body and hands
// the parsed event to the reconciler. Verification failures reject the
// delivery; events the platform does not react to are acknowledged
// without side effects, as are exact replays.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	if s.adapters == nil || !s.adapters.ProviderExists(provider) {
		return paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		s.count(provider, "", "rejected")
		return paymentdomain.ErrInvalidPayload
	}

	adapter, err := s.adapters.NewAdapter(provider, paymentdomain.AdapterConfig{
		Provider:      provider,
		WebhookSecret: s.cfg.Stripe.WebhookSecret,
		Tolerance:     s.cfg.Stripe.WebhookTolerance,
		Clock:         s.clock,
	})
	if err != nil {
		return err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.count(provider, "", "rejected")
		s.log.Warn("webhook signature rejected",
			zap.String("provider", provider),
			zap.Error(err),
		)
		return err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			s.count(provider, "", "ignored")
			return nil
		}
		s.count(provider, "", "rejected")
		return err
	}
	if event.RawPayload == nil {
		event.RawPayload = payload
	}

	if err := s.reconciler.ProcessEvent(ctx, event, payload); err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
			s.count(provider, event.Type, "duplicate")
			s.log.Info("duplicate webhook acknowledged",
				zap.String("provider", provider),
				zap.String("provider_event_id", event.ProviderEventID),
			)
			return nil
		}
		s.count(provider, event.Type, "error")
		return err
	}

	s.count(provider, event.Type, "processed")
	return nil
}

func (s *Service) count(provider string, eventType string, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.WebhookEvents.WithLabelValues(provider, eventType, outcome).Inc()
}
