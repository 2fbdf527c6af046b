package payment

import (
	"github.com/renolink/renolink/internal/payment/adapters"
	"github.com/renolink/renolink/internal/payment/adapters/stripe"
	"github.com/renolink/renolink/internal/payment/repository"
	paymentservice "github.com/renolink/renolink/internal/payment/service"
	"github.com/renolink/renolink/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			stripe.NewFactory(),
		)
	}),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)
