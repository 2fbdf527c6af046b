package subscription

import (
	"github.com/renolink/renolink/internal/subscription/repository"
	"github.com/renolink/renolink/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.Provide),
)
