package tenant

import (
	"github.com/renolink/renolink/internal/tenant/repository"
	"github.com/renolink/renolink/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
