package inquiry

import (
	"github.com/renolink/renolink/internal/inquiry/repository"
	"github.com/renolink/renolink/internal/inquiry/service"
	"go.uber.org/fx"
)

var Module = fx.Module("inquiry.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.Provide),
)
