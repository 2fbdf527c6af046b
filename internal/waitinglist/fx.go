package waitinglist

import (
	"github.com/renolink/renolink/internal/waitinglist/repository"
	"github.com/renolink/renolink/internal/waitinglist/service"
	"go.uber.org/fx"
)

var Module = fx.Module("waitinglist.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
