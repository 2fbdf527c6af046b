package content

import (
	contentdomain "github.com/renolink/renolink/internal/content/domain"
	"github.com/renolink/renolink/internal/content/instagram"
	"github.com/renolink/renolink/internal/content/repository"
	"github.com/renolink/renolink/internal/content/service"
	"go.uber.org/fx"
)

var Module = fx.Module("content.service",
	fx.Provide(repository.Provide),
	fx.Provide(
		fx.Annotate(instagram.NewClient, fx.As(new(contentdomain.Fetcher))),
	),
	fx.Provide(service.Provide),
)
