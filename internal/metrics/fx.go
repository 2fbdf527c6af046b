package metrics

import "go.uber.org/fx"

// Module provides the prometheus instruments.
var Module = fx.Module("metrics",
	fx.Provide(New),
)
