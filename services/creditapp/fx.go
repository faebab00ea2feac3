package creditapp

import (
	"go.uber.org/fx"
)

var Module = fx.Module("creditapp.service",
	fx.Provide(
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
