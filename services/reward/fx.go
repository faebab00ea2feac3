package reward

import (
	"go.uber.org/fx"
)

var Module = fx.Module("reward.service",
	fx.Provide(
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
