package invoice

import "go.uber.org/fx"

var Module = fx.Module("invoice.computer",
	fx.Provide(NewComputer),
)
