package config

import (
	"github.com/recurra/billing/internal/gateway"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(
		Load,
		func(cfg Config) gateway.Config { return cfg.GatewayConfig() },
	),
)
