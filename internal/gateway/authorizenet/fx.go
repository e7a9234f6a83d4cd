package authorizenet

import (
	"github.com/recurra/billing/internal/gateway"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("gateway.authorizenet",
	fx.Provide(func(cfg gateway.Config, log *zap.Logger) (gateway.Client, error) {
		return New(cfg, log)
	}),
)
