// Package observability wires logging and metrics for the application.
package observability

import (
	"github.com/recurra/billing/internal/config"
	"github.com/recurra/billing/internal/observability/logger"
	"github.com/recurra/billing/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(
		provideLoggerConfig,
		logger.New,
	),
)

// RegisterInstrumentation starts the prometheus scrape endpoint. The one-shot
// sweep mode skips it.
func RegisterInstrumentation(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) {
	metrics.StartServer(lc, cfg.MetricsAddr, log.Named("metrics"))
}

func provideLoggerConfig(cfg config.Config) logger.Config {
	return logger.Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
		Version:     cfg.AppVersion,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	}
}
