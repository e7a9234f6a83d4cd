package migration

import (
	accountdomain "github.com/recurra/billing/internal/account/domain"
	"github.com/recurra/billing/internal/config"
	subscriptiondomain "github.com/recurra/billing/internal/subscription/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned migrations run on postgres only; the other dialects
		// fall back to schema sync, which is what they are used for
		// (mysql side deployments, sqlite development).
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&accountdomain.Account{},
				&subscriptiondomain.Subscription{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
