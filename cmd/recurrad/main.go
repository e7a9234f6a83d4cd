package main

import (
	"context"
	"flag"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/recurra/billing/internal/account"
	"github.com/recurra/billing/internal/clock"
	"github.com/recurra/billing/internal/config"
	"github.com/recurra/billing/internal/gateway/authorizenet"
	"github.com/recurra/billing/internal/invoice"
	"github.com/recurra/billing/internal/migration"
	"github.com/recurra/billing/internal/observability"
	"github.com/recurra/billing/internal/plan"
	"github.com/recurra/billing/internal/scheduler"
	"github.com/recurra/billing/internal/subscription"
	"github.com/recurra/billing/pkg/db"
	"go.uber.org/fx"
)

func main() {
	once := flag.Bool("once", false, "run a single reconciliation sweep and exit")
	flag.Parse()

	if *once {
		os.Exit(runOnce())
	}

	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		plan.Module,
		authorizenet.Module,

		// Functional Domains
		account.Module,
		subscription.Module,
		invoice.Module,
		scheduler.Module,

		fx.Invoke(observability.RegisterInstrumentation),
	)
	app.Run()
}

// runOnce builds the app without the recurring scheduler loop, performs one
// sweep and reports its outcome through the exit status.
func runOnce() int {
	var sched *scheduler.Scheduler

	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		plan.Module,
		authorizenet.Module,

		account.Module,
		subscription.Module,
		invoice.Module,

		fx.Provide(scheduler.ProvideConfig),
		fx.Provide(scheduler.New),
		fx.Populate(&sched),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return 1
	}

	sweepErr := sched.RunOnce(context.Background())

	stopCtx, cancelStop := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		return 1
	}
	if sweepErr != nil {
		return 1
	}
	return 0
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
