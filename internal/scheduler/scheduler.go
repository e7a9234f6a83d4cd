// Package scheduler runs the reconciliation sweep that keeps local
// subscription rows in line with the gateway. The gateway is the source of
// truth for terminal states reached out of band (payment suspension, merchant
// console cancellation, natural expiry); the sweep closes those rows locally.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/recurra/billing/internal/clock"
	"github.com/recurra/billing/internal/gateway"
	obsmetrics "github.com/recurra/billing/internal/observability/metrics"
	subscriptiondomain "github.com/recurra/billing/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// terminalStatuses are the gateway-reported statuses that end a subscription.
var terminalStatuses = map[string]struct{}{
	"expired":    {},
	"suspended":  {},
	"cancelled":  {},
	"canceled":   {},
	"terminated": {},
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    subscriptiondomain.Repository
	Gateway gateway.Client
	Config  Config `optional:"true"`
}

type Scheduler struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     Config
	clock   clock.Clock
	repo    subscriptiondomain.Repository
	gateway gateway.Client
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Repo == nil || p.Gateway == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:      p.DB,
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		clock:   p.Clock,
		repo:    p.Repo,
		gateway: p.Gateway,
	}, nil
}

// RunOnce executes a single reconciliation sweep over every open
// subscription. Item failures are recorded and skipped; the sweep itself only
// fails when the subscription list cannot be loaded.
func (s *Scheduler) RunOnce(parent context.Context) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.SweepTimeout)
	defer cancel()

	metrics := obsmetrics.Reconcile()
	metrics.IncSweepRun()
	defer func() {
		metrics.ObserveSweepDuration(time.Since(start))
	}()

	subs, err := s.repo.ListOpen(ctx, s.db)
	if err != nil {
		s.log.Error("loading open subscriptions failed", zap.Error(err))
		return err
	}

	var closed, unchanged, failed int
	for _, sub := range subs {
		switch err := s.reconcile(ctx, sub); {
		case err == nil:
			closed++
			metrics.IncSubscription("closed")
		case errors.Is(err, errUnchanged):
			unchanged++
			metrics.IncSubscription("unchanged")
		default:
			failed++
			metrics.IncSubscription("error")
			s.log.Error("subscription reconciliation failed",
				zap.String("subscription_id", sub.ID.String()),
				zap.String("gateway_id", sub.GatewayID),
				zap.Error(err),
			)
		}
	}

	s.log.Info("reconciliation sweep finished",
		zap.Int("total", len(subs)),
		zap.Int("closed", closed),
		zap.Int("unchanged", unchanged),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// errUnchanged marks an item the sweep inspected and left alone.
var errUnchanged = errors.New("unchanged")

func (s *Scheduler) reconcile(ctx context.Context, sub subscriptiondomain.Subscription) error {
	if sub.GatewayID == "" {
		return errUnchanged
	}

	status, err := s.gateway.GetSubscriptionStatus(ctx, sub.GatewayID)
	if err != nil {
		return err
	}
	if _, terminal := terminalStatuses[status.Status]; !terminal {
		return errUnchanged
	}
	// ListOpen only returns rows without a local cancellation mark, but the
	// status fetch takes time; never overwrite a mark set meanwhile.
	if sub.EndsAt != nil {
		return errUnchanged
	}

	now := s.clock.Now()
	sub.EndsAt = &now
	sub.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, &sub); err != nil {
		return err
	}

	s.log.Info("subscription closed by reconciliation",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("gateway_id", sub.GatewayID),
		zap.String("gateway_status", status.Status),
	)
	return nil
}

// RunForever sweeps on the configured interval until the context is
// cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("reconciliation sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
