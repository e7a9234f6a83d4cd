package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/recurra/billing/internal/account/domain"
	"github.com/recurra/billing/internal/billingcycle"
	"github.com/recurra/billing/internal/clock"
	"github.com/recurra/billing/internal/gateway"
	"github.com/recurra/billing/internal/plan"
	subscriptiondomain "github.com/recurra/billing/internal/subscription/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	clock    clock.Clock
	repo     subscriptiondomain.Repository
	accounts accountdomain.Service
	gateway  gateway.Client
	catalog  *plan.Catalog
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     subscriptiondomain.Repository
	Accounts accountdomain.Service
	Gateway  gateway.Client
	Catalog  *plan.Catalog
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		accounts: p.Accounts,
		gateway:  p.Gateway,
		catalog:  p.Catalog,
	}
}

func (s *Service) Create(ctx context.Context, req subscriptiondomain.CreateSubscriptionRequest) (subscriptiondomain.Subscription, error) {
	pl, err := s.catalog.Get(req.PlanCode)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = subscriptiondomain.DefaultName
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidQuantity
	}

	account, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if !account.Registered() {
		return subscriptiondomain.Subscription{}, accountdomain.ErrNotRegistered
	}

	trialDays := pl.TrialDays
	if req.TrialDays != nil {
		trialDays = *req.TrialDays
	}
	if trialDays < 0 {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidSubscription
	}

	now := s.clock.Now()
	taxPercent := s.taxPercent(account)
	// The gateway bills the plain tax-inclusive plan amount; quantity is
	// stored on the row but never scaled into the registered amount.
	amount := plan.AmountWithTax(pl.Amount, taxPercent)
	trialAmount := plan.AmountWithTax(pl.TrialAmount, taxPercent)

	gatewayID, err := s.gateway.CreateSubscription(ctx, gateway.SubscriptionSpec{
		PlanName:          pl.Name,
		Interval:          pl.Interval,
		StartDate:         billingcycle.ScheduleStart(now, trialDays),
		TotalOccurrences:  pl.TotalOccurrences,
		TrialOccurrences:  pl.TrialOccurrences,
		Amount:            amount,
		TrialAmount:       trialAmount,
		CustomerProfileID: account.GatewayCustomerID,
		PaymentProfileID:  account.GatewayPaymentID,
	})
	if err != nil {
		s.log.Error("gateway subscription creation failed",
			zap.String("account_id", account.ID.String()),
			zap.String("plan_code", pl.Code),
			zap.Error(err),
		)
		return subscriptiondomain.Subscription{}, err
	}

	// SkipTrial affects only the local record: the gateway keeps the
	// configured trial schedule, the subscription just never reports
	// itself as trialing.
	var trialEndsAt *time.Time
	if !req.SkipTrial && trialDays > 0 {
		t := now.AddDate(0, 0, trialDays)
		trialEndsAt = &t
	}

	sub := subscriptiondomain.Subscription{
		ID:               s.genID.Generate(),
		AccountID:        account.ID,
		Name:             name,
		PlanCode:         pl.Code,
		GatewayID:        gatewayID,
		GatewayPaymentID: account.GatewayPaymentID,
		Quantity:         quantity,
		Metadata:         s.metadata(req),
		TrialEndsAt:      trialEndsAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, s.db, &sub); err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	return sub, nil
}

// Cancel marks the end of the current billing period. The grace period runs
// until the next anchored billing date, or until trial end when the
// subscription is still trialing. The local row is untouched when the gateway
// refuses the cancellation.
func (s *Service) Cancel(ctx context.Context, subscriptionID string) (subscriptiondomain.Subscription, error) {
	sub, err := s.find(ctx, subscriptionID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if sub.Cancelled() {
		return *sub, nil
	}

	endsAt, err := s.cancelAtGateway(ctx, sub)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	sub.EndsAt = &endsAt
	sub.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, sub); err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	return *sub, nil
}

// CancelNow cancels at the gateway and zeroes the grace period locally. The
// gateway sees exactly one cancellation call.
func (s *Service) CancelNow(ctx context.Context, subscriptionID string) (subscriptiondomain.Subscription, error) {
	sub, err := s.find(ctx, subscriptionID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	if !sub.Cancelled() {
		if _, err := s.cancelAtGateway(ctx, sub); err != nil {
			return subscriptiondomain.Subscription{}, err
		}
	}

	now := s.clock.Now()
	sub.EndsAt = &now
	sub.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, sub); err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	return *sub, nil
}

// cancelAtGateway performs the gateway cancellation and returns the instant
// the local grace period should end.
func (s *Service) cancelAtGateway(ctx context.Context, sub *subscriptiondomain.Subscription) (time.Time, error) {
	if sub.GatewayID == "" {
		return time.Time{}, subscriptiondomain.ErrInvalidState
	}
	pl, err := s.catalog.Get(sub.PlanCode)
	if err != nil {
		return time.Time{}, err
	}

	if err := s.gateway.CancelSubscription(ctx, sub.GatewayID); err != nil {
		s.log.Error("gateway subscription cancellation failed",
			zap.String("subscription_id", sub.ID.String()),
			zap.String("gateway_id", sub.GatewayID),
			zap.Error(err),
		)
		return time.Time{}, err
	}

	now := s.clock.Now()
	if sub.OnTrial(now) {
		return *sub.TrialEndsAt, nil
	}
	anchorDay := sub.CreatedAt.In(billingcycle.ReferenceLocation()).Day()
	return billingcycle.CancellationBoundary(anchorDay, now, pl.BillingDays()), nil
}

func (s *Service) GetByID(ctx context.Context, subscriptionID string) (subscriptiondomain.Subscription, error) {
	sub, err := s.find(ctx, subscriptionID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	return *sub, nil
}

func (s *Service) GetByName(ctx context.Context, accountID, name string) (subscriptiondomain.Subscription, error) {
	id, err := parseID(accountID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if strings.TrimSpace(name) == "" {
		name = subscriptiondomain.DefaultName
	}
	sub, err := s.repo.FindLatestByName(ctx, s.db, id, name)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if sub == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	return *sub, nil
}

func (s *Service) Subscribed(ctx context.Context, accountID, name, planCode string) (bool, error) {
	sub, err := s.GetByName(ctx, accountID, name)
	if err != nil {
		if err == subscriptiondomain.ErrSubscriptionNotFound {
			return false, nil
		}
		return false, err
	}
	if !sub.Valid(s.clock.Now()) {
		return false, nil
	}
	if planCode != "" && sub.PlanCode != planCode {
		return false, nil
	}
	return true, nil
}

func (s *Service) OnPlan(ctx context.Context, accountID, planCode string) (bool, error) {
	id, err := parseID(accountID)
	if err != nil {
		return false, err
	}
	subs, err := s.repo.ListByPlan(ctx, s.db, id, planCode)
	if err != nil {
		return false, err
	}
	now := s.clock.Now()
	for _, sub := range subs {
		if sub.Valid(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) find(ctx context.Context, rawID string) (*subscriptiondomain.Subscription, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, subscriptiondomain.ErrSubscriptionNotFound
	}
	return sub, nil
}

func parseID(rawID string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil {
		return 0, subscriptiondomain.ErrInvalidSubscription
	}
	return id, nil
}

func (s *Service) taxPercent(account accountdomain.Account) decimal.Decimal {
	if account.TaxPercent.IsPositive() {
		return account.TaxPercent
	}
	return s.catalog.DefaultTaxPercent()
}

func (s *Service) metadata(req subscriptiondomain.CreateSubscriptionRequest) datatypes.JSONMap {
	meta := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	if req.Coupon != "" {
		meta["coupon"] = req.Coupon
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
