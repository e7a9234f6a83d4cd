package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/recurra/billing/internal/account/domain"
	"github.com/recurra/billing/internal/billingcycle"
	"github.com/recurra/billing/internal/clock"
	"github.com/recurra/billing/internal/gateway"
	"github.com/recurra/billing/internal/plan"
	subscriptiondomain "github.com/recurra/billing/internal/subscription/domain"
	"github.com/recurra/billing/internal/subscription/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manual Mocks

type accountsStub struct {
	account accountdomain.Account
	err     error
}

func (s *accountsStub) Create(ctx context.Context, req accountdomain.CreateAccountRequest) (accountdomain.Account, error) {
	return s.account, s.err
}
func (s *accountsStub) GetByID(ctx context.Context, id string) (accountdomain.Account, error) {
	return s.account, s.err
}
func (s *accountsStub) Register(ctx context.Context, req accountdomain.RegisterRequest) (accountdomain.Account, error) {
	return s.account, s.err
}
func (s *accountsStub) UpdateCard(ctx context.Context, req accountdomain.UpdateCardRequest) (accountdomain.Account, error) {
	return s.account, s.err
}
func (s *accountsStub) DeleteProfile(ctx context.Context, accountID string) error {
	return s.err
}
func (s *accountsStub) Charge(ctx context.Context, req accountdomain.ChargeRequest) (gateway.ChargeResult, error) {
	return gateway.ChargeResult{}, s.err
}
func (s *accountsStub) FindTransaction(ctx context.Context, transactionID string) (gateway.TransactionDetails, error) {
	return gateway.TransactionDetails{}, s.err
}

type gatewayStub struct {
	mu sync.Mutex

	createErr error
	cancelErr error

	createdSpecs []gateway.SubscriptionSpec
	cancelled    []string
	status       gateway.SubscriptionStatus
	statusErr    error
}

func (g *gatewayStub) CreateCustomerProfile(ctx context.Context, profile gateway.CustomerProfile) (gateway.ProfileResult, error) {
	return gateway.ProfileResult{}, nil
}
func (g *gatewayStub) UpdateCustomerPaymentProfile(ctx context.Context, customerProfileID, paymentProfileID string, card gateway.Card, billTo gateway.Address) error {
	return nil
}
func (g *gatewayStub) DeleteCustomerProfile(ctx context.Context, customerProfileID string) error {
	return nil
}
func (g *gatewayStub) Charge(ctx context.Context, req gateway.ChargeRequest) (gateway.ChargeResult, error) {
	return gateway.ChargeResult{}, nil
}
func (g *gatewayStub) CreateSubscription(ctx context.Context, spec gateway.SubscriptionSpec) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	g.createdSpecs = append(g.createdSpecs, spec)
	return "arb-1001", nil
}
func (g *gatewayStub) CancelSubscription(ctx context.Context, subscriptionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelErr != nil {
		return g.cancelErr
	}
	g.cancelled = append(g.cancelled, subscriptionID)
	return nil
}
func (g *gatewayStub) GetSubscriptionStatus(ctx context.Context, subscriptionID string) (gateway.SubscriptionStatus, error) {
	return g.status, g.statusErr
}
func (g *gatewayStub) GetTransactionDetails(ctx context.Context, transactionID string) (gateway.TransactionDetails, error) {
	return gateway.TransactionDetails{}, nil
}

func (g *gatewayStub) cancelCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.cancelled)
}

type fixture struct {
	svc     subscriptiondomain.Service
	db      *gorm.DB
	clock   *clock.FakeClock
	gateway *gatewayStub
	account accountdomain.Account
}

func testCatalog(t *testing.T) *plan.Catalog {
	t.Helper()
	catalog, err := plan.NewCatalog([]plan.Plan{
		{
			Code: "monthly-basic",
			Name: "Monthly Basic",
			Interval: billingcycle.Interval{
				Unit:   billingcycle.UnitMonths,
				Length: 1,
			},
			TotalOccurrences: plan.UnboundedOccurrences,
			TrialOccurrences: 1,
			Amount:           decimal.RequireFromString("9.99"),
			TrialAmount:      decimal.Zero,
			TrialDays:        14,
		},
		{
			Code: "weekly-pro",
			Name: "Weekly Pro",
			Interval: billingcycle.Interval{
				Unit:   billingcycle.UnitWeeks,
				Length: 2,
			},
			TotalOccurrences: plan.UnboundedOccurrences,
			Amount:           decimal.RequireFromString("4.50"),
		},
	}, "USD", decimal.RequireFromString("8"))
	require.NoError(t, err)
	return catalog
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&subscriptiondomain.Subscription{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(now)
	gw := &gatewayStub{}
	account := accountdomain.Account{
		ID:                node.Generate(),
		Name:              "Ada Lovelace",
		Email:             "ada@example.com",
		GatewayCustomerID: "cp-1",
		GatewayPaymentID:  "pp-1",
	}

	svc := NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Repo:     repository.Provide(),
		Accounts: &accountsStub{account: account},
		Gateway:  gw,
		Catalog:  testCatalog(t),
	})

	return &fixture{svc: svc, db: db, clock: fake, gateway: gw, account: account}
}

func TestCreateSubscription(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("creates with plan trial", func(t *testing.T) {
		f := newFixture(t, now)

		sub, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
			AccountID: f.account.ID.String(),
			PlanCode:  "monthly-basic",
		})
		require.NoError(t, err)
		require.Equal(t, subscriptiondomain.DefaultName, sub.Name)
		require.Equal(t, "arb-1001", sub.GatewayID)
		require.Equal(t, 1, sub.Quantity)
		require.NotNil(t, sub.TrialEndsAt)
		require.Equal(t, now.AddDate(0, 0, 14), sub.TrialEndsAt.UTC())
		require.True(t, sub.OnTrial(now))
		require.Equal(t, subscriptiondomain.StateTrialing, sub.StateAt(now))

		require.Len(t, f.gateway.createdSpecs, 1)
		spec := f.gateway.createdSpecs[0]
		require.Equal(t, "cp-1", spec.CustomerProfileID)
		require.Equal(t, "pp-1", spec.PaymentProfileID)
		require.Equal(t, 1, spec.TrialOccurrences)
		// 9.99 plus the 8% catalog default, rounded half up.
		require.True(t, spec.Amount.Equal(decimal.RequireFromString("10.79")), spec.Amount.String())
		require.Equal(t, now.In(billingcycle.ReferenceLocation()).AddDate(0, 0, 14), spec.StartDate)

		// Row survives a round trip through the repository.
		got, err := f.svc.GetByID(ctx, sub.ID.String())
		require.NoError(t, err)
		require.Equal(t, sub.GatewayID, got.GatewayID)
		require.Equal(t, "monthly-basic", got.PlanCode)
	})

	t.Run("skip trial is local only", func(t *testing.T) {
		f := newFixture(t, now)

		sub, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
			AccountID: f.account.ID.String(),
			PlanCode:  "monthly-basic",
			SkipTrial: true,
		})
		require.NoError(t, err)
		require.Nil(t, sub.TrialEndsAt)
		require.False(t, sub.OnTrial(now))
		require.Equal(t, subscriptiondomain.StateActive, sub.StateAt(now))

		// The gateway keeps the plan's configured trial schedule.
		spec := f.gateway.createdSpecs[0]
		require.Equal(t, 1, spec.TrialOccurrences)
		require.Equal(t, now.In(billingcycle.ReferenceLocation()).AddDate(0, 0, 14), spec.StartDate)
	})

	t.Run("quantity stored but never scales the amount", func(t *testing.T) {
		f := newFixture(t, now)

		sub, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
			AccountID: f.account.ID.String(),
			PlanCode:  "monthly-basic",
			Quantity:  3,
		})
		require.NoError(t, err)
		require.Equal(t, 3, sub.Quantity)
		// The gateway bills the plain plan amount, 9.99 plus 8% tax.
		spec := f.gateway.createdSpecs[0]
		require.True(t, spec.Amount.Equal(decimal.RequireFromString("10.79")), spec.Amount.String())
	})

	t.Run("coupon recorded in metadata", func(t *testing.T) {
		f := newFixture(t, now)

		sub, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
			AccountID: f.account.ID.String(),
			PlanCode:  "monthly-basic",
			Coupon:    "WELCOME10",
		})
		require.NoError(t, err)
		require.Equal(t, "WELCOME10", sub.Metadata["coupon"])
	})

	t.Run("unknown plan", func(t *testing.T) {
		f := newFixture(t, now)

		_, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
			AccountID: f.account.ID.String(),
			PlanCode:  "no-such-plan",
		})
		require.ErrorIs(t, err, plan.ErrUnknownPlan)
		require.Empty(t, f.gateway.createdSpecs)
	})

	t.Run("unregistered account", func(t *testing.T) {
		f := newFixture(t, now)
		f.svc.(*Service).accounts = &accountsStub{account: accountdomain.Account{ID: f.account.ID}}

		_, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
			AccountID: f.account.ID.String(),
			PlanCode:  "monthly-basic",
		})
		require.ErrorIs(t, err, accountdomain.ErrNotRegistered)
		require.Empty(t, f.gateway.createdSpecs)
	})

	t.Run("gateway rejection persists nothing", func(t *testing.T) {
		f := newFixture(t, now)
		f.gateway.createErr = &gateway.RejectionError{Code: "E00027", Message: "The transaction was unsuccessful."}

		_, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
			AccountID: f.account.ID.String(),
			PlanCode:  "monthly-basic",
		})
		rejection, ok := gateway.AsRejection(err)
		require.True(t, ok)
		require.Equal(t, "E00027", rejection.Code)

		var count int64
		require.NoError(t, f.db.Model(&subscriptiondomain.Subscription{}).Count(&count).Error)
		require.Zero(t, count)
	})
}

func TestCancelSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel during trial ends at trial end", func(t *testing.T) {
		now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		f := newFixture(t, now)

		sub, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
			AccountID: f.account.ID.String(),
			PlanCode:  "monthly-basic",
		})
		require.NoError(t, err)

		f.clock.Advance(3 * 24 * time.Hour)
		cancelled, err := f.svc.Cancel(ctx, sub.ID.String())
		require.NoError(t, err)
		require.NotNil(t, cancelled.EndsAt)
		require.True(t, cancelled.EndsAt.Equal(*sub.TrialEndsAt), cancelled.EndsAt.String())
		require.Equal(t, []string{"arb-1001"}, f.gateway.cancelled)

		// Still usable through the remaining trial window.
		require.True(t, cancelled.Valid(f.clock.Now()))
		require.False(t, cancelled.Valid(sub.TrialEndsAt.Add(time.Minute)))
	})

	t.Run("cancel after billing date grants a full period", func(t *testing.T) {
		now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
		f := newFixture(t, now)

		sub, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
			AccountID: f.account.ID.String(),
			PlanCode:  "monthly-basic",
			SkipTrial: true,
		})
		require.NoError(t, err)

		// Two months on; the anchored date this month has already passed.
		cancelAt := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
		f.clock.SetNow(cancelAt)

		cancelled, err := f.svc.Cancel(ctx, sub.ID.String())
		require.NoError(t, err)
		require.NotNil(t, cancelled.EndsAt)

		anchorDay := sub.CreatedAt.In(billingcycle.ReferenceLocation()).Day()
		want := billingcycle.CancellationBoundary(anchorDay, cancelAt, 31)
		require.Equal(t, want, *cancelled.EndsAt)
		require.True(t, cancelled.EndsAt.After(cancelAt))
		require.True(t, cancelled.OnGracePeriod(cancelAt))
	})

	t.Run("cancel before billing date ends at anchored date", func(t *testing.T) {
		now := time.Date(2024, 3, 25, 10, 0, 0, 0, time.UTC)
		f := newFixture(t, now)

		sub, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
			AccountID: f.account.ID.String(),
			PlanCode:  "monthly-basic",
			SkipTrial: true,
		})
		require.NoError(t, err)

		cancelAt := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
		f.clock.SetNow(cancelAt)

		cancelled, err := f.svc.Cancel(ctx, sub.ID.String())
		require.NoError(t, err)

		// Anchor day 25 has not occurred yet in May.
		want := time.Date(2024, 5, 25, 0, 0, 0, 0, billingcycle.ReferenceLocation())
		require.Equal(t, want, *cancelled.EndsAt)
	})

	t.Run("gateway failure leaves row untouched", func(t *testing.T) {
		now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		f := newFixture(t, now)

		sub, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
			AccountID: f.account.ID.String(),
			PlanCode:  "monthly-basic",
		})
		require.NoError(t, err)

		f.gateway.cancelErr = gateway.ErrUnavailable
		_, err = f.svc.Cancel(ctx, sub.ID.String())
		require.ErrorIs(t, err, gateway.ErrUnavailable)

		got, err := f.svc.GetByID(ctx, sub.ID.String())
		require.NoError(t, err)
		require.Nil(t, got.EndsAt)
	})

	t.Run("cancel is idempotent", func(t *testing.T) {
		now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		f := newFixture(t, now)

		sub, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
			AccountID: f.account.ID.String(),
			PlanCode:  "monthly-basic",
		})
		require.NoError(t, err)

		first, err := f.svc.Cancel(ctx, sub.ID.String())
		require.NoError(t, err)
		second, err := f.svc.Cancel(ctx, sub.ID.String())
		require.NoError(t, err)
		require.True(t, first.EndsAt.Equal(*second.EndsAt))
		require.Equal(t, 1, f.gateway.cancelCount())
	})

	t.Run("cancel now zeroes the grace period with one gateway call", func(t *testing.T) {
		now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		f := newFixture(t, now)

		sub, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
			AccountID: f.account.ID.String(),
			PlanCode:  "monthly-basic",
		})
		require.NoError(t, err)

		cancelled, err := f.svc.CancelNow(ctx, sub.ID.String())
		require.NoError(t, err)
		require.NotNil(t, cancelled.EndsAt)
		require.Equal(t, f.clock.Now(), cancelled.EndsAt.UTC())
		require.False(t, cancelled.Valid(f.clock.Now()))
		require.Equal(t, 1, f.gateway.cancelCount())
	})

	t.Run("not found", func(t *testing.T) {
		now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		f := newFixture(t, now)

		_, err := f.svc.Cancel(ctx, "1234567890123456789")
		require.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)
	})
}

func TestSubscriptionQueries(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	f := newFixture(t, now)

	sub, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
		AccountID: f.account.ID.String(),
		PlanCode:  "monthly-basic",
	})
	require.NoError(t, err)

	t.Run("get by name resolves default slot", func(t *testing.T) {
		got, err := f.svc.GetByName(ctx, f.account.ID.String(), "")
		require.NoError(t, err)
		require.Equal(t, sub.ID, got.ID)
	})

	t.Run("subscribed", func(t *testing.T) {
		ok, err := f.svc.Subscribed(ctx, f.account.ID.String(), "default", "")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = f.svc.Subscribed(ctx, f.account.ID.String(), "default", "weekly-pro")
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = f.svc.Subscribed(ctx, f.account.ID.String(), "addons", "")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("on plan", func(t *testing.T) {
		ok, err := f.svc.OnPlan(ctx, f.account.ID.String(), "monthly-basic")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = f.svc.OnPlan(ctx, f.account.ID.String(), "weekly-pro")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("subscribed is false after grace elapses", func(t *testing.T) {
		_, err := f.svc.CancelNow(ctx, sub.ID.String())
		require.NoError(t, err)
		f.clock.Advance(time.Minute)

		ok, err := f.svc.Subscribed(ctx, f.account.ID.String(), "default", "")
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestBuilder(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	f := newFixture(t, now)

	sub, err := subscriptiondomain.NewBuilder(f.svc, f.account.ID.String(), "default", "monthly-basic").
		Quantity(2).
		TrialDays(7).
		WithCoupon("SPRING").
		WithMetadata(map[string]any{"source": "checkout"}).
		Create(ctx)
	require.NoError(t, err)

	require.Equal(t, 2, sub.Quantity)
	require.NotNil(t, sub.TrialEndsAt)
	require.Equal(t, now.AddDate(0, 0, 7), sub.TrialEndsAt.UTC())
	require.Equal(t, "SPRING", sub.Metadata["coupon"])
	require.Equal(t, "checkout", sub.Metadata["source"])
}
