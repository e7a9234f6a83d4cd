package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/recurra/billing/internal/account/domain"
	"github.com/recurra/billing/internal/billingcycle"
	"github.com/recurra/billing/internal/clock"
	"github.com/recurra/billing/internal/gateway"
	"github.com/recurra/billing/internal/plan"
	subscriptiondomain "github.com/recurra/billing/internal/subscription/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type accountsStub struct {
	account accountdomain.Account
}

func (s *accountsStub) Create(ctx context.Context, req accountdomain.CreateAccountRequest) (accountdomain.Account, error) {
	return s.account, nil
}
func (s *accountsStub) GetByID(ctx context.Context, id string) (accountdomain.Account, error) {
	return s.account, nil
}
func (s *accountsStub) Register(ctx context.Context, req accountdomain.RegisterRequest) (accountdomain.Account, error) {
	return s.account, nil
}
func (s *accountsStub) UpdateCard(ctx context.Context, req accountdomain.UpdateCardRequest) (accountdomain.Account, error) {
	return s.account, nil
}
func (s *accountsStub) DeleteProfile(ctx context.Context, accountID string) error { return nil }
func (s *accountsStub) Charge(ctx context.Context, req accountdomain.ChargeRequest) (gateway.ChargeResult, error) {
	return gateway.ChargeResult{}, nil
}
func (s *accountsStub) FindTransaction(ctx context.Context, transactionID string) (gateway.TransactionDetails, error) {
	return gateway.TransactionDetails{}, nil
}

type subscriptionsStub struct {
	sub subscriptiondomain.Subscription
}

func (s *subscriptionsStub) Create(ctx context.Context, req subscriptiondomain.CreateSubscriptionRequest) (subscriptiondomain.Subscription, error) {
	return s.sub, nil
}
func (s *subscriptionsStub) Cancel(ctx context.Context, id string) (subscriptiondomain.Subscription, error) {
	return s.sub, nil
}
func (s *subscriptionsStub) CancelNow(ctx context.Context, id string) (subscriptiondomain.Subscription, error) {
	return s.sub, nil
}
func (s *subscriptionsStub) GetByID(ctx context.Context, id string) (subscriptiondomain.Subscription, error) {
	return s.sub, nil
}
func (s *subscriptionsStub) GetByName(ctx context.Context, accountID, name string) (subscriptiondomain.Subscription, error) {
	return s.sub, nil
}
func (s *subscriptionsStub) Subscribed(ctx context.Context, accountID, name, planCode string) (bool, error) {
	return true, nil
}
func (s *subscriptionsStub) OnPlan(ctx context.Context, accountID, planCode string) (bool, error) {
	return true, nil
}

type gatewayStub struct {
	status    gateway.SubscriptionStatus
	statusErr error
	calls     int
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
	return "", nil
}
func (g *gatewayStub) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return nil
}
func (g *gatewayStub) GetSubscriptionStatus(ctx context.Context, subscriptionID string) (gateway.SubscriptionStatus, error) {
	g.calls++
	return g.status, g.statusErr
}
func (g *gatewayStub) GetTransactionDetails(ctx context.Context, transactionID string) (gateway.TransactionDetails, error) {
	return gateway.TransactionDetails{}, nil
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
			Amount:           decimal.RequireFromString("9.99"),
		},
	}, "USD", decimal.RequireFromString("8"))
	require.NoError(t, err)
	return catalog
}

func newComputer(t *testing.T, now time.Time, sub subscriptiondomain.Subscription, gw *gatewayStub) *Computer {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	return NewComputer(ComputerParam{
		Log:           zap.NewNop(),
		Clock:         clock.NewFakeClock(now),
		Catalog:       testCatalog(t),
		Gateway:       gw,
		Accounts:      &accountsStub{account: accountdomain.Account{ID: node.Generate()}},
		Subscriptions: &subscriptionsStub{sub: sub},
	})
}

func testSubscription(createdAt time.Time) subscriptiondomain.Subscription {
	return subscriptiondomain.Subscription{
		ID:        snowflake.ID(1),
		AccountID: snowflake.ID(2),
		Name:      subscriptiondomain.DefaultName,
		PlanCode:  "monthly-basic",
		GatewayID: "arb-1001",
		Quantity:  1,
		CreatedAt: createdAt,
	}
}

func TestUpcoming(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	t.Run("anchored date not yet passed", func(t *testing.T) {
		now := time.Date(2024, 4, 10, 10, 0, 0, 0, time.UTC)
		gw := &gatewayStub{status: gateway.SubscriptionStatus{Status: "active", Amount: decimal.RequireFromString("10.79")}}
		c := newComputer(t, now, testSubscription(createdAt), gw)

		inv, err := c.Upcoming(ctx, "1")
		require.NoError(t, err)
		require.True(t, inv.Upcoming)
		require.Equal(t, time.Date(2024, 4, 15, 0, 0, 0, 0, billingcycle.ReferenceLocation()), inv.Date)
		require.True(t, inv.RawTotal.Equal(decimal.RequireFromString("10.79")))
		require.Equal(t, "10.79 USD", inv.Total())
	})

	t.Run("anchored date already passed rolls one month", func(t *testing.T) {
		now := time.Date(2024, 4, 20, 10, 0, 0, 0, time.UTC)
		gw := &gatewayStub{status: gateway.SubscriptionStatus{Status: "active", Amount: decimal.RequireFromString("10.79")}}
		c := newComputer(t, now, testSubscription(createdAt), gw)

		inv, err := c.Upcoming(ctx, "1")
		require.NoError(t, err)
		require.Equal(t, time.Date(2024, 5, 15, 0, 0, 0, 0, billingcycle.ReferenceLocation()), inv.Date)
	})

	t.Run("tax split reassembles the raw total", func(t *testing.T) {
		now := time.Date(2024, 4, 10, 10, 0, 0, 0, time.UTC)
		gw := &gatewayStub{status: gateway.SubscriptionStatus{Status: "active", Amount: decimal.RequireFromString("10.79")}}
		c := newComputer(t, now, testSubscription(createdAt), gw)

		inv, err := c.Upcoming(ctx, "1")
		require.NoError(t, err)
		require.True(t, inv.Subtotal.Add(inv.Tax).Equal(inv.RawTotal))
		require.True(t, inv.Tax.Equal(decimal.RequireFromString("0.86")), inv.Tax.String())
	})

	t.Run("falls back to catalog price when gateway is down", func(t *testing.T) {
		now := time.Date(2024, 4, 10, 10, 0, 0, 0, time.UTC)
		gw := &gatewayStub{statusErr: gateway.ErrUnavailable}
		c := newComputer(t, now, testSubscription(createdAt), gw)

		inv, err := c.Upcoming(ctx, "1")
		require.NoError(t, err)
		// 9.99 plus the 8% default rate.
		require.True(t, inv.RawTotal.Equal(decimal.RequireFromString("10.79")), inv.RawTotal.String())
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	t.Run("one invoice per elapsed whole month, newest first", func(t *testing.T) {
		now := time.Date(2024, 4, 20, 10, 0, 0, 0, time.UTC)
		gw := &gatewayStub{status: gateway.SubscriptionStatus{Status: "active", Amount: decimal.RequireFromString("10.79")}}
		c := newComputer(t, now, testSubscription(createdAt), gw)

		invoices, err := c.History(ctx, "1")
		require.NoError(t, err)
		require.Len(t, invoices, 3)
		require.True(t, invoices[0].Date.After(invoices[1].Date))
		require.True(t, invoices[1].Date.After(invoices[2].Date))
		for _, inv := range invoices {
			require.False(t, inv.Upcoming)
			require.True(t, inv.Subtotal.Add(inv.Tax).Equal(inv.RawTotal))
		}
		// One status lookup for the whole series.
		require.Equal(t, 1, gw.calls)
	})

	t.Run("empty before the first month elapses", func(t *testing.T) {
		now := time.Date(2024, 2, 10, 10, 0, 0, 0, time.UTC)
		gw := &gatewayStub{status: gateway.SubscriptionStatus{Status: "active", Amount: decimal.RequireFromString("10.79")}}
		c := newComputer(t, now, testSubscription(createdAt), gw)

		invoices, err := c.History(ctx, "1")
		require.NoError(t, err)
		require.Empty(t, invoices)
	})
}
