package invoice

import (
	"context"

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
)

// Computer derives upcoming and historical invoices for a subscription.
type Computer struct {
	log *zap.Logger

	clock         clock.Clock
	catalog       *plan.Catalog
	gateway       gateway.Client
	accounts      accountdomain.Service
	subscriptions subscriptiondomain.Service
}

type ComputerParam struct {
	fx.In

	Log           *zap.Logger
	Clock         clock.Clock
	Catalog       *plan.Catalog
	Gateway       gateway.Client
	Accounts      accountdomain.Service
	Subscriptions subscriptiondomain.Service
}

func NewComputer(p ComputerParam) *Computer {
	return &Computer{
		log: p.Log.Named("invoice.computer"),

		clock:         p.Clock,
		catalog:       p.Catalog,
		gateway:       p.Gateway,
		accounts:      p.Accounts,
		subscriptions: p.Subscriptions,
	}
}

// Upcoming returns the next invoice for the subscription: the anchored
// billing date this month when it has not yet occurred, one month later
// otherwise. The amount prefers what the gateway reports for the live
// subscription and falls back to the catalog price.
func (c *Computer) Upcoming(ctx context.Context, subscriptionID string) (Invoice, error) {
	sub, err := c.subscriptions.GetByID(ctx, subscriptionID)
	if err != nil {
		return Invoice{}, err
	}

	now := c.clock.Now()
	anchorDay := sub.CreatedAt.In(billingcycle.ReferenceLocation()).Day()
	date := billingcycle.NextBillingDate(anchorDay, now)

	rawTotal, taxPercent, err := c.amount(ctx, sub)
	if err != nil {
		return Invoice{}, err
	}
	return newInvoice(sub, date, rawTotal, taxPercent, c.catalog.Currency(), true), nil
}

// History returns one invoice per whole billing month elapsed since the
// subscription was created, newest first. The gateway is consulted once per
// call, not once per item.
func (c *Computer) History(ctx context.Context, subscriptionID string) ([]Invoice, error) {
	sub, err := c.subscriptions.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	rawTotal, taxPercent, err := c.amount(ctx, sub)
	if err != nil {
		return nil, err
	}

	months := billingcycle.WholeMonthsBetween(sub.CreatedAt, now)
	invoices := make([]Invoice, 0, months)
	for i := months; i >= 1; i-- {
		date := billingcycle.AddMonths(sub.CreatedAt.In(billingcycle.ReferenceLocation()), i)
		invoices = append(invoices, newInvoice(sub, date, rawTotal, taxPercent, c.catalog.Currency(), false))
	}
	return invoices, nil
}

// amount resolves the tax-inclusive raw total and the effective tax rate for
// the subscription's account.
func (c *Computer) amount(ctx context.Context, sub subscriptiondomain.Subscription) (decimal.Decimal, decimal.Decimal, error) {
	taxPercent, err := c.taxPercent(ctx, sub.AccountID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if sub.GatewayID != "" {
		status, err := c.gateway.GetSubscriptionStatus(ctx, sub.GatewayID)
		if err == nil && status.Amount.IsPositive() {
			return status.Amount, taxPercent, nil
		}
		if err != nil {
			c.log.Warn("gateway status unavailable, falling back to catalog price",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(err),
			)
		}
	}

	pl, err := c.catalog.Get(sub.PlanCode)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return plan.AmountWithTax(pl.Amount, taxPercent), taxPercent, nil
}

func (c *Computer) taxPercent(ctx context.Context, accountID snowflake.ID) (decimal.Decimal, error) {
	account, err := c.accounts.GetByID(ctx, accountID.String())
	if err != nil {
		return decimal.Zero, err
	}
	if account.TaxPercent.IsPositive() {
		return account.TaxPercent, nil
	}
	return c.catalog.DefaultTaxPercent(), nil
}
