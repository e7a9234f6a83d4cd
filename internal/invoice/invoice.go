// Package invoice derives invoice views from the plan catalog and the
// gateway's reported state. Invoices are computed on demand and never
// persisted.
package invoice

import (
	"fmt"
	"time"

	subscriptiondomain "github.com/recurra/billing/internal/subscription/domain"
	"github.com/shopspring/decimal"
)

// Invoice is a derived billing line for a subscription: either the single
// upcoming charge or one elapsed billing month.
type Invoice struct {
	Date       time.Time                      `json:"date"`
	RawTotal   decimal.Decimal                `json:"raw_total"`
	Tax        decimal.Decimal                `json:"tax"`
	Subtotal   decimal.Decimal                `json:"subtotal"`
	TaxPercent decimal.Decimal                `json:"tax_percent"`
	Currency   string                         `json:"currency"`
	PlanCode   string                         `json:"plan_code"`
	Upcoming   bool                           `json:"upcoming"`
	Sub        subscriptiondomain.Subscription `json:"subscription"`
}

// Total renders the raw total with its currency, e.g. "10.79 USD".
func (i Invoice) Total() string {
	return fmt.Sprintf("%s %s", i.RawTotal.StringFixed(2), i.Currency)
}

// newInvoice splits a tax-inclusive raw total into tax and subtotal so that
// subtotal + tax always reassembles the raw total exactly.
func newInvoice(sub subscriptiondomain.Subscription, date time.Time, rawTotal, taxPercent decimal.Decimal, currency string, upcoming bool) Invoice {
	tax := rawTotal.Mul(taxPercent).Div(decimal.NewFromInt(100)).Round(2)
	return Invoice{
		Date:       date,
		RawTotal:   rawTotal,
		Tax:        tax,
		Subtotal:   rawTotal.Sub(tax),
		TaxPercent: taxPercent,
		Currency:   currency,
		PlanCode:   sub.PlanCode,
		Upcoming:   upcoming,
		Sub:        sub,
	}
}
