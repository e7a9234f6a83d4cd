// Package plan holds the static billing plan catalog. Plans are loaded once
// at process start and are immutable at runtime.
package plan

import (
	"errors"

	"github.com/recurra/billing/internal/billingcycle"
	"github.com/shopspring/decimal"
)

// UnboundedOccurrences is the gateway sentinel for a subscription with no end
// date.
const UnboundedOccurrences = 9999

var (
	ErrUnknownPlan   = errors.New("unknown_plan")
	ErrInvalidPlan   = errors.New("invalid_plan")
	ErrEmptyCatalog  = errors.New("empty_catalog")
	ErrDuplicatePlan = errors.New("duplicate_plan")
)

// Plan is a named billing template registered with the gateway on
// subscription creation.
type Plan struct {
	Code             string
	Name             string
	Interval         billingcycle.Interval
	TotalOccurrences int
	TrialOccurrences int
	Amount           decimal.Decimal
	TrialAmount      decimal.Decimal
	TrialDays        int
}

func (p Plan) Validate() error {
	if p.Code == "" || p.Name == "" {
		return ErrInvalidPlan
	}
	if err := p.Interval.Validate(); err != nil {
		return err
	}
	if p.Amount.IsNegative() || p.TrialAmount.IsNegative() {
		return ErrInvalidPlan
	}
	if p.TotalOccurrences < 1 || p.TrialOccurrences < 0 || p.TrialDays < 0 {
		return ErrInvalidPlan
	}
	return nil
}

// Unbounded reports whether the plan recurs without an end date.
func (p Plan) Unbounded() bool {
	return p.TotalOccurrences >= UnboundedOccurrences
}

// BillingDays returns the approximate day count of one billing period.
func (p Plan) BillingDays() int {
	return p.Interval.BillingDays()
}

// Catalog maps plan codes to definitions, with catalog-wide currency and
// default tax percentage.
type Catalog struct {
	plans             map[string]Plan
	currency          string
	defaultTaxPercent decimal.Decimal
}

func NewCatalog(plans []Plan, currency string, defaultTaxPercent decimal.Decimal) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, ErrEmptyCatalog
	}
	byCode := make(map[string]Plan, len(plans))
	for _, p := range plans {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, exists := byCode[p.Code]; exists {
			return nil, ErrDuplicatePlan
		}
		byCode[p.Code] = p
	}
	if currency == "" {
		currency = "USD"
	}
	return &Catalog{
		plans:             byCode,
		currency:          currency,
		defaultTaxPercent: defaultTaxPercent,
	}, nil
}

// Get resolves a plan by code.
func (c *Catalog) Get(code string) (Plan, error) {
	p, ok := c.plans[code]
	if !ok {
		return Plan{}, ErrUnknownPlan
	}
	return p, nil
}

// Has reports whether the catalog contains the plan code.
func (c *Catalog) Has(code string) bool {
	_, ok := c.plans[code]
	return ok
}

// Codes returns every registered plan code.
func (c *Catalog) Codes() []string {
	codes := make([]string, 0, len(c.plans))
	for code := range c.plans {
		codes = append(codes, code)
	}
	return codes
}

// Currency returns the catalog-wide ISO currency code.
func (c *Catalog) Currency() string {
	return c.currency
}

// DefaultTaxPercent is the tax percentage applied when an account does not
// carry its own rate.
func (c *Catalog) DefaultTaxPercent() decimal.Decimal {
	return c.defaultTaxPercent
}
