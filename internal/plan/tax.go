package plan

import "github.com/shopspring/decimal"

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// AmountWithTax applies the tax percentage multiplicatively and rounds
// half-up to two decimal places. This is the amount registered with the
// gateway; tax is baked into it rather than tracked as a separate charge.
func AmountWithTax(amount, taxPercent decimal.Decimal) decimal.Decimal {
	return amount.Mul(one.Add(taxPercent.Div(hundred))).Round(2)
}

// TaxAmount returns the tax portion of a tax-inclusive total's base amount.
func TaxAmount(amount, taxPercent decimal.Decimal) decimal.Decimal {
	return amount.Mul(taxPercent.Div(hundred))
}
