// Package domain contains the billable account model: the customer identity
// that carries the gateway profile charges and subscriptions run against.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Account is a billable customer with an optional registered gateway profile.
type Account struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	Name  string       `gorm:"type:text;not null"`
	Email string       `gorm:"type:text;not null;uniqueIndex"`

	Street  string `gorm:"type:text"`
	City    string `gorm:"type:text"`
	State   string `gorm:"type:text"`
	Zip     string `gorm:"type:text"`
	Country string `gorm:"type:text"`

	GatewayCustomerID string `gorm:"type:text;index"`
	GatewayPaymentID  string `gorm:"type:text"`
	CardBrand         string `gorm:"type:text"`
	CardLastFour      string `gorm:"type:text"`

	TaxPercent decimal.Decimal `gorm:"type:numeric"`
	Currency   string          `gorm:"type:text"`

	// TrialEndsAt is the account-level generic trial, independent of any
	// subscription.
	TrialEndsAt *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "billing_accounts" }

// Registered reports whether a gateway customer profile is on file.
func (a Account) Registered() bool {
	return a.GatewayCustomerID != "" && a.GatewayPaymentID != ""
}

// HasCardOnFile reports whether a card brand has been recorded.
func (a Account) HasCardOnFile() bool {
	return a.CardBrand != ""
}

// OnGenericTrial reports whether the account-level trial is still running.
func (a Account) OnGenericTrial(now time.Time) bool {
	return a.TrialEndsAt != nil && now.Before(*a.TrialEndsAt)
}

// FirstName returns the leading word of the account name.
func (a Account) FirstName() string {
	parts := strings.Fields(a.Name)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// LastName returns everything after the first word of the account name.
func (a Account) LastName() string {
	parts := strings.Fields(a.Name)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}
