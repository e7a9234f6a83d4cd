// Package domain contains the subscription model and its lifecycle logic.
//
// Lifecycle state is stored as two nullable timestamps, not an enum:
// trial_ends_at bounds the trial window and ends_at marks scheduled or
// completed cancellation. State is derived fresh from the timestamps on every
// query so it can never go stale, and external reconciliation stays a simple
// timestamp write.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// State is the derived lifecycle state of a subscription at an instant.
type State string

const (
	StateTrialing    State = "TRIALING"
	StateActive      State = "ACTIVE"
	StateGracePeriod State = "GRACE_PERIOD"
	StateInactive    State = "INACTIVE"
)

// Subscription is one billing agreement between an account and a plan.
type Subscription struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	AccountID snowflake.ID `gorm:"not null;index"`

	// Name is the logical slot, e.g. "default". Multiple historical rows
	// may share a slot; at most one should be valid at a time.
	Name     string `gorm:"type:text;not null;index"`
	PlanCode string `gorm:"type:text;not null"`

	// GatewayID is the external subscription id assigned by the gateway
	// on creation. Immutable once set.
	GatewayID        string `gorm:"type:text;not null;index"`
	GatewayPaymentID string `gorm:"type:text"`

	Quantity int               `gorm:"not null;default:1"`
	Metadata datatypes.JSONMap `gorm:"type:jsonb"`

	TrialEndsAt *time.Time `gorm:""`
	EndsAt      *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// OnTrial reports whether the trial window is still open at now.
func (s Subscription) OnTrial(now time.Time) bool {
	return s.TrialEndsAt != nil && now.Before(*s.TrialEndsAt)
}

// OnGracePeriod reports whether a cancellation is scheduled but its boundary
// has not yet passed at now.
func (s Subscription) OnGracePeriod(now time.Time) bool {
	return s.EndsAt != nil && now.Before(*s.EndsAt)
}

// Active reports whether the subscription is active: never cancelled, or
// cancelled but still inside the grace period.
func (s Subscription) Active(now time.Time) bool {
	return s.EndsAt == nil || s.OnGracePeriod(now)
}

// Valid reports whether the subscription is usable at now: active, on trial
// or on grace period. A subscription cancelled during its trial stays valid
// until the earlier of trial end and grace end.
func (s Subscription) Valid(now time.Time) bool {
	return s.Active(now) || s.OnTrial(now) || s.OnGracePeriod(now)
}

// Cancelled reports whether a cancellation has been recorded, regardless of
// whether the grace period has elapsed.
func (s Subscription) Cancelled() bool {
	return s.EndsAt != nil
}

// StateAt derives the lifecycle state at now. Trial takes precedence over
// grace period: a subscription cancelled mid-trial reports Trialing until the
// trial window closes.
func (s Subscription) StateAt(now time.Time) State {
	switch {
	case s.OnTrial(now):
		return StateTrialing
	case s.OnGracePeriod(now):
		return StateGracePeriod
	case s.EndsAt == nil:
		return StateActive
	default:
		return StateInactive
	}
}
