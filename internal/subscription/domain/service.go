package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidSubscription  = errors.New("invalid_subscription")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	// ErrInvalidState marks a subscription missing fields an operation
	// requires, e.g. cancelling a row that never got a gateway id.
	ErrInvalidState = errors.New("invalid_state")
)

// DefaultName is the logical slot used when the caller does not name the
// subscription.
const DefaultName = "default"

type CreateSubscriptionRequest struct {
	AccountID string         `json:"account_id"`
	Name      string         `json:"name"`
	PlanCode  string         `json:"plan_code"`
	Quantity  int            `json:"quantity,omitempty"`
	TrialDays *int           `json:"trial_days,omitempty"`
	SkipTrial bool           `json:"skip_trial,omitempty"`
	Coupon    string         `json:"coupon,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Service owns the subscription lifecycle: creation against the gateway,
// scheduled and immediate cancellation, and slot lookups.
type Service interface {
	// Create registers a recurring subscription with the gateway and
	// persists the local row. Nothing is persisted when the gateway call
	// fails.
	Create(ctx context.Context, req CreateSubscriptionRequest) (Subscription, error)
	// Cancel cancels at the end of the current billing period, leaving
	// the remaining time as a grace period. Cancelling during a trial
	// collapses the grace period to the trial end.
	Cancel(ctx context.Context, subscriptionID string) (Subscription, error)
	// CancelNow cancels and then forces the grace period to zero on the
	// local record. The gateway is called once.
	CancelNow(ctx context.Context, subscriptionID string) (Subscription, error)
	GetByID(ctx context.Context, subscriptionID string) (Subscription, error)
	// GetByName returns the newest row in an account's named slot.
	GetByName(ctx context.Context, accountID, name string) (Subscription, error)
	// Subscribed reports whether the account's named slot holds a valid
	// subscription, optionally constrained to a plan code.
	Subscribed(ctx context.Context, accountID, name, planCode string) (bool, error)
	// OnPlan reports whether any of the account's subscriptions to the
	// plan is valid.
	OnPlan(ctx context.Context, accountID, planCode string) (bool, error)
}

// NewBuilder starts a fluent subscription build against an account's named
// slot.
func NewBuilder(svc Service, accountID, name, planCode string) *Builder {
	return &Builder{
		svc: svc,
		req: CreateSubscriptionRequest{
			AccountID: accountID,
			Name:      name,
			PlanCode:  planCode,
		},
	}
}

// Builder collects the optional pieces of a new subscription before
// submitting it.
type Builder struct {
	svc Service
	req CreateSubscriptionRequest
}

func (b *Builder) Quantity(quantity int) *Builder {
	b.req.Quantity = quantity
	return b
}

// TrialDays overrides the plan's configured trial length.
func (b *Builder) TrialDays(days int) *Builder {
	b.req.TrialDays = &days
	return b
}

// SkipTrial forces the trial to end immediately.
func (b *Builder) SkipTrial() *Builder {
	b.req.SkipTrial = true
	return b
}

// WithCoupon records a coupon code on the subscription. Informational only;
// it is not transmitted to the gateway.
func (b *Builder) WithCoupon(coupon string) *Builder {
	b.req.Coupon = coupon
	return b
}

func (b *Builder) WithMetadata(metadata map[string]any) *Builder {
	b.req.Metadata = metadata
	return b
}

func (b *Builder) Create(ctx context.Context) (Subscription, error) {
	return b.svc.Create(ctx, b.req)
}
