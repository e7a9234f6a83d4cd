// Package gateway defines the payment gateway contract consumed by billing:
// customer profiles, one-off charges and recurring subscriptions. The billing
// core never talks to the gateway transport directly.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/recurra/billing/internal/billingcycle"
	"github.com/shopspring/decimal"
)

// Environment selects the gateway endpoint.
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

// Config carries merchant credentials and environment selection. It is passed
// explicitly to the client constructor; no process-wide lookups.
type Config struct {
	LoginID        string
	TransactionKey string
	Environment    Environment
	RequestTimeout time.Duration

	// Endpoint overrides the environment-derived API URL. Used against
	// gateway emulators and in tests; leave empty in production.
	Endpoint string
}

var ErrInvalidConfig = errors.New("invalid_gateway_config")

func (c Config) Validate() error {
	if c.LoginID == "" || c.TransactionKey == "" {
		return ErrInvalidConfig
	}
	switch c.Environment {
	case Sandbox, Production:
		return nil
	default:
		return ErrInvalidConfig
	}
}

// ErrUnavailable reports that no response was received from the gateway at
// all, as opposed to a structured rejection.
var ErrUnavailable = errors.New("gateway_unavailable")

// ErrHeldForReview reports a charge the gateway accepted but parked for
// manual merchant review.
var ErrHeldForReview = errors.New("held_for_review")

// RejectionError is a structured non-success result from the gateway.
type RejectionError struct {
	Code    string
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("gateway rejected: %s %s", e.Code, e.Message)
}

// AsRejection unwraps a RejectionError if err carries one.
func AsRejection(err error) (*RejectionError, bool) {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection, true
	}
	return nil, false
}

// Address is the bill-to contact registered with a payment profile.
type Address struct {
	FirstName string
	LastName  string
	Street    string
	City      string
	State     string
	Zip       string
	Country   string
}

// Card is raw card input for profile creation and updates.
type Card struct {
	Number     string
	Expiration string
}

// CustomerProfile is the merchant-side identity registered with the gateway.
type CustomerProfile struct {
	MerchantCustomerID string
	Email              string
	Card               Card
	BillTo             Address
}

// ProfileResult carries the gateway-assigned identifiers for a new customer
// profile.
type ProfileResult struct {
	CustomerProfileID string
	PaymentProfileID  string
}

// ChargeOutcome distinguishes the user-visible results of a charge attempt.
type ChargeOutcome string

const (
	ChargeApproved ChargeOutcome = "approved"
	ChargeDeclined ChargeOutcome = "declined"
)

// ChargeRequest is a one-off authorize-and-capture transaction against a
// stored payment profile.
type ChargeRequest struct {
	CustomerProfileID string
	PaymentProfileID  string
	Amount            decimal.Decimal
	Currency          string
	Description       string
}

// ChargeResult is the outcome of a charge. A declined charge is a result, not
// an error: the caller treats it as "not charged".
type ChargeResult struct {
	Outcome       ChargeOutcome
	AuthCode      string
	TransactionID string
}

// SubscriptionSpec is everything the gateway needs to start a recurring
// subscription.
type SubscriptionSpec struct {
	PlanName          string
	Interval          billingcycle.Interval
	StartDate         time.Time
	TotalOccurrences  int
	TrialOccurrences  int
	Amount            decimal.Decimal
	TrialAmount       decimal.Decimal
	CustomerProfileID string
	PaymentProfileID  string
}

// SubscriptionStatus is the gateway-reported view of a subscription.
type SubscriptionStatus struct {
	Status            string
	Name              string
	Amount            decimal.Decimal
	Description       string
	CustomerProfileID string
}

// TransactionDetails is a settled transaction looked up by id.
type TransactionDetails struct {
	TransactionID string
	Amount        decimal.Decimal
	Status        string
}

// Client executes profile, charge and subscription operations against the
// payment gateway. Every call carries merchant credentials and a unique
// correlation reference for gateway-side audit tracing. Structured failures
// surface as *RejectionError; transport failures as ErrUnavailable.
type Client interface {
	CreateCustomerProfile(ctx context.Context, profile CustomerProfile) (ProfileResult, error)
	UpdateCustomerPaymentProfile(ctx context.Context, customerProfileID, paymentProfileID string, card Card, billTo Address) error
	DeleteCustomerProfile(ctx context.Context, customerProfileID string) error
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	CreateSubscription(ctx context.Context, spec SubscriptionSpec) (string, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	GetSubscriptionStatus(ctx context.Context, subscriptionID string) (SubscriptionStatus, error)
	GetTransactionDetails(ctx context.Context, transactionID string) (TransactionDetails, error)
}
