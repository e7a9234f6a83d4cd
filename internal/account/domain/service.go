package domain

import (
	"context"
	"errors"

	"github.com/recurra/billing/internal/gateway"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAccount    = errors.New("invalid_account")
	ErrDuplicateEmail    = errors.New("duplicate_email")
	ErrAccountNotFound   = errors.New("account_not_found")
	ErrNotRegistered     = errors.New("account_not_registered")
	ErrAlreadyRegistered = errors.New("account_already_registered")
	ErrInvalidAmount     = errors.New("invalid_amount")
)

type CreateAccountRequest struct {
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Street  string          `json:"street,omitempty"`
	City    string          `json:"city,omitempty"`
	State   string          `json:"state,omitempty"`
	Zip     string          `json:"zip,omitempty"`
	Country string          `json:"country,omitempty"`
	Tax     decimal.Decimal `json:"tax_percent"`
}

type RegisterRequest struct {
	AccountID string       `json:"account_id"`
	Card      gateway.Card `json:"card"`
}

type UpdateCardRequest struct {
	AccountID string       `json:"account_id"`
	Card      gateway.Card `json:"card"`
}

type ChargeRequest struct {
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Service manages billable accounts and their gateway customer profiles.
type Service interface {
	Create(ctx context.Context, req CreateAccountRequest) (Account, error)
	GetByID(ctx context.Context, id string) (Account, error)
	// Register creates the gateway customer profile for an account that
	// does not have one yet.
	Register(ctx context.Context, req RegisterRequest) (Account, error)
	// UpdateCard replaces the card behind the registered payment profile.
	UpdateCard(ctx context.Context, req UpdateCardRequest) (Account, error)
	// DeleteProfile removes the gateway profile and clears the local
	// linkage.
	DeleteProfile(ctx context.Context, accountID string) error
	// Charge runs a one-off tax-inclusive charge against the stored
	// payment profile. A decline is reported in the result, not as an
	// error.
	Charge(ctx context.Context, req ChargeRequest) (gateway.ChargeResult, error)
	FindTransaction(ctx context.Context, transactionID string) (gateway.TransactionDetails, error)
}
