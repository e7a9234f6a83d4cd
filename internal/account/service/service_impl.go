package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/recurra/billing/internal/account/domain"
	"github.com/recurra/billing/internal/clock"
	"github.com/recurra/billing/internal/gateway"
	"github.com/recurra/billing/internal/plan"
	"github.com/recurra/billing/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	clock   clock.Clock
	repo    accountdomain.Repository
	gateway gateway.Client
	catalog *plan.Catalog
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    accountdomain.Repository
	Gateway gateway.Client
	Catalog *plan.Catalog
}

func NewService(p ServiceParam) accountdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("account.service"),

		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		gateway: p.Gateway,
		catalog: p.Catalog,
	}
}

func (s *Service) Create(ctx context.Context, req accountdomain.CreateAccountRequest) (accountdomain.Account, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return accountdomain.Account{}, accountdomain.ErrInvalidAccount
	}
	if req.Tax.IsNegative() {
		return accountdomain.Account{}, accountdomain.ErrInvalidAccount
	}

	now := s.clock.Now()
	account := accountdomain.Account{
		ID:         s.genID.Generate(),
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.TrimSpace(req.Email),
		Street:     req.Street,
		City:       req.City,
		State:      req.State,
		Zip:        req.Zip,
		Country:    req.Country,
		TaxPercent: req.Tax,
		Currency:   s.catalog.Currency(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &account); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return accountdomain.Account{}, accountdomain.ErrDuplicateEmail
		}
		return accountdomain.Account{}, err
	}
	return account, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (accountdomain.Account, error) {
	account, err := s.find(ctx, id)
	if err != nil {
		return accountdomain.Account{}, err
	}
	return *account, nil
}

// Register creates the gateway customer profile and records the assigned
// profile ids. Nothing is persisted when the gateway call fails.
func (s *Service) Register(ctx context.Context, req accountdomain.RegisterRequest) (accountdomain.Account, error) {
	account, err := s.find(ctx, req.AccountID)
	if err != nil {
		return accountdomain.Account{}, err
	}
	if account.Registered() {
		return accountdomain.Account{}, accountdomain.ErrAlreadyRegistered
	}

	result, err := s.gateway.CreateCustomerProfile(ctx, gateway.CustomerProfile{
		MerchantCustomerID: fmt.Sprintf("M_%d", account.ID),
		Email:              account.Email,
		Card:               req.Card,
		BillTo:             s.billTo(*account),
	})
	if err != nil {
		s.log.Error("gateway profile creation failed",
			zap.String("account_id", account.ID.String()),
			zap.Error(err),
		)
		return accountdomain.Account{}, err
	}

	account.GatewayCustomerID = result.CustomerProfileID
	account.GatewayPaymentID = result.PaymentProfileID
	account.CardBrand = gateway.DetectCardBrand(req.Card.Number)
	account.CardLastFour = gateway.LastFour(req.Card.Number)
	account.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, account); err != nil {
		return accountdomain.Account{}, err
	}
	return *account, nil
}

func (s *Service) UpdateCard(ctx context.Context, req accountdomain.UpdateCardRequest) (accountdomain.Account, error) {
	account, err := s.find(ctx, req.AccountID)
	if err != nil {
		return accountdomain.Account{}, err
	}
	if !account.Registered() {
		return accountdomain.Account{}, accountdomain.ErrNotRegistered
	}

	err = s.gateway.UpdateCustomerPaymentProfile(ctx, account.GatewayCustomerID, account.GatewayPaymentID, req.Card, s.billTo(*account))
	if err != nil {
		return accountdomain.Account{}, err
	}

	account.CardBrand = gateway.DetectCardBrand(req.Card.Number)
	account.CardLastFour = gateway.LastFour(req.Card.Number)
	account.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, account); err != nil {
		return accountdomain.Account{}, err
	}
	return *account, nil
}

func (s *Service) DeleteProfile(ctx context.Context, accountID string) error {
	account, err := s.find(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.Registered() {
		return accountdomain.ErrNotRegistered
	}

	if err := s.gateway.DeleteCustomerProfile(ctx, account.GatewayCustomerID); err != nil {
		return err
	}

	account.GatewayCustomerID = ""
	account.GatewayPaymentID = ""
	account.CardBrand = ""
	account.CardLastFour = ""
	account.UpdatedAt = s.clock.Now()

	return s.repo.Update(ctx, s.db, account)
}

// Charge runs a one-off authorize-and-capture for the tax-inclusive amount.
func (s *Service) Charge(ctx context.Context, req accountdomain.ChargeRequest) (gateway.ChargeResult, error) {
	if !req.Amount.IsPositive() {
		return gateway.ChargeResult{}, accountdomain.ErrInvalidAmount
	}

	account, err := s.find(ctx, req.AccountID)
	if err != nil {
		return gateway.ChargeResult{}, err
	}
	if !account.Registered() {
		return gateway.ChargeResult{}, accountdomain.ErrNotRegistered
	}

	amount := plan.AmountWithTax(req.Amount, s.taxPercent(*account))

	result, err := s.gateway.Charge(ctx, gateway.ChargeRequest{
		CustomerProfileID: account.GatewayCustomerID,
		PaymentProfileID:  account.GatewayPaymentID,
		Amount:            amount,
		Currency:          s.currency(*account),
		Description:       req.Description,
	})
	if err != nil {
		return gateway.ChargeResult{}, err
	}

	if result.Outcome == gateway.ChargeDeclined {
		s.log.Info("charge declined",
			zap.String("account_id", account.ID.String()),
			zap.String("transaction_id", result.TransactionID),
		)
	}
	return result, nil
}

func (s *Service) FindTransaction(ctx context.Context, transactionID string) (gateway.TransactionDetails, error) {
	return s.gateway.GetTransactionDetails(ctx, transactionID)
}

func (s *Service) find(ctx context.Context, rawID string) (*accountdomain.Account, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil {
		return nil, accountdomain.ErrInvalidAccount
	}
	account, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, accountdomain.ErrAccountNotFound
	}
	return account, nil
}

// taxPercent resolves the effective rate: the account's own rate when set,
// the catalog default otherwise.
func (s *Service) taxPercent(account accountdomain.Account) decimal.Decimal {
	if account.TaxPercent.IsPositive() {
		return account.TaxPercent
	}
	return s.catalog.DefaultTaxPercent()
}

func (s *Service) currency(account accountdomain.Account) string {
	if account.Currency != "" {
		return account.Currency
	}
	return s.catalog.Currency()
}

func (s *Service) billTo(account accountdomain.Account) gateway.Address {
	return gateway.Address{
		FirstName: account.FirstName(),
		LastName:  account.LastName(),
		Street:    account.Street,
		City:      account.City,
		State:     account.State,
		Zip:       account.Zip,
		Country:   account.Country,
	}
}
