package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/recurra/billing/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

const subscriptionColumns = `id, account_id, name, plan_code, gateway_id, gateway_payment_id,
	 quantity, metadata, trial_ends_at, ends_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sub *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, account_id, name, plan_code, gateway_id, gateway_payment_id,
			quantity, metadata, trial_ends_at, ends_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID,
		sub.AccountID,
		sub.Name,
		sub.PlanCode,
		sub.GatewayID,
		sub.GatewayPaymentID,
		sub.Quantity,
		sub.Metadata,
		sub.TrialEndsAt,
		sub.EndsAt,
		sub.CreatedAt,
		sub.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var sub subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`,
		id,
	).Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}

func (r *repo) FindLatestByName(ctx context.Context, db *gorm.DB, accountID snowflake.ID, name string) (*subscriptiondomain.Subscription, error) {
	var sub subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE account_id = ? AND name = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		accountID,
		name,
	).Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}

func (r *repo) ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]subscriptiondomain.Subscription, error) {
	var subs []subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE account_id = ?
		 ORDER BY created_at DESC, id DESC`,
		accountID,
	).Scan(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repo) ListByPlan(ctx context.Context, db *gorm.DB, accountID snowflake.ID, planCode string) ([]subscriptiondomain.Subscription, error) {
	var subs []subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE account_id = ? AND plan_code = ?
		 ORDER BY created_at DESC, id DESC`,
		accountID,
		planCode,
	).Scan(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repo) ListOpen(ctx context.Context, db *gorm.DB) ([]subscriptiondomain.Subscription, error) {
	var subs []subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT ` + subscriptionColumns + `
		 FROM subscriptions
		 WHERE ends_at IS NULL
		 ORDER BY created_at ASC`,
	).Scan(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, sub *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET gateway_payment_id = ?, quantity = ?, metadata = ?, trial_ends_at = ?, ends_at = ?, updated_at = ?
		 WHERE id = ?`,
		sub.GatewayPaymentID,
		sub.Quantity,
		sub.Metadata,
		sub.TrialEndsAt,
		sub.EndsAt,
		sub.UpdatedAt,
		sub.ID,
	).Error
}
