package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	// FindLatestByName returns the newest subscription in the account's
	// named slot, or nil when the slot is empty.
	FindLatestByName(ctx context.Context, db *gorm.DB, accountID snowflake.ID, name string) (*Subscription, error)
	ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]Subscription, error)
	ListByPlan(ctx context.Context, db *gorm.DB, accountID snowflake.ID, planCode string) ([]Subscription, error)
	// ListOpen returns subscriptions without a local cancellation mark,
	// i.e. rows the reconciliation sweep still has to watch.
	ListOpen(ctx context.Context, db *gorm.DB) ([]Subscription, error)
	Update(ctx context.Context, db *gorm.DB, sub *Subscription) error
}
