package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindByProviderSubID(ctx context.Context, db *gorm.DB, providerSubID string) (*Subscription, error)
	FindByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Subscription, error)
	FindActiveByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*Subscription, error)
	Update(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	CancelOtherActive(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, keepID snowflake.ID) error

	// InsertPayment appends one ledger row; a duplicate provider invoice id
	// is silently dropped and reported as inserted=false.
	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) (bool, error)
	ListPaymentsByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int) ([]Payment, error)
}
