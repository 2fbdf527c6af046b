package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	Status    SubscriptionStatus
	Email     string
	HasHandle *bool
	Limit     int
	Offset    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tenant, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Tenant, error)
	CountOccupied(ctx context.Context, db *gorm.DB) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Tenant, error)
	Update(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status SubscriptionStatus) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
