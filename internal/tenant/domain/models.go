// Package domain contains persistence models for marketplace tenants.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SubscriptionStatus represents the billing state of a tenant.
type SubscriptionStatus string

const (
	StatusTrial     SubscriptionStatus = "trial"
	StatusActive    SubscriptionStatus = "active"
	StatusInactive  SubscriptionStatus = "inactive"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusPending   SubscriptionStatus = "pending"
)

var (
	ErrNotFound        = errors.New("tenant_not_found")
	ErrEmailTaken      = errors.New("tenant_email_taken")
	ErrCapacityReached = errors.New("tenant_capacity_reached")
	ErrInvalidRequest  = errors.New("tenant_invalid_request")
)

// Tenant is a contractor business listed in the directory and billed for
// platform access.
type Tenant struct {
	ID                 snowflake.ID       `gorm:"primaryKey" json:"id"`
	Name               string             `gorm:"type:text;not null" json:"name"`
	Slug               string             `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Email              string             `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Phone              string             `gorm:"type:text" json:"phone"`
	PasswordHash       string             `gorm:"type:text;not null" json:"-"`
	SubscriptionStatus SubscriptionStatus `gorm:"type:text;not null" json:"subscription_status"`
	MaxSlots           int                `gorm:"not null;default:1" json:"max_slots"`
	InstagramHandle    *string            `gorm:"type:text" json:"instagram_handle,omitempty"`
	Metadata           datatypes.JSONMap  `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt          time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// CountedStatuses are the states that occupy a capacity slot.
func CountedStatuses() []SubscriptionStatus {
	return []SubscriptionStatus{StatusActive, StatusTrial}
}
