// Package domain contains persistence models for subscriptions and the
// payment ledger.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SubscriptionStatus represents lifecycle states for a subscription.
// pending moves to active on the provider's creation event or first
// successful payment; cancelled is terminal.
type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// PaymentStatus is the settlement outcome recorded on the ledger.
type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrInvalidRequest       = errors.New("subscription_invalid_request")
	ErrAlreadyCancelled     = errors.New("subscription_already_cancelled")
)

// Subscription captures a tenant's billing agreement with the payment
// provider. The provider subscription id is the reconciliation key.
type Subscription struct {
	ID                 snowflake.ID       `gorm:"primaryKey" json:"id"`
	TenantID           snowflake.ID       `gorm:"not null;index" json:"tenant_id"`
	Plan               string             `gorm:"type:text;not null" json:"plan"`
	Price              int64              `gorm:"not null" json:"price"`
	Currency           string             `gorm:"type:text;not null" json:"currency"`
	Status             SubscriptionStatus `gorm:"type:text;not null" json:"status"`
	StartDate          time.Time          `gorm:"not null" json:"start_date"`
	EndDate            *time.Time         `gorm:"" json:"end_date,omitempty"`
	CurrentPeriodStart *time.Time         `gorm:"" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time         `gorm:"" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool               `gorm:"not null;default:false" json:"cancel_at_period_end"`
	ProviderSubID      string             `gorm:"type:text;uniqueIndex" json:"provider_subscription_id"`
	ProviderCustomerID string             `gorm:"type:text" json:"provider_customer_id"`
	Metadata           datatypes.JSONMap  `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt          time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// Payment is one immutable ledger row per provider-side settlement attempt,
// keyed by the provider's invoice id. Rows are never updated.
type Payment struct {
	ID                snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID          snowflake.ID  `gorm:"not null;index" json:"tenant_id"`
	SubscriptionID    *snowflake.ID `gorm:"index" json:"subscription_id,omitempty"`
	Amount            int64         `gorm:"not null" json:"amount"`
	Currency          string        `gorm:"type:text;not null" json:"currency"`
	Status            PaymentStatus `gorm:"type:text;not null" json:"status"`
	ProviderInvoiceID string        `gorm:"type:text;not null;uniqueIndex" json:"provider_invoice_id"`
	ProviderIntentID  string        `gorm:"type:text" json:"provider_payment_intent_id,omitempty"`
	PaidAt            *time.Time    `gorm:"" json:"paid_at,omitempty"`
	CreatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }
