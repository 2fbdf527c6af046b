// Package domain defines the canonical billing events produced by
// provider webhooks and the dedupe record that guards reprocessing.
package domain

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/renolink/renolink/internal/clock"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventRecord stores every accepted webhook delivery. The unique pair
// (provider, provider_event_id) makes replays observable as no-ops.
type EventRecord struct {
	ID               snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider         string         `json:"provider" gorm:"type:text;not null"`
	ProviderEventID  string         `json:"provider_event_id" gorm:"type:text;not null"`
	EventType        string         `json:"event_type" gorm:"type:text;not null"`
	ProviderObjectID string         `json:"provider_object_id" gorm:"type:text"`
	Payload          datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt       time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt      *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

const (
	EventTypeSubscriptionCreated = "subscription_created"
	EventTypeSubscriptionUpdated = "subscription_updated"
	EventTypeSubscriptionDeleted = "subscription_deleted"
	EventTypePaymentSucceeded    = "payment_succeeded"
	EventTypePaymentFailed       = "payment_failed"
	EventTypeCheckoutCompleted   = "checkout_completed"
)

// SubscriptionEvent is the canonical billing event parsed by adapters.
// Adapters normalize provider payloads into this shape; the reconciler
// never sees provider-specific JSON.
type SubscriptionEvent struct {
	Provider               string
	ProviderEventID        string
	Type                   string
	ProviderSubscriptionID string
	ProviderCustomerID     string
	ProviderInvoiceID      string
	ProviderIntentID       string
	TenantID               snowflake.ID
	ProviderStatus         string
	PriceID                string
	Amount                 int64
	Currency               string
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool
	OccurredAt             time.Time
	RawPayload             []byte
}

// AdapterConfig carries the verification material for one provider.
type AdapterConfig struct {
	Provider      string
	WebhookSecret string
	Tolerance     time.Duration
	Clock         clock.Clock
}

// PaymentAdapter verifies and parses one provider's webhook deliveries.
type PaymentAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*SubscriptionEvent, error)
}

// AdapterFactory builds adapters for a named provider.
type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}

type Repository interface {
	// InsertEvent records a delivery; a duplicate (provider, event id)
	// pair is dropped and reported as inserted=false.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
	ListEvents(ctx context.Context, db *gorm.DB, provider string, limit int) ([]EventRecord, error)
}

// Service is the webhook ingest surface exposed to the HTTP layer.
type Service interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}
