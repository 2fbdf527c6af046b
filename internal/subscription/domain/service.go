package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// CheckoutRequest starts a hosted checkout for a tenant.
type CheckoutRequest struct {
	TenantID   snowflake.ID `json:"-"`
	PriceID    string       `json:"price_id"`
	SuccessURL string       `json:"success_url"`
	CancelURL  string       `json:"cancel_url"`
}

// CheckoutResult carries the hosted checkout session back to the caller.
type CheckoutResult struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// CancelRequest cancels at period end by default; Immediate cancels now.
type CancelRequest struct {
	Immediate bool `json:"immediate"`
}

type Service interface {
	StartCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
	Cancel(ctx context.Context, tenantID snowflake.ID, req CancelRequest) (*Subscription, error)
	Resume(ctx context.Context, tenantID snowflake.ID) (*Subscription, error)
	GetForTenant(ctx context.Context, tenantID snowflake.ID) (*Subscription, error)
	ListPayments(ctx context.Context, tenantID snowflake.ID, limit int) ([]Payment, error)
}
