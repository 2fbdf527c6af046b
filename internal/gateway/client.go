// Package gateway wraps the payment processor's REST API.
package gateway

import (
	"context"
	"time"
)

// Customer mirrors the provider's customer object.
type Customer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

// Subscription mirrors the provider's subscription object.
type Subscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
}

// CheckoutSession mirrors the provider's hosted checkout session.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PaymentIntent mirrors the provider's payment intent object.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Invoice mirrors the provider's invoice object.
type Invoice struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	Subscription  string `json:"subscription"`
	Status        string `json:"status"`
	AmountDue     int64  `json:"amount_due"`
	AmountPaid    int64  `json:"amount_paid"`
	Currency      string `json:"currency"`
	Created       int64  `json:"created"`
	PaymentIntent string `json:"payment_intent"`
}

// Refund mirrors the provider's refund object.
type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

// RevenueMetrics aggregates paid invoices over a created-at range.
type RevenueMetrics struct {
	TotalRevenue  int64  `json:"total_revenue"`
	TotalInvoices int    `json:"total_invoices"`
	Currency      string `json:"currency"`
}

// CheckoutParams configures a hosted checkout session.
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Client is the payment gateway surface the services depend on.
type Client interface {
	EnsureCustomer(ctx context.Context, email string, name string, metadata map[string]string) (*Customer, error)
	CreateSubscription(ctx context.Context, customerID string, priceID string, metadata map[string]string) (*Subscription, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, customerID string, metadata map[string]string) (*PaymentIntent, error)
	CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*Subscription, error)
	ResumeSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error)
	ListInvoices(ctx context.Context, customerID string, limit int) ([]Invoice, error)
	UpcomingInvoice(ctx context.Context, customerID string, subscriptionID string) (*Invoice, error)
	CreateRefund(ctx context.Context, paymentIntentID string, amount int64) (*Refund, error)
	GetRevenueMetrics(ctx context.Context, from *time.Time, to *time.Time) (*RevenueMetrics, error)
}
