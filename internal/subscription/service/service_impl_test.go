package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/renolink/renolink/internal/clock"
	"github.com/renolink/renolink/internal/config"
	"github.com/renolink/renolink/internal/gateway"
	subscriptiondomain "github.com/renolink/renolink/internal/subscription/domain"
	subscriptionrepo "github.com/renolink/renolink/internal/subscription/repository"
	subscriptionservice "github.com/renolink/renolink/internal/subscription/service"
	tenantdomain "github.com/renolink/renolink/internal/tenant/domain"
	tenantrepo "github.com/renolink/renolink/internal/tenant/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeGateway records provider calls so tests can assert on what the
// service sent without touching the network.
type fakeGateway struct {
	gateway.Client

	customers        map[string]*gateway.Customer
	checkoutMetadata map[string]string
	checkoutPriceID  string
	cancelAtEnd      *bool
	resumed          []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{customers: map[string]*gateway.Customer{}}
}

func (f *fakeGateway) EnsureCustomer(ctx context.Context, email string, name string, metadata map[string]string) (*gateway.Customer, error) {
	if c, ok := f.customers[email]; ok {
		return c, nil
	}
	c := &gateway.Customer{ID: fmt.Sprintf("cus_%d", len(f.customers)+1), Email: email, Name: name, Metadata: metadata}
	f.customers[email] = c
	return c, nil
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, params gateway.CheckoutParams) (*gateway.CheckoutSession, error) {
	f.checkoutMetadata = params.Metadata
	f.checkoutPriceID = params.PriceID
	return &gateway.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example.com/cs_test_1"}, nil
}

func (f *fakeGateway) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*gateway.Subscription, error) {
	f.cancelAtEnd = &atPeriodEnd
	status := "active"
	if !atPeriodEnd {
		status = "canceled"
	}
	return &gateway.Subscription{ID: subscriptionID, Status: status, CancelAtPeriodEnd: atPeriodEnd}, nil
}

func (f *fakeGateway) ResumeSubscription(ctx context.Context, subscriptionID string) (*gateway.Subscription, error) {
	f.resumed = append(f.resumed, subscriptionID)
	return &gateway.Subscription{ID: subscriptionID, Status: "active"}, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_sub_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE tenants (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT,
			password_hash TEXT NOT NULL,
			subscription_status TEXT NOT NULL,
			max_slots INTEGER NOT NULL DEFAULT 1,
			instagram_handle TEXT,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE subscriptions (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			plan TEXT NOT NULL,
			price BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			start_date DATETIME NOT NULL,
			end_date DATETIME,
			current_period_start DATETIME,
			current_period_end DATETIME,
			cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
			provider_sub_id TEXT,
			provider_customer_id TEXT,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_subscriptions_provider_sub_id ON subscriptions(provider_sub_id)`,
		`CREATE TABLE payments (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			subscription_id BIGINT,
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			provider_invoice_id TEXT NOT NULL,
			provider_intent_id TEXT,
			paid_at DATETIME,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_payments_provider_invoice_id ON payments(provider_invoice_id)`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newSubscriptionService(t *testing.T, db *gorm.DB, gw gateway.Client) (subscriptiondomain.Service, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(21)
	require.NoError(t, err)

	svc := subscriptionservice.Provide(subscriptionservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       subscriptionrepo.Provide(),
		TenantRepo: tenantrepo.Provide(),
		Gateway:    gw,
		Clock:      clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Cfg: config.Config{
			Stripe: config.StripeConfig{PriceID: "price_default_monthly"},
		},
	})
	return svc, node
}

func seedTenant(t *testing.T, db *gorm.DB, id snowflake.ID) {
	t.Helper()

	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO tenants (id, name, slug, email, phone, password_hash, subscription_status, max_slots, created_at, updated_at)
		 VALUES (?, 'Sato Koumuten', ?, ?, '', 'x', 'active', 1, ?, ?)`,
		id, fmt.Sprintf("sato-%d", id), fmt.Sprintf("sato-%d@example.jp", id), now, now,
	).Error
	require.NoError(t, err)
}

func seedSubscription(t *testing.T, db *gorm.DB, node *snowflake.Node, tenantID snowflake.ID, status subscriptiondomain.SubscriptionStatus, cancelAtEnd bool) snowflake.ID {
	t.Helper()

	id := node.Generate()
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO subscriptions (id, tenant_id, plan, price, currency, status, start_date, cancel_at_period_end, provider_sub_id, provider_customer_id, created_at, updated_at)
		 VALUES (?, ?, 'monthly', 100000, 'jpy', ?, ?, ?, ?, 'cus_seed', ?, ?)`,
		id, tenantID, status, now, cancelAtEnd, fmt.Sprintf("sub_%d", id), now, now,
	).Error
	require.NoError(t, err)
	return id
}

func TestStartCheckoutStampsTenantMetadata(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gw := newFakeGateway()
	svc, node := newSubscriptionService(t, db, gw)

	tenantID := node.Generate()
	seedTenant(t, db, tenantID)

	result, err := svc.StartCheckout(ctx, subscriptiondomain.CheckoutRequest{
		TenantID:   tenantID,
		SuccessURL: "https://app.example.jp/billing/success",
		CancelURL:  "https://app.example.jp/billing/cancel",
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", result.SessionID)
	assert.NotEmpty(t, result.CheckoutURL)
	// The creation webhook resolves the tenant from session metadata.
	assert.Equal(t, tenantID.String(), gw.checkoutMetadata["tenant_id"])
	// Empty price id falls back to the configured plan.
	assert.Equal(t, "price_default_monthly", gw.checkoutPriceID)
}

func TestStartCheckoutRequiresRedirectURLs(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newSubscriptionService(t, db, newFakeGateway())

	_, err := svc.StartCheckout(ctx, subscriptiondomain.CheckoutRequest{TenantID: node.Generate()})
	require.ErrorIs(t, err, subscriptiondomain.ErrInvalidRequest)
}

func TestStartCheckoutUnknownTenant(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newSubscriptionService(t, db, newFakeGateway())

	_, err := svc.StartCheckout(ctx, subscriptiondomain.CheckoutRequest{
		TenantID:   node.Generate(),
		SuccessURL: "https://app.example.jp/ok",
		CancelURL:  "https://app.example.jp/ng",
	})
	require.ErrorIs(t, err, tenantdomain.ErrNotFound)
}

func TestCancelDefaultsToPeriodEnd(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gw := newFakeGateway()
	svc, node := newSubscriptionService(t, db, gw)

	tenantID := node.Generate()
	seedTenant(t, db, tenantID)
	seedSubscription(t, db, node, tenantID, subscriptiondomain.SubscriptionStatusActive, false)

	sub, err := svc.Cancel(ctx, tenantID, subscriptiondomain.CancelRequest{})
	require.NoError(t, err)

	require.NotNil(t, gw.cancelAtEnd)
	assert.True(t, *gw.cancelAtEnd)
	// The row stays active until the provider's deletion event lands.
	assert.Equal(t, subscriptiondomain.SubscriptionStatusActive, sub.Status)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Nil(t, sub.EndDate)
}

func TestCancelImmediateEndsSubscription(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gw := newFakeGateway()
	svc, node := newSubscriptionService(t, db, gw)

	tenantID := node.Generate()
	seedTenant(t, db, tenantID)
	seedSubscription(t, db, node, tenantID, subscriptiondomain.SubscriptionStatusActive, false)

	sub, err := svc.Cancel(ctx, tenantID, subscriptiondomain.CancelRequest{Immediate: true})
	require.NoError(t, err)

	require.NotNil(t, gw.cancelAtEnd)
	assert.False(t, *gw.cancelAtEnd)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusCancelled, sub.Status)
	require.NotNil(t, sub.EndDate)
}

func TestCancelWithoutActiveSubscription(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newSubscriptionService(t, db, newFakeGateway())

	tenantID := node.Generate()
	seedTenant(t, db, tenantID)

	_, err := svc.Cancel(ctx, tenantID, subscriptiondomain.CancelRequest{})
	require.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)
}

func TestResumeClearsPendingCancellation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gw := newFakeGateway()
	svc, node := newSubscriptionService(t, db, gw)

	tenantID := node.Generate()
	seedTenant(t, db, tenantID)
	seedSubscription(t, db, node, tenantID, subscriptiondomain.SubscriptionStatusActive, true)

	sub, err := svc.Resume(ctx, tenantID)
	require.NoError(t, err)

	assert.False(t, sub.CancelAtPeriodEnd)
	assert.Len(t, gw.resumed, 1)
}

func TestResumeWithoutPendingCancellation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newSubscriptionService(t, db, newFakeGateway())

	tenantID := node.Generate()
	seedTenant(t, db, tenantID)
	seedSubscription(t, db, node, tenantID, subscriptiondomain.SubscriptionStatusActive, false)

	_, err := svc.Resume(ctx, tenantID)
	require.ErrorIs(t, err, subscriptiondomain.ErrInvalidRequest)
}

func TestListPaymentsNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newSubscriptionService(t, db, newFakeGateway())

	tenantID := node.Generate()
	seedTenant(t, db, tenantID)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := db.Exec(
			`INSERT INTO payments (id, tenant_id, amount, currency, status, provider_invoice_id, created_at)
			 VALUES (?, ?, 100000, 'jpy', 'succeeded', ?, ?)`,
			node.Generate(), tenantID, fmt.Sprintf("in_%d", i), base.Add(time.Duration(i)*time.Hour),
		).Error
		require.NoError(t, err)
	}

	payments, err := svc.ListPayments(ctx, tenantID, 2)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "in_2", payments[0].ProviderInvoiceID)
	assert.Equal(t, "in_1", payments[1].ProviderInvoiceID)
}
