package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/renolink/renolink/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, tenant_id, plan, price, currency, status, start_date, end_date,
			current_period_start, current_period_end, cancel_at_period_end,
			provider_sub_id, provider_customer_id, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.TenantID,
		subscription.Plan,
		subscription.Price,
		subscription.Currency,
		subscription.Status,
		subscription.StartDate,
		subscription.EndDate,
		subscription.CurrentPeriodStart,
		subscription.CurrentPeriodEnd,
		subscription.CancelAtPeriodEnd,
		subscription.ProviderSubID,
		subscription.ProviderCustomerID,
		subscription.Metadata,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

const subscriptionColumns = `id, tenant_id, plan, price, currency, status, start_date, end_date,
	current_period_start, current_period_end, cancel_at_period_end,
	provider_sub_id, provider_customer_id, metadata, created_at, updated_at`

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var item subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByProviderSubID(ctx context.Context, db *gorm.DB, providerSubID string) (*subscriptiondomain.Subscription, error) {
	var item subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE provider_sub_id = ?
		 LIMIT 1`,
		providerSubID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]subscriptiondomain.Subscription, error) {
	var items []subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE tenant_id = ?
		 ORDER BY created_at DESC`,
		tenantID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindActiveByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var item subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE tenant_id = ? AND status IN (?, ?)
		 ORDER BY created_at DESC
		 LIMIT 1`,
		tenantID,
		subscriptiondomain.SubscriptionStatusActive,
		subscriptiondomain.SubscriptionStatusPending,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET plan = ?, price = ?, currency = ?, status = ?, start_date = ?, end_date = ?,
			current_period_start = ?, current_period_end = ?, cancel_at_period_end = ?,
			provider_sub_id = ?, provider_customer_id = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		subscription.Plan,
		subscription.Price,
		subscription.Currency,
		subscription.Status,
		subscription.StartDate,
		subscription.EndDate,
		subscription.CurrentPeriodStart,
		subscription.CurrentPeriodEnd,
		subscription.CancelAtPeriodEnd,
		subscription.ProviderSubID,
		subscription.ProviderCustomerID,
		subscription.Metadata,
		subscription.UpdatedAt,
		subscription.ID,
	).Error
}

func (r *repo) CancelOtherActive(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, keepID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, end_date = ?, updated_at = ?
		 WHERE tenant_id = ? AND id <> ? AND status = ?`,
		subscriptiondomain.SubscriptionStatusCancelled,
		time.Now().UTC(),
		time.Now().UTC(),
		tenantID,
		keepID,
		subscriptiondomain.SubscriptionStatusActive,
	).Error
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *subscriptiondomain.Payment) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, tenant_id, subscription_id, amount, currency, status,
			provider_invoice_id, provider_intent_id, paid_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider_invoice_id) DO NOTHING`,
		payment.ID,
		payment.TenantID,
		payment.SubscriptionID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.ProviderInvoiceID,
		payment.ProviderIntentID,
		payment.PaidAt,
		payment.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListPaymentsByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int) ([]subscriptiondomain.Payment, error) {
	if limit <= 0 {
		limit = 10
	}
	var items []subscriptiondomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, subscription_id, amount, currency, status,
			provider_invoice_id, provider_intent_id, paid_at, created_at
		 FROM payments
		 WHERE tenant_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		tenantID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
