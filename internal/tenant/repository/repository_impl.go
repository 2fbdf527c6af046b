package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/renolink/renolink/internal/tenant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() tenantdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tenant *tenantdomain.Tenant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tenants (
			id, name, slug, email, phone, password_hash, subscription_status,
			max_slots, instagram_handle, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tenant.ID,
		tenant.Name,
		tenant.Slug,
		tenant.Email,
		tenant.Phone,
		tenant.PasswordHash,
		tenant.SubscriptionStatus,
		tenant.MaxSlots,
		tenant.InstagramHandle,
		tenant.Metadata,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*tenantdomain.Tenant, error) {
	var item tenantdomain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, email, phone, password_hash, subscription_status,
			max_slots, instagram_handle, metadata, created_at, updated_at
		 FROM tenants
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

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*tenantdomain.Tenant, error) {
	var item tenantdomain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, email, phone, password_hash, subscription_status,
			max_slots, instagram_handle, metadata, created_at, updated_at
		 FROM tenants
		 WHERE email = ?
		 LIMIT 1`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) CountOccupied(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM tenants
		 WHERE subscription_status IN (?, ?)`,
		tenantdomain.StatusActive,
		tenantdomain.StatusTrial,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter tenantdomain.ListFilter) ([]tenantdomain.Tenant, error) {
	query := db.WithContext(ctx).Table("tenants")
	if filter.Status != "" {
		query = query.Where("subscription_status = ?", filter.Status)
	}
	if filter.Email != "" {
		query = query.Where("email = ?", strings.ToLower(strings.TrimSpace(filter.Email)))
	}
	if filter.HasHandle != nil {
		if *filter.HasHandle {
			query = query.Where("instagram_handle IS NOT NULL AND instagram_handle <> ''")
		} else {
			query = query.Where("instagram_handle IS NULL OR instagram_handle = ''")
		}
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var items []tenantdomain.Tenant
	if err := query.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, tenant *tenantdomain.Tenant) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tenants
		 SET name = ?, phone = ?, subscription_status = ?, max_slots = ?,
			instagram_handle = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		tenant.Name,
		tenant.Phone,
		tenant.SubscriptionStatus,
		tenant.MaxSlots,
		tenant.InstagramHandle,
		tenant.Metadata,
		tenant.UpdatedAt,
		tenant.ID,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status tenantdomain.SubscriptionStatus) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tenants
		 SET subscription_status = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	// Dependents first; the tenant owns its subscriptions, payments and
	// cached posts.
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM payments WHERE tenant_id = ?`, id,
	).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM subscriptions WHERE tenant_id = ?`, id,
	).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM cached_content_posts WHERE tenant_id = ?`, id,
	).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(
		`DELETE FROM tenants WHERE id = ?`, id,
	).Error
}
