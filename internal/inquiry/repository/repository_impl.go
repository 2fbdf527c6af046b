package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/renolink/renolink/internal/inquiry/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const inquiryColumns = `id, tenant_id, name, email, phone, message, status, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, inquiry *domain.Inquiry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO inquiries (
			id, tenant_id, name, email, phone, message, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inquiry.ID,
		inquiry.TenantID,
		inquiry.Name,
		inquiry.Email,
		inquiry.Phone,
		inquiry.Message,
		inquiry.Status,
		inquiry.CreatedAt,
		inquiry.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Inquiry, error) {
	var item domain.Inquiry
	err := db.WithContext(ctx).Raw(
		`SELECT `+inquiryColumns+`
		 FROM inquiries
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

func (r *repo) ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int, offset int) ([]domain.Inquiry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var items []domain.Inquiry
	err := db.WithContext(ctx).Raw(
		`SELECT `+inquiryColumns+`
		 FROM inquiries
		 WHERE tenant_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		tenantID,
		limit,
		offset,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.InquiryStatus) error {
	return db.WithContext(ctx).Exec(
		`UPDATE inquiries
		 SET status = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		time.Now().UTC(),
		id,
	).Error
}
