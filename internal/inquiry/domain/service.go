package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// CreateRequest is a public contact-form submission.
type CreateRequest struct {
	TenantID snowflake.ID `json:"-"`
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Phone    string       `json:"phone"`
	Message  string       `json:"message"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, inquiry *Inquiry) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Inquiry, error)
	ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int, offset int) ([]Inquiry, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status InquiryStatus) error
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Inquiry, error)
	ListByTenant(ctx context.Context, tenantID snowflake.ID, limit int, offset int) ([]Inquiry, error)
	UpdateStatus(ctx context.Context, id snowflake.ID, status InquiryStatus) (*Inquiry, error)
}
