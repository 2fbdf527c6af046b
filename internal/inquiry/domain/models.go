// Package domain holds customer inquiries routed to tenants.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// InquiryStatus tracks the tenant-side handling of an inquiry.
type InquiryStatus string

const (
	StatusNew    InquiryStatus = "new"
	StatusRead   InquiryStatus = "read"
	StatusClosed InquiryStatus = "closed"
)

var (
	ErrNotFound          = errors.New("inquiry_not_found")
	ErrInvalidRequest    = errors.New("inquiry_invalid_request")
	ErrInvalidTransition = errors.New("inquiry_invalid_transition")
)

// Inquiry is one contact-form submission addressed to a tenant.
type Inquiry struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID  `gorm:"not null;index" json:"tenant_id"`
	Name      string        `gorm:"type:text;not null" json:"name"`
	Email     string        `gorm:"type:text;not null" json:"email"`
	Phone     string        `gorm:"type:text" json:"phone,omitempty"`
	Message   string        `gorm:"type:text;not null" json:"message"`
	Status    InquiryStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Inquiry) TableName() string { return "inquiries" }
