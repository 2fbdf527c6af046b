// Package domain contains the overflow waiting list models.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// EntryStatus tracks an entry through the queue.
type EntryStatus string

const (
	StatusWaiting EntryStatus = "waiting"
	StatusInvited EntryStatus = "invited"
	StatusExpired EntryStatus = "expired"
)

var (
	ErrNotFound          = errors.New("waiting_list_entry_not_found")
	ErrEmailTaken        = errors.New("waiting_list_email_taken")
	ErrInvalidRequest    = errors.New("waiting_list_invalid_request")
	ErrInvalidTransition = errors.New("waiting_list_invalid_transition")
)

// Entry is one overflow registration, ordered FIFO by creation time.
type Entry struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Email     string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Phone     string       `gorm:"type:text" json:"phone"`
	Message   string       `gorm:"type:text" json:"message"`
	Status    EntryStatus  `gorm:"type:text;not null" json:"status"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "waiting_list_entries" }
