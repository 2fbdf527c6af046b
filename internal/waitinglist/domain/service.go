package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// EnqueueRequest asks for a spot on the waiting list.
type EnqueueRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// EnqueueResult reports the new entry and its FIFO position, counted over
// WAITING entries created at or before it.
type EnqueueResult struct {
	Entry    *Entry `json:"entry"`
	Position int64  `json:"position"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Entry, error)
	Position(ctx context.Context, db *gorm.DB, entry *Entry) (int64, error)
	List(ctx context.Context, db *gorm.DB, status EntryStatus) ([]Entry, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status EntryStatus) error
}

type Service interface {
	Enqueue(ctx context.Context, req EnqueueRequest) (*EnqueueResult, error)
	Position(ctx context.Context, id snowflake.ID) (int64, error)
	List(ctx context.Context, status EntryStatus) ([]Entry, error)
	Transition(ctx context.Context, id snowflake.ID, status EntryStatus) (*Entry, error)
}
