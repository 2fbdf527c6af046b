package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// RegisterRequest carries a tenant registration attempt.
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	Phone           string `json:"phone"`
	Plan            string `json:"plan"`
	InstagramHandle string `json:"instagram_handle"`
}

// RegisterResult reports the admission decision. When the capacity ceiling
// is reached Admitted is false and the counters describe the rejection.
type RegisterResult struct {
	Admitted             bool    `json:"admitted"`
	Tenant               *Tenant `json:"tenant,omitempty"`
	LimitReached         bool    `json:"limitReached"`
	CurrentCount         int64   `json:"currentCount"`
	MaxCount             int64   `json:"maxCount"`
	WaitingListAvailable bool    `json:"waitingListAvailable"`
}

// Stats summarizes platform occupancy.
type Stats struct {
	ActiveCount  int64 `json:"active_count"`
	TrialCount   int64 `json:"trial_count"`
	MaxCount     int64 `json:"max_count"`
	SlotsLeft    int64 `json:"slots_left"`
	LimitReached bool  `json:"limit_reached"`
}

// UpdateRequest mutates administrative tenant fields. Nil pointers leave the
// field untouched.
type UpdateRequest struct {
	Name            *string             `json:"name,omitempty"`
	Phone           *string             `json:"phone,omitempty"`
	Status          *SubscriptionStatus `json:"status,omitempty"`
	MaxSlots        *int                `json:"max_slots,omitempty"`
	InstagramHandle *string             `json:"instagram_handle,omitempty"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
	Get(ctx context.Context, id snowflake.ID) (*Tenant, error)
	List(ctx context.Context, filter ListFilter) ([]Tenant, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*Tenant, error)
	UpdateStatus(ctx context.Context, id snowflake.ID, status SubscriptionStatus) error
	Delete(ctx context.Context, id snowflake.ID) error
	Stats(ctx context.Context) (*Stats, error)
}
