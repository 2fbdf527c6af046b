// Package domain holds the cached social content served on tenant
// profile pages.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNoHandle            = errors.New("content_no_handle")
	ErrSyncInProgress      = errors.New("content_sync_in_progress")
	ErrUpstreamUnavailable = errors.New("content_upstream_unavailable")
)

// CachedPost is one social media post cached for a tenant. The pair
// (tenant_id, permalink) is the upsert key, so re-fetching the same
// post refreshes it in place instead of duplicating it.
type CachedPost struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID     snowflake.ID `gorm:"not null;uniqueIndex:idx_cached_posts_tenant_permalink" json:"tenant_id"`
	MediaID      string       `gorm:"type:text" json:"media_id"`
	MediaType    string       `gorm:"type:text" json:"media_type"`
	Caption      string       `gorm:"type:text" json:"caption"`
	MediaURL     string       `gorm:"type:text;not null" json:"media_url"`
	ThumbnailURL string       `gorm:"type:text" json:"thumbnail_url,omitempty"`
	Permalink    string       `gorm:"type:text;not null;uniqueIndex:idx_cached_posts_tenant_permalink" json:"permalink"`
	PostedAt     time.Time    `gorm:"not null;index" json:"posted_at"`
	FetchedAt    time.Time    `gorm:"not null" json:"fetched_at"`
}

// TableName sets the database table name.
func (CachedPost) TableName() string { return "cached_content_posts" }

// FetchedPost is one post as returned by the upstream content API,
// before it is persisted.
type FetchedPost struct {
	MediaID      string
	MediaType    string
	Caption      string
	MediaURL     string
	ThumbnailURL string
	Permalink    string
	PostedAt     time.Time
}

// CacheStats summarizes the cache for the admin surface.
type CacheStats struct {
	TotalPosts      int64      `json:"total_posts"`
	Tenants         int64      `json:"tenants"`
	OldestFetchedAt *time.Time `json:"oldest_fetched_at,omitempty"`
	NewestFetchedAt *time.Time `json:"newest_fetched_at,omitempty"`
}

// SyncError records one failed tenant in a batch run.
type SyncError struct {
	TenantID snowflake.ID `json:"tenant_id"`
	Error    string       `json:"error"`
}

// SyncReport is the outcome of one batch sync run. Errors is capped so
// a large batch of failures does not balloon the report.
type SyncReport struct {
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Total      int         `json:"total"`
	Synced     int         `json:"synced"`
	Failed     int         `json:"failed"`
	Errors     []SyncError `json:"errors,omitempty"`
}
