package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Fetcher pulls recent posts for one handle from the upstream API.
type Fetcher interface {
	FetchRecent(ctx context.Context, handle string, limit int) ([]FetchedPost, error)
}

type Repository interface {
	FindByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int) ([]CachedPost, error)
	Upsert(ctx context.Context, db *gorm.DB, post *CachedPost) error
	// EvictBeyond deletes everything but the newest keep posts for the
	// tenant, ordered by posting time.
	EvictBeyond(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, keep int) error
	Clear(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) error
	Stats(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*CacheStats, error)
	StatsAll(ctx context.Context, db *gorm.DB) (*CacheStats, error)
}

// GetOptions controls a single cache read.
type GetOptions struct {
	ForceRefresh bool
	Limit        int
}

// PostsResult carries the posts plus how they were served.
type PostsResult struct {
	Posts     []CachedPost `json:"posts"`
	FromCache bool         `json:"from_cache"`
	Stale     bool         `json:"stale"`
}

type Service interface {
	GetPosts(ctx context.Context, tenantID snowflake.ID, opts GetOptions) (*PostsResult, error)
	Refresh(ctx context.Context, tenantID snowflake.ID) (int, error)
	Clear(ctx context.Context, tenantID snowflake.ID) error
	SyncAll(ctx context.Context) (*SyncReport, error)
	// Stats reports on one tenant's slice of the cache; StatsAll is the
	// admin rollup across tenants.
	Stats(ctx context.Context, tenantID snowflake.ID) (*CacheStats, error)
	StatsAll(ctx context.Context) (*CacheStats, error)
}
