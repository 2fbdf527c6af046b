package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/renolink/renolink/internal/content/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const cachedPostColumns = `id, tenant_id, media_id, media_type, caption, media_url,
	thumbnail_url, permalink, posted_at, fetched_at`

func (r *repo) FindByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int) ([]domain.CachedPost, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []domain.CachedPost
	err := db.WithContext(ctx).Raw(
		`SELECT `+cachedPostColumns+`
		 FROM cached_content_posts
		 WHERE tenant_id = ?
		 ORDER BY posted_at DESC
		 LIMIT ?`,
		tenantID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, post *domain.CachedPost) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO cached_content_posts (
			id, tenant_id, media_id, media_type, caption, media_url,
			thumbnail_url, permalink, posted_at, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, permalink) DO UPDATE SET
			media_id = excluded.media_id,
			media_type = excluded.media_type,
			caption = excluded.caption,
			media_url = excluded.media_url,
			thumbnail_url = excluded.thumbnail_url,
			posted_at = excluded.posted_at,
			fetched_at = excluded.fetched_at`,
		post.ID,
		post.TenantID,
		post.MediaID,
		post.MediaType,
		post.Caption,
		post.MediaURL,
		post.ThumbnailURL,
		post.Permalink,
		post.PostedAt,
		post.FetchedAt,
	).Error
}

func (r *repo) EvictBeyond(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, keep int) error {
	if keep <= 0 {
		keep = 50
	}
	return db.WithContext(ctx).Exec(
		`DELETE FROM cached_content_posts
		 WHERE tenant_id = ?
		   AND id NOT IN (
			SELECT id FROM cached_content_posts
			WHERE tenant_id = ?
			ORDER BY posted_at DESC
			LIMIT ?
		 )`,
		tenantID,
		tenantID,
		keep,
	).Error
}

func (r *repo) Clear(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM cached_content_posts WHERE tenant_id = ?`,
		tenantID,
	).Error
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*domain.CacheStats, error) {
	var stats domain.CacheStats
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total_posts,
			COUNT(DISTINCT tenant_id) AS tenants,
			MIN(fetched_at) AS oldest_fetched_at,
			MAX(fetched_at) AS newest_fetched_at
		 FROM cached_content_posts
		 WHERE tenant_id = ?`,
		tenantID,
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *repo) StatsAll(ctx context.Context, db *gorm.DB) (*domain.CacheStats, error) {
	var stats domain.CacheStats
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total_posts,
			COUNT(DISTINCT tenant_id) AS tenants,
			MIN(fetched_at) AS oldest_fetched_at,
			MAX(fetched_at) AS newest_fetched_at
		 FROM cached_content_posts`,
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
