package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
	"github.com/renolink/renolink/internal/clock"
	"github.com/renolink/renolink/internal/config"
	contentdomain "github.com/renolink/renolink/internal/content/domain"
	"github.com/renolink/renolink/internal/metrics"
	tenantdomain "github.com/renolink/renolink/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       contentdomain.Repository
	TenantRepo tenantdomain.Repository
	Fetcher    contentdomain.Fetcher
	Clock      clock.Clock
	Cfg        config.Config
	Metrics    *metrics.Metrics `optional:"true"`
}

type service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       contentdomain.Repository
	tenantRepo tenantdomain.Repository
	fetcher    contentdomain.Fetcher
	clock      clock.Clock
	cfg        config.Config
	metrics    *metrics.Metrics

	syncing atomic.Bool
}

func Provide(p Params) contentdomain.Service {
	return &service{
		db:         p.DB,
		log:        p.Log.Named("content.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		tenantRepo: p.TenantRepo,
		fetcher:    p.Fetcher,
		clock:      p.Clock,
		cfg:        p.Cfg,
		metrics:    p.Metrics,
	}
}

// GetPosts serves cached posts while they are fresh and refreshes them
// from upstream otherwise. When upstream is down, stale posts are
// served rather than an error; only an empty cache propagates the
// failure.
func (s *service) GetPosts(ctx context.Context, tenantID snowflake.ID, opts contentdomain.GetOptions) (*contentdomain.PostsResult, error) {
	limit := opts.Limit
	if limit <= 0 || limit > s.cfg.Cache.RetentionLimit {
		limit = s.cfg.Cache.RetentionLimit
	}

	cached, err := s.repo.FindByTenant(ctx, s.db, tenantID, limit)
	if err != nil {
		return nil, err
	}
	if !opts.ForceRefresh && s.isFresh(cached) {
		return &contentdomain.PostsResult{Posts: cached, FromCache: true}, nil
	}

	tenant, err := s.tenantRepo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, tenantdomain.ErrNotFound
	}

	if _, err := s.refreshTenant(ctx, tenant); err != nil {
		if len(cached) > 0 && errors.Is(err, contentdomain.ErrUpstreamUnavailable) {
			s.log.Warn("serving stale posts, upstream unavailable",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			return &contentdomain.PostsResult{Posts: cached, FromCache: true, Stale: true}, nil
		}
		return nil, err
	}

	refreshed, err := s.repo.FindByTenant(ctx, s.db, tenantID, limit)
	if err != nil {
		return nil, err
	}
	return &contentdomain.PostsResult{Posts: refreshed}, nil
}

func (s *service) isFresh(posts []contentdomain.CachedPost) bool {
	if len(posts) == 0 {
		return false
	}
	newest := posts[0].FetchedAt
	for _, post := range posts[1:] {
		if post.FetchedAt.After(newest) {
			newest = post.FetchedAt
		}
	}
	return s.clock.Now().Sub(newest) < s.cfg.Cache.MaxAge
}

// Refresh fetches and upserts the tenant's posts unconditionally.
func (s *service) Refresh(ctx context.Context, tenantID snowflake.ID) (int, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return 0, err
	}
	if tenant == nil {
		return 0, tenantdomain.ErrNotFound
	}
	return s.refreshTenant(ctx, tenant)
}

func (s *service) refreshTenant(ctx context.Context, tenant *tenantdomain.Tenant) (int, error) {
	if tenant.InstagramHandle == nil || *tenant.InstagramHandle == "" {
		return 0, contentdomain.ErrNoHandle
	}

	posts, err := s.fetcher.FetchRecent(ctx, *tenant.InstagramHandle, s.cfg.Cache.RetentionLimit)
	if err != nil {
		return 0, err
	}

	// Upserts are applied one by one: a single bad post must not take
	// down the rest of the batch.
	now := s.clock.Now()
	stored := 0
	for i := range posts {
		post := &contentdomain.CachedPost{
			ID:           s.genID.Generate(),
			TenantID:     tenant.ID,
			MediaID:      posts[i].MediaID,
			MediaType:    posts[i].MediaType,
			Caption:      posts[i].Caption,
			MediaURL:     posts[i].MediaURL,
			ThumbnailURL: posts[i].ThumbnailURL,
			Permalink:    posts[i].Permalink,
			PostedAt:     posts[i].PostedAt,
			FetchedAt:    now,
		}
		if err := s.repo.Upsert(ctx, s.db, post); err != nil {
			s.log.Warn("post upsert failed, skipping",
				zap.String("tenant_id", tenant.ID.String()),
				zap.String("permalink", posts[i].Permalink),
				zap.Error(err),
			)
			continue
		}
		stored++
	}
	if err := s.repo.EvictBeyond(ctx, s.db, tenant.ID, s.cfg.Cache.RetentionLimit); err != nil {
		return stored, err
	}

	s.log.Info("posts refreshed",
		zap.String("tenant_id", tenant.ID.String()),
		zap.Int("fetched", len(posts)),
		zap.Int("stored", stored),
	)
	return stored, nil
}

func (s *service) Clear(ctx context.Context, tenantID snowflake.ID) error {
	return s.repo.Clear(ctx, s.db, tenantID)
}

// maxReportErrors caps the per-tenant error list on a sync report.
const maxReportErrors = 10

// SyncAll refreshes every active tenant that has a handle. A second
// call while a run is in flight returns ErrSyncInProgress instead of
// stacking concurrent runs.
func (s *service) SyncAll(ctx context.Context) (*contentdomain.SyncReport, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return nil, contentdomain.ErrSyncInProgress
	}
	defer s.syncing.Store(false)

	started := s.clock.Now()
	hasHandle := true
	tenants, err := s.tenantRepo.List(ctx, s.db, tenantdomain.ListFilter{
		Status:    tenantdomain.StatusActive,
		HasHandle: &hasHandle,
	})
	if err != nil {
		s.countRun("error")
		return nil, err
	}

	report := &contentdomain.SyncReport{StartedAt: started, Total: len(tenants)}
	for i := range tenants {
		if err := ctx.Err(); err != nil {
			s.countRun("error")
			return report, err
		}
		if _, err := s.refreshTenant(ctx, &tenants[i]); err != nil {
			report.Failed++
			if len(report.Errors) < maxReportErrors {
				report.Errors = append(report.Errors, contentdomain.SyncError{
					TenantID: tenants[i].ID,
					Error:    err.Error(),
				})
			}
			s.log.Warn("tenant sync failed",
				zap.String("tenant_id", tenants[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		report.Synced++
	}
	report.FinishedAt = s.clock.Now()

	outcome := "success"
	if report.Failed > 0 {
		outcome = "partial"
	}
	s.countRun(outcome)
	if s.metrics != nil {
		s.metrics.SyncDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}
	s.log.Info("content sync finished",
		zap.Int("total", report.Total),
		zap.Int("synced", report.Synced),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *service) countRun(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.SyncRuns.WithLabelValues(outcome).Inc()
}

func (s *service) Stats(ctx context.Context, tenantID snowflake.ID) (*contentdomain.CacheStats, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, tenantdomain.ErrNotFound
	}
	return s.repo.Stats(ctx, s.db, tenantID)
}

func (s *service) StatsAll(ctx context.Context) (*contentdomain.CacheStats, error) {
	return s.repo.StatsAll(ctx, s.db)
}
