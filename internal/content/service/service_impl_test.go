package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/renolink/renolink/internal/clock"
	"github.com/renolink/renolink/internal/config"
	contentdomain "github.com/renolink/renolink/internal/content/domain"
	contentrepo "github.com/renolink/renolink/internal/content/repository"
	contentservice "github.com/renolink/renolink/internal/content/service"
	tenantdomain "github.com/renolink/renolink/internal/tenant/domain"
	tenantrepo "github.com/renolink/renolink/internal/tenant/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeFetcher struct {
	posts   []contentdomain.FetchedPost
	err     error
	calls   int
	block   chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) FetchRecent(ctx context.Context, handle string, limit int) ([]contentdomain.FetchedPost, error) {
	f.calls++
	if f.block != nil {
		f.block <- struct{}{}
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.posts, nil
}

func makePosts(n int, base time.Time) []contentdomain.FetchedPost {
	posts := make([]contentdomain.FetchedPost, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, contentdomain.FetchedPost{
			MediaID:   fmt.Sprintf("media_%d", i),
			MediaType: "IMAGE",
			Caption:   fmt.Sprintf("post %d", i),
			MediaURL:  fmt.Sprintf("https://cdn.example.com/%d.jpg", i),
			Permalink: fmt.Sprintf("https://www.instagram.com/p/post%d/", i),
			PostedAt:  base.Add(time.Duration(i) * time.Minute),
		})
	}
	return posts
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_content_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE tenants (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT,
			password_hash TEXT NOT NULL,
			subscription_status TEXT NOT NULL,
			max_slots INTEGER NOT NULL DEFAULT 1,
			instagram_handle TEXT,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE cached_content_posts (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			media_id TEXT,
			media_type TEXT,
			caption TEXT,
			media_url TEXT NOT NULL,
			thumbnail_url TEXT,
			permalink TEXT NOT NULL,
			posted_at DATETIME NOT NULL,
			fetched_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX idx_cached_posts_tenant_permalink ON cached_content_posts(tenant_id, permalink)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}
	return db
}

func newContentService(t *testing.T, db *gorm.DB, fetcher contentdomain.Fetcher, fake *clock.FakeClock) contentdomain.Service {
	t.Helper()
	return newContentServiceWithRepo(t, db, contentrepo.Provide(), fetcher, fake)
}

func newContentServiceWithRepo(t *testing.T, db *gorm.DB, repo contentdomain.Repository, fetcher contentdomain.Fetcher, fake *clock.FakeClock) contentdomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(32)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return contentservice.Provide(contentservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       repo,
		TenantRepo: tenantrepo.Provide(),
		Fetcher:    fetcher,
		Clock:      fake,
		Cfg: config.Config{
			Cache: config.CacheConfig{
				MaxAge:         time.Hour,
				RetentionLimit: 50,
			},
		},
	})
}

func seedTenant(t *testing.T, db *gorm.DB, id snowflake.ID, handle string) {
	t.Helper()
	seedTenantWithStatus(t, db, id, handle, "active")
}

func seedTenantWithStatus(t *testing.T, db *gorm.DB, id snowflake.ID, handle string, status string) {
	t.Helper()

	now := time.Now().UTC()
	var handlePtr *string
	if handle != "" {
		handlePtr = &handle
	}
	err := db.Exec(
		`INSERT INTO tenants (id, name, slug, email, phone, password_hash, subscription_status, max_slots, instagram_handle, created_at, updated_at)
		 VALUES (?, ?, ?, ?, '', 'x', ?, 1, ?, ?, ?)`,
		id, "Kobayashi Home", fmt.Sprintf("kobayashi-%d", id), fmt.Sprintf("k-%d@example.jp", id), status, handlePtr, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
}

func TestGetPostsServesFreshCacheWithoutFetching(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{posts: makePosts(3, fake.Now().Add(-24*time.Hour))}
	svc := newContentService(t, db, fetcher, fake)

	node, _ := snowflake.NewNode(33)
	tenantID := node.Generate()
	seedTenant(t, db, tenantID, "kobayashi_home")

	// First call populates the cache.
	first, err := svc.GetPosts(ctx, tenantID, contentdomain.GetOptions{})
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	if first.FromCache || len(first.Posts) != 3 {
		t.Fatalf("expected 3 freshly fetched posts, got %+v", first)
	}

	// Within the max age the cache is served and upstream stays idle.
	fake.Advance(30 * time.Minute)
	second, err := svc.GetPosts(ctx, tenantID, contentdomain.GetOptions{})
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if !second.FromCache || second.Stale {
		t.Fatalf("expected fresh cache hit, got %+v", second)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", fetcher.calls)
	}

	// Past the max age the cache is refreshed.
	fake.Advance(time.Hour)
	if _, err := svc.GetPosts(ctx, tenantID, contentdomain.GetOptions{}); err != nil {
		t.Fatalf("third get: %v", err)
	}
	if fetcher.calls != 2 {
		t.Fatalf("expected refresh after max age, got %d calls", fetcher.calls)
	}
}

func TestGetPostsForceRefreshBypassesFreshness(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{posts: makePosts(2, fake.Now().Add(-24*time.Hour))}
	svc := newContentService(t, db, fetcher, fake)

	node, _ := snowflake.NewNode(34)
	tenantID := node.Generate()
	seedTenant(t, db, tenantID, "kobayashi_home")

	if _, err := svc.GetPosts(ctx, tenantID, contentdomain.GetOptions{}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if _, err := svc.GetPosts(ctx, tenantID, contentdomain.GetOptions{ForceRefresh: true}); err != nil {
		t.Fatalf("force refresh: %v", err)
	}
	if fetcher.calls != 2 {
		t.Fatalf("force refresh must hit upstream, got %d calls", fetcher.calls)
	}
}

func TestGetPostsFallsBackToStaleCacheWhenUpstreamDown(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{posts: makePosts(2, fake.Now().Add(-24*time.Hour))}
	svc := newContentService(t, db, fetcher, fake)

	node, _ := snowflake.NewNode(35)
	tenantID := node.Generate()
	seedTenant(t, db, tenantID, "kobayashi_home")

	if _, err := svc.GetPosts(ctx, tenantID, contentdomain.GetOptions{}); err != nil {
		t.Fatalf("populate: %v", err)
	}

	fake.Advance(2 * time.Hour)
	fetcher.err = contentdomain.ErrUpstreamUnavailable

	result, err := svc.GetPosts(ctx, tenantID, contentdomain.GetOptions{})
	if err != nil {
		t.Fatalf("expected stale fallback, got %v", err)
	}
	if !result.Stale || !result.FromCache || len(result.Posts) != 2 {
		t.Fatalf("expected stale cached posts, got %+v", result)
	}
}

func TestGetPostsEmptyCachePropagatesUpstreamFailure(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{err: contentdomain.ErrUpstreamUnavailable}
	svc := newContentService(t, db, fetcher, fake)

	node, _ := snowflake.NewNode(36)
	tenantID := node.Generate()
	seedTenant(t, db, tenantID, "kobayashi_home")

	_, err := svc.GetPosts(ctx, tenantID, contentdomain.GetOptions{})
	if !errors.Is(err, contentdomain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestRefreshEvictsBeyondRetentionLimit(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{posts: makePosts(60, fake.Now().Add(-48*time.Hour))}
	svc := newContentService(t, db, fetcher, fake)

	node, _ := snowflake.NewNode(37)
	tenantID := node.Generate()
	seedTenant(t, db, tenantID, "kobayashi_home")

	synced, err := svc.Refresh(ctx, tenantID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if synced != 60 {
		t.Fatalf("expected 60 fetched posts, got %d", synced)
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM cached_content_posts WHERE tenant_id = ?`, tenantID).Scan(&count).Error; err != nil {
		t.Fatalf("count posts: %v", err)
	}
	if count != 50 {
		t.Fatalf("expected retention to keep 50 posts, got %d", count)
	}

	// The newest posts survive eviction.
	var newest string
	if err := db.Raw(
		`SELECT permalink FROM cached_content_posts WHERE tenant_id = ? ORDER BY posted_at DESC LIMIT 1`,
		tenantID,
	).Scan(&newest).Error; err != nil {
		t.Fatalf("scan newest: %v", err)
	}
	if newest != "https://www.instagram.com/p/post59/" {
		t.Fatalf("expected newest post to survive, got %s", newest)
	}
}

func TestRefreshWithoutHandle(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	svc := newContentService(t, db, &fakeFetcher{}, fake)

	node, _ := snowflake.NewNode(38)
	tenantID := node.Generate()
	seedTenant(t, db, tenantID, "")

	_, err := svc.Refresh(ctx, tenantID)
	if !errors.Is(err, contentdomain.ErrNoHandle) {
		t.Fatalf("expected ErrNoHandle, got %v", err)
	}
}

func TestSyncAllRejectsConcurrentRuns(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{
		posts:   makePosts(1, fake.Now().Add(-24*time.Hour)),
		block:   make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newContentService(t, db, fetcher, fake)

	node, _ := snowflake.NewNode(39)
	tenantID := node.Generate()
	seedTenant(t, db, tenantID, "kobayashi_home")

	done := make(chan error, 1)
	go func() {
		_, err := svc.SyncAll(ctx)
		done <- err
	}()

	// Wait until the first run is inside the fetcher, then try again.
	<-fetcher.block
	_, err := svc.SyncAll(ctx)
	if !errors.Is(err, contentdomain.ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}

	close(fetcher.release)
	if err := <-done; err != nil {
		t.Fatalf("first sync: %v", err)
	}
}

func TestSyncAllReportsPartialFailures(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{posts: makePosts(2, fake.Now().Add(-24*time.Hour))}
	svc := newContentService(t, db, fetcher, fake)

	node, _ := snowflake.NewNode(40)
	okID := node.Generate()
	seedTenant(t, db, okID, "kobayashi_home")
	badID := node.Generate()
	seedTenant(t, db, badID, "broken_handle")

	report, err := svc.SyncAll(ctx)
	if err != nil {
		t.Fatalf("sync all: %v", err)
	}
	if report.Total != 2 || report.Synced != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	// A failing tenant is counted, not fatal, and named in the report.
	fetcher.err = contentdomain.ErrUpstreamUnavailable
	report, err = svc.SyncAll(ctx)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if report.Synced != 0 || report.Failed != 2 {
		t.Fatalf("expected all failures reported, got %+v", report)
	}
	if len(report.Errors) != 2 {
		t.Fatalf("expected 2 error entries, got %+v", report.Errors)
	}
	seen := map[snowflake.ID]bool{}
	for _, e := range report.Errors {
		if e.Error == "" {
			t.Fatalf("error entry missing message: %+v", e)
		}
		seen[e.TenantID] = true
	}
	if !seen[okID] || !seen[badID] {
		t.Fatalf("error entries missing tenant ids: %+v", report.Errors)
	}
}

func TestSyncAllSkipsInactiveTenants(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{posts: makePosts(1, fake.Now().Add(-24*time.Hour))}
	svc := newContentService(t, db, fetcher, fake)

	node, _ := snowflake.NewNode(41)
	activeID := node.Generate()
	seedTenant(t, db, activeID, "kobayashi_home")
	cancelledID := node.Generate()
	seedTenantWithStatus(t, db, cancelledID, "gone_but_linked", "cancelled")

	report, err := svc.SyncAll(ctx)
	if err != nil {
		t.Fatalf("sync all: %v", err)
	}
	if report.Total != 1 || report.Synced != 1 {
		t.Fatalf("batch must cover active tenants only, got %+v", report)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", fetcher.calls)
	}
}

// flakyRepo fails upserts for one permalink and delegates the rest.
type flakyRepo struct {
	contentdomain.Repository
	failPermalink string
}

func (r *flakyRepo) Upsert(ctx context.Context, db *gorm.DB, post *contentdomain.CachedPost) error {
	if post.Permalink == r.failPermalink {
		return errors.New("transient row failure")
	}
	return r.Repository.Upsert(ctx, db, post)
}

func TestRefreshSkipsFailingUpserts(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{posts: makePosts(3, fake.Now().Add(-24*time.Hour))}
	repo := &flakyRepo{
		Repository:    contentrepo.Provide(),
		failPermalink: "https://www.instagram.com/p/post1/",
	}
	svc := newContentServiceWithRepo(t, db, repo, fetcher, fake)

	node, _ := snowflake.NewNode(42)
	tenantID := node.Generate()
	seedTenant(t, db, tenantID, "kobayashi_home")

	stored, err := svc.Refresh(ctx, tenantID)
	if err != nil {
		t.Fatalf("one bad post must not fail the refresh: %v", err)
	}
	if stored != 2 {
		t.Fatalf("expected 2 stored posts, got %d", stored)
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM cached_content_posts WHERE tenant_id = ?`, tenantID).Scan(&count).Error; err != nil {
		t.Fatalf("count posts: %v", err)
	}
	if count != 2 {
		t.Fatalf("good rows must survive the bad one, got %d", count)
	}
}

func TestStatsScopedToTenant(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{posts: makePosts(3, fake.Now().Add(-24*time.Hour))}
	svc := newContentService(t, db, fetcher, fake)

	node, _ := snowflake.NewNode(43)
	firstID := node.Generate()
	seedTenant(t, db, firstID, "kobayashi_home")
	secondID := node.Generate()
	seedTenant(t, db, secondID, "yamada_renovations")

	if _, err := svc.Refresh(ctx, firstID); err != nil {
		t.Fatalf("refresh first: %v", err)
	}
	if _, err := svc.Refresh(ctx, secondID); err != nil {
		t.Fatalf("refresh second: %v", err)
	}

	stats, err := svc.Stats(ctx, firstID)
	if err != nil {
		t.Fatalf("tenant stats: %v", err)
	}
	if stats.TotalPosts != 3 || stats.Tenants != 1 {
		t.Fatalf("stats must cover one tenant only, got %+v", stats)
	}

	all, err := svc.StatsAll(ctx)
	if err != nil {
		t.Fatalf("rollup stats: %v", err)
	}
	if all.TotalPosts != 6 || all.Tenants != 2 {
		t.Fatalf("unexpected rollup: %+v", all)
	}

	if _, err := svc.Stats(ctx, snowflake.ID(99)); !errors.Is(err, tenantdomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown tenant, got %v", err)
	}
}
