package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/renolink/renolink/internal/clock"
	contentdomain "github.com/renolink/renolink/internal/content/domain"
	"github.com/renolink/renolink/internal/scheduler"
	"go.uber.org/zap"
)

type fakeContentService struct {
	report *contentdomain.SyncReport
	err    error
	calls  int
}

func (f *fakeContentService) GetPosts(ctx context.Context, tenantID snowflake.ID, opts contentdomain.GetOptions) (*contentdomain.PostsResult, error) {
	return &contentdomain.PostsResult{}, nil
}

func (f *fakeContentService) Refresh(ctx context.Context, tenantID snowflake.ID) (int, error) {
	return 0, nil
}

func (f *fakeContentService) Clear(ctx context.Context, tenantID snowflake.ID) error {
	return nil
}

func (f *fakeContentService) SyncAll(ctx context.Context) (*contentdomain.SyncReport, error) {
	f.calls++
	return f.report, f.err
}

func (f *fakeContentService) Stats(ctx context.Context, tenantID snowflake.ID) (*contentdomain.CacheStats, error) {
	return &contentdomain.CacheStats{}, nil
}

func (f *fakeContentService) StatsAll(ctx context.Context) (*contentdomain.CacheStats, error) {
	return &contentdomain.CacheStats{}, nil
}

func newScheduler(t *testing.T, svc contentdomain.Service, fake *clock.FakeClock) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.New(scheduler.Params{
		Log:        zap.NewNop(),
		ContentSvc: svc,
		Clock:      fake,
		Config: scheduler.Config{
			RunInterval: time.Hour,
			JobTimeout:  10 * time.Minute,
			Timezone:    "Asia/Tokyo",
			Enabled:     true,
		},
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return s
}

func TestRunOnceRecordsReport(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC))
	content := &fakeContentService{
		report: &contentdomain.SyncReport{Total: 5, Synced: 4, Failed: 1},
	}
	s := newScheduler(t, content, fake)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	status := s.Status()
	if status.Running {
		t.Fatalf("scheduler should be idle after the run")
	}
	if status.LastStartedAt == nil || status.LastFinishedAt == nil {
		t.Fatalf("run timestamps not recorded: %+v", status)
	}
	if status.LastReport == nil || status.LastReport.Synced != 4 {
		t.Fatalf("report not recorded: %+v", status.LastReport)
	}
	if status.LastError != "" {
		t.Fatalf("unexpected error recorded: %s", status.LastError)
	}
}

func TestRunOnceSkipsWhenSyncAlreadyRunning(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC))
	content := &fakeContentService{err: contentdomain.ErrSyncInProgress}
	s := newScheduler(t, content, fake)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("overlapping run must be skipped quietly, got %v", err)
	}
	if status := s.Status(); status.LastError != "" {
		t.Fatalf("skip must not record an error, got %s", status.LastError)
	}
}

func TestRunOnceRecordsFailure(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC))
	content := &fakeContentService{err: errors.New("upstream exploded")}
	s := newScheduler(t, content, fake)

	if err := s.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected run error")
	}
	if status := s.Status(); status.LastError == "" {
		t.Fatalf("failure must be visible in status")
	}
}

func TestTriggerSyncReturnsReport(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC))
	content := &fakeContentService{
		report: &contentdomain.SyncReport{Total: 2, Synced: 2},
	}
	s := newScheduler(t, content, fake)

	report, err := s.TriggerSync(context.Background())
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if report.Synced != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if content.calls != 1 {
		t.Fatalf("expected one sync call, got %d", content.calls)
	}
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := scheduler.New(scheduler.Params{})
	if !errors.Is(err, scheduler.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
