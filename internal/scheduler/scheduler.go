// Package scheduler drives the periodic content sync and exposes its
// run state to the admin surface.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/renolink/renolink/internal/clock"
	contentdomain "github.com/renolink/renolink/internal/content/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	ContentSvc contentdomain.Service
	Clock      clock.Clock
	Config     Config `optional:"true"`
}

// SyncStatus is a queryable snapshot of the sync loop.
type SyncStatus struct {
	Enabled        bool                      `json:"enabled"`
	Running        bool                      `json:"running"`
	Interval       string                    `json:"interval"`
	Timezone       string                    `json:"timezone"`
	LastStartedAt  *time.Time                `json:"last_started_at,omitempty"`
	LastFinishedAt *time.Time                `json:"last_finished_at,omitempty"`
	LastError      string                    `json:"last_error,omitempty"`
	LastReport     *contentdomain.SyncReport `json:"last_report,omitempty"`
	NextRunAt      *time.Time                `json:"next_run_at,omitempty"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	contentSvc contentdomain.Service

	mu     sync.Mutex
	status SyncStatus
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.ContentSvc == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        cfg,
		clock:      p.Clock,
		contentSvc: p.ContentSvc,
		status: SyncStatus{
			Enabled:  cfg.Enabled,
			Interval: cfg.RunInterval.String(),
			Timezone: cfg.Timezone,
		},
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes one sync pass and records the outcome for Status.
func (s *Scheduler) RunOnce(parent context.Context) error {
	started := s.clock.Now()
	s.setRunning(started)

	var report *contentdomain.SyncReport
	err := s.runJob(parent, "content_sync", s.cfg.JobTimeout, func(ctx context.Context) error {
		var syncErr error
		report, syncErr = s.contentSvc.SyncAll(ctx)
		if errors.Is(syncErr, contentdomain.ErrSyncInProgress) {
			s.log.Info("sync already running, skipping tick")
			return nil
		}
		return syncErr
	})

	s.setFinished(s.clock.Now(), report, err)
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		s.setNextRun(s.clock.Now().Add(s.cfg.RunInterval))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// TriggerSync runs one pass outside the timer, for the admin endpoint.
func (s *Scheduler) TriggerSync(ctx context.Context) (*contentdomain.SyncReport, error) {
	started := s.clock.Now()
	s.setRunning(started)

	report, err := s.contentSvc.SyncAll(ctx)
	s.setFinished(s.clock.Now(), report, err)
	return report, err
}

// Status returns a copy of the current run state.
func (s *Scheduler) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scheduler) setRunning(startedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = true
	s.status.LastStartedAt = &startedAt
	s.status.LastError = ""
}

func (s *Scheduler) setFinished(finishedAt time.Time, report *contentdomain.SyncReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = false
	s.status.LastFinishedAt = &finishedAt
	if report != nil {
		s.status.LastReport = report
	}
	if err != nil && !errors.Is(err, contentdomain.ErrSyncInProgress) {
		s.status.LastError = err.Error()
	}
}

func (s *Scheduler) setNextRun(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.NextRunAt = &at
}
