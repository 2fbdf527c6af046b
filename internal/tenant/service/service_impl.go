package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/renolink/renolink/internal/config"
	"github.com/renolink/renolink/internal/metrics"
	tenantdomain "github.com/renolink/renolink/internal/tenant/domain"
	"github.com/renolink/renolink/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    tenantdomain.Repository
	Cfg     config.Config
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    tenantdomain.Repository
	ceiling int64
	metrics *metrics.Metrics
}

func NewService(p Params) tenantdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("tenant.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		ceiling: p.Cfg.Capacity.MaxTenants,
		metrics: p.Metrics,
	}
}

// Register admits a tenant or rejects it at the capacity ceiling. The count
// and the insert run in one transaction so concurrent registrations near the
// ceiling cannot both slip through.
func (s *Service) Register(ctx context.Context, req tenantdomain.RegisterRequest) (*tenantdomain.RegisterResult, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" || strings.TrimSpace(req.Password) == "" {
		return nil, tenantdomain.ErrInvalidRequest
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tenant := &tenantdomain.Tenant{
		ID:                 s.genID.Generate(),
		Name:               name,
		Slug:               slug.Make(name),
		Email:              email,
		Phone:              strings.TrimSpace(req.Phone),
		PasswordHash:       string(hash),
		SubscriptionStatus: tenantdomain.StatusTrial,
		MaxSlots:           1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if handle := strings.TrimSpace(req.InstagramHandle); handle != "" {
		tenant.InstagramHandle = &handle
	}

	var result *tenantdomain.RegisterResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.repo.CountOccupied(ctx, tx)
		if err != nil {
			return err
		}
		if count >= s.ceiling {
			result = &tenantdomain.RegisterResult{
				Admitted:             false,
				LimitReached:         true,
				CurrentCount:         count,
				MaxCount:             s.ceiling,
				WaitingListAvailable: true,
			}
			return nil
		}
		if err := s.repo.Insert(ctx, tx, tenant); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return tenantdomain.ErrEmailTaken
			}
			return err
		}
		result = &tenantdomain.RegisterResult{
			Admitted:     true,
			Tenant:       tenant,
			CurrentCount: count + 1,
			MaxCount:     s.ceiling,
		}
		return nil
	})
	if err != nil {
		s.recordRegistration("error")
		return nil, err
	}

	if result.Admitted {
		s.recordRegistration("admitted")
		s.log.Info("tenant registered",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("slug", tenant.Slug),
		)
	} else {
		s.recordRegistration("rejected")
		s.log.Info("tenant registration rejected at capacity",
			zap.Int64("current", result.CurrentCount),
			zap.Int64("max", result.MaxCount),
		)
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*tenantdomain.Tenant, error) {
	tenant, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, tenantdomain.ErrNotFound
	}
	return tenant, nil
}

func (s *Service) List(ctx context.Context, filter tenantdomain.ListFilter) ([]tenantdomain.Tenant, error) {
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req tenantdomain.UpdateRequest) (*tenantdomain.Tenant, error) {
	tenant, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, tenantdomain.ErrNotFound
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		tenant.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		tenant.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Status != nil {
		tenant.SubscriptionStatus = *req.Status
	}
	if req.MaxSlots != nil && *req.MaxSlots > 0 {
		tenant.MaxSlots = *req.MaxSlots
	}
	if req.InstagramHandle != nil {
		handle := strings.TrimSpace(*req.InstagramHandle)
		if handle == "" {
			tenant.InstagramHandle = nil
		} else {
			tenant.InstagramHandle = &handle
		}
	}
	tenant.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id snowflake.ID, status tenantdomain.SubscriptionStatus) error {
	return s.repo.UpdateStatus(ctx, s.db, id, status)
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	tenant, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if tenant == nil {
		return tenantdomain.ErrNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Delete(ctx, tx, id)
	})
}

func (s *Service) Stats(ctx context.Context) (*tenantdomain.Stats, error) {
	active, err := s.countByStatus(ctx, tenantdomain.StatusActive)
	if err != nil {
		return nil, err
	}
	trial, err := s.countByStatus(ctx, tenantdomain.StatusTrial)
	if err != nil {
		return nil, err
	}

	occupied := active + trial
	left := s.ceiling - occupied
	if left < 0 {
		left = 0
	}
	return &tenantdomain.Stats{
		ActiveCount:  active,
		TrialCount:   trial,
		MaxCount:     s.ceiling,
		SlotsLeft:    left,
		LimitReached: occupied >= s.ceiling,
	}, nil
}

func (s *Service) countByStatus(ctx context.Context, status tenantdomain.SubscriptionStatus) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM tenants WHERE subscription_status = ?`,
		status,
	).Scan(&count).Error
	return count, err
}

func (s *Service) recordRegistration(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Registrations.WithLabelValues(outcome).Inc()
}
