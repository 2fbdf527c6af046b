package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/renolink/renolink/internal/clock"
	"github.com/renolink/renolink/internal/inquiry/domain"
	"github.com/renolink/renolink/internal/providers/email"
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
	Repo       domain.Repository
	TenantRepo tenantdomain.Repository
	Email      email.Provider
	Clock      clock.Clock
}

type service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	tenantRepo tenantdomain.Repository
	email      email.Provider
	clock      clock.Clock
}

func Provide(p Params) domain.Service {
	return &service{
		db:         p.DB,
		log:        p.Log.Named("inquiry.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		tenantRepo: p.TenantRepo,
		email:      p.Email,
		clock:      p.Clock,
	}
}

// Create stores the inquiry and notifies the tenant by mail. Delivery
// failure does not fail the submission.
func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Inquiry, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" || req.Email == "" || req.Message == "" {
		return nil, domain.ErrInvalidRequest
	}

	tenant, err := s.tenantRepo.FindByID(ctx, s.db, req.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, tenantdomain.ErrNotFound
	}

	now := s.clock.Now()
	inquiry := &domain.Inquiry{
		ID:        s.genID.Generate(),
		TenantID:  tenant.ID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     strings.TrimSpace(req.Phone),
		Message:   req.Message,
		Status:    domain.StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, inquiry); err != nil {
		return nil, err
	}

	if err := s.notifyTenant(ctx, tenant, inquiry); err != nil {
		s.log.Warn("inquiry notification failed",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("inquiry_id", inquiry.ID.String()),
			zap.Error(err),
		)
	}

	s.log.Info("inquiry created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("inquiry_id", inquiry.ID.String()),
	)
	return inquiry, nil
}

func (s *service) notifyTenant(ctx context.Context, tenant *tenantdomain.Tenant, inquiry *domain.Inquiry) error {
	subject := "【RenoLink】新しいお問い合わせが届きました"
	body := fmt.Sprintf(
		`<p>%s 様</p>
<p>新しいお問い合わせが届きました。</p>
<ul>
<li>お名前: %s</li>
<li>メール: %s</li>
<li>電話番号: %s</li>
</ul>
<p>%s</p>`,
		html.EscapeString(tenant.Name),
		html.EscapeString(inquiry.Name),
		html.EscapeString(inquiry.Email),
		html.EscapeString(inquiry.Phone),
		html.EscapeString(inquiry.Message),
	)
	return s.email.Send(ctx, []string{tenant.Email}, subject, body)
}

func (s *service) ListByTenant(ctx context.Context, tenantID snowflake.ID, limit int, offset int) ([]domain.Inquiry, error) {
	return s.repo.ListByTenant(ctx, s.db, tenantID, limit, offset)
}

func (s *service) UpdateStatus(ctx context.Context, id snowflake.ID, status domain.InquiryStatus) (*domain.Inquiry, error) {
	switch status {
	case domain.StatusNew, domain.StatusRead, domain.StatusClosed:
	default:
		return nil, domain.ErrInvalidTransition
	}

	inquiry, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if inquiry == nil {
		return nil, domain.ErrNotFound
	}
	if err := s.repo.UpdateStatus(ctx, s.db, id, status); err != nil {
		return nil, err
	}
	inquiry.Status = status
	inquiry.UpdatedAt = s.clock.Now()
	return inquiry, nil
}
