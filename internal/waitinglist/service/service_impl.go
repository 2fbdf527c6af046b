package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/renolink/renolink/internal/providers/email"
	waitinglistdomain "github.com/renolink/renolink/internal/waitinglist/domain"
	"github.com/renolink/renolink/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  waitinglistdomain.Repository
	Email email.Provider
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  waitinglistdomain.Repository
	email email.Provider
}

func NewService(p Params) waitinglistdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("waitinglist.service"),
		genID: p.GenID,
		repo:  p.Repo,
		email: p.Email,
	}
}

func (s *Service) Enqueue(ctx context.Context, req waitinglistdomain.EnqueueRequest) (*waitinglistdomain.EnqueueResult, error) {
	name := strings.TrimSpace(req.Name)
	address := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || address == "" {
		return nil, waitinglistdomain.ErrInvalidRequest
	}

	now := time.Now().UTC()
	entry := &waitinglistdomain.Entry{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     address,
		Phone:     strings.TrimSpace(req.Phone),
		Message:   strings.TrimSpace(req.Message),
		Status:    waitinglistdomain.StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, waitinglistdomain.ErrEmailTaken
		}
		return nil, err
	}

	position, err := s.repo.Position(ctx, s.db, entry)
	if err != nil {
		return nil, err
	}

	s.log.Info("waiting list entry enqueued",
		zap.String("entry_id", entry.ID.String()),
		zap.Int64("position", position),
	)
	return &waitinglistdomain.EnqueueResult{Entry: entry, Position: position}, nil
}

func (s *Service) Position(ctx context.Context, id snowflake.ID) (int64, error) {
	entry, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, waitinglistdomain.ErrNotFound
	}
	if entry.Status != waitinglistdomain.StatusWaiting {
		return 0, nil
	}
	return s.repo.Position(ctx, s.db, entry)
}

func (s *Service) List(ctx context.Context, status waitinglistdomain.EntryStatus) ([]waitinglistdomain.Entry, error) {
	return s.repo.List(ctx, s.db, status)
}

func (s *Service) Transition(ctx context.Context, id snowflake.ID, status waitinglistdomain.EntryStatus) (*waitinglistdomain.Entry, error) {
	switch status {
	case waitinglistdomain.StatusInvited, waitinglistdomain.StatusExpired:
	default:
		return nil, waitinglistdomain.ErrInvalidTransition
	}

	entry, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, waitinglistdomain.ErrNotFound
	}
	if entry.Status != waitinglistdomain.StatusWaiting {
		return nil, waitinglistdomain.ErrInvalidTransition
	}

	if err := s.repo.UpdateStatus(ctx, s.db, id, status); err != nil {
		return nil, err
	}
	entry.Status = status
	entry.UpdatedAt = time.Now().UTC()

	if status == waitinglistdomain.StatusInvited {
		s.sendInvite(ctx, entry)
	}
	return entry, nil
}

// sendInvite is a side effect of the transition; a delivery failure is
// logged, never surfaced.
func (s *Service) sendInvite(ctx context.Context, entry *waitinglistdomain.Entry) {
	if s.email == nil {
		return
	}
	body := fmt.Sprintf(
		"<p>%s 様</p><p>RenoLinkの掲載枠に空きが出ました。登録を完了してください。</p>",
		entry.Name,
	)
	if err := s.email.Send(ctx, []string{entry.Email}, "RenoLink: 登録のご案内", body); err != nil {
		s.log.Warn("failed to send waiting list invite",
			zap.String("entry_id", entry.ID.String()),
			zap.Error(err),
		)
	}
}
