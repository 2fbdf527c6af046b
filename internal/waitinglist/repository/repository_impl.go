package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	waitinglistdomain "github.com/renolink/renolink/internal/waitinglist/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() waitinglistdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *waitinglistdomain.Entry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO waiting_list_entries (
			id, name, email, phone, message, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Name,
		entry.Email,
		entry.Phone,
		entry.Message,
		entry.Status,
		entry.CreatedAt,
		entry.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*waitinglistdomain.Entry, error) {
	var item waitinglistdomain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, phone, message, status, created_at, updated_at
		 FROM waiting_list_entries
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Position(ctx context.Context, db *gorm.DB, entry *waitinglistdomain.Entry) (int64, error) {
	var position int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM waiting_list_entries
		 WHERE status = ? AND created_at <= ?`,
		waitinglistdomain.StatusWaiting,
		entry.CreatedAt,
	).Scan(&position).Error
	if err != nil {
		return 0, err
	}
	return position, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, status waitinglistdomain.EntryStatus) ([]waitinglistdomain.Entry, error) {
	query := db.WithContext(ctx).Table("waiting_list_entries")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var items []waitinglistdomain.Entry
	if err := query.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status waitinglistdomain.EntryStatus) error {
	return db.WithContext(ctx).Exec(
		`UPDATE waiting_list_entries
		 SET status = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		time.Now().UTC(),
		id,
	).Error
}
