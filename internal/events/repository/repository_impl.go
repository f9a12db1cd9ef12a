package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/relaypay/internal/events/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.Record) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO event_logs (id, name, payload, emitted_at, attempts, next_attempt_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Name,
		record.Payload,
		record.EmittedAt,
		record.Attempts,
		record.NextAttemptAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Record, error) {
	var items []domain.Record
	stmt := db.WithContext(ctx).Model(&domain.Record{}).Where("id > ?", filter.AfterID)
	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if err := stmt.Order("id ASC").Limit(filter.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListPending(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Record, error) {
	var items []domain.Record
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, payload, emitted_at, published_at, attempts, next_attempt_at, last_error
		 FROM event_logs
		 WHERE published_at IS NULL AND next_attempt_at <= ?
		 ORDER BY id ASC
		 LIMIT ?`,
		now,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkPublished(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE event_logs SET published_at = ?, last_error = NULL WHERE id = ?`,
		at,
		id,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id int64, attempts int, nextAttemptAt time.Time, lastErr string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE event_logs SET attempts = ?, next_attempt_at = ?, last_error = ? WHERE id = ?`,
		attempts,
		nextAttemptAt,
		lastErr,
		id,
	).Error
}
