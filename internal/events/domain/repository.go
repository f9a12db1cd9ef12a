package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *Record) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Record, error)
	ListPending(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Record, error)
	MarkPublished(ctx context.Context, db *gorm.DB, id int64, at time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id int64, attempts int, nextAttemptAt time.Time, lastErr string) error
}
