package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Emitter appends events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, ev Event) error
}

type Service interface {
	Emitter
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	ClaimPending(ctx context.Context, limit int) ([]Record, error)
	MarkPublished(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, record Record, cause error) error
}

// RetryDelay is the backoff applied after the given number of failed attempts.
func RetryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	seconds := 1 << min(attempts, 8)
	if seconds > 300 {
		seconds = 300
	}
	return time.Duration(seconds) * time.Second
}
