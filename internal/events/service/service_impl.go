package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relaypay/internal/clock"
	"github.com/smallbiznis/relaypay/internal/events/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxErrorLength = 512

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("events.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Emit appends ev to the log using tx, so the row commits or rolls back with the caller.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}

	now := s.clock.Now()
	record := &domain.Record{
		ID:            s.genID.Generate().Int64(),
		Name:          ev.EventName(),
		Payload:       datatypes.JSON(payload),
		EmittedAt:     now,
		NextAttemptAt: now,
	}
	if err := s.repo.Insert(ctx, tx, record); err != nil {
		return fmt.Errorf("append %s: %w", record.Name, err)
	}

	s.log.Debug("event emitted",
		zap.Int64("event_id", record.ID),
		zap.String("event", record.Name),
	)
	return nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Record, error) {
	filter.Name = strings.TrimSpace(filter.Name)
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) ClaimPending(ctx context.Context, limit int) ([]domain.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListPending(ctx, s.db, s.clock.Now(), limit)
}

func (s *Service) MarkPublished(ctx context.Context, id int64) error {
	return s.repo.MarkPublished(ctx, s.db, id, s.clock.Now())
}

func (s *Service) MarkFailed(ctx context.Context, record domain.Record, cause error) error {
	attempts := record.Attempts + 1
	next := s.clock.Now().Add(domain.RetryDelay(attempts))

	msg := "unknown"
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength]
	}

	s.log.Warn("event publish failed",
		zap.Int64("event_id", record.ID),
		zap.String("event", record.Name),
		zap.Int("attempts", attempts),
		zap.Time("next_attempt_at", next),
		zap.Error(cause),
	)
	return s.repo.MarkFailed(ctx, s.db, record.ID, attempts, next, msg)
}
