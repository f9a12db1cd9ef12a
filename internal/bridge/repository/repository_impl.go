package repository

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smallbiznis/relaypay/internal/bridge/domain"
	"github.com/smallbiznis/relaypay/pkg/evm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) SetDestination(ctx context.Context, db *gorm.DB, dest *domain.AllowedDestination) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "selector"}},
		DoUpdates: clause.AssignmentColumns([]string{"allowed", "updated_at"}),
	}).Create(dest).Error
}

func (r *repo) IsAllowed(ctx context.Context, db *gorm.DB, selector evm.Selector) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM allowed_destination_chains WHERE selector = ? AND allowed = ?`,
		selector,
		true,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListDestinations(ctx context.Context, db *gorm.DB) ([]domain.AllowedDestination, error) {
	var items []domain.AllowedDestination
	err := db.WithContext(ctx).Raw(
		`SELECT selector, allowed, updated_at FROM allowed_destination_chains
		 WHERE allowed = ? ORDER BY updated_at ASC`,
		true,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertTransfer(ctx context.Context, db *gorm.DB, transfer *domain.Transfer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bridge_transfers
		 (message_id, sender, selector, receiver, token, fee_token, amount, fee, fee_param1, fee_param2, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transfer.MessageID,
		transfer.Sender,
		transfer.Selector,
		transfer.Receiver,
		transfer.Token,
		transfer.FeeToken,
		transfer.Amount,
		transfer.Fee,
		transfer.FeeParam1,
		transfer.FeeParam2,
		transfer.CreatedAt,
	).Error
}

func (r *repo) FindTransfer(ctx context.Context, db *gorm.DB, messageID common.Hash) (*domain.Transfer, error) {
	var rows []domain.Transfer
	err := db.WithContext(ctx).Raw(
		`SELECT message_id, sender, selector, receiver, token, fee_token, amount, fee, fee_param1, fee_param2, created_at
		 FROM bridge_transfers WHERE message_id = ?`,
		messageID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) InsertMessage(ctx context.Context, db *gorm.DB, msg *domain.OutboundMessage) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bridge_messages
		 (id, message_id, selector, receiver, token, amount, fee_token, fee, created_at, attempts, next_attempt_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.MessageID,
		msg.Selector,
		msg.Receiver,
		msg.Token,
		msg.Amount,
		msg.FeeToken,
		msg.Fee,
		msg.CreatedAt,
		msg.Attempts,
		msg.NextAttemptAt,
	).Error
}

func (r *repo) ListPendingMessages(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.OutboundMessage, error) {
	var items []domain.OutboundMessage
	err := db.WithContext(ctx).Raw(
		`SELECT id, message_id, selector, receiver, token, amount, fee_token, fee, created_at,
		        published_at, attempts, next_attempt_at, last_error
		 FROM bridge_messages
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

func (r *repo) MarkMessagePublished(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bridge_messages SET published_at = ?, last_error = NULL WHERE id = ?`,
		at,
		id,
	).Error
}

func (r *repo) MarkMessageFailed(ctx context.Context, db *gorm.DB, id int64, attempts int, nextAttemptAt time.Time, lastErr string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bridge_messages SET attempts = ?, next_attempt_at = ?, last_error = ? WHERE id = ?`,
		attempts,
		nextAttemptAt,
		lastErr,
		id,
	).Error
}
