package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smallbiznis/relaypay/pkg/evm"
	"gorm.io/gorm"
)

type Repository interface {
	SetDestination(ctx context.Context, db *gorm.DB, dest *AllowedDestination) error
	IsAllowed(ctx context.Context, db *gorm.DB, selector evm.Selector) (bool, error)
	ListDestinations(ctx context.Context, db *gorm.DB) ([]AllowedDestination, error)

	InsertTransfer(ctx context.Context, db *gorm.DB, transfer *Transfer) error
	FindTransfer(ctx context.Context, db *gorm.DB, messageID common.Hash) (*Transfer, error)

	InsertMessage(ctx context.Context, db *gorm.DB, msg *OutboundMessage) error
	ListPendingMessages(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]OutboundMessage, error)
	MarkMessagePublished(ctx context.Context, db *gorm.DB, id int64, at time.Time) error
	MarkMessageFailed(ctx context.Context, db *gorm.DB, id int64, attempts int, nextAttemptAt time.Time, lastErr string) error
}
