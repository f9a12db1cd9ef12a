package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/bridge/domain"
	"github.com/smallbiznis/relaypay/internal/clock"
	"github.com/smallbiznis/relaypay/internal/config"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	"github.com/smallbiznis/relaypay/pkg/evm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RouterParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	ChainCfg *config.ChainConfigHolder
	Repo     domain.Repository
}

// OutboxRouter quotes fees from the configured fee table and records each
// message in bridge_messages; the relay forwards them to the destination.
type OutboxRouter struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	chainCfg *config.ChainConfigHolder
	repo     domain.Repository
}

func NewOutboxRouter(p RouterParams) *OutboxRouter {
	return &OutboxRouter{
		db:       p.DB,
		log:      p.Log.Named("bridge.router"),
		genID:    p.GenID,
		clock:    p.Clock,
		chainCfg: p.ChainCfg,
		repo:     p.Repo,
	}
}

func (r *OutboxRouter) FeeCollector() common.Address {
	return r.chainCfg.Get().RouterAddress
}

func (r *OutboxRouter) GetFee(ctx context.Context, selector evm.Selector, msg domain.Message) (decimal.Decimal, error) {
	fee, ok := r.chainCfg.Get().FeeFor(selector, evm.IsZero(msg.FeeToken))
	if !ok {
		return decimal.Zero, domain.ErrNoFeeQuote
	}
	return fee, nil
}

func (r *OutboxRouter) Send(ctx context.Context, tx *gorm.DB, selector evm.Selector, msg domain.Message) (common.Hash, error) {
	fee, err := r.GetFee(ctx, selector, msg)
	if err != nil {
		return common.Hash{}, err
	}

	seq := r.genID.Generate().Int64()
	messageID, err := computeMessageID(seq, selector, msg)
	if err != nil {
		return common.Hash{}, err
	}

	now := r.clock.Now()
	if err := r.repo.InsertMessage(ctx, tx, &domain.OutboundMessage{
		ID:            seq,
		MessageID:     messageID,
		Selector:      selector,
		Receiver:      msg.Receiver,
		Token:         msg.Token,
		Amount:        msg.Amount,
		FeeToken:      msg.FeeToken,
		Fee:           fee,
		CreatedAt:     now,
		NextAttemptAt: now,
	}); err != nil {
		return common.Hash{}, fmt.Errorf("record bridge message: %w", err)
	}
	return messageID, nil
}

func (r *OutboxRouter) ClaimPending(ctx context.Context, limit int) ([]domain.OutboundMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.repo.ListPendingMessages(ctx, r.db, r.clock.Now(), limit)
}

func (r *OutboxRouter) MarkPublished(ctx context.Context, id int64) error {
	return r.repo.MarkMessagePublished(ctx, r.db, id, r.clock.Now())
}

func (r *OutboxRouter) MarkFailed(ctx context.Context, msg domain.OutboundMessage, cause error) error {
	attempts := msg.Attempts + 1
	next := r.clock.Now().Add(eventsdomain.RetryDelay(attempts))
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	if len(reason) > 512 {
		reason = reason[:512]
	}
	r.log.Warn("bridge message relay failed",
		zap.String("message_id", msg.MessageID.Hex()),
		zap.Int("attempts", attempts),
		zap.Error(cause),
	)
	return r.repo.MarkMessageFailed(ctx, r.db, msg.ID, attempts, next, reason)
}

type messageEnvelope struct {
	Sequence uint64
	Selector uint64
	Receiver common.Address
	Token    common.Address
	Amount   []byte
	FeeToken common.Address
}

// computeMessageID hashes the RLP encoding of the message and its sequence number.
func computeMessageID(seq int64, selector evm.Selector, msg domain.Message) (common.Hash, error) {
	encoded, err := rlp.EncodeToBytes(messageEnvelope{
		Sequence: uint64(seq),
		Selector: uint64(selector),
		Receiver: msg.Receiver,
		Token:    msg.Token,
		Amount:   msg.Amount.BigInt().Bytes(),
		FeeToken: msg.FeeToken,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode bridge message: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

// RoutingKey is the broker routing key for messages bound to selector.
func RoutingKey(selector evm.Selector) string {
	return "ccip." + strings.TrimSpace(selector.String())
}
