package domain

import (
	"context"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smallbiznis/relaypay/internal/apperror"
	"github.com/smallbiznis/relaypay/pkg/evm"
	"gorm.io/gorm"
)

// ChainSelector maps a chain id to the bridge selector that reaches it.
type ChainSelector struct {
	ChainID  uint64         `json:"chain_id" gorm:"primaryKey;autoIncrement:false"`
	Selector evm.Selector   `json:"selector" gorm:"not null"`
	AddedBy  common.Address `json:"added_by" gorm:"size:20;not null"`
	AddedAt  time.Time      `json:"added_at" gorm:"not null"`
}

func (ChainSelector) TableName() string { return "chain_selectors" }

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, mapping *ChainSelector) error
	FindByChainID(ctx context.Context, db *gorm.DB, chainID uint64) (*ChainSelector, error)
	List(ctx context.Context, db *gorm.DB) ([]ChainSelector, error)
}

type Service interface {
	LocalChainID() uint64
	IsLocal(chainID uint64) bool
	AddChainSelector(ctx context.Context, chainID uint64, selector evm.Selector) error
	SelectorFor(ctx context.Context, tx *gorm.DB, chainID uint64) (evm.Selector, bool, error)
	List(ctx context.Context) ([]ChainSelector, error)
}

// MaxChainID is the largest chain id the store can hold.
const MaxChainID uint64 = math.MaxInt64

// ValidChainID reports whether id can be mapped or used as a destination.
func ValidChainID(id uint64) bool {
	return id != 0 && id <= MaxChainID
}

var (
	ErrInvalidChainID    = apperror.New(apperror.KindValidation, "invalid chain id")
	ErrLocalChainMapping = apperror.New(apperror.KindValidation, "local chain needs no selector")
	ErrInvalidSelector   = apperror.New(apperror.KindValidation, "invalid chain selector")
)
