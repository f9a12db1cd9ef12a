package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	FindBalance(ctx context.Context, db *gorm.DB, token, holder common.Address) (*Balance, error)
	InsertBalance(ctx context.Context, db *gorm.DB, balance *Balance) error
	CompareAndSetBalance(ctx context.Context, db *gorm.DB, token, holder common.Address, expected, next decimal.Decimal, at time.Time) (bool, error)

	FindAllowance(ctx context.Context, db *gorm.DB, token, owner, spender common.Address) (*Allowance, error)
	UpsertAllowance(ctx context.Context, db *gorm.DB, allowance *Allowance) error
	CompareAndSetAllowance(ctx context.Context, db *gorm.DB, token, owner, spender common.Address, expected, next decimal.Decimal, at time.Time) (bool, error)

	InsertSupported(ctx context.Context, db *gorm.DB, supported *SupportedToken) error
	IsSupported(ctx context.Context, db *gorm.DB, token common.Address) (bool, error)
	ListSupported(ctx context.Context, db *gorm.DB) ([]SupportedToken, error)
}
