package domain

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/apperror"
	"gorm.io/gorm"
)

// Ledger is the ERC20-style transfer primitive. Every call runs on the
// caller's transaction so composite operations commit or revert together.
type Ledger interface {
	BalanceOf(ctx context.Context, tx *gorm.DB, token, holder common.Address) (decimal.Decimal, error)
	Allowance(ctx context.Context, tx *gorm.DB, token, owner, spender common.Address) (decimal.Decimal, error)
	Mint(ctx context.Context, tx *gorm.DB, token, to common.Address, amount decimal.Decimal) error
	Approve(ctx context.Context, tx *gorm.DB, token, owner, spender common.Address, amount decimal.Decimal) error
	Transfer(ctx context.Context, tx *gorm.DB, token, from, to common.Address, amount decimal.Decimal) error
	TransferFrom(ctx context.Context, tx *gorm.DB, token, spender, from, to common.Address, amount decimal.Decimal) error
	SendNative(ctx context.Context, tx *gorm.DB, from, to common.Address, amount decimal.Decimal) error
	IsSupported(ctx context.Context, tx *gorm.DB, token common.Address) (bool, error)
}

// Service is the caller-facing surface; the caller is read from the context.
type Service interface {
	AddSupportedToken(ctx context.Context, token common.Address) error
	IsSupported(ctx context.Context, token common.Address) (bool, error)
	ListSupported(ctx context.Context) ([]SupportedToken, error)
	Mint(ctx context.Context, token, to common.Address, amount decimal.Decimal) error
	Approve(ctx context.Context, token, spender common.Address, amount decimal.Decimal) error
	Transfer(ctx context.Context, token, to common.Address, amount decimal.Decimal) error
	BalanceOf(ctx context.Context, token, holder common.Address) (decimal.Decimal, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (decimal.Decimal, error)
}

var (
	ErrInsufficientBalance   = apperror.New(apperror.KindPayment, "ERC20: transfer amount exceeds balance")
	ErrInsufficientAllowance = apperror.New(apperror.KindPayment, "ERC20: insufficient allowance")
	ErrInvalidAmount         = apperror.New(apperror.KindValidation, "invalid token amount")
	ErrInvalidRecipient      = apperror.New(apperror.KindValidation, "ERC20: transfer to the zero address")
	ErrTokenNotSupported     = apperror.New(apperror.KindValidation, "token not supported")

	// ErrConcurrentUpdate means another transaction moved the same balance first.
	ErrConcurrentUpdate = errors.New("token: concurrent balance update")
)
