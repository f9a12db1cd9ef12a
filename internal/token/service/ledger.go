package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/clock"
	"github.com/smallbiznis/relaypay/internal/token/domain"
	"github.com/smallbiznis/relaypay/pkg/evm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LedgerParams struct {
	fx.In

	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Ledger struct {
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func NewLedger(p LedgerParams) domain.Ledger {
	return &Ledger{
		log:   p.Log.Named("token.ledger"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (l *Ledger) BalanceOf(ctx context.Context, tx *gorm.DB, token, holder common.Address) (decimal.Decimal, error) {
	balance, err := l.repo.FindBalance(ctx, tx, token, holder)
	if err != nil {
		return decimal.Zero, err
	}
	if balance == nil {
		return decimal.Zero, nil
	}
	return balance.Amount, nil
}

func (l *Ledger) Allowance(ctx context.Context, tx *gorm.DB, token, owner, spender common.Address) (decimal.Decimal, error) {
	allowance, err := l.repo.FindAllowance(ctx, tx, token, owner, spender)
	if err != nil {
		return decimal.Zero, err
	}
	if allowance == nil {
		return decimal.Zero, nil
	}
	return allowance.Amount, nil
}

func (l *Ledger) Mint(ctx context.Context, tx *gorm.DB, token, to common.Address, amount decimal.Decimal) error {
	if !evm.IsTokenAmount(amount) {
		return domain.ErrInvalidAmount
	}
	if evm.IsZero(to) {
		return domain.ErrInvalidRecipient
	}
	return l.credit(ctx, tx, token, to, amount)
}

func (l *Ledger) Approve(ctx context.Context, tx *gorm.DB, token, owner, spender common.Address, amount decimal.Decimal) error {
	if !evm.IsTokenAmount(amount) {
		return domain.ErrInvalidAmount
	}
	return l.repo.UpsertAllowance(ctx, tx, &domain.Allowance{
		Token:     token,
		Owner:     owner,
		Spender:   spender,
		Amount:    amount,
		UpdatedAt: l.clock.Now(),
	})
}

func (l *Ledger) Transfer(ctx context.Context, tx *gorm.DB, token, from, to common.Address, amount decimal.Decimal) error {
	if !evm.IsTokenAmount(amount) {
		return domain.ErrInvalidAmount
	}
	if evm.IsZero(to) {
		return domain.ErrInvalidRecipient
	}
	if err := l.debit(ctx, tx, token, from, amount); err != nil {
		return err
	}
	return l.credit(ctx, tx, token, to, amount)
}

// TransferFrom spends the allowance owner granted spender, then moves the funds.
func (l *Ledger) TransferFrom(ctx context.Context, tx *gorm.DB, token, spender, from, to common.Address, amount decimal.Decimal) error {
	if !evm.IsTokenAmount(amount) {
		return domain.ErrInvalidAmount
	}

	allowance, err := l.Allowance(ctx, tx, token, from, spender)
	if err != nil {
		return err
	}
	if allowance.LessThan(amount) {
		return domain.ErrInsufficientAllowance
	}
	if !amount.IsZero() {
		ok, err := l.repo.CompareAndSetAllowance(ctx, tx, token, from, spender, allowance, allowance.Sub(amount), l.clock.Now())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConcurrentUpdate
		}
	}
	return l.Transfer(ctx, tx, token, from, to, amount)
}

func (l *Ledger) SendNative(ctx context.Context, tx *gorm.DB, from, to common.Address, amount decimal.Decimal) error {
	return l.Transfer(ctx, tx, evm.NativeToken, from, to, amount)
}

func (l *Ledger) IsSupported(ctx context.Context, tx *gorm.DB, token common.Address) (bool, error) {
	return l.repo.IsSupported(ctx, tx, token)
}

func (l *Ledger) debit(ctx context.Context, tx *gorm.DB, token, holder common.Address, amount decimal.Decimal) error {
	current, err := l.BalanceOf(ctx, tx, token, holder)
	if err != nil {
		return err
	}
	if current.LessThan(amount) {
		return domain.ErrInsufficientBalance
	}
	if amount.IsZero() {
		return nil
	}
	ok, err := l.repo.CompareAndSetBalance(ctx, tx, token, holder, current, current.Sub(amount), l.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrConcurrentUpdate
	}
	return nil
}

func (l *Ledger) credit(ctx context.Context, tx *gorm.DB, token, holder common.Address, amount decimal.Decimal) error {
	now := l.clock.Now()
	balance, err := l.repo.FindBalance(ctx, tx, token, holder)
	if err != nil {
		return err
	}
	if balance == nil {
		return l.repo.InsertBalance(ctx, tx, &domain.Balance{
			Token:     token,
			Holder:    holder,
			Amount:    amount,
			UpdatedAt: now,
		})
	}
	if amount.IsZero() {
		return nil
	}
	ok, err := l.repo.CompareAndSetBalance(ctx, tx, token, holder, balance.Amount, balance.Amount.Add(amount), now)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrConcurrentUpdate
	}
	return nil
}
