package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/authorization"
	"github.com/smallbiznis/relaypay/internal/callercontext"
	"github.com/smallbiznis/relaypay/internal/clock"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	"github.com/smallbiznis/relaypay/internal/token/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Repo   domain.Repository
	Ledger domain.Ledger
	Authz  authorization.Service
	Events eventsdomain.Emitter
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	repo   domain.Repository
	ledger domain.Ledger
	authz  authorization.Service
	events eventsdomain.Emitter
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("token.service"),
		clock:  p.Clock,
		repo:   p.Repo,
		ledger: p.Ledger,
		authz:  p.Authz,
		events: p.Events,
	}
}

func (s *Service) AddSupportedToken(ctx context.Context, token common.Address) error {
	caller, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return err
	}
	if err := s.authz.RequireOwner(ctx, caller, authorization.ObjectToken); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertSupported(ctx, tx, &domain.SupportedToken{
			Token:   token,
			AddedBy: caller,
			AddedAt: s.clock.Now(),
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, eventsdomain.SupportedTokenAdded{Token: token})
	})
	if err != nil {
		return err
	}

	s.log.Info("supported token added", zap.String("token", token.Hex()))
	return nil
}

func (s *Service) IsSupported(ctx context.Context, token common.Address) (bool, error) {
	return s.repo.IsSupported(ctx, s.db, token)
}

func (s *Service) ListSupported(ctx context.Context) ([]domain.SupportedToken, error) {
	return s.repo.ListSupported(ctx, s.db)
}

// Mint is the owner-gated faucet used to fund accounts.
func (s *Service) Mint(ctx context.Context, token, to common.Address, amount decimal.Decimal) error {
	caller, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return err
	}
	if err := s.authz.RequireOwner(ctx, caller, authorization.ObjectToken); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.ledger.Mint(ctx, tx, token, to, amount)
	})
}

func (s *Service) Approve(ctx context.Context, token, spender common.Address, amount decimal.Decimal) error {
	caller, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.ledger.Approve(ctx, tx, token, caller, spender, amount)
	})
}

func (s *Service) Transfer(ctx context.Context, token, to common.Address, amount decimal.Decimal) error {
	caller, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.ledger.Transfer(ctx, tx, token, caller, to, amount)
	})
}

func (s *Service) BalanceOf(ctx context.Context, token, holder common.Address) (decimal.Decimal, error) {
	return s.ledger.BalanceOf(ctx, s.db, token, holder)
}

func (s *Service) Allowance(ctx context.Context, token, owner, spender common.Address) (decimal.Decimal, error) {
	return s.ledger.Allowance(ctx, s.db, token, owner, spender)
}
