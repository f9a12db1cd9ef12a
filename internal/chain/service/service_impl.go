package service

import (
	"context"

	"github.com/smallbiznis/relaypay/internal/authorization"
	"github.com/smallbiznis/relaypay/internal/callercontext"
	"github.com/smallbiznis/relaypay/internal/chain/domain"
	"github.com/smallbiznis/relaypay/internal/clock"
	"github.com/smallbiznis/relaypay/internal/config"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	"github.com/smallbiznis/relaypay/pkg/evm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	ChainCfg *config.ChainConfigHolder
	Repo     domain.Repository
	Authz    authorization.Service
	Events   eventsdomain.Emitter
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	chainCfg *config.ChainConfigHolder
	repo     domain.Repository
	authz    authorization.Service
	events   eventsdomain.Emitter
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("chain.service"),
		clock:    p.Clock,
		chainCfg: p.ChainCfg,
		repo:     p.Repo,
		authz:    p.Authz,
		events:   p.Events,
	}
}

func (s *Service) LocalChainID() uint64 {
	return s.chainCfg.Get().LocalChainID
}

func (s *Service) IsLocal(chainID uint64) bool {
	return chainID == s.LocalChainID()
}

func (s *Service) AddChainSelector(ctx context.Context, chainID uint64, selector evm.Selector) error {
	caller, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return err
	}
	if err := s.authz.RequireOwner(ctx, caller, authorization.ObjectChain); err != nil {
		return err
	}
	switch {
	case !domain.ValidChainID(chainID):
		return domain.ErrInvalidChainID
	case s.IsLocal(chainID):
		return domain.ErrLocalChainMapping
	case selector == 0:
		return domain.ErrInvalidSelector
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Upsert(ctx, tx, &domain.ChainSelector{
			ChainID:  chainID,
			Selector: selector,
			AddedBy:  caller,
			AddedAt:  s.clock.Now(),
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, eventsdomain.ChainSelectorAdded{ChainID: chainID, Selector: selector})
	})
	if err != nil {
		return err
	}

	s.log.Info("chain selector added",
		zap.Uint64("chain_id", chainID),
		zap.String("selector", selector.String()),
	)
	return nil
}

func (s *Service) SelectorFor(ctx context.Context, tx *gorm.DB, chainID uint64) (evm.Selector, bool, error) {
	if tx == nil {
		tx = s.db
	}
	mapping, err := s.repo.FindByChainID(ctx, tx, chainID)
	if err != nil {
		return 0, false, err
	}
	if mapping == nil {
		return 0, false, nil
	}
	return mapping.Selector, true, nil
}

func (s *Service) List(ctx context.Context) ([]domain.ChainSelector, error) {
	return s.repo.List(ctx, s.db)
}
