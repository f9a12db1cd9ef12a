package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smallbiznis/relaypay/internal/callercontext"
	"github.com/smallbiznis/relaypay/internal/clock"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	"github.com/smallbiznis/relaypay/internal/plan/domain"
	productdomain "github.com/smallbiznis/relaypay/internal/product/domain"
	"github.com/smallbiznis/relaypay/pkg/db"
	"github.com/smallbiznis/relaypay/pkg/evm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Repo        domain.Repository
	ProductRepo productdomain.Repository
	Events      eventsdomain.Emitter
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        domain.Repository
	productRepo productdomain.Repository
	events      eventsdomain.Emitter
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("plan.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		productRepo: p.ProductRepo,
		events:      p.Events,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Plan, error) {
	caller, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}

	var plan *domain.Plan
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.CreateTx(ctx, tx, caller, req)
		if err != nil {
			return err
		}
		plan = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// CreateTx attaches a plan to one of caller's products.
func (s *Service) CreateTx(ctx context.Context, tx *gorm.DB, caller common.Address, req domain.CreateRequest) (*domain.Plan, error) {
	product, err := s.productRepo.FindByID(ctx, tx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, productdomain.ErrProductNotFound
	}
	if product.Provider != caller {
		return nil, productdomain.ErrNotProvider
	}
	if !product.IsActive {
		return nil, productdomain.ErrProductInactive
	}
	if !evm.IsTokenAmount(req.Price) || !req.Price.IsPositive() {
		return nil, domain.ErrInvalidPrice
	}
	if req.ChargeInterval <= 0 {
		return nil, domain.ErrInvalidInterval
	}

	id, err := db.NextNonce(ctx, tx, domain.NonceScope, domain.NonceKey, domain.FirstID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	plan := &domain.Plan{
		ID:             id,
		ProductID:      product.ID,
		Provider:       product.Provider,
		Price:          req.Price,
		ChargeInterval: req.ChargeInterval,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, tx, plan); err != nil {
		return nil, err
	}

	if err := s.events.Emit(ctx, tx, eventsdomain.PlanCreated{
		ProductID:      plan.ProductID,
		PlanID:         plan.ID,
		Price:          plan.Price,
		ChargeInterval: plan.ChargeInterval,
		IsActive:       plan.IsActive,
	}); err != nil {
		return nil, err
	}

	s.log.Info("plan created",
		zap.Int64("plan_id", plan.ID),
		zap.Int64("product_id", plan.ProductID),
		zap.String("price", plan.Price.String()),
		zap.Int64("charge_interval", plan.ChargeInterval),
	)
	return plan, nil
}

// Update toggles the active flag; price and interval cannot change.
func (s *Service) Update(ctx context.Context, planID int64, isActive bool) (*domain.Plan, error) {
	caller, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}

	var plan *domain.Plan
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, planID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrPlanNotFound
		}
		if item.Provider != caller {
			return domain.ErrNotPlanProvider
		}

		item.IsActive = isActive
		item.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateActive(ctx, tx, item); err != nil {
			return err
		}
		plan = item
		return s.events.Emit(ctx, tx, eventsdomain.PlanUpdated{PlanID: item.ID, IsActive: item.IsActive})
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Plan, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrPlanNotFound
	}
	return item, nil
}

func (s *Service) ListByProduct(ctx context.Context, productID int64) ([]domain.Plan, error) {
	return s.repo.ListByProduct(ctx, s.db, productID)
}

func (s *Service) Nonce(ctx context.Context) (int64, error) {
	return db.PeekNonce(ctx, s.db, domain.NonceScope, domain.NonceKey, domain.FirstID)
}
