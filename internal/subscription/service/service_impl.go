package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/callercontext"
	chargedomain "github.com/smallbiznis/relaypay/internal/charge/domain"
	"github.com/smallbiznis/relaypay/internal/clock"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	"github.com/smallbiznis/relaypay/internal/observability/metrics"
	plandomain "github.com/smallbiznis/relaypay/internal/plan/domain"
	productdomain "github.com/smallbiznis/relaypay/internal/product/domain"
	"github.com/smallbiznis/relaypay/internal/subscription/domain"
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
	PlanRepo    plandomain.Repository
	ProductRepo productdomain.Repository
	Charges     chargedomain.Engine
	Events      eventsdomain.Emitter
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        domain.Repository
	planRepo    plandomain.Repository
	productRepo productdomain.Repository
	charges     chargedomain.Engine
	events      eventsdomain.Emitter
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("subscription.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		planRepo:    p.PlanRepo,
		productRepo: p.ProductRepo,
		charges:     p.Charges,
		events:      p.Events,
		metrics:     p.Metrics,
	}
}

// Subscribe records the subscription and takes the first payment in the same
// transaction; a failed payment leaves no subscription and no consumed id.
func (s *Service) Subscribe(ctx context.Context, req domain.SubscribeRequest) (*domain.Subscription, error) {
	subscriber, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}

	var sub *domain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, product, err := s.loadActivePlan(ctx, tx, req.PlanID)
		if err != nil {
			return err
		}
		if err := s.validatePayment(product, req.EndTime, req.PaymentToken, req.SwapFee); err != nil {
			return err
		}

		id, err := db.NextNonce(ctx, tx, domain.NonceScope, domain.NonceKey(subscriber), domain.FirstID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		item := &domain.Subscription{
			Subscriber:          subscriber,
			ID:                  id,
			Provider:            product.Provider,
			ProductID:           product.ID,
			PlanID:              plan.ID,
			IsActive:            true,
			LastChargeDate:      0,
			EndTime:             req.EndTime,
			PaymentToken:        req.PaymentToken,
			PaymentTokenSwapFee: req.SwapFee,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := s.repo.Insert(ctx, tx, item); err != nil {
			return err
		}
		if err := s.repo.SetProductSubscription(ctx, tx, &domain.ProductSubscription{
			Subscriber:     subscriber,
			ProductID:      product.ID,
			SubscriptionID: id,
			CreatedAt:      now,
		}); err != nil {
			return err
		}

		if err := s.events.Emit(ctx, tx, eventsdomain.Subscribed{
			Subscriber:     subscriber,
			Provider:       product.Provider,
			ProductID:      product.ID,
			PlanID:         plan.ID,
			SubscriptionID: id,
			EndTime:        req.EndTime,
		}); err != nil {
			return err
		}

		receipt, err := s.charges.FirstChargeTx(ctx, tx, subscriber, id)
		if err != nil {
			return err
		}
		item.LastChargeDate = receipt.LastChargeDate
		sub = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSubscriptionTransition(ctx, "subscribed")
	s.log.Info("subscribed",
		zap.String("subscriber", subscriber.Hex()),
		zap.Int64("subscription_id", sub.ID),
		zap.Int64("plan_id", sub.PlanID),
		zap.Int64("product_id", sub.ProductID),
	)
	return sub, nil
}

func (s *Service) UnSubscribe(ctx context.Context, subscriptionID int64) (*domain.Subscription, error) {
	subscriber, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}

	var sub *domain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, subscriber, subscriptionID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrSubscriptionNotFound
		}
		if !item.IsActive {
			return domain.ErrAlreadyInactive
		}

		item.IsActive = false
		item.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateActive(ctx, tx, item); err != nil {
			return err
		}
		if err := s.repo.ClearProductSubscription(ctx, tx, subscriber, item.ProductID, item.ID); err != nil {
			return err
		}
		sub = item
		return s.events.Emit(ctx, tx, eventsdomain.UnSubscribed{Subscriber: subscriber, SubscriptionID: item.ID})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSubscriptionTransition(ctx, "unsubscribed")
	return sub, nil
}

// ChangeSubscriptionPlan moves an active subscription to another plan of the
// same product. The charge schedule is left untouched.
func (s *Service) ChangeSubscriptionPlan(ctx context.Context, subscriptionID, newPlanID int64) (*domain.Subscription, error) {
	subscriber, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}

	var sub *domain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, _, err := s.prepareChange(ctx, tx, subscriber, subscriptionID, newPlanID)
		if err != nil {
			return err
		}
		oldPlanID := item.PlanID
		item.PlanID = newPlanID
		item.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdatePlan(ctx, tx, item); err != nil {
			return err
		}
		sub = item
		return s.emitPlanChanged(ctx, tx, item, oldPlanID)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSubscriptionTransition(ctx, "plan_changed")
	return sub, nil
}

func (s *Service) ChangeSubscriptionPlanPaymentInfo(ctx context.Context, req domain.ChangePaymentInfoRequest) (*domain.Subscription, error) {
	subscriber, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}

	var sub *domain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, product, err := s.prepareChange(ctx, tx, subscriber, req.SubscriptionID, req.NewPlanID)
		if err != nil {
			return err
		}
		if err := s.validatePayment(product, req.EndTime, req.PaymentToken, req.SwapFee); err != nil {
			return err
		}

		oldPlanID := item.PlanID
		item.PlanID = req.NewPlanID
		item.EndTime = req.EndTime
		item.PaymentToken = req.PaymentToken
		item.PaymentTokenSwapFee = req.SwapFee
		item.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdatePlan(ctx, tx, item); err != nil {
			return err
		}
		sub = item
		return s.emitPlanChanged(ctx, tx, item, oldPlanID)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSubscriptionTransition(ctx, "payment_info_changed")
	return sub, nil
}

func (s *Service) prepareChange(ctx context.Context, tx *gorm.DB, subscriber common.Address, subscriptionID, newPlanID int64) (*domain.Subscription, *productdomain.Product, error) {
	item, err := s.repo.FindByID(ctx, tx, subscriber, subscriptionID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, domain.ErrSubscriptionNotFound
	}
	if !item.IsActive {
		return nil, nil, domain.ErrSubscriptionNotActive
	}

	plan, product, err := s.loadActivePlan(ctx, tx, newPlanID)
	if err != nil {
		return nil, nil, err
	}
	if plan.ProductID != item.ProductID {
		return nil, nil, domain.ErrPlanProductMismatch
	}
	return item, product, nil
}

func (s *Service) emitPlanChanged(ctx context.Context, tx *gorm.DB, sub *domain.Subscription, oldPlanID int64) error {
	return s.events.Emit(ctx, tx, eventsdomain.SubscriptionPlanChanged{
		Subscriber:     sub.Subscriber,
		SubscriptionID: sub.ID,
		OldPlanID:      oldPlanID,
		NewPlanID:      sub.PlanID,
		EndTime:        sub.EndTime,
		PaymentToken:   sub.PaymentToken,
	})
}

func (s *Service) loadActivePlan(ctx context.Context, tx *gorm.DB, planID int64) (*plandomain.Plan, *productdomain.Product, error) {
	plan, err := s.planRepo.FindByID(ctx, tx, planID)
	if err != nil {
		return nil, nil, err
	}
	if plan == nil {
		return nil, nil, plandomain.ErrPlanNotFound
	}
	if !plan.IsActive {
		return nil, nil, plandomain.ErrPlanInactive
	}

	product, err := s.productRepo.FindByID(ctx, tx, plan.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if product == nil {
		return nil, nil, productdomain.ErrProductNotFound
	}
	if !product.IsActive {
		return nil, nil, productdomain.ErrProductInactive
	}
	return plan, product, nil
}

func (s *Service) validatePayment(product *productdomain.Product, endTime int64, paymentToken common.Address, swapFee decimal.Decimal) error {
	if endTime != 0 && endTime <= clock.Unix(s.clock) {
		return domain.ErrInvalidEndTime
	}
	// swaps are not supported
	if !evm.IsZero(paymentToken) && paymentToken != product.ChargeToken {
		return domain.ErrUnsupportedPayment
	}
	if !evm.IsTokenAmount(swapFee) {
		return domain.ErrInvalidSwapFee
	}
	return nil
}

func (s *Service) Get(ctx context.Context, subscriber common.Address, id int64) (*domain.Subscription, error) {
	item, err := s.repo.FindByID(ctx, s.db, subscriber, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, subscriber common.Address) ([]domain.Subscription, error) {
	return s.repo.ListBySubscriber(ctx, s.db, subscriber)
}

func (s *Service) Nonce(ctx context.Context, subscriber common.Address) (int64, error) {
	return db.PeekNonce(ctx, s.db, domain.NonceScope, domain.NonceKey(subscriber), domain.FirstID)
}

func (s *Service) SubscribedToProduct(ctx context.Context, subscriber common.Address, productID int64) (bool, error) {
	return s.repo.IsSubscribedToProduct(ctx, s.db, subscriber, productID)
}
