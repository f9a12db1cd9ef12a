package service

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	bridgedomain "github.com/smallbiznis/relaypay/internal/bridge/domain"
	chaindomain "github.com/smallbiznis/relaypay/internal/chain/domain"
	"github.com/smallbiznis/relaypay/internal/charge/domain"
	"github.com/smallbiznis/relaypay/internal/clock"
	"github.com/smallbiznis/relaypay/internal/config"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	"github.com/smallbiznis/relaypay/internal/observability/metrics"
	plandomain "github.com/smallbiznis/relaypay/internal/plan/domain"
	productdomain "github.com/smallbiznis/relaypay/internal/product/domain"
	subscriptiondomain "github.com/smallbiznis/relaypay/internal/subscription/domain"
	tokendomain "github.com/smallbiznis/relaypay/internal/token/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	Clock            clock.Clock
	ChainCfg         *config.ChainConfigHolder
	SubscriptionRepo subscriptiondomain.Repository
	PlanRepo         plandomain.Repository
	ProductRepo      productdomain.Repository
	Ledger           tokendomain.Ledger
	Chains           chaindomain.Service
	Bridge           bridgedomain.Service
	Events           eventsdomain.Emitter
	Metrics          *metrics.Metrics `optional:"true"`
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	clock            clock.Clock
	chainCfg         *config.ChainConfigHolder
	subscriptionRepo subscriptiondomain.Repository
	planRepo         plandomain.Repository
	productRepo      productdomain.Repository
	ledger           tokendomain.Ledger
	chains           chaindomain.Service
	bridge           bridgedomain.Service
	events           eventsdomain.Emitter
	metrics          *metrics.Metrics
}

func New(p Params) domain.Engine {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("charge.engine"),
		clock:            p.Clock,
		chainCfg:         p.ChainCfg,
		subscriptionRepo: p.SubscriptionRepo,
		planRepo:         p.PlanRepo,
		productRepo:      p.ProductRepo,
		ledger:           p.Ledger,
		chains:           p.Chains,
		bridge:           p.Bridge,
		events:           p.Events,
		metrics:          p.Metrics,
	}
}

// Charge is permissionless: any caller may trigger a due charge.
func (s *Service) Charge(ctx context.Context, subscriber common.Address, subscriptionID int64) (*domain.Receipt, error) {
	var receipt *domain.Receipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.ChargeTx(ctx, tx, subscriber, subscriptionID)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		s.metrics.RecordCharge(ctx, "", outcomeOf(err))
		s.log.Debug("charge rejected",
			zap.String("subscriber", subscriber.Hex()),
			zap.Int64("subscription_id", subscriptionID),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.RecordCharge(ctx, string(receipt.Path), "charged")
	s.log.Info("subscription charged",
		zap.String("subscriber", subscriber.Hex()),
		zap.Int64("subscription_id", subscriptionID),
		zap.Int64("plan_id", receipt.PlanID),
		zap.String("price", receipt.Price.String()),
		zap.String("path", string(receipt.Path)),
	)
	return receipt, nil
}

func (s *Service) ChargeTx(ctx context.Context, tx *gorm.DB, subscriber common.Address, subscriptionID int64) (*domain.Receipt, error) {
	return s.chargeTx(ctx, tx, subscriber, subscriptionID, false)
}

func (s *Service) FirstChargeTx(ctx context.Context, tx *gorm.DB, subscriber common.Address, subscriptionID int64) (*domain.Receipt, error) {
	return s.chargeTx(ctx, tx, subscriber, subscriptionID, true)
}

func (s *Service) chargeTx(ctx context.Context, tx *gorm.DB, subscriber common.Address, subscriptionID int64, first bool) (*domain.Receipt, error) {
	now := clock.Unix(s.clock)

	sub, err := s.subscriptionRepo.FindByID(ctx, tx, subscriber, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, subscriptiondomain.ErrSubscriptionNotFound
	}
	if !sub.IsActive {
		return nil, subscriptiondomain.ErrSubscriptionNotActive
	}
	if sub.Expired(now) {
		return nil, subscriptiondomain.ErrSubscriptionExpired
	}

	plan, err := s.planRepo.FindByID(ctx, tx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrPlanNotFound
	}
	if plan.ProductID != sub.ProductID {
		return nil, subscriptiondomain.ErrIncorrectPlanForCharge
	}

	if first && sub.LastChargeDate != 0 {
		return nil, subscriptiondomain.ErrIntervalNotMet
	}
	if !first && now-sub.LastChargeDate < plan.ChargeInterval {
		return nil, subscriptiondomain.ErrIntervalNotMet
	}

	product, err := s.productRepo.FindByID(ctx, tx, sub.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, productdomain.ErrProductNotFound
	}

	receipt := &domain.Receipt{
		Subscriber:     sub.Subscriber,
		SubscriptionID: sub.ID,
		Provider:       sub.Provider,
		ProductID:      sub.ProductID,
		PlanID:         plan.ID,
		Price:          plan.Price,
		LastChargeDate: now,
	}

	if s.chains.IsLocal(product.DestinationChain) {
		receipt.Path = domain.PathDirect
		if err := s.payDirect(ctx, tx, sub, plan, product); err != nil {
			return nil, err
		}
	} else {
		receipt.Path = domain.PathBridge
		messageID, err := s.payCrossChain(ctx, tx, sub, plan, product)
		if err != nil {
			return nil, err
		}
		receipt.MessageID = &messageID
	}

	ok, err := s.subscriptionRepo.CompareAndSetLastCharge(ctx, tx, sub.Subscriber, sub.ID, sub.LastChargeDate, now, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, subscriptiondomain.ErrIntervalNotMet
	}

	if err := s.events.Emit(ctx, tx, eventsdomain.SubscriptionCharged{
		Subscriber:     sub.Subscriber,
		Provider:       sub.Provider,
		SubscriptionID: sub.ID,
		PlanID:         plan.ID,
		ProductID:      sub.ProductID,
		Price:          plan.Price,
		LastChargeDate: now,
	}); err != nil {
		return nil, err
	}
	return receipt, nil
}

// payDirect moves the price from the subscriber to the product's receiving
// address using the allowance the subscriber granted the engine.
func (s *Service) payDirect(ctx context.Context, tx *gorm.DB, sub *subscriptiondomain.Subscription, plan *plandomain.Plan, product *productdomain.Product) error {
	engine := s.chainCfg.Get().EngineAddress
	return s.ledger.TransferFrom(ctx, tx, product.ChargeToken, engine, sub.Subscriber, product.ReceivingAddress, plan.Price)
}

// payCrossChain pulls the price into the engine and hands it to the bridge,
// which pays the router fee in the configured fee token.
func (s *Service) payCrossChain(ctx context.Context, tx *gorm.DB, sub *subscriptiondomain.Subscription, plan *plandomain.Plan, product *productdomain.Product) (common.Hash, error) {
	selector, ok, err := s.chains.SelectorFor(ctx, tx, product.DestinationChain)
	if err != nil {
		return common.Hash{}, err
	}
	if !ok {
		return common.Hash{}, productdomain.ErrUnsupportedDestination
	}

	cfg := s.chainCfg.Get()
	engine := cfg.EngineAddress
	if err := s.ledger.TransferFrom(ctx, tx, product.ChargeToken, engine, sub.Subscriber, engine, plan.Price); err != nil {
		return common.Hash{}, err
	}
	if err := s.ledger.Approve(ctx, tx, product.ChargeToken, engine, s.bridge.Address(), plan.Price); err != nil {
		return common.Hash{}, err
	}

	receipt, err := s.bridge.TransferTx(ctx, tx, engine, bridgedomain.TransferRequest{
		Selector:  selector,
		Receiver:  product.ReceivingAddress,
		Token:     product.ChargeToken,
		Amount:    plan.Price,
		FeeParam1: sub.ID,
		FeeParam2: plan.ID,
		PayNative: cfg.ChargeFeesNative,
	})
	if err != nil {
		return common.Hash{}, err
	}
	return receipt.MessageID, nil
}

func (s *Service) ListDue(ctx context.Context, limit int) ([]subscriptiondomain.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.subscriptionRepo.ListDue(ctx, s.db, clock.Unix(s.clock), limit)
}

func (s *Service) DeferRetry(ctx context.Context, subscriber common.Address, subscriptionID int64) (int64, error) {
	var next int64
	var failures int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.subscriptionRepo.FindByID(ctx, tx, subscriber, subscriptionID)
		if err != nil {
			return err
		}
		if sub == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}
		failures = sub.ChargeFailures + 1
		next = clock.Unix(s.clock) + int64(domain.ChargeRetryDelay(failures)/time.Second)
		return s.subscriptionRepo.RecordChargeFailure(ctx, tx, subscriber, subscriptionID, failures, next, s.clock.Now())
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("charge retry deferred",
		zap.String("subscriber", subscriber.Hex()),
		zap.Int64("subscription_id", subscriptionID),
		zap.Int("failures", failures),
		zap.Int64("next_attempt", next),
	)
	return next, nil
}

func outcomeOf(err error) string {
	if errors.Is(err, subscriptiondomain.ErrIntervalNotMet) {
		return "interval_not_met"
	}
	return "failed"
}
