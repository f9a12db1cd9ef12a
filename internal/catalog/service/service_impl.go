package service

import (
	"context"

	"github.com/smallbiznis/relaypay/internal/callercontext"
	"github.com/smallbiznis/relaypay/internal/catalog/domain"
	plandomain "github.com/smallbiznis/relaypay/internal/plan/domain"
	productdomain "github.com/smallbiznis/relaypay/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Products productdomain.Service
	Plans    plandomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	products productdomain.Service
	plans    plandomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog.service"),
		products: p.Products,
		plans:    p.Plans,
	}
}

// CreateProductWithPlans creates the product and every plan, or nothing.
func (s *Service) CreateProductWithPlans(ctx context.Context, req domain.CreateProductWithPlansRequest) (*domain.Result, error) {
	if len(req.Plans) == 0 {
		return nil, domain.ErrNoPlans
	}
	return s.create(ctx, req.Product, req.Plans)
}

// CreateRecurringSubscription creates a recurring product with exactly one plan.
func (s *Service) CreateRecurringSubscription(ctx context.Context, req domain.CreateRecurringSubscriptionRequest) (*domain.Result, error) {
	product := productdomain.CreateRequest{
		Name:             req.Name,
		Description:      req.Description,
		LogoURL:          req.LogoURL,
		ProductType:      productdomain.ProductTypeRecurring,
		ChargeToken:      req.Token,
		ReceivingAddress: req.ReceivingAddress,
		DestinationChain: req.DestinationChain,
	}
	return s.create(ctx, product, []domain.PlanSpec{{ChargeInterval: req.ChargeInterval, Price: req.Price}})
}

func (s *Service) create(ctx context.Context, productReq productdomain.CreateRequest, terms []domain.PlanSpec) (*domain.Result, error) {
	caller, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}

	result := &domain.Result{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.products.CreateTx(ctx, tx, caller, productReq)
		if err != nil {
			return err
		}
		result.Product = product

		for _, term := range terms {
			plan, err := s.plans.CreateTx(ctx, tx, caller, plandomain.CreateRequest{
				ProductID:      product.ID,
				ChargeInterval: term.ChargeInterval,
				Price:          term.Price,
			})
			if err != nil {
				return err
			}
			result.Plans = append(result.Plans, *plan)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("catalog created",
		zap.Int64("product_id", result.Product.ID),
		zap.Int("plans", len(result.Plans)),
	)
	return result, nil
}
