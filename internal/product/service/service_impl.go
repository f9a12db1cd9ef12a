package service

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	bridgedomain "github.com/smallbiznis/relaypay/internal/bridge/domain"
	"github.com/smallbiznis/relaypay/internal/callercontext"
	chaindomain "github.com/smallbiznis/relaypay/internal/chain/domain"
	"github.com/smallbiznis/relaypay/internal/clock"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	"github.com/smallbiznis/relaypay/internal/product/domain"
	tokendomain "github.com/smallbiznis/relaypay/internal/token/domain"
	"github.com/smallbiznis/relaypay/pkg/db"
	"github.com/smallbiznis/relaypay/pkg/evm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxNameBytes = 32

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Repo   domain.Repository
	Ledger tokendomain.Ledger
	Chains chaindomain.Service
	Bridge bridgedomain.Service
	Events eventsdomain.Emitter
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	repo   domain.Repository
	ledger tokendomain.Ledger
	chains chaindomain.Service
	bridge bridgedomain.Service
	events eventsdomain.Emitter
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("product.service"),
		clock:  p.Clock,
		repo:   p.Repo,
		ledger: p.Ledger,
		chains: p.Chains,
		bridge: p.Bridge,
		events: p.Events,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Product, error) {
	caller, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}

	var product *domain.Product
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.CreateTx(ctx, tx, caller, req)
		if err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// CreateTx registers a product for provider on tx. The product id is only
// consumed if tx commits.
func (s *Service) CreateTx(ctx context.Context, tx *gorm.DB, provider common.Address, req domain.CreateRequest) (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxNameBytes {
		return nil, domain.ErrInvalidName
	}
	if !req.ProductType.Valid() {
		return nil, domain.ErrInvalidProductType
	}
	if evm.IsZero(req.ReceivingAddress) {
		return nil, domain.ErrInvalidReceivingAddress
	}

	supported, err := s.ledger.IsSupported(ctx, tx, req.ChargeToken)
	if err != nil {
		return nil, err
	}
	if !supported {
		return nil, tokendomain.ErrTokenNotSupported
	}
	if err := s.checkDestination(ctx, tx, req.DestinationChain); err != nil {
		return nil, err
	}

	id, err := db.NextNonce(ctx, tx, domain.NonceScope, domain.NonceKey, domain.FirstID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	product := &domain.Product{
		ID:               id,
		Provider:         provider,
		Name:             name,
		Description:      strings.TrimSpace(req.Description),
		LogoURL:          strings.TrimSpace(req.LogoURL),
		ProductType:      req.ProductType,
		ChargeToken:      req.ChargeToken,
		ReceivingAddress: req.ReceivingAddress,
		DestinationChain: req.DestinationChain,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, tx, product); err != nil {
		return nil, err
	}

	if err := s.events.Emit(ctx, tx, eventsdomain.ProductCreated{
		ProductID:        product.ID,
		Provider:         product.Provider,
		Name:             product.Name,
		Description:      product.Description,
		LogoURL:          product.LogoURL,
		ProductType:      uint8(product.ProductType),
		ChargeToken:      product.ChargeToken,
		ReceivingAddress: product.ReceivingAddress,
		DestinationChain: product.DestinationChain,
		IsActive:         product.IsActive,
	}); err != nil {
		return nil, err
	}

	s.log.Info("product created",
		zap.Int64("product_id", product.ID),
		zap.String("provider", provider.Hex()),
		zap.Uint64("destination_chain", product.DestinationChain),
	)
	return product, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Product, error) {
	caller, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}

	var product *domain.Product
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, req.ProductID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrProductNotFound
		}
		if item.Provider != caller {
			return domain.ErrNotProvider
		}
		if evm.IsZero(req.ReceivingAddress) {
			return domain.ErrInvalidReceivingAddress
		}
		if err := s.checkDestination(ctx, tx, req.DestinationChain); err != nil {
			return err
		}

		item.ReceivingAddress = req.ReceivingAddress
		item.DestinationChain = req.DestinationChain
		item.IsActive = req.IsActive
		item.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}
		product = item

		return s.events.Emit(ctx, tx, eventsdomain.ProductUpdated{
			ProductID:        item.ID,
			ReceivingAddress: item.ReceivingAddress,
			DestinationChain: item.DestinationChain,
			IsActive:         item.IsActive,
		})
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrProductNotFound
	}
	return item, nil
}

func (s *Service) ListByProvider(ctx context.Context, provider common.Address) ([]domain.Product, error) {
	return s.repo.ListByProvider(ctx, s.db, provider)
}

// Nonce returns the id the next product will receive.
func (s *Service) Nonce(ctx context.Context) (int64, error) {
	return db.PeekNonce(ctx, s.db, domain.NonceScope, domain.NonceKey, domain.FirstID)
}

// checkDestination accepts the local chain, or a mapped chain whose
// selector the bridge currently allows.
func (s *Service) checkDestination(ctx context.Context, tx *gorm.DB, chainID uint64) error {
	if s.chains.IsLocal(chainID) {
		return nil
	}
	if !chaindomain.ValidChainID(chainID) {
		return chaindomain.ErrInvalidChainID
	}
	selector, ok, err := s.chains.SelectorFor(ctx, tx, chainID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnsupportedDestination
	}
	allowed, err := s.bridge.IsDestinationAllowed(ctx, tx, selector)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.ErrUnsupportedDestination
	}
	return nil
}
