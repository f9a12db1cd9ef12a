package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/authorization"
	"github.com/smallbiznis/relaypay/internal/bridge/domain"
	"github.com/smallbiznis/relaypay/internal/callercontext"
	"github.com/smallbiznis/relaypay/internal/clock"
	"github.com/smallbiznis/relaypay/internal/config"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	"github.com/smallbiznis/relaypay/internal/observability/metrics"
	tokendomain "github.com/smallbiznis/relaypay/internal/token/domain"
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
	Router   domain.Router
	Ledger   tokendomain.Ledger
	Authz    authorization.Service
	Events   eventsdomain.Emitter
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	chainCfg *config.ChainConfigHolder
	repo     domain.Repository
	router   domain.Router
	ledger   tokendomain.Ledger
	authz    authorization.Service
	events   eventsdomain.Emitter
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("bridge.service"),
		clock:    p.Clock,
		chainCfg: p.ChainCfg,
		repo:     p.Repo,
		router:   p.Router,
		ledger:   p.Ledger,
		authz:    p.Authz,
		events:   p.Events,
		metrics:  p.Metrics,
	}
}

func (s *Service) Address() common.Address {
	return s.chainCfg.Get().BridgeAddress
}

func (s *Service) TransferToken(ctx context.Context, req domain.TransferRequest) (*domain.Receipt, error) {
	req.PayNative = false
	return s.transfer(ctx, req)
}

func (s *Service) TransferTokenPayNative(ctx context.Context, req domain.TransferRequest) (*domain.Receipt, error) {
	req.PayNative = true
	return s.transfer(ctx, req)
}

func (s *Service) transfer(ctx context.Context, req domain.TransferRequest) (*domain.Receipt, error) {
	caller, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}

	var receipt *domain.Receipt
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.TransferTx(ctx, tx, caller, req)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBridgeTransfer(ctx, feeMode(req.PayNative), req.Selector.String())
	return receipt, nil
}

// TransferTx pulls amount from sender, pays the router fee out of the
// bridge's own balance and dispatches the message.
func (s *Service) TransferTx(ctx context.Context, tx *gorm.DB, sender common.Address, req domain.TransferRequest) (*domain.Receipt, error) {
	allowed, err := s.repo.IsAllowed(ctx, tx, req.Selector)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, domain.ErrInvalidDestination
	}
	if evm.IsZero(req.Receiver) {
		return nil, domain.ErrInvalidReceiver
	}
	if !evm.IsTokenAmount(req.Amount) || req.Amount.IsZero() {
		return nil, domain.ErrInvalidAmount
	}

	cfg := s.chainCfg.Get()
	bridge := cfg.BridgeAddress
	feeToken := cfg.FeeToken
	if req.PayNative {
		feeToken = evm.NativeToken
	}
	msg := domain.Message{
		Receiver: req.Receiver,
		Token:    req.Token,
		Amount:   req.Amount,
		FeeToken: feeToken,
	}

	if err := s.ledger.TransferFrom(ctx, tx, req.Token, bridge, sender, bridge, req.Amount); err != nil {
		return nil, err
	}

	fee, err := s.router.GetFee(ctx, req.Selector, msg)
	if err != nil {
		return nil, err
	}
	available, err := s.ledger.BalanceOf(ctx, tx, feeToken, bridge)
	if err != nil {
		return nil, err
	}
	if feeToken == req.Token {
		available = available.Sub(req.Amount)
	}
	if available.LessThan(fee) {
		return nil, domain.ErrNotEnoughBalance
	}

	collector := s.router.FeeCollector()
	if !fee.IsZero() {
		if err := s.ledger.Transfer(ctx, tx, feeToken, bridge, collector, fee); err != nil {
			return nil, err
		}
	}
	if err := s.ledger.Transfer(ctx, tx, req.Token, bridge, collector, req.Amount); err != nil {
		return nil, err
	}

	messageID, err := s.router.Send(ctx, tx, req.Selector, msg)
	if err != nil {
		return nil, err
	}

	if err := s.repo.InsertTransfer(ctx, tx, &domain.Transfer{
		MessageID: messageID,
		Sender:    sender,
		Selector:  req.Selector,
		Receiver:  req.Receiver,
		Token:     req.Token,
		FeeToken:  feeToken,
		Amount:    req.Amount,
		Fee:       fee,
		FeeParam1: req.FeeParam1,
		FeeParam2: req.FeeParam2,
		CreatedAt: s.clock.Now(),
	}); err != nil {
		return nil, err
	}

	if err := s.events.Emit(ctx, tx, eventsdomain.TokenTransferred{
		MessageID:                messageID,
		DestinationChainSelector: req.Selector,
		Receiver:                 req.Receiver,
		Token:                    req.Token,
		FeeToken:                 feeToken,
		Amount:                   req.Amount,
		Fees:                     fee,
		FeeParam1:                req.FeeParam1,
		FeeParam2:                req.FeeParam2,
	}); err != nil {
		return nil, err
	}

	s.log.Info("token transferred",
		zap.String("message_id", messageID.Hex()),
		zap.String("selector", req.Selector.String()),
		zap.String("fee_mode", feeMode(req.PayNative)),
		zap.String("fee", fee.String()),
	)
	return &domain.Receipt{MessageID: messageID, FeeToken: feeToken, Fee: fee}, nil
}

func (s *Service) AddDestinationChainSupport(ctx context.Context, selector evm.Selector) error {
	return s.setDestination(ctx, selector, true)
}

func (s *Service) RemoveDestinationChainSupport(ctx context.Context, selector evm.Selector) error {
	return s.setDestination(ctx, selector, false)
}

func (s *Service) setDestination(ctx context.Context, selector evm.Selector, allowed bool) error {
	if err := s.requireOwner(ctx); err != nil {
		return err
	}
	if selector == 0 || selector == s.chainCfg.Get().LocalSelector {
		return domain.ErrInvalidDestination
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.SetDestination(ctx, tx, &domain.AllowedDestination{
			Selector:  selector,
			Allowed:   allowed,
			UpdatedAt: s.clock.Now(),
		}); err != nil {
			return err
		}
		if allowed {
			return s.events.Emit(ctx, tx, eventsdomain.DestinationChainAdded{Selector: selector})
		}
		return s.events.Emit(ctx, tx, eventsdomain.DestinationChainRemoved{Selector: selector})
	})
}

func (s *Service) WithdrawNative(ctx context.Context, to common.Address) (decimal.Decimal, error) {
	return s.withdraw(ctx, to, evm.NativeToken)
}

func (s *Service) WithdrawToken(ctx context.Context, to, token common.Address) (decimal.Decimal, error) {
	return s.withdraw(ctx, to, token)
}

func (s *Service) withdraw(ctx context.Context, to, token common.Address) (decimal.Decimal, error) {
	if err := s.requireOwner(ctx); err != nil {
		return decimal.Zero, err
	}
	if evm.IsZero(to) {
		return decimal.Zero, domain.ErrInvalidReceiver
	}

	bridge := s.Address()
	var amount decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := s.ledger.BalanceOf(ctx, tx, token, bridge)
		if err != nil {
			return err
		}
		if !balance.IsPositive() {
			return domain.ErrNothingToWithdraw
		}
		if err := s.ledger.Transfer(ctx, tx, token, bridge, to, balance); err != nil {
			return err
		}
		amount = balance
		return s.events.Emit(ctx, tx, eventsdomain.Withdrawal{To: to, Token: token, Amount: balance})
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.log.Info("bridge withdrawal",
		zap.String("to", to.Hex()),
		zap.String("token", token.Hex()),
		zap.String("amount", amount.String()),
	)
	return amount, nil
}

func (s *Service) IsDestinationAllowed(ctx context.Context, tx *gorm.DB, selector evm.Selector) (bool, error) {
	if tx == nil {
		tx = s.db
	}
	return s.repo.IsAllowed(ctx, tx, selector)
}

func (s *Service) ListDestinations(ctx context.Context) ([]domain.AllowedDestination, error) {
	return s.repo.ListDestinations(ctx, s.db)
}

func (s *Service) GetTransfer(ctx context.Context, messageID common.Hash) (*domain.Transfer, error) {
	transfer, err := s.repo.FindTransfer(ctx, s.db, messageID)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, domain.ErrTransferNotFound
	}
	return transfer, nil
}

func (s *Service) requireOwner(ctx context.Context) error {
	caller, err := callercontext.RequireCaller(ctx)
	if err != nil {
		return err
	}
	return s.authz.RequireOwner(ctx, caller, authorization.ObjectBridge)
}

func feeMode(payNative bool) string {
	if payNative {
		return "native"
	}
	return "fee_token"
}
