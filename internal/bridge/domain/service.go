package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/apperror"
	"github.com/smallbiznis/relaypay/pkg/evm"
	"gorm.io/gorm"
)

// Router is the cross-chain messaging transport.
type Router interface {
	GetFee(ctx context.Context, selector evm.Selector, msg Message) (decimal.Decimal, error)
	Send(ctx context.Context, tx *gorm.DB, selector evm.Selector, msg Message) (common.Hash, error)
	// FeeCollector is the account the router charges fees to.
	FeeCollector() common.Address
}

type Service interface {
	TransferToken(ctx context.Context, req TransferRequest) (*Receipt, error)
	TransferTokenPayNative(ctx context.Context, req TransferRequest) (*Receipt, error)
	// TransferTx dispatches on behalf of sender inside an existing transaction.
	TransferTx(ctx context.Context, tx *gorm.DB, sender common.Address, req TransferRequest) (*Receipt, error)

	AddDestinationChainSupport(ctx context.Context, selector evm.Selector) error
	RemoveDestinationChainSupport(ctx context.Context, selector evm.Selector) error
	WithdrawNative(ctx context.Context, to common.Address) (decimal.Decimal, error)
	WithdrawToken(ctx context.Context, to, token common.Address) (decimal.Decimal, error)

	IsDestinationAllowed(ctx context.Context, tx *gorm.DB, selector evm.Selector) (bool, error)
	ListDestinations(ctx context.Context) ([]AllowedDestination, error)
	GetTransfer(ctx context.Context, messageID common.Hash) (*Transfer, error)
	Address() common.Address
}

// Outbox is read by the relay to forward router messages.
type Outbox interface {
	ClaimPending(ctx context.Context, limit int) ([]OutboundMessage, error)
	MarkPublished(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, msg OutboundMessage, cause error) error
}

var (
	ErrInvalidDestination = apperror.New(apperror.KindValidation, "invalid destination chain")
	ErrInvalidReceiver    = apperror.New(apperror.KindValidation, "invalid receiver")
	ErrInvalidAmount      = apperror.New(apperror.KindValidation, "invalid amount")
	ErrNotEnoughBalance   = apperror.New(apperror.KindPayment, "not enough balance")
	ErrNothingToWithdraw  = apperror.New(apperror.KindPayment, "nothing to withdraw")
	ErrNoFeeQuote         = apperror.New(apperror.KindValidation, "no fee quote for destination chain")
	ErrTransferNotFound   = apperror.New(apperror.KindNotFound, "Transfer does not exist")
)
