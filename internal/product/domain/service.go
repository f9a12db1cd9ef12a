package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smallbiznis/relaypay/internal/apperror"
	"gorm.io/gorm"
)

const (
	NonceScope = "product"
	NonceKey   = "global"
	// FirstID is the identifier handed to the first product.
	FirstID int64 = 1
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Product, error)
	CreateTx(ctx context.Context, tx *gorm.DB, provider common.Address, req CreateRequest) (*Product, error)
	Update(ctx context.Context, req UpdateRequest) (*Product, error)
	Get(ctx context.Context, id int64) (*Product, error)
	ListByProvider(ctx context.Context, provider common.Address) ([]Product, error)
	Nonce(ctx context.Context) (int64, error)
}

type CreateRequest struct {
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	LogoURL          string         `json:"logo_url"`
	ProductType      ProductType    `json:"product_type"`
	ChargeToken      common.Address `json:"charge_token"`
	ReceivingAddress common.Address `json:"receiving_address"`
	DestinationChain uint64         `json:"destination_chain"`
}

type UpdateRequest struct {
	ProductID        int64          `json:"product_id"`
	ReceivingAddress common.Address `json:"receiving_address"`
	DestinationChain uint64         `json:"destination_chain"`
	IsActive         bool           `json:"is_active"`
}

var (
	ErrProductNotFound         = apperror.New(apperror.KindNotFound, "Product does not exist")
	ErrNotProvider             = apperror.New(apperror.KindAuthorization, "Not product provider")
	ErrProductInactive         = apperror.New(apperror.KindState, "Product not active")
	ErrInvalidName             = apperror.New(apperror.KindValidation, "invalid product name")
	ErrInvalidProductType      = apperror.New(apperror.KindValidation, "invalid product type")
	ErrInvalidReceivingAddress = apperror.New(apperror.KindValidation, "invalid receiving address")
	ErrUnsupportedDestination  = apperror.New(apperror.KindValidation, "invalid destination chain")
)
