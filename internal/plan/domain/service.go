package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/apperror"
	"gorm.io/gorm"
)

const (
	NonceScope       = "plan"
	NonceKey         = "global"
	FirstID    int64 = 1
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Plan, error)
	CreateTx(ctx context.Context, tx *gorm.DB, caller common.Address, req CreateRequest) (*Plan, error)
	Update(ctx context.Context, planID int64, isActive bool) (*Plan, error)
	Get(ctx context.Context, id int64) (*Plan, error)
	ListByProduct(ctx context.Context, productID int64) ([]Plan, error)
	Nonce(ctx context.Context) (int64, error)
}

type CreateRequest struct {
	ProductID      int64           `json:"product_id"`
	ChargeInterval int64           `json:"charge_interval"`
	Price          decimal.Decimal `json:"price"`
}

var (
	ErrPlanNotFound    = apperror.New(apperror.KindNotFound, "Plan does not exist")
	ErrNotPlanProvider = apperror.New(apperror.KindAuthorization, "Not plan provider")
	ErrPlanInactive    = apperror.New(apperror.KindState, "Plan not active")
	ErrInvalidPrice    = apperror.New(apperror.KindValidation, "price must be greater than zero")
	ErrInvalidInterval = apperror.New(apperror.KindValidation, "charge interval must be greater than zero")
)
