package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/apperror"
	plandomain "github.com/smallbiznis/relaypay/internal/plan/domain"
	productdomain "github.com/smallbiznis/relaypay/internal/product/domain"
)

// Service composes product and plan creation into single transactions.
type Service interface {
	CreateProductWithPlans(ctx context.Context, req CreateProductWithPlansRequest) (*Result, error)
	CreateRecurringSubscription(ctx context.Context, req CreateRecurringSubscriptionRequest) (*Result, error)
}

type PlanSpec struct {
	ChargeInterval int64           `json:"charge_interval"`
	Price          decimal.Decimal `json:"price"`
}

type CreateProductWithPlansRequest struct {
	Product productdomain.CreateRequest `json:"product"`
	Plans   []PlanSpec                  `json:"plans"`
}

type CreateRecurringSubscriptionRequest struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	LogoURL          string          `json:"logo_url"`
	Token            common.Address  `json:"token"`
	ReceivingAddress common.Address  `json:"receiving_address"`
	DestinationChain uint64          `json:"destination_chain"`
	ChargeInterval   int64           `json:"charge_interval"`
	Price            decimal.Decimal `json:"price"`
}

type Result struct {
	Product *productdomain.Product `json:"product"`
	Plans   []plandomain.Plan      `json:"plans"`
}

var ErrNoPlans = apperror.New(apperror.KindValidation, "at least one plan is required")
