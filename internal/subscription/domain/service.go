package domain

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/apperror"
)

const (
	NonceScope = "subscription"
	// FirstID is the id of each subscriber's first subscription.
	FirstID int64 = 0
)

// NonceKey scopes subscription ids to one subscriber.
func NonceKey(subscriber common.Address) string {
	return strings.ToLower(subscriber.Hex())
}

type Service interface {
	Subscribe(ctx context.Context, req SubscribeRequest) (*Subscription, error)
	UnSubscribe(ctx context.Context, subscriptionID int64) (*Subscription, error)
	ChangeSubscriptionPlan(ctx context.Context, subscriptionID, newPlanID int64) (*Subscription, error)
	ChangeSubscriptionPlanPaymentInfo(ctx context.Context, req ChangePaymentInfoRequest) (*Subscription, error)

	Get(ctx context.Context, subscriber common.Address, id int64) (*Subscription, error)
	List(ctx context.Context, subscriber common.Address) ([]Subscription, error)
	Nonce(ctx context.Context, subscriber common.Address) (int64, error)
	SubscribedToProduct(ctx context.Context, subscriber common.Address, productID int64) (bool, error)
}

type SubscribeRequest struct {
	PlanID       int64           `json:"plan_id"`
	EndTime      int64           `json:"end_time"`
	PaymentToken common.Address  `json:"payment_token"`
	SwapFee      decimal.Decimal `json:"swap_fee"`
}

type ChangePaymentInfoRequest struct {
	SubscriptionID int64           `json:"subscription_id"`
	NewPlanID      int64           `json:"new_plan_id"`
	EndTime        int64           `json:"end_time"`
	PaymentToken   common.Address  `json:"payment_token"`
	SwapFee        decimal.Decimal `json:"swap_fee"`
}

var (
	ErrSubscriptionNotFound   = apperror.New(apperror.KindNotFound, "Subscription does not exist")
	ErrSubscriptionNotActive  = apperror.New(apperror.KindState, "Subscription not active")
	ErrAlreadyInactive        = apperror.New(apperror.KindState, "Subscription already inactive")
	ErrSubscriptionExpired    = apperror.New(apperror.KindState, "Subscription expired")
	ErrIntervalNotMet         = apperror.New(apperror.KindState, "time Interval not met")
	ErrInvalidEndTime         = apperror.New(apperror.KindValidation, "end time must be in the future")
	ErrUnsupportedPayment     = apperror.New(apperror.KindValidation, "payment token must match the product charge token")
	ErrInvalidSwapFee         = apperror.New(apperror.KindValidation, "invalid swap fee")
	ErrPlanProductMismatch    = apperror.New(apperror.KindValidation, "Plan belongs to a different product")
	ErrIncorrectPlanForCharge = apperror.New(apperror.KindValidation, "Incorrect plan id")
)
