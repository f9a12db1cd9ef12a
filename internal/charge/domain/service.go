package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	subscriptiondomain "github.com/smallbiznis/relaypay/internal/subscription/domain"
	"gorm.io/gorm"
)

type Path string

const (
	PathDirect Path = "direct"
	PathBridge Path = "bridge"
)

// Receipt describes one successful charge.
type Receipt struct {
	Subscriber     common.Address  `json:"subscriber"`
	SubscriptionID int64           `json:"subscription_id"`
	Provider       common.Address  `json:"provider"`
	ProductID      int64           `json:"product_id"`
	PlanID         int64           `json:"plan_id"`
	Price          decimal.Decimal `json:"price"`
	LastChargeDate int64           `json:"last_charge_date"`
	Path           Path            `json:"path"`
	MessageID      *common.Hash    `json:"message_id,omitempty"`
}

// Engine bills subscriptions whose charge interval has elapsed.
type Engine interface {
	Charge(ctx context.Context, subscriber common.Address, subscriptionID int64) (*Receipt, error)
	// ChargeTx runs the charge on an existing transaction, for callers that
	// must roll back together with it.
	ChargeTx(ctx context.Context, tx *gorm.DB, subscriber common.Address, subscriptionID int64) (*Receipt, error)
	// FirstChargeTx takes the opening payment of a subscription created in
	// tx. It does not wait for the charge interval.
	FirstChargeTx(ctx context.Context, tx *gorm.DB, subscriber common.Address, subscriptionID int64) (*Receipt, error)
	ListDue(ctx context.Context, limit int) ([]subscriptiondomain.Subscription, error)
	// DeferRetry records a failed charge and keeps the subscription out of
	// ListDue until the returned unix time.
	DeferRetry(ctx context.Context, subscriber common.Address, subscriptionID int64) (int64, error)
}

const (
	ChargeRetryBase = 5 * time.Minute
	ChargeRetryMax  = 24 * time.Hour
)

// ChargeRetryDelay doubles per consecutive failure, capped at ChargeRetryMax.
func ChargeRetryDelay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := ChargeRetryBase << min(failures-1, 16)
	if d > ChargeRetryMax {
		return ChargeRetryMax
	}
	return d
}
