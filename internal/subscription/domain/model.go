package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Subscription is keyed by (subscriber, id); ids are allocated per subscriber.
// LastChargeDate and EndTime are unix seconds, EndTime 0 meaning indefinite.
// ChargeFailures counts keeper charges that failed since the last success;
// the keeper skips the subscription until NextChargeAttempt.
type Subscription struct {
	Subscriber          common.Address  `json:"subscriber" gorm:"primaryKey;size:20"`
	ID                  int64           `json:"subscription_id" gorm:"column:subscription_id;primaryKey;autoIncrement:false"`
	Provider            common.Address  `json:"provider" gorm:"size:20;not null"`
	ProductID           int64           `json:"product_id" gorm:"not null;index"`
	PlanID              int64           `json:"plan_id" gorm:"not null;index"`
	IsActive            bool            `json:"is_active" gorm:"not null;index"`
	LastChargeDate      int64           `json:"last_charge_date" gorm:"not null"`
	EndTime             int64           `json:"end_time" gorm:"not null"`
	PaymentToken        common.Address  `json:"payment_token" gorm:"size:20;not null"`
	PaymentTokenSwapFee decimal.Decimal `json:"payment_token_swap_fee" gorm:"type:text;not null"`
	ChargeFailures      int             `json:"charge_failures" gorm:"not null;default:0"`
	NextChargeAttempt   int64           `json:"next_charge_attempt" gorm:"not null;default:0"`
	CreatedAt           time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt           time.Time       `json:"updated_at" gorm:"not null"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Expired reports whether the subscription's end time has passed at now.
func (s Subscription) Expired(now int64) bool {
	return s.EndTime != 0 && now > s.EndTime
}

// ProductSubscription records that a subscriber currently holds an active
// subscription to a product.
type ProductSubscription struct {
	Subscriber     common.Address `json:"subscriber" gorm:"primaryKey;size:20"`
	ProductID      int64          `json:"product_id" gorm:"primaryKey;autoIncrement:false"`
	SubscriptionID int64          `json:"subscription_id" gorm:"not null"`
	CreatedAt      time.Time      `json:"created_at" gorm:"not null"`
}

func (ProductSubscription) TableName() string { return "subscribed_to_product" }
