package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, subscriber common.Address, id int64) (*Subscription, error)
	ListBySubscriber(ctx context.Context, db *gorm.DB, subscriber common.Address) ([]Subscription, error)
	UpdateActive(ctx context.Context, db *gorm.DB, sub *Subscription) error
	UpdatePlan(ctx context.Context, db *gorm.DB, sub *Subscription) error
	// CompareAndSetLastCharge moves last_charge_date from expected to next and
	// clears the failure backoff; it reports false when another charge already
	// moved it.
	CompareAndSetLastCharge(ctx context.Context, db *gorm.DB, subscriber common.Address, id int64, expected, next int64, at time.Time) (bool, error)
	// ListDue returns active subscriptions whose interval has elapsed and whose
	// retry backoff, if any, is over.
	ListDue(ctx context.Context, db *gorm.DB, now int64, limit int) ([]Subscription, error)
	RecordChargeFailure(ctx context.Context, db *gorm.DB, subscriber common.Address, id int64, failures int, nextAttempt int64, at time.Time) error

	SetProductSubscription(ctx context.Context, db *gorm.DB, link *ProductSubscription) error
	// ClearProductSubscription drops the product link held by subscriptionID and
	// repoints it at another active subscription to the product, if any. Call
	// it after the subscription has been marked inactive.
	ClearProductSubscription(ctx context.Context, db *gorm.DB, subscriber common.Address, productID, subscriptionID int64) error
	IsSubscribedToProduct(ctx context.Context, db *gorm.DB, subscriber common.Address, productID int64) (bool, error)
}
