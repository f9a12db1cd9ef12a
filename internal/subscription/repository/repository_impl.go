package repository

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smallbiznis/relaypay/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const subscriptionColumns = `subscriber, subscription_id, provider, product_id, plan_id, is_active,
	last_charge_date, end_time, payment_token, payment_token_swap_fee, charge_failures,
	next_charge_attempt, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (`+subscriptionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.Subscriber,
		sub.ID,
		sub.Provider,
		sub.ProductID,
		sub.PlanID,
		sub.IsActive,
		sub.LastChargeDate,
		sub.EndTime,
		sub.PaymentToken,
		sub.PaymentTokenSwapFee,
		sub.ChargeFailures,
		sub.NextChargeAttempt,
		sub.CreatedAt,
		sub.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, subscriber common.Address, id int64) (*domain.Subscription, error) {
	var rows []domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions WHERE subscriber = ? AND subscription_id = ?`,
		subscriber,
		id,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) ListBySubscriber(ctx context.Context, db *gorm.DB, subscriber common.Address) ([]domain.Subscription, error) {
	var items []domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions WHERE subscriber = ? ORDER BY subscription_id ASC`,
		subscriber,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateActive(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET is_active = ?, updated_at = ?
		 WHERE subscriber = ? AND subscription_id = ?`,
		sub.IsActive,
		sub.UpdatedAt,
		sub.Subscriber,
		sub.ID,
	).Error
}

func (r *repo) UpdatePlan(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET plan_id = ?, end_time = ?, payment_token = ?, payment_token_swap_fee = ?, updated_at = ?
		 WHERE subscriber = ? AND subscription_id = ?`,
		sub.PlanID,
		sub.EndTime,
		sub.PaymentToken,
		sub.PaymentTokenSwapFee,
		sub.UpdatedAt,
		sub.Subscriber,
		sub.ID,
	).Error
}

func (r *repo) CompareAndSetLastCharge(ctx context.Context, db *gorm.DB, subscriber common.Address, id int64, expected, next int64, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET last_charge_date = ?, charge_failures = 0, next_charge_attempt = 0, updated_at = ?
		 WHERE subscriber = ? AND subscription_id = ? AND last_charge_date = ? AND is_active = ?`,
		next,
		at,
		subscriber,
		id,
		expected,
		true,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ListDue(ctx context.Context, db *gorm.DB, now int64, limit int) ([]domain.Subscription, error) {
	var items []domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT s.subscriber, s.subscription_id, s.provider, s.product_id, s.plan_id, s.is_active,
		        s.last_charge_date, s.end_time, s.payment_token, s.payment_token_swap_fee,
		        s.charge_failures, s.next_charge_attempt, s.created_at, s.updated_at
		 FROM subscriptions s
		 JOIN plans p ON p.id = s.plan_id
		 WHERE s.is_active = ?
		   AND s.last_charge_date + p.charge_interval <= ?
		   AND (s.end_time = 0 OR s.end_time >= ?)
		   AND s.next_charge_attempt <= ?
		 ORDER BY s.last_charge_date ASC, s.subscriber ASC, s.subscription_id ASC
		 LIMIT ?`,
		true,
		now,
		now,
		now,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) RecordChargeFailure(ctx context.Context, db *gorm.DB, subscriber common.Address, id int64, failures int, nextAttempt int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET charge_failures = ?, next_charge_attempt = ?, updated_at = ?
		 WHERE subscriber = ? AND subscription_id = ?`,
		failures,
		nextAttempt,
		at,
		subscriber,
		id,
	).Error
}

func (r *repo) SetProductSubscription(ctx context.Context, db *gorm.DB, link *domain.ProductSubscription) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscriber"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"subscription_id", "created_at"}),
	}).Create(link).Error
}

func (r *repo) ClearProductSubscription(ctx context.Context, db *gorm.DB, subscriber common.Address, productID, subscriptionID int64) error {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM subscribed_to_product
		 WHERE subscriber = ? AND product_id = ? AND subscription_id = ?`,
		subscriber,
		productID,
		subscriptionID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	// hand the link to the newest subscription to the product that is still active
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscribed_to_product (subscriber, product_id, subscription_id, created_at)
		 SELECT subscriber, product_id, subscription_id, created_at
		 FROM subscriptions
		 WHERE subscriber = ? AND product_id = ? AND is_active = ?
		 ORDER BY subscription_id DESC
		 LIMIT 1`,
		subscriber,
		productID,
		true,
	).Error
}

func (r *repo) IsSubscribedToProduct(ctx context.Context, db *gorm.DB, subscriber common.Address, productID int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM subscribed_to_product WHERE subscriber = ? AND product_id = ?`,
		subscriber,
		productID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
