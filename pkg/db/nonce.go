package db

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Nonce stores the next identifier to hand out for a scope/key pair.
type Nonce struct {
	Scope string `gorm:"column:scope;primaryKey;type:varchar(64)"`
	Key   string `gorm:"column:nonce_key;primaryKey;type:varchar(128)"`
	Value int64  `gorm:"column:value;not null"`
}

func (Nonce) TableName() string { return "nonces" }

// NextNonce allocates the next identifier for (scope, key). The first value
// handed out is start. It must run inside the transaction that persists the
// identified row so a rollback returns the value to the pool.
func NextNonce(ctx context.Context, tx *gorm.DB, scope, key string, start int64) (int64, error) {
	seed := Nonce{Scope: scope, Key: key, Value: start}
	if err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, err
	}

	if err := tx.WithContext(ctx).Exec(
		`UPDATE nonces SET value = value + 1 WHERE scope = ? AND nonce_key = ?`,
		scope,
		key,
	).Error; err != nil {
		return 0, err
	}

	var value int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT value FROM nonces WHERE scope = ? AND nonce_key = ?`,
		scope,
		key,
	).Scan(&value).Error; err != nil {
		return 0, err
	}
	return value - 1, nil
}

// PeekNonce returns the identifier NextNonce would hand out next.
func PeekNonce(ctx context.Context, db *gorm.DB, scope, key string, start int64) (int64, error) {
	var rows []Nonce
	if err := db.WithContext(ctx).Raw(
		`SELECT scope, nonce_key, value FROM nonces WHERE scope = ? AND nonce_key = ?`,
		scope,
		key,
	).Scan(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return start, nil
	}
	return rows[0].Value, nil
}
