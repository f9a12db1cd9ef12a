package repository

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/token/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindBalance(ctx context.Context, db *gorm.DB, token, holder common.Address) (*domain.Balance, error) {
	var rows []domain.Balance
	err := db.WithContext(ctx).Raw(
		`SELECT token, holder, amount, updated_at
		 FROM token_balances WHERE token = ? AND holder = ?`,
		token,
		holder,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) InsertBalance(ctx context.Context, db *gorm.DB, balance *domain.Balance) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO token_balances (token, holder, amount, updated_at) VALUES (?, ?, ?, ?)`,
		balance.Token,
		balance.Holder,
		balance.Amount,
		balance.UpdatedAt,
	).Error
}

func (r *repo) CompareAndSetBalance(ctx context.Context, db *gorm.DB, token, holder common.Address, expected, next decimal.Decimal, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE token_balances SET amount = ?, updated_at = ?
		 WHERE token = ? AND holder = ? AND amount = ?`,
		next,
		at,
		token,
		holder,
		expected,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) FindAllowance(ctx context.Context, db *gorm.DB, token, owner, spender common.Address) (*domain.Allowance, error) {
	var rows []domain.Allowance
	err := db.WithContext(ctx).Raw(
		`SELECT token, owner, spender, amount, updated_at
		 FROM token_allowances WHERE token = ? AND owner = ? AND spender = ?`,
		token,
		owner,
		spender,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) UpsertAllowance(ctx context.Context, db *gorm.DB, allowance *domain.Allowance) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}, {Name: "owner"}, {Name: "spender"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(allowance).Error
}

func (r *repo) CompareAndSetAllowance(ctx context.Context, db *gorm.DB, token, owner, spender common.Address, expected, next decimal.Decimal, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE token_allowances SET amount = ?, updated_at = ?
		 WHERE token = ? AND owner = ? AND spender = ? AND amount = ?`,
		next,
		at,
		token,
		owner,
		spender,
		expected,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) InsertSupported(ctx context.Context, db *gorm.DB, supported *domain.SupportedToken) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(supported).Error
}

func (r *repo) IsSupported(ctx context.Context, db *gorm.DB, token common.Address) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM supported_tokens WHERE token = ?`,
		token,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListSupported(ctx context.Context, db *gorm.DB) ([]domain.SupportedToken, error) {
	var items []domain.SupportedToken
	err := db.WithContext(ctx).Raw(
		`SELECT token, added_by, added_at FROM supported_tokens ORDER BY added_at ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
