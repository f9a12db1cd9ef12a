package repository

import (
	"context"

	"github.com/smallbiznis/relaypay/internal/chain/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, mapping *domain.ChainSelector) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chain_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"selector", "added_by", "added_at"}),
	}).Create(mapping).Error
}

func (r *repo) FindByChainID(ctx context.Context, db *gorm.DB, chainID uint64) (*domain.ChainSelector, error) {
	var rows []domain.ChainSelector
	err := db.WithContext(ctx).Raw(
		`SELECT chain_id, selector, added_by, added_at FROM chain_selectors WHERE chain_id = ?`,
		chainID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.ChainSelector, error) {
	var items []domain.ChainSelector
	err := db.WithContext(ctx).Raw(
		`SELECT chain_id, selector, added_by, added_at FROM chain_selectors ORDER BY chain_id ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
