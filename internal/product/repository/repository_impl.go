package repository

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smallbiznis/relaypay/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const productColumns = `id, provider, name, description, logo_url, product_type, charge_token,
	receiving_address, destination_chain, is_active, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (`+productColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Provider,
		product.Name,
		product.Description,
		product.LogoURL,
		product.ProductType,
		product.ChargeToken,
		product.ReceivingAddress,
		product.DestinationChain,
		product.IsActive,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT `+productColumns+` FROM products WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListByProvider(ctx context.Context, db *gorm.DB, provider common.Address) ([]domain.Product, error) {
	var items []domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT `+productColumns+` FROM products WHERE provider = ? ORDER BY id ASC`,
		provider,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	if product == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET receiving_address = ?, destination_chain = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		product.ReceivingAddress,
		product.DestinationChain,
		product.IsActive,
		product.UpdatedAt,
		product.ID,
	).Error
}
