package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Product, error)
	ListByProvider(ctx context.Context, db *gorm.DB, provider common.Address) ([]Product, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error
}
