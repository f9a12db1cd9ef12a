package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Plan, error)
	ListByProduct(ctx context.Context, db *gorm.DB, productID int64) ([]Plan, error)
	UpdateActive(ctx context.Context, db *gorm.DB, plan *Plan) error
}
