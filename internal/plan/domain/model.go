package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Plan is a billing plan of a product. ProductID and Provider are copied
// from the product at creation and never change; price and interval are
// frozen after creation.
type Plan struct {
	ID             int64           `json:"plan_id" gorm:"primaryKey;autoIncrement:false"`
	ProductID      int64           `json:"product_id" gorm:"not null;index"`
	Provider       common.Address  `json:"provider" gorm:"size:20;not null"`
	Price          decimal.Decimal `json:"price" gorm:"type:text;not null"`
	ChargeInterval int64           `json:"charge_interval" gorm:"not null"`
	IsActive       bool            `json:"is_active" gorm:"not null"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"not null"`
}

func (Plan) TableName() string { return "plans" }
