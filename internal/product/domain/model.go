package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type ProductType uint8

const (
	ProductTypeOneTime   ProductType = 0
	ProductTypeRecurring ProductType = 1
)

func (t ProductType) Valid() bool {
	return t == ProductTypeOneTime || t == ProductTypeRecurring
}

func (t ProductType) String() string {
	switch t {
	case ProductTypeOneTime:
		return "one_time"
	case ProductTypeRecurring:
		return "recurring"
	default:
		return "unknown"
	}
}

// Product is a provider's sellable offering. Products are never deleted;
// IsActive=false is the terminal state.
type Product struct {
	ID               int64          `json:"product_id" gorm:"primaryKey;autoIncrement:false"`
	Provider         common.Address `json:"provider" gorm:"size:20;not null;index"`
	Name             string         `json:"name" gorm:"type:varchar(32);not null"`
	Description      string         `json:"description" gorm:"type:text;not null"`
	LogoURL          string         `json:"logo_url" gorm:"column:logo_url;type:text;not null"`
	ProductType      ProductType    `json:"product_type" gorm:"not null"`
	ChargeToken      common.Address `json:"charge_token" gorm:"size:20;not null"`
	ReceivingAddress common.Address `json:"receiving_address" gorm:"size:20;not null"`
	DestinationChain uint64         `json:"destination_chain" gorm:"not null"`
	IsActive         bool           `json:"is_active" gorm:"not null"`
	CreatedAt        time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }
