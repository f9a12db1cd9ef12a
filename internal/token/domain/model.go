package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type Balance struct {
	Token     common.Address  `json:"token" gorm:"primaryKey;size:20"`
	Holder    common.Address  `json:"holder" gorm:"primaryKey;size:20"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:text;not null"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null"`
}

func (Balance) TableName() string { return "token_balances" }

type Allowance struct {
	Token     common.Address  `json:"token" gorm:"primaryKey;size:20"`
	Owner     common.Address  `json:"owner" gorm:"primaryKey;size:20"`
	Spender   common.Address  `json:"spender" gorm:"primaryKey;size:20"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:text;not null"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null"`
}

func (Allowance) TableName() string { return "token_allowances" }

type SupportedToken struct {
	Token   common.Address `json:"token" gorm:"primaryKey;size:20"`
	AddedBy common.Address `json:"added_by" gorm:"size:20;not null"`
	AddedAt time.Time      `json:"added_at" gorm:"not null"`
}

func (SupportedToken) TableName() string { return "supported_tokens" }
