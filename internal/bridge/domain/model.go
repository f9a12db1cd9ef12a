package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/pkg/evm"
)

type AllowedDestination struct {
	Selector  evm.Selector `json:"selector" gorm:"primaryKey;autoIncrement:false"`
	Allowed   bool         `json:"allowed" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (AllowedDestination) TableName() string { return "allowed_destination_chains" }

// Transfer is the receipt of one dispatched cross-chain transfer.
type Transfer struct {
	MessageID common.Hash     `json:"message_id" gorm:"primaryKey;size:32"`
	Sender    common.Address  `json:"sender" gorm:"size:20;not null;index"`
	Selector  evm.Selector    `json:"destination_chain_selector" gorm:"not null"`
	Receiver  common.Address  `json:"receiver" gorm:"size:20;not null"`
	Token     common.Address  `json:"token" gorm:"size:20;not null"`
	FeeToken  common.Address  `json:"fee_token" gorm:"size:20;not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:text;not null"`
	Fee       decimal.Decimal `json:"fee" gorm:"type:text;not null"`
	FeeParam1 int64           `json:"fee_param1" gorm:"not null"`
	FeeParam2 int64           `json:"fee_param2" gorm:"not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
}

func (Transfer) TableName() string { return "bridge_transfers" }

// OutboundMessage is a router message waiting to be relayed to the destination.
type OutboundMessage struct {
	ID            int64           `json:"id" gorm:"primaryKey;autoIncrement:false"`
	MessageID     common.Hash     `json:"message_id" gorm:"size:32;not null;uniqueIndex"`
	Selector      evm.Selector    `json:"destination_chain_selector" gorm:"not null"`
	Receiver      common.Address  `json:"receiver" gorm:"size:20;not null"`
	Token         common.Address  `json:"token" gorm:"size:20;not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:text;not null"`
	FeeToken      common.Address  `json:"fee_token" gorm:"size:20;not null"`
	Fee           decimal.Decimal `json:"fee" gorm:"type:text;not null"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
	PublishedAt   *time.Time      `json:"published_at,omitempty" gorm:"index"`
	Attempts      int             `json:"attempts" gorm:"not null;default:0"`
	NextAttemptAt time.Time       `json:"-" gorm:"not null"`
	LastError     *string         `json:"-" gorm:"type:text"`
}

func (OutboundMessage) TableName() string { return "bridge_messages" }

// Message is what the router carries: a token amount for a receiver, with the fee token used to pay for it.
type Message struct {
	Receiver common.Address
	Token    common.Address
	Amount   decimal.Decimal
	FeeToken common.Address
}

type TransferRequest struct {
	Selector  evm.Selector    `json:"destination_chain_selector"`
	Receiver  common.Address  `json:"receiver"`
	Token     common.Address  `json:"token"`
	Amount    decimal.Decimal `json:"amount"`
	FeeParam1 int64           `json:"fee_param1"`
	FeeParam2 int64           `json:"fee_param2"`
	PayNative bool            `json:"-"`
}

type Receipt struct {
	MessageID common.Hash     `json:"message_id"`
	FeeToken  common.Address  `json:"fee_token"`
	Fee       decimal.Decimal `json:"fee"`
}
