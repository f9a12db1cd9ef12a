package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/pkg/evm"
)

const (
	NameProductCreated          = "ProductCreated"
	NameProductUpdated          = "ProductUpdated"
	NamePlanCreated             = "PlanCreated"
	NamePlanUpdated             = "PlanUpdated"
	NameSubscribed              = "Subscribed"
	NameUnSubscribed            = "UnSubscribed"
	NameSubscriptionPlanChanged = "SubscriptionPlanChanged"
	NameSubscriptionCharged     = "SubscriptionCharged"
	NameTokenTransferred        = "TokenTransferred"
	NameSupportedTokenAdded     = "SupportedTokenAdded"
	NameDestinationChainAdded   = "DestinationChainAdded"
	NameDestinationChainRemoved = "DestinationChainRemoved"
	NameChainSelectorAdded      = "ChainSelectorAdded"
	NameWithdrawal              = "Withdrawal"
)

type ProductCreated struct {
	ProductID        int64          `json:"productId"`
	Provider         common.Address `json:"provider"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	LogoURL          string         `json:"logoUrl"`
	ProductType      uint8          `json:"productType"`
	ChargeToken      common.Address `json:"chargeToken"`
	ReceivingAddress common.Address `json:"receivingAddress"`
	DestinationChain uint64         `json:"destinationChain"`
	IsActive         bool           `json:"isActive"`
}

func (ProductCreated) EventName() string { return NameProductCreated }

type ProductUpdated struct {
	ProductID        int64          `json:"productId"`
	ReceivingAddress common.Address `json:"receivingAddress"`
	DestinationChain uint64         `json:"destinationChain"`
	IsActive         bool           `json:"isActive"`
}

func (ProductUpdated) EventName() string { return NameProductUpdated }

type PlanCreated struct {
	ProductID      int64           `json:"productId"`
	PlanID         int64           `json:"planId"`
	Price          decimal.Decimal `json:"price"`
	ChargeInterval int64           `json:"chargeInterval"`
	IsActive       bool            `json:"isActive"`
}

func (PlanCreated) EventName() string { return NamePlanCreated }

type PlanUpdated struct {
	PlanID   int64 `json:"planId"`
	IsActive bool  `json:"isActive"`
}

func (PlanUpdated) EventName() string { return NamePlanUpdated }

type Subscribed struct {
	Subscriber     common.Address `json:"subscriber"`
	Provider       common.Address `json:"provider"`
	ProductID      int64          `json:"productId"`
	PlanID         int64          `json:"planId"`
	SubscriptionID int64          `json:"subscriptionId"`
	EndTime        int64          `json:"endTime"`
}

func (Subscribed) EventName() string { return NameSubscribed }

type UnSubscribed struct {
	Subscriber     common.Address `json:"subscriber"`
	SubscriptionID int64          `json:"subscriptionId"`
}

func (UnSubscribed) EventName() string { return NameUnSubscribed }

type SubscriptionPlanChanged struct {
	Subscriber     common.Address `json:"subscriber"`
	SubscriptionID int64          `json:"subscriptionId"`
	OldPlanID      int64          `json:"oldPlanId"`
	NewPlanID      int64          `json:"newPlanId"`
	EndTime        int64          `json:"endTime"`
	PaymentToken   common.Address `json:"paymentToken"`
}

func (SubscriptionPlanChanged) EventName() string { return NameSubscriptionPlanChanged }

type SubscriptionCharged struct {
	Subscriber     common.Address  `json:"subscriber"`
	Provider       common.Address  `json:"provider"`
	SubscriptionID int64           `json:"subscriptionId"`
	PlanID         int64           `json:"planId"`
	ProductID      int64           `json:"productId"`
	Price          decimal.Decimal `json:"price"`
	LastChargeDate int64           `json:"lastChargeDate"`
}

func (SubscriptionCharged) EventName() string { return NameSubscriptionCharged }

type TokenTransferred struct {
	MessageID                common.Hash     `json:"messageId"`
	DestinationChainSelector evm.Selector    `json:"destinationChainSelector"`
	Receiver                 common.Address  `json:"receiver"`
	Token                    common.Address  `json:"token"`
	FeeToken                 common.Address  `json:"feeToken"`
	Amount                   decimal.Decimal `json:"amount"`
	Fees                     decimal.Decimal `json:"fees"`
	FeeParam1                int64           `json:"feeParam1"`
	FeeParam2                int64           `json:"feeParam2"`
}

func (TokenTransferred) EventName() string { return NameTokenTransferred }

type SupportedTokenAdded struct {
	Token common.Address `json:"token"`
}

func (SupportedTokenAdded) EventName() string { return NameSupportedTokenAdded }

type DestinationChainAdded struct {
	Selector evm.Selector `json:"selector"`
}

func (DestinationChainAdded) EventName() string { return NameDestinationChainAdded }

type DestinationChainRemoved struct {
	Selector evm.Selector `json:"selector"`
}

func (DestinationChainRemoved) EventName() string { return NameDestinationChainRemoved }

type ChainSelectorAdded struct {
	ChainID  uint64       `json:"chainId"`
	Selector evm.Selector `json:"selector"`
}

func (ChainSelectorAdded) EventName() string { return NameChainSelectorAdded }

type Withdrawal struct {
	To     common.Address  `json:"to"`
	Token  common.Address  `json:"token"`
	Amount decimal.Decimal `json:"amount"`
}

func (Withdrawal) EventName() string { return NameWithdrawal }
