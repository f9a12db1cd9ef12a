package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	bridgedomain "github.com/smallbiznis/relaypay/internal/bridge/domain"
	"github.com/smallbiznis/relaypay/internal/charge/domain"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	subscriptiondomain "github.com/smallbiznis/relaypay/internal/subscription/domain"
	"github.com/smallbiznis/relaypay/internal/testkit"
	tokendomain "github.com/smallbiznis/relaypay/internal/token/domain"
	"github.com/smallbiznis/relaypay/pkg/evm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const month = time.Duration(testkit.MonthlyInterval) * time.Second

func TestChargeWaitsForInterval(t *testing.T) {
	w := testkit.New(t)
	_, plan := w.CreateMonthly(t, w.LocalChainID())
	w.Fund(t, testkit.USDC, testkit.Alice, 1_000_000)
	w.ApproveEngine(t, testkit.USDC, testkit.Alice, 1_000_000)

	sub, err := w.Subscriptions.Subscribe(testkit.As(testkit.Alice), subscriptiondomain.SubscribeRequest{PlanID: plan.ID})
	require.NoError(t, err)

	// anyone may trigger a charge
	keeper := testkit.As(testkit.Bob)

	_, err = w.Charges.Charge(keeper, testkit.Alice, sub.ID)
	require.ErrorIs(t, err, subscriptiondomain.ErrIntervalNotMet)

	w.Clock.Advance(month - time.Second)
	_, err = w.Charges.Charge(keeper, testkit.Alice, sub.ID)
	require.ErrorIs(t, err, subscriptiondomain.ErrIntervalNotMet)

	w.Clock.Advance(time.Second)
	receipt, err := w.Charges.Charge(keeper, testkit.Alice, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PathDirect, receipt.Path)
	assert.Nil(t, receipt.MessageID)
	assert.Equal(t, w.Clock.Now().Unix(), receipt.LastChargeDate)
	assert.True(t, decimal.NewFromInt(testkit.MonthlyPrice).Equal(receipt.Price))

	// no double charge within the same period
	_, err = w.Charges.Charge(keeper, testkit.Alice, sub.ID)
	require.ErrorIs(t, err, subscriptiondomain.ErrIntervalNotMet)

	assert.True(t, decimal.NewFromInt(800_000).Equal(w.Balance(t, testkit.USDC, testkit.Alice)))
	assert.True(t, decimal.NewFromInt(200_000).Equal(w.Balance(t, testkit.USDC, testkit.Provider)))
}

func TestChargeFailureLeavesScheduleUntouched(t *testing.T) {
	w := testkit.New(t)
	_, plan := w.CreateMonthly(t, w.LocalChainID())
	w.Fund(t, testkit.USDC, testkit.Alice, testkit.MonthlyPrice)
	w.ApproveEngine(t, testkit.USDC, testkit.Alice, 1_000_000)

	sub, err := w.Subscriptions.Subscribe(testkit.As(testkit.Alice), subscriptiondomain.SubscribeRequest{PlanID: plan.ID})
	require.NoError(t, err)
	before := len(w.EventNames(t))

	w.Clock.Advance(month)
	_, err = w.Charges.Charge(context.Background(), testkit.Alice, sub.ID)
	require.ErrorIs(t, err, tokendomain.ErrInsufficientBalance)

	stored, err := w.Subscriptions.Get(context.Background(), testkit.Alice, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.LastChargeDate, stored.LastChargeDate)
	assert.Len(t, w.EventNames(t), before)
}

func TestChargeRejectsExpiredAndMissing(t *testing.T) {
	w := testkit.New(t)
	_, plan := w.CreateMonthly(t, w.LocalChainID())
	w.Fund(t, testkit.USDC, testkit.Alice, 1_000_000)
	w.ApproveEngine(t, testkit.USDC, testkit.Alice, 1_000_000)

	sub, err := w.Subscriptions.Subscribe(testkit.As(testkit.Alice), subscriptiondomain.SubscribeRequest{
		PlanID:  plan.ID,
		EndTime: testkit.Start.Add(40 * 24 * time.Hour).Unix(),
	})
	require.NoError(t, err)

	w.Clock.Advance(2 * month)
	_, err = w.Charges.Charge(context.Background(), testkit.Alice, sub.ID)
	require.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionExpired)

	_, err = w.Charges.Charge(context.Background(), testkit.Bob, 0)
	require.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)
}

func TestListDue(t *testing.T) {
	w := testkit.New(t)
	_, plan := w.CreateMonthly(t, w.LocalChainID())
	for _, holder := range []common.Address{testkit.Alice, testkit.Bob} {
		w.Fund(t, testkit.USDC, holder, 1_000_000)
		w.ApproveEngine(t, testkit.USDC, holder, 1_000_000)
		_, err := w.Subscriptions.Subscribe(testkit.As(holder), subscriptiondomain.SubscribeRequest{PlanID: plan.ID})
		require.NoError(t, err)
	}

	due, err := w.Charges.ListDue(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	w.Clock.Advance(month)
	due, err = w.Charges.ListDue(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, due, 2)

	_, err = w.Subscriptions.UnSubscribe(testkit.As(testkit.Bob), 0)
	require.NoError(t, err)
	due, err = w.Charges.ListDue(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, testkit.Alice, due[0].Subscriber)
}

func TestDeferRetryBacksOffFromListDue(t *testing.T) {
	w := testkit.New(t)
	_, plan := w.CreateMonthly(t, w.LocalChainID())
	w.Fund(t, testkit.USDC, testkit.Alice, testkit.MonthlyPrice)
	w.ApproveEngine(t, testkit.USDC, testkit.Alice, 1_000_000)
	sub, err := w.Subscriptions.Subscribe(testkit.As(testkit.Alice), subscriptiondomain.SubscribeRequest{PlanID: plan.ID})
	require.NoError(t, err)

	w.Clock.Advance(month)
	next, err := w.Charges.DeferRetry(context.Background(), testkit.Alice, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, w.Clock.Now().Add(domain.ChargeRetryBase).Unix(), next)

	next, err = w.Charges.DeferRetry(context.Background(), testkit.Alice, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, w.Clock.Now().Add(2*domain.ChargeRetryBase).Unix(), next)

	due, err := w.Charges.ListDue(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	w.Clock.Advance(2 * domain.ChargeRetryBase)
	due, err = w.Charges.ListDue(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 2, due[0].ChargeFailures)

	_, err = w.Charges.DeferRetry(context.Background(), testkit.Bob, 7)
	require.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)
}

func TestChargeRetryDelay(t *testing.T) {
	assert.Equal(t, domain.ChargeRetryBase, domain.ChargeRetryDelay(0))
	assert.Equal(t, domain.ChargeRetryBase, domain.ChargeRetryDelay(1))
	assert.Equal(t, 4*domain.ChargeRetryBase, domain.ChargeRetryDelay(3))
	assert.Equal(t, domain.ChargeRetryMax, domain.ChargeRetryDelay(40))
}

func TestCrossChainChargeGoesThroughBridge(t *testing.T) {
	w := testkit.New(t)
	w.EnableRemote(t)
	feeToken := w.ChainCfg.Get().FeeToken
	w.Fund(t, feeToken, w.BridgeAddress(), 10_000)
	w.Fund(t, evm.NativeToken, w.BridgeAddress(), 10_000)
	_, plan := w.CreateMonthly(t, testkit.RemoteChainID)

	w.Fund(t, testkit.USDC, testkit.Alice, 1_000_000)
	w.ApproveEngine(t, testkit.USDC, testkit.Alice, 1_000_000)

	sub, err := w.Subscriptions.Subscribe(testkit.As(testkit.Alice), subscriptiondomain.SubscribeRequest{PlanID: plan.ID})
	require.NoError(t, err)

	router := w.ChainCfg.Get().RouterAddress
	assert.True(t, decimal.NewFromInt(900_000).Equal(w.Balance(t, testkit.USDC, testkit.Alice)))
	assert.True(t, decimal.NewFromInt(testkit.MonthlyPrice).Equal(w.Balance(t, testkit.USDC, router)))
	assert.True(t, w.Balance(t, testkit.USDC, w.Engine()).IsZero())
	assert.True(t, w.Balance(t, testkit.USDC, testkit.Provider).IsZero())
	// the router fee comes out of the fee token, not the native balance
	assert.True(t, decimal.NewFromInt(9_000).Equal(w.Balance(t, feeToken, w.BridgeAddress())))
	assert.True(t, decimal.NewFromInt(10_000).Equal(w.Balance(t, evm.NativeToken, w.BridgeAddress())))

	names := w.EventNames(t)
	assert.Equal(t, []string{
		eventsdomain.NameSubscribed,
		eventsdomain.NameTokenTransferred,
		eventsdomain.NameSubscriptionCharged,
	}, names[len(names)-3:])

	pending, err := w.Router.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, testkit.RemoteSelector, pending[0].Selector)
	assert.Equal(t, testkit.Provider, pending[0].Receiver)
	assert.True(t, decimal.NewFromInt(testkit.MonthlyPrice).Equal(pending[0].Amount))

	transfer, err := w.Bridge.GetTransfer(context.Background(), pending[0].MessageID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, transfer.FeeParam1)
	assert.Equal(t, plan.ID, transfer.FeeParam2)
	assert.Equal(t, w.Engine(), transfer.Sender)
	assert.Equal(t, feeToken, transfer.FeeToken)
	assert.True(t, testkit.RemoteBaseFee.Equal(transfer.Fee))

	w.Clock.Advance(month)
	receipt, err := w.Charges.Charge(context.Background(), testkit.Alice, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PathBridge, receipt.Path)
	require.NotNil(t, receipt.MessageID)

	transfer, err = w.Bridge.GetTransfer(context.Background(), *receipt.MessageID)
	require.NoError(t, err)
	assert.Equal(t, feeToken, transfer.FeeToken)
	assert.True(t, decimal.NewFromInt(8_000).Equal(w.Balance(t, feeToken, w.BridgeAddress())))
}

func TestCrossChainChargeCanPayFeesNatively(t *testing.T) {
	w := testkit.New(t)
	w.EnableRemote(t)
	cfg := w.ChainCfg.Get()
	cfg.ChargeFeesNative = true
	w.ChainCfg.Store(cfg)

	w.Fund(t, evm.NativeToken, w.BridgeAddress(), 10_000)
	_, plan := w.CreateMonthly(t, testkit.RemoteChainID)
	w.Fund(t, testkit.USDC, testkit.Alice, 1_000_000)
	w.ApproveEngine(t, testkit.USDC, testkit.Alice, 1_000_000)

	_, err := w.Subscriptions.Subscribe(testkit.As(testkit.Alice), subscriptiondomain.SubscribeRequest{PlanID: plan.ID})
	require.NoError(t, err)

	pending, err := w.Router.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	transfer, err := w.Bridge.GetTransfer(context.Background(), pending[0].MessageID)
	require.NoError(t, err)
	assert.Equal(t, evm.NativeToken, transfer.FeeToken)
	assert.True(t, decimal.NewFromInt(8_000).Equal(w.Balance(t, evm.NativeToken, w.BridgeAddress())))
}

func TestCrossChainChargeWithoutBridgeFundsRollsBack(t *testing.T) {
	w := testkit.New(t)
	w.EnableRemote(t)
	_, plan := w.CreateMonthly(t, testkit.RemoteChainID)
	w.Fund(t, testkit.USDC, testkit.Alice, 1_000_000)
	w.ApproveEngine(t, testkit.USDC, testkit.Alice, 1_000_000)

	_, err := w.Subscriptions.Subscribe(testkit.As(testkit.Alice), subscriptiondomain.SubscribeRequest{PlanID: plan.ID})
	require.ErrorIs(t, err, bridgedomain.ErrNotEnoughBalance)

	assert.True(t, decimal.NewFromInt(1_000_000).Equal(w.Balance(t, testkit.USDC, testkit.Alice)))
	pending, err := w.Router.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
