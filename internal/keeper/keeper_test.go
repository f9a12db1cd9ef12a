package keeper_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	chargedomain "github.com/smallbiznis/relaypay/internal/charge/domain"
	"github.com/smallbiznis/relaypay/internal/keeper"
	obsmetrics "github.com/smallbiznis/relaypay/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/relaypay/internal/subscription/domain"
	"github.com/smallbiznis/relaypay/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLocker struct {
	held     bool
	err      error
	acquired int
	released int
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (string, bool, error) {
	if l.err != nil {
		return "", false, l.err
	}
	if l.held {
		return "", false, nil
	}
	l.acquired++
	return "token", true, nil
}

func (l *fakeLocker) Release(context.Context, string, string) error {
	l.released++
	return nil
}

func newKeeper(t *testing.T, w *testkit.World, locker keeper.Locker) *keeper.Keeper {
	t.Helper()
	return newKeeperWithBatch(t, w, locker, 10)
}

func newKeeperWithBatch(t *testing.T, w *testkit.World, locker keeper.Locker, batch int) *keeper.Keeper {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	k, err := keeper.New(keeper.Params{
		Log:     zap.NewNop(),
		Charges: w.Charges,
		GenID:   node,
		Clock:   w.Clock,
		Config:  keeper.Config{BatchSize: batch},
		Locker:  locker,
		Metrics: obsmetrics.NewKeeperMetricsForTest(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return k
}

func subscribe(t *testing.T, w *testkit.World, planID int64, who common.Address, funds int64) {
	t.Helper()
	w.Fund(t, testkit.USDC, who, funds)
	w.ApproveEngine(t, testkit.USDC, who, 10_000_000)
	_, err := w.Subscriptions.Subscribe(testkit.As(who), subscriptiondomain.SubscribeRequest{PlanID: planID})
	require.NoError(t, err)
}

func TestRunOnceChargesDueSubscriptions(t *testing.T) {
	w := testkit.New(t)
	_, plan := w.CreateMonthly(t, w.LocalChainID())
	subscribe(t, w, plan.ID, testkit.Alice, 1_000_000)
	subscribe(t, w, plan.ID, testkit.Bob, 1_000_000)

	locker := &fakeLocker{}
	k := newKeeper(t, w, locker)

	require.NoError(t, k.RunOnce(context.Background()))
	assert.True(t, decimal.NewFromInt(200_000).Equal(w.Balance(t, testkit.USDC, testkit.Provider)))

	w.Clock.Advance(time.Duration(testkit.MonthlyInterval) * time.Second)
	require.NoError(t, k.RunOnce(context.Background()))
	assert.True(t, decimal.NewFromInt(400_000).Equal(w.Balance(t, testkit.USDC, testkit.Provider)))

	// nothing left to charge in this period
	require.NoError(t, k.RunOnce(context.Background()))
	assert.True(t, decimal.NewFromInt(400_000).Equal(w.Balance(t, testkit.USDC, testkit.Provider)))
	assert.Equal(t, 3, locker.acquired)
	assert.Equal(t, 3, locker.released)
}

func TestRunOnceReportsFailedCharges(t *testing.T) {
	w := testkit.New(t)
	_, plan := w.CreateMonthly(t, w.LocalChainID())
	subscribe(t, w, plan.ID, testkit.Alice, testkit.MonthlyPrice)
	subscribe(t, w, plan.ID, testkit.Bob, 1_000_000)

	k := newKeeper(t, w, &fakeLocker{})
	w.Clock.Advance(time.Duration(testkit.MonthlyInterval) * time.Second)

	err := k.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "charge_due")
	// the failure of one subscriber does not block the others
	assert.True(t, decimal.NewFromInt(800_000).Equal(w.Balance(t, testkit.USDC, testkit.Bob)))
}

func TestFailingSubscriptionsDoNotStarveTheBatch(t *testing.T) {
	w := testkit.New(t)
	_, plan := w.CreateMonthly(t, w.LocalChainID())
	subscribe(t, w, plan.ID, testkit.Alice, testkit.MonthlyPrice)
	subscribe(t, w, plan.ID, testkit.Bob, 1_000_000)

	k := newKeeperWithBatch(t, w, &fakeLocker{}, 1)
	w.Clock.Advance(time.Duration(testkit.MonthlyInterval) * time.Second)

	// whichever subscription comes first, two runs reach Bob
	_ = k.RunOnce(context.Background())
	_ = k.RunOnce(context.Background())
	assert.True(t, decimal.NewFromInt(800_000).Equal(w.Balance(t, testkit.USDC, testkit.Bob)))

	alice, err := w.Subscriptions.Get(context.Background(), testkit.Alice, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, alice.ChargeFailures)
	assert.Equal(t, w.Clock.Now().Add(chargedomain.ChargeRetryDelay(1)).Unix(), alice.NextChargeAttempt)

	// Alice stays parked until her backoff is over
	require.NoError(t, k.RunOnce(context.Background()))

	w.Fund(t, testkit.USDC, testkit.Alice, testkit.MonthlyPrice)
	w.Clock.Advance(chargedomain.ChargeRetryDelay(1))
	require.NoError(t, k.RunOnce(context.Background()))
	assert.True(t, w.Balance(t, testkit.USDC, testkit.Alice).IsZero())

	alice, err = w.Subscriptions.Get(context.Background(), testkit.Alice, 0)
	require.NoError(t, err)
	assert.Zero(t, alice.ChargeFailures)
	assert.Zero(t, alice.NextChargeAttempt)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	w := testkit.New(t)
	_, plan := w.CreateMonthly(t, w.LocalChainID())
	subscribe(t, w, plan.ID, testkit.Alice, 1_000_000)
	w.Clock.Advance(time.Duration(testkit.MonthlyInterval) * time.Second)

	k := newKeeper(t, w, &fakeLocker{held: true})
	require.NoError(t, k.RunOnce(context.Background()))
	assert.True(t, decimal.NewFromInt(900_000).Equal(w.Balance(t, testkit.USDC, testkit.Alice)))

	k = newKeeper(t, w, &fakeLocker{err: errors.New("redis down")})
	require.Error(t, k.RunOnce(context.Background()))
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := keeper.New(keeper.Params{Log: zap.NewNop()})
	require.ErrorIs(t, err, keeper.ErrInvalidConfig)
}
