package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/callercontext"
	catalogdomain "github.com/smallbiznis/relaypay/internal/catalog/domain"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	plandomain "github.com/smallbiznis/relaypay/internal/plan/domain"
	productdomain "github.com/smallbiznis/relaypay/internal/product/domain"
	"github.com/smallbiznis/relaypay/internal/subscription/domain"
	"github.com/smallbiznis/relaypay/internal/testkit"
	tokendomain "github.com/smallbiznis/relaypay/internal/token/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const month = 30 * 24 * time.Hour

func subscribedWorld(t *testing.T) (*testkit.World, *domain.Subscription, *plandomain.Plan) {
	t.Helper()
	w := testkit.New(t)
	_, plan := w.CreateMonthly(t, w.LocalChainID())

	w.Fund(t, testkit.USDC, testkit.Alice, 1_000_000)
	w.ApproveEngine(t, testkit.USDC, testkit.Alice, 1_000_000)

	sub, err := w.Subscriptions.Subscribe(testkit.As(testkit.Alice), domain.SubscribeRequest{PlanID: plan.ID})
	require.NoError(t, err)
	return w, sub, plan
}

func TestSubscribeChargesFirstPeriod(t *testing.T) {
	w, sub, plan := subscribedWorld(t)

	assert.Equal(t, domain.FirstID, sub.ID)
	assert.Equal(t, plan.ID, sub.PlanID)
	assert.True(t, sub.IsActive)
	assert.Equal(t, testkit.Start.Unix(), sub.LastChargeDate)

	assert.True(t, decimal.NewFromInt(900_000).Equal(w.Balance(t, testkit.USDC, testkit.Alice)))
	assert.True(t, decimal.NewFromInt(testkit.MonthlyPrice).Equal(w.Balance(t, testkit.USDC, testkit.Provider)))

	stored, err := w.Subscriptions.Get(context.Background(), testkit.Alice, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, testkit.Start.Unix(), stored.LastChargeDate)

	nonce, err := w.Subscriptions.Nonce(context.Background(), testkit.Alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), nonce)

	linked, err := w.Subscriptions.SubscribedToProduct(context.Background(), testkit.Alice, sub.ProductID)
	require.NoError(t, err)
	assert.True(t, linked)

	names := w.EventNames(t)
	require.GreaterOrEqual(t, len(names), 2)
	assert.Equal(t, []string{eventsdomain.NameSubscribed, eventsdomain.NameSubscriptionCharged}, names[len(names)-2:])
}

func TestSubscriptionIDsArePerSubscriber(t *testing.T) {
	w, _, plan := subscribedWorld(t)

	second, err := w.Subscriptions.Subscribe(testkit.As(testkit.Alice), domain.SubscribeRequest{PlanID: plan.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.ID)

	w.Fund(t, testkit.USDC, testkit.Bob, 500_000)
	w.ApproveEngine(t, testkit.USDC, testkit.Bob, 500_000)
	first, err := w.Subscriptions.Subscribe(testkit.As(testkit.Bob), domain.SubscribeRequest{PlanID: plan.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.ID)

	subs, err := w.Subscriptions.List(context.Background(), testkit.Alice)
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}

func TestSubscribeIsAtomicWhenPaymentFails(t *testing.T) {
	w := testkit.New(t)
	_, plan := w.CreateMonthly(t, w.LocalChainID())
	w.Fund(t, testkit.USDC, testkit.Alice, 1_000_000)
	before := len(w.EventNames(t))

	_, err := w.Subscriptions.Subscribe(testkit.As(testkit.Alice), domain.SubscribeRequest{PlanID: plan.ID})
	require.ErrorIs(t, err, tokendomain.ErrInsufficientAllowance)

	_, err = w.Subscriptions.Get(context.Background(), testkit.Alice, 0)
	require.ErrorIs(t, err, domain.ErrSubscriptionNotFound)

	nonce, err := w.Subscriptions.Nonce(context.Background(), testkit.Alice)
	require.NoError(t, err)
	assert.Equal(t, domain.FirstID, nonce)
	assert.Len(t, w.EventNames(t), before)
	assert.True(t, decimal.NewFromInt(1_000_000).Equal(w.Balance(t, testkit.USDC, testkit.Alice)))
}

func TestSubscribeValidation(t *testing.T) {
	w := testkit.New(t)
	product, plan := w.CreateMonthly(t, w.LocalChainID())
	ctx := testkit.As(testkit.Alice)

	_, err := w.Subscriptions.Subscribe(ctx, domain.SubscribeRequest{PlanID: 999})
	require.ErrorIs(t, err, plandomain.ErrPlanNotFound)

	_, err = w.Subscriptions.Subscribe(ctx, domain.SubscribeRequest{PlanID: plan.ID, EndTime: testkit.Start.Unix() - 1})
	require.ErrorIs(t, err, domain.ErrInvalidEndTime)

	_, err = w.Subscriptions.Subscribe(ctx, domain.SubscribeRequest{PlanID: plan.ID, PaymentToken: testkit.Bob})
	require.ErrorIs(t, err, domain.ErrUnsupportedPayment)

	_, err = w.Subscriptions.Subscribe(ctx, domain.SubscribeRequest{PlanID: plan.ID, SwapFee: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, domain.ErrInvalidSwapFee)

	_, err = w.Subscriptions.Subscribe(context.Background(), domain.SubscribeRequest{PlanID: plan.ID})
	require.ErrorIs(t, err, callercontext.ErrMissingCaller)

	_, err = w.Plans.Update(testkit.As(testkit.Provider), plan.ID, false)
	require.NoError(t, err)
	_, err = w.Subscriptions.Subscribe(ctx, domain.SubscribeRequest{PlanID: plan.ID})
	require.ErrorIs(t, err, plandomain.ErrPlanInactive)

	_, err = w.Plans.Update(testkit.As(testkit.Provider), plan.ID, true)
	require.NoError(t, err)
	_, err = w.Products.Update(testkit.As(testkit.Provider), productdomain.UpdateRequest{
		ProductID:        product.ID,
		ReceivingAddress: product.ReceivingAddress,
		DestinationChain: product.DestinationChain,
		IsActive:         false,
	})
	require.NoError(t, err)
	_, err = w.Subscriptions.Subscribe(ctx, domain.SubscribeRequest{PlanID: plan.ID})
	require.ErrorIs(t, err, productdomain.ErrProductInactive)
}

func TestUnSubscribe(t *testing.T) {
	w, sub, _ := subscribedWorld(t)
	ctx := testkit.As(testkit.Alice)

	_, err := w.Subscriptions.UnSubscribe(testkit.As(testkit.Bob), sub.ID)
	require.ErrorIs(t, err, domain.ErrSubscriptionNotFound)

	got, err := w.Subscriptions.UnSubscribe(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = w.Subscriptions.UnSubscribe(ctx, sub.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyInactive)

	linked, err := w.Subscriptions.SubscribedToProduct(context.Background(), testkit.Alice, sub.ProductID)
	require.NoError(t, err)
	assert.False(t, linked)

	w.Clock.Advance(month)
	_, err = w.Charges.Charge(ctx, testkit.Alice, sub.ID)
	require.ErrorIs(t, err, domain.ErrSubscriptionNotActive)
}

func TestUnSubscribeKeepsProductLinkForOtherActiveSubscription(t *testing.T) {
	w, first, plan := subscribedWorld(t)
	ctx := testkit.As(testkit.Alice)

	second, err := w.Subscriptions.Subscribe(ctx, domain.SubscribeRequest{PlanID: plan.ID})
	require.NoError(t, err)
	third, err := w.Subscriptions.Subscribe(ctx, domain.SubscribeRequest{PlanID: plan.ID})
	require.NoError(t, err)

	subscribed := func() bool {
		t.Helper()
		linked, err := w.Subscriptions.SubscribedToProduct(context.Background(), testkit.Alice, plan.ProductID)
		require.NoError(t, err)
		return linked
	}

	_, err = w.Subscriptions.UnSubscribe(ctx, third.ID)
	require.NoError(t, err)
	assert.True(t, subscribed(), "older subscriptions are still active")

	// the link now belongs to the second subscription
	_, err = w.Subscriptions.UnSubscribe(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, subscribed())

	_, err = w.Subscriptions.UnSubscribe(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, subscribed())

	again, err := w.Subscriptions.Subscribe(ctx, domain.SubscribeRequest{PlanID: plan.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), again.ID)
	assert.True(t, subscribed())
}

func TestSubscribeChargesImmediatelyOnLongIntervals(t *testing.T) {
	w := testkit.New(t)
	century := int64(100 * 365 * 24 * 3600)
	require.Greater(t, century, testkit.Start.Unix())

	res, err := w.Catalog.CreateRecurringSubscription(testkit.As(testkit.Provider), catalogdomain.CreateRecurringSubscriptionRequest{
		Name:             "Lifetime licence",
		Token:            testkit.USDC,
		ReceivingAddress: testkit.Provider,
		DestinationChain: w.LocalChainID(),
		ChargeInterval:   century,
		Price:            decimal.NewFromInt(testkit.MonthlyPrice),
	})
	require.NoError(t, err)
	require.Len(t, res.Plans, 1)

	w.Fund(t, testkit.USDC, testkit.Alice, 1_000_000)
	w.ApproveEngine(t, testkit.USDC, testkit.Alice, 1_000_000)

	sub, err := w.Subscriptions.Subscribe(testkit.As(testkit.Alice), domain.SubscribeRequest{PlanID: res.Plans[0].ID})
	require.NoError(t, err)
	assert.Equal(t, testkit.Start.Unix(), sub.LastChargeDate)
	assert.True(t, decimal.NewFromInt(testkit.MonthlyPrice).Equal(w.Balance(t, testkit.USDC, testkit.Provider)))

	w.Clock.Advance(month)
	_, err = w.Charges.Charge(context.Background(), testkit.Alice, sub.ID)
	require.ErrorIs(t, err, domain.ErrIntervalNotMet)
}

func TestChangeSubscriptionPlan(t *testing.T) {
	w, sub, plan := subscribedWorld(t)
	ctx := testkit.As(testkit.Alice)

	yearly, err := w.Plans.Create(testkit.As(testkit.Provider), plandomain.CreateRequest{
		ProductID:      sub.ProductID,
		ChargeInterval: 365 * 24 * 3600,
		Price:          decimal.NewFromInt(1_000_000),
	})
	require.NoError(t, err)

	changed, err := w.Subscriptions.ChangeSubscriptionPlan(ctx, sub.ID, yearly.ID)
	require.NoError(t, err)
	assert.Equal(t, yearly.ID, changed.PlanID)
	assert.Equal(t, sub.LastChargeDate, changed.LastChargeDate)

	names := w.EventNames(t)
	assert.Equal(t, eventsdomain.NameSubscriptionPlanChanged, names[len(names)-1])

	other, _ := w.CreateMonthly(t, w.LocalChainID())
	otherPlans, err := w.Plans.ListByProduct(context.Background(), other.ID)
	require.NoError(t, err)
	_, err = w.Subscriptions.ChangeSubscriptionPlan(ctx, sub.ID, otherPlans[0].ID)
	require.ErrorIs(t, err, domain.ErrPlanProductMismatch)

	_, err = w.Plans.Update(testkit.As(testkit.Provider), plan.ID, false)
	require.NoError(t, err)
	_, err = w.Subscriptions.ChangeSubscriptionPlan(ctx, sub.ID, plan.ID)
	require.ErrorIs(t, err, plandomain.ErrPlanInactive)
}

func TestChangeSubscriptionPlanPaymentInfo(t *testing.T) {
	w, sub, plan := subscribedWorld(t)
	ctx := testkit.As(testkit.Alice)
	end := testkit.Start.Add(90 * 24 * time.Hour).Unix()

	changed, err := w.Subscriptions.ChangeSubscriptionPlanPaymentInfo(ctx, domain.ChangePaymentInfoRequest{
		SubscriptionID: sub.ID,
		NewPlanID:      plan.ID,
		EndTime:        end,
		PaymentToken:   testkit.USDC,
	})
	require.NoError(t, err)
	assert.Equal(t, end, changed.EndTime)
	assert.Equal(t, testkit.USDC, changed.PaymentToken)

	_, err = w.Subscriptions.ChangeSubscriptionPlanPaymentInfo(ctx, domain.ChangePaymentInfoRequest{
		SubscriptionID: sub.ID,
		NewPlanID:      plan.ID,
		PaymentToken:   testkit.Bob,
	})
	require.ErrorIs(t, err, domain.ErrUnsupportedPayment)
}
