package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/catalog/domain"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	plandomain "github.com/smallbiznis/relaypay/internal/plan/domain"
	productdomain "github.com/smallbiznis/relaypay/internal/product/domain"
	"github.com/smallbiznis/relaypay/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productRequest(w *testkit.World) productdomain.CreateRequest {
	return productdomain.CreateRequest{
		Name:             "Netflix",
		ProductType:      productdomain.ProductTypeRecurring,
		ChargeToken:      testkit.USDC,
		ReceivingAddress: testkit.Provider,
		DestinationChain: w.LocalChainID(),
	}
}

func TestCreateProductWithPlans(t *testing.T) {
	w := testkit.New(t)

	res, err := w.Catalog.CreateProductWithPlans(testkit.As(testkit.Provider), domain.CreateProductWithPlansRequest{
		Product: productRequest(w),
		Plans: []domain.PlanSpec{
			{ChargeInterval: 2_592_000, Price: decimal.NewFromInt(1_000)},
			{ChargeInterval: 31_536_000, Price: decimal.NewFromInt(10_000)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Product.ID)
	require.Len(t, res.Plans, 2)
	for _, p := range res.Plans {
		assert.Equal(t, res.Product.ID, p.ProductID)
	}

	names := w.EventNames(t)
	assert.Equal(t, []string{
		eventsdomain.NameProductCreated,
		eventsdomain.NamePlanCreated,
		eventsdomain.NamePlanCreated,
	}, names[len(names)-3:])
}

func TestCreateProductWithPlansIsAtomic(t *testing.T) {
	w := testkit.New(t)
	before := len(w.EventNames(t))

	_, err := w.Catalog.CreateProductWithPlans(testkit.As(testkit.Provider), domain.CreateProductWithPlansRequest{
		Product: productRequest(w),
		Plans: []domain.PlanSpec{
			{ChargeInterval: 2_592_000, Price: decimal.NewFromInt(1_000)},
			{ChargeInterval: 0, Price: decimal.NewFromInt(10_000)},
		},
	})
	require.ErrorIs(t, err, plandomain.ErrInvalidInterval)

	productNonce, err := w.Products.Nonce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, productdomain.FirstID, productNonce)
	planNonce, err := w.Plans.Nonce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, plandomain.FirstID, planNonce)
	assert.Len(t, w.EventNames(t), before)

	_, err = w.Catalog.CreateProductWithPlans(testkit.As(testkit.Provider), domain.CreateProductWithPlansRequest{Product: productRequest(w)})
	require.ErrorIs(t, err, domain.ErrNoPlans)
}

func TestCreateRecurringSubscription(t *testing.T) {
	w := testkit.New(t)
	product, plan := w.CreateMonthly(t, w.LocalChainID())

	assert.Equal(t, productdomain.ProductTypeRecurring, product.ProductType)
	assert.Equal(t, testkit.MonthlyInterval, plan.ChargeInterval)
	assert.True(t, decimal.NewFromInt(testkit.MonthlyPrice).Equal(plan.Price))
}
