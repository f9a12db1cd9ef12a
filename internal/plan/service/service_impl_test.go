package service_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/plan/domain"
	productdomain "github.com/smallbiznis/relaypay/internal/product/domain"
	"github.com/smallbiznis/relaypay/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePlan(t *testing.T) {
	w := testkit.New(t)
	product, monthly := w.CreateMonthly(t, w.LocalChainID())
	assert.Equal(t, domain.FirstID, monthly.ID)

	yearly, err := w.Plans.Create(testkit.As(testkit.Provider), domain.CreateRequest{
		ProductID:      product.ID,
		ChargeInterval: 31_536_000,
		Price:          decimal.NewFromInt(1_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, monthly.ID+1, yearly.ID)
	assert.Equal(t, product.Provider, yearly.Provider)

	plans, err := w.Plans.ListByProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Len(t, plans, 2)

	nonce, err := w.Plans.Nonce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, yearly.ID+1, nonce)
}

func TestCreatePlanValidation(t *testing.T) {
	w := testkit.New(t)
	product, _ := w.CreateMonthly(t, w.LocalChainID())
	ctx := testkit.As(testkit.Provider)

	cases := []struct {
		name string
		req  func() domain.CreateRequest
		as   common.Address
		err  error
	}{
		{"unknown product", func() domain.CreateRequest {
			return domain.CreateRequest{ProductID: 42, ChargeInterval: 1, Price: decimal.NewFromInt(1)}
		}, testkit.Provider, productdomain.ErrProductNotFound},
		{"not provider", func() domain.CreateRequest {
			return domain.CreateRequest{ProductID: product.ID, ChargeInterval: 1, Price: decimal.NewFromInt(1)}
		}, testkit.Alice, productdomain.ErrNotProvider},
		{"zero price", func() domain.CreateRequest {
			return domain.CreateRequest{ProductID: product.ID, ChargeInterval: 1, Price: decimal.Zero}
		}, testkit.Provider, domain.ErrInvalidPrice},
		{"fractional price", func() domain.CreateRequest {
			return domain.CreateRequest{ProductID: product.ID, ChargeInterval: 1, Price: decimal.RequireFromString("1.5")}
		}, testkit.Provider, domain.ErrInvalidPrice},
		{"zero interval", func() domain.CreateRequest {
			return domain.CreateRequest{ProductID: product.ID, Price: decimal.NewFromInt(1)}
		}, testkit.Provider, domain.ErrInvalidInterval},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := w.Plans.Create(testkit.As(tc.as), tc.req())
			require.ErrorIs(t, err, tc.err)
		})
	}

	_, err := w.Products.Update(ctx, productdomain.UpdateRequest{
		ProductID:        product.ID,
		ReceivingAddress: product.ReceivingAddress,
		DestinationChain: product.DestinationChain,
	})
	require.NoError(t, err)
	_, err = w.Plans.Create(ctx, domain.CreateRequest{ProductID: product.ID, ChargeInterval: 1, Price: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, productdomain.ErrProductInactive)
}

func TestUpdatePlanTogglesActive(t *testing.T) {
	w := testkit.New(t)
	_, plan := w.CreateMonthly(t, w.LocalChainID())

	_, err := w.Plans.Update(testkit.As(testkit.Alice), plan.ID, false)
	require.ErrorIs(t, err, domain.ErrNotPlanProvider)

	got, err := w.Plans.Update(testkit.As(testkit.Provider), plan.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.True(t, plan.Price.Equal(got.Price))
	assert.Equal(t, plan.ChargeInterval, got.ChargeInterval)

	_, err = w.Plans.Update(testkit.As(testkit.Provider), 77, true)
	require.ErrorIs(t, err, domain.ErrPlanNotFound)
}
