package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/internal/clock"
	"github.com/smallbiznis/relaypay/internal/events/domain"
	"github.com/smallbiznis/relaypay/internal/events/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*gorm.DB, *clock.FakeClock, domain.Service) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Record{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return db, clk, svc
}

func TestEmitIsBoundToTransaction(t *testing.T) {
	ctx := context.Background()
	db, _, svc := setupService(t)

	errAbort := errors.New("abort")
	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(ctx, tx, domain.PlanUpdated{PlanID: 1}))
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	records, err := svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, records)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, domain.SubscriptionCharged{
			Subscriber:     common.HexToAddress("0x01"),
			Provider:       common.HexToAddress("0x02"),
			SubscriptionID: 0,
			PlanID:         1,
			ProductID:      1,
			Price:          decimal.NewFromInt(100000),
			LastChargeDate: 1735689600,
		})
	}))

	records, err = svc.List(ctx, domain.ListFilter{Name: domain.NameSubscriptionCharged})
	require.NoError(t, err)
	require.Len(t, records, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(records[0].Payload, &payload))
	require.Equal(t, "100000", payload["price"])
	require.Equal(t, float64(1735689600), payload["lastChargeDate"])
}

func TestClaimPendingHonoursBackoff(t *testing.T) {
	ctx := context.Background()
	db, clk, svc := setupService(t)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, domain.PlanUpdated{PlanID: 7, IsActive: false})
	}))

	pending, err := svc.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, svc.MarkFailed(ctx, pending[0], errors.New("broker down")))

	pending, err = svc.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	clk.Advance(domain.RetryDelay(1))
	pending, err = svc.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, 1, pending[0].Attempts)

	require.NoError(t, svc.MarkPublished(ctx, pending[0].ID))
	clk.Advance(time.Hour)
	pending, err = svc.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestRetryDelayIsCapped(t *testing.T) {
	require.Equal(t, 2*time.Second, domain.RetryDelay(1))
	require.Equal(t, 256*time.Second, domain.RetryDelay(8))
	require.Equal(t, 256*time.Second, domain.RetryDelay(50))
}
