package authorization

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ownerAddr    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	strangerAddr = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestRequireOwner(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	require.NoError(t, svc.GrantOwner(ctx, ownerAddr))

	for _, object := range []string{ObjectBridge, ObjectToken, ObjectChain} {
		require.NoError(t, svc.RequireOwner(ctx, ownerAddr, object))

		err := svc.RequireOwner(ctx, strangerAddr, object)
		require.True(t, errors.Is(err, ErrOnlyOwner))
		require.Equal(t, "Only callable by owner", err.Error())
	}

	require.ErrorIs(t, svc.RequireOwner(ctx, ownerAddr, "subscription"), ErrOnlyOwner)
	require.ErrorIs(t, svc.RequireOwner(ctx, common.Address{}, ObjectBridge), ErrOnlyOwner)
}

func TestGrantOwnerIsIdempotentAndRevocable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.GrantOwner(ctx, ownerAddr))
	require.NoError(t, svc.GrantOwner(ctx, ownerAddr))

	ok, err := svc.IsOwner(ctx, ownerAddr)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.RevokeOwner(ctx, ownerAddr))
	require.ErrorIs(t, svc.RequireOwner(ctx, ownerAddr, ObjectBridge), ErrOnlyOwner)
}

func TestEnforcerPersistsPolicies(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	svc := NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
	require.NoError(t, svc.GrantOwner(context.Background(), ownerAddr))

	reloaded, err := NewEnforcer(db)
	require.NoError(t, err)
	ok, err := reloaded.Enforce(subjectFor(ownerAddr), ObjectBridge, ActionAdmin)
	require.NoError(t, err)
	require.True(t, ok)
}
