package service_test

import (
	"context"
	"testing"

	"github.com/smallbiznis/relaypay/internal/authorization"
	"github.com/smallbiznis/relaypay/internal/chain/domain"
	"github.com/smallbiznis/relaypay/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddChainSelector(t *testing.T) {
	w := testkit.New(t)
	owner := testkit.As(testkit.Owner)

	require.ErrorIs(t, w.Chains.AddChainSelector(testkit.As(testkit.Alice), testkit.RemoteChainID, testkit.RemoteSelector), authorization.ErrOnlyOwner)
	require.ErrorIs(t, w.Chains.AddChainSelector(owner, 0, testkit.RemoteSelector), domain.ErrInvalidChainID)
	require.ErrorIs(t, w.Chains.AddChainSelector(owner, domain.MaxChainID+1, testkit.RemoteSelector), domain.ErrInvalidChainID)
	require.NoError(t, w.Chains.AddChainSelector(owner, domain.MaxChainID, testkit.RemoteSelector))
	require.ErrorIs(t, w.Chains.AddChainSelector(owner, w.LocalChainID(), testkit.RemoteSelector), domain.ErrLocalChainMapping)
	require.ErrorIs(t, w.Chains.AddChainSelector(owner, testkit.RemoteChainID, 0), domain.ErrInvalidSelector)

	_, ok, err := w.Chains.SelectorFor(context.Background(), nil, testkit.RemoteChainID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, w.Chains.AddChainSelector(owner, testkit.RemoteChainID, testkit.RemoteSelector))
	selector, ok, err := w.Chains.SelectorFor(context.Background(), nil, testkit.RemoteChainID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testkit.RemoteSelector, selector)

	// remapping replaces the selector
	require.NoError(t, w.Chains.AddChainSelector(owner, testkit.RemoteChainID, 5009297550715157269))
	mappings, err := w.Chains.List(context.Background())
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	selector, ok, err = w.Chains.SelectorFor(context.Background(), nil, testkit.RemoteChainID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, uint64(5009297550715157269), selector)
}

func TestIsLocal(t *testing.T) {
	w := testkit.New(t)
	assert.True(t, w.Chains.IsLocal(w.LocalChainID()))
	assert.False(t, w.Chains.IsLocal(testkit.RemoteChainID))
}
