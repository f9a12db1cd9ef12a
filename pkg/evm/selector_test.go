package evm

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorRoundTripsAboveInt64(t *testing.T) {
	const raw = "16015286601757825753"
	sel, err := ParseSelector(raw)
	require.NoError(t, err)

	v, err := sel.Value()
	require.NoError(t, err)
	assert.Equal(t, raw, v)

	var scanned Selector
	require.NoError(t, scanned.Scan([]byte(raw)))
	assert.Equal(t, sel, scanned)

	body, err := json.Marshal(sel)
	require.NoError(t, err)
	assert.Equal(t, `"16015286601757825753"`, string(body))
}

func TestSelectorUnmarshalAcceptsNumber(t *testing.T) {
	var sel Selector
	require.NoError(t, json.Unmarshal([]byte(`3478487238524512106`), &sel))
	assert.Equal(t, Selector(3478487238524512106), sel)

	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &sel))
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.False(t, IsZero(addr))

	_, err = ParseAddress("not-an-address")
	assert.Error(t, err)
	assert.True(t, IsZero(NativeToken))
}

func TestIsTokenAmount(t *testing.T) {
	assert.True(t, IsTokenAmount(decimal.NewFromInt(100000)))
	assert.True(t, IsTokenAmount(decimal.Zero))
	assert.False(t, IsTokenAmount(decimal.NewFromInt(-1)))
	assert.False(t, IsTokenAmount(decimal.RequireFromString("1.5")))
}
