package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/pkg/evm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chainYAML = `
chain:
  localChainId: 11155111
  localSelector: "16015286601757825753"
  owner: "0x00000000000000000000000000000000000000aa"
  engineAddress: "0x000000000000000000000000000000000000e001"
  bridgeAddress: "0x000000000000000000000000000000000000b001"
  routerAddress: "0x000000000000000000000000000000000000c001"
  feeToken: "0x779877A7B0D9E8603169DdbD7836e478b4624789"
  destinations:
    - selector: "3478487238524512106"
      baseFee: "2000"
      nativeFee: "150"
`

func writeChainConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chain.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewChainConfigHolderReadsFile(t *testing.T) {
	holder, err := NewChainConfigHolder(Config{ChainConfigPath: writeChainConfig(t, chainYAML)})
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, uint64(11155111), cfg.LocalChainID)
	assert.Equal(t, evm.Selector(16015286601757825753), cfg.LocalSelector)
	assert.Equal(t, common.HexToAddress("0xaa"), cfg.Owner)
	assert.False(t, cfg.ChargeFeesNative)

	fee, ok := cfg.FeeFor(evm.Selector(3478487238524512106), false)
	assert.True(t, ok)
	assert.True(t, fee.Equal(decimal.NewFromInt(2000)))

	fee, ok = cfg.FeeFor(evm.Selector(3478487238524512106), true)
	assert.True(t, ok)
	assert.True(t, fee.Equal(decimal.NewFromInt(150)))

	_, ok = cfg.FeeFor(evm.Selector(1), false)
	assert.False(t, ok)
}

func TestNewChainConfigHolderEnvOverride(t *testing.T) {
	t.Setenv("RELAYPAY_CHAIN_OWNER", "0x00000000000000000000000000000000000000bb")
	t.Setenv("RELAYPAY_CHAIN_CHARGEFEESNATIVE", "true")

	holder, err := NewChainConfigHolder(Config{ChainConfigPath: writeChainConfig(t, chainYAML)})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xbb"), holder.Get().Owner)
	assert.True(t, holder.Get().ChargeFeesNative)
}

func TestNewChainConfigHolderRejectsDuplicateAccounts(t *testing.T) {
	body := `
chain:
  localChainId: 1
  engineAddress: "0x000000000000000000000000000000000000e001"
  bridgeAddress: "0x000000000000000000000000000000000000e001"
`
	_, err := NewChainConfigHolder(Config{ChainConfigPath: writeChainConfig(t, body)})
	assert.Error(t, err)
}

func TestNewChainConfigHolderRejectsFractionalFee(t *testing.T) {
	body := `
chain:
  localChainId: 1
  destinations:
    - selector: "42"
      baseFee: "1.5"
`
	_, err := NewChainConfigHolder(Config{ChainConfigPath: writeChainConfig(t, body)})
	assert.Error(t, err)
}
