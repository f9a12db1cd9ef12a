package config

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/relaypay/pkg/evm"
	"github.com/spf13/viper"
)

// ChainConfig describes the local ledger and the accounts the engine operates.
type ChainConfig struct {
	LocalChainID  uint64
	LocalSelector evm.Selector
	Owner         common.Address
	EngineAddress common.Address
	BridgeAddress common.Address
	RouterAddress common.Address
	FeeToken      common.Address
	// ChargeFeesNative makes cross-chain charges pay the router fee in the
	// native coin instead of FeeToken.
	ChargeFeesNative bool
	Destinations     []DestinationFee
}

// DestinationFee is the router fee quoted for messages to one destination.
type DestinationFee struct {
	Selector  evm.Selector
	BaseFee   decimal.Decimal
	NativeFee decimal.Decimal
}

type rawDestinationFee struct {
	Selector  string `mapstructure:"selector"`
	BaseFee   string `mapstructure:"baseFee"`
	NativeFee string `mapstructure:"nativeFee"`
}

func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		LocalChainID:  11155111,
		LocalSelector: 16015286601757825753,
		EngineAddress: common.HexToAddress("0x000000000000000000000000000000000000e001"),
		BridgeAddress: common.HexToAddress("0x000000000000000000000000000000000000b001"),
		RouterAddress: common.HexToAddress("0x000000000000000000000000000000000000c001"),
		FeeToken:      common.HexToAddress("0x779877A7B0D9E8603169DdbD7836e478b4624789"),
	}
}

// FeeFor returns the configured fee for a destination.
func (c ChainConfig) FeeFor(selector evm.Selector, payNative bool) (decimal.Decimal, bool) {
	for _, d := range c.Destinations {
		if d.Selector != selector {
			continue
		}
		if payNative {
			return d.NativeFee, true
		}
		return d.BaseFee, true
	}
	return decimal.Zero, false
}

type ChainConfigHolder struct {
	current atomic.Value // holds ChainConfig
}

// NewStaticChainConfigHolder wraps a fixed config.
func NewStaticChainConfigHolder(cfg ChainConfig) *ChainConfigHolder {
	holder := &ChainConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewChainConfigHolder(appCfg Config) (*ChainConfigHolder, error) {
	v := viper.New()

	if appCfg.ChainConfigPath != "" {
		v.SetConfigFile(appCfg.ChainConfigPath)
	} else {
		v.SetConfigName("chain")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/relaypay")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("RELAYPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultChainConfig()
	v.SetDefault("chain.localChainId", defaults.LocalChainID)
	v.SetDefault("chain.localSelector", defaults.LocalSelector.String())
	v.SetDefault("chain.owner", "")
	v.SetDefault("chain.engineAddress", defaults.EngineAddress.Hex())
	v.SetDefault("chain.bridgeAddress", defaults.BridgeAddress.Hex())
	v.SetDefault("chain.routerAddress", defaults.RouterAddress.Hex())
	v.SetDefault("chain.feeToken", defaults.FeeToken.Hex())
	v.SetDefault("chain.chargeFeesNative", false)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	cfg, err := decodeChainConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticChainConfigHolder(cfg)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeChainConfig(v)
		if err != nil {
			log.Printf("[chain-config] invalid config ignored: %v", err)
			return
		}
		holder.Store(updated)
		log.Printf("[chain-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Store swaps in a new config for subsequent Get calls.
func (h *ChainConfigHolder) Store(cfg ChainConfig) {
	h.current.Store(cfg)
}

func (h *ChainConfigHolder) Get() ChainConfig {
	return h.current.Load().(ChainConfig)
}

func decodeChainConfig(v *viper.Viper) (ChainConfig, error) {
	cfg := ChainConfig{
		LocalChainID:     v.GetUint64("chain.localChainId"),
		ChargeFeesNative: v.GetBool("chain.chargeFeesNative"),
	}

	selector, err := evm.ParseSelector(v.GetString("chain.localSelector"))
	if err != nil {
		return ChainConfig{}, fmt.Errorf("chain.localSelector: %w", err)
	}
	cfg.LocalSelector = selector

	if owner := strings.TrimSpace(v.GetString("chain.owner")); owner != "" {
		if cfg.Owner, err = evm.ParseAddress(owner); err != nil {
			return ChainConfig{}, fmt.Errorf("chain.owner: %w", err)
		}
	}
	if cfg.EngineAddress, err = evm.ParseAddress(v.GetString("chain.engineAddress")); err != nil {
		return ChainConfig{}, fmt.Errorf("chain.engineAddress: %w", err)
	}
	if cfg.BridgeAddress, err = evm.ParseAddress(v.GetString("chain.bridgeAddress")); err != nil {
		return ChainConfig{}, fmt.Errorf("chain.bridgeAddress: %w", err)
	}
	if cfg.RouterAddress, err = evm.ParseAddress(v.GetString("chain.routerAddress")); err != nil {
		return ChainConfig{}, fmt.Errorf("chain.routerAddress: %w", err)
	}
	if cfg.FeeToken, err = evm.ParseAddress(v.GetString("chain.feeToken")); err != nil {
		return ChainConfig{}, fmt.Errorf("chain.feeToken: %w", err)
	}

	var raw []rawDestinationFee
	if err := v.UnmarshalKey("chain.destinations", &raw); err != nil {
		return ChainConfig{}, err
	}
	for i, r := range raw {
		fee, err := parseDestinationFee(r)
		if err != nil {
			return ChainConfig{}, fmt.Errorf("chain.destinations[%d]: %w", i, err)
		}
		cfg.Destinations = append(cfg.Destinations, fee)
	}

	if err := validateChainConfig(cfg); err != nil {
		return ChainConfig{}, err
	}
	return cfg, nil
}

func parseDestinationFee(r rawDestinationFee) (DestinationFee, error) {
	selector, err := evm.ParseSelector(r.Selector)
	if err != nil {
		return DestinationFee{}, err
	}
	base, err := parseFee(r.BaseFee)
	if err != nil {
		return DestinationFee{}, fmt.Errorf("baseFee: %w", err)
	}
	native, err := parseFee(r.NativeFee)
	if err != nil {
		return DestinationFee{}, fmt.Errorf("nativeFee: %w", err)
	}
	return DestinationFee{Selector: selector, BaseFee: base, NativeFee: native}, nil
}

func parseFee(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	fee, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !evm.IsTokenAmount(fee) {
		return decimal.Zero, fmt.Errorf("fee must be a non-negative integer, got %s", raw)
	}
	return fee, nil
}

func validateChainConfig(cfg ChainConfig) error {
	if cfg.LocalChainID == 0 {
		return errors.New("chain.localChainId is required")
	}
	if cfg.LocalChainID > math.MaxInt64 {
		return fmt.Errorf("chain.localChainId %d out of range", cfg.LocalChainID)
	}
	accounts := map[common.Address]string{}
	for name, addr := range map[string]common.Address{
		"engineAddress": cfg.EngineAddress,
		"bridgeAddress": cfg.BridgeAddress,
		"routerAddress": cfg.RouterAddress,
	} {
		if evm.IsZero(addr) {
			return fmt.Errorf("chain.%s cannot be the zero address", name)
		}
		if other, ok := accounts[addr]; ok {
			return fmt.Errorf("chain.%s duplicates chain.%s", name, other)
		}
		accounts[addr] = name
	}
	seen := map[evm.Selector]struct{}{}
	for _, d := range cfg.Destinations {
		if d.Selector == cfg.LocalSelector {
			return fmt.Errorf("destination %s is the local selector", d.Selector)
		}
		if _, ok := seen[d.Selector]; ok {
			return fmt.Errorf("destination %s configured twice", d.Selector)
		}
		seen[d.Selector] = struct{}{}
	}
	return nil
}
