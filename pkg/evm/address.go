package evm

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// NativeToken is the sentinel token address for the chain's native currency.
var NativeToken = common.Address{}

func ParseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func IsZero(addr common.Address) bool {
	return addr == (common.Address{})
}

// IsTokenAmount reports whether d is a non-negative whole number of base units.
func IsTokenAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.IsInteger()
}
