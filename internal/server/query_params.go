package server

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/relaypay/pkg/evm"
)

func addressParam(c *gin.Context, name string) (common.Address, bool) {
	addr, err := evm.ParseAddress(c.Param(name))
	if err != nil {
		AbortWithError(c, newValidationError(name, "invalid_"+name, "invalid address"))
		return common.Address{}, false
	}
	return addr, true
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	value, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || value < 0 {
		AbortWithError(c, newValidationError(name, "invalid_"+name, "invalid id"))
		return 0, false
	}
	return value, true
}

func selectorParam(c *gin.Context, name string) (evm.Selector, bool) {
	selector, err := evm.ParseSelector(c.Param(name))
	if err != nil {
		AbortWithError(c, newValidationError(name, "invalid_"+name, "invalid chain selector"))
		return 0, false
	}
	return selector, true
}

func hashParam(c *gin.Context, name string) (common.Hash, bool) {
	raw := strings.TrimSpace(c.Param(name))
	if len(strings.TrimPrefix(raw, "0x")) != 2*common.HashLength {
		AbortWithError(c, newValidationError(name, "invalid_"+name, "invalid hash"))
		return common.Hash{}, false
	}
	return common.HexToHash(raw), true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		AbortWithError(c, invalidRequestError())
		return false
	}
	return true
}
