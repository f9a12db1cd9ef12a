package server

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	bridgedomain "github.com/smallbiznis/relaypay/internal/bridge/domain"
	"github.com/smallbiznis/relaypay/pkg/evm"
)

type bridgeTransferRequest struct {
	bridgedomain.TransferRequest
	PayNative bool `json:"pay_native"`
}

type bridgeWithdrawRequest struct {
	To common.Address `json:"to"`
	// Token is the zero address to withdraw native currency.
	Token common.Address `json:"token"`
}

func (s *Server) ListDestinations(c *gin.Context) {
	resp, err := s.bridgeSvc.ListDestinations(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AllowDestination(c *gin.Context) {
	selector, ok := selectorParam(c, "selector")
	if !ok {
		return
	}

	if err := s.bridgeSvc.AddDestinationChainSupport(c.Request.Context(), selector); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"selector": selector, "allowed": true}})
}

func (s *Server) DisallowDestination(c *gin.Context) {
	selector, ok := selectorParam(c, "selector")
	if !ok {
		return
	}

	if err := s.bridgeSvc.RemoveDestinationChainSupport(c.Request.Context(), selector); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"selector": selector, "allowed": false}})
}

func (s *Server) BridgeTransfer(c *gin.Context) {
	var req bridgeTransferRequest
	if !bindJSON(c, &req) {
		return
	}

	var (
		receipt *bridgedomain.Receipt
		err     error
	)
	if req.PayNative {
		receipt, err = s.bridgeSvc.TransferTokenPayNative(c.Request.Context(), req.TransferRequest)
	} else {
		receipt, err = s.bridgeSvc.TransferToken(c.Request.Context(), req.TransferRequest)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": receipt})
}

func (s *Server) GetBridgeTransfer(c *gin.Context) {
	messageID, ok := hashParam(c, "messageId")
	if !ok {
		return
	}

	resp, err := s.bridgeSvc.GetTransfer(c.Request.Context(), messageID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) BridgeWithdraw(c *gin.Context) {
	var req bridgeWithdrawRequest
	if !bindJSON(c, &req) {
		return
	}

	var (
		amount decimal.Decimal
		err    error
	)
	if req.Token == evm.NativeToken {
		amount, err = s.bridgeSvc.WithdrawNative(c.Request.Context(), req.To)
	} else {
		amount, err = s.bridgeSvc.WithdrawToken(c.Request.Context(), req.To, req.Token)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"to":     req.To,
		"token":  req.Token,
		"amount": amount,
	}})
}
