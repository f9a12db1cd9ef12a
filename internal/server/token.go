package server

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type addSupportedTokenRequest struct {
	Token common.Address `json:"token"`
}

type tokenAmountRequest struct {
	To      common.Address  `json:"to"`
	Spender common.Address  `json:"spender"`
	Amount  decimal.Decimal `json:"amount"`
}

func (s *Server) ListSupportedTokens(c *gin.Context) {
	resp, err := s.tokenSvc.ListSupported(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddSupportedToken(c *gin.Context) {
	var req addSupportedTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := s.tokenSvc.AddSupportedToken(c.Request.Context(), req.Token); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"token": req.Token}})
}

func (s *Server) GetBalance(c *gin.Context) {
	token, ok := addressParam(c, "token")
	if !ok {
		return
	}
	holder, ok := addressParam(c, "holder")
	if !ok {
		return
	}

	balance, err := s.tokenSvc.BalanceOf(c.Request.Context(), token, holder)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"token":   token,
		"holder":  holder,
		"balance": balance,
	}})
}

func (s *Server) GetAllowance(c *gin.Context) {
	token, ok := addressParam(c, "token")
	if !ok {
		return
	}
	owner, ok := addressParam(c, "owner")
	if !ok {
		return
	}
	spender, ok := addressParam(c, "spender")
	if !ok {
		return
	}

	allowance, err := s.tokenSvc.Allowance(c.Request.Context(), token, owner, spender)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"token":     token,
		"owner":     owner,
		"spender":   spender,
		"allowance": allowance,
	}})
}

func (s *Server) MintToken(c *gin.Context) {
	token, ok := addressParam(c, "token")
	if !ok {
		return
	}
	var req tokenAmountRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := s.tokenSvc.Mint(c.Request.Context(), token, req.To, req.Amount); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ApproveToken(c *gin.Context) {
	token, ok := addressParam(c, "token")
	if !ok {
		return
	}
	var req tokenAmountRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := s.tokenSvc.Approve(c.Request.Context(), token, req.Spender, req.Amount); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) TransferToken(c *gin.Context) {
	token, ok := addressParam(c, "token")
	if !ok {
		return
	}
	var req tokenAmountRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := s.tokenSvc.Transfer(c.Request.Context(), token, req.To, req.Amount); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
