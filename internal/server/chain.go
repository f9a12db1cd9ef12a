package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/relaypay/pkg/evm"
)

type addChainSelectorRequest struct {
	ChainID  uint64       `json:"chain_id"`
	Selector evm.Selector `json:"selector"`
}

func (s *Server) ListChainSelectors(c *gin.Context) {
	resp, err := s.chainSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":           resp,
		"local_chain_id": s.chainSvc.LocalChainID(),
	})
}

func (s *Server) AddChainSelector(c *gin.Context) {
	var req addChainSelectorRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := s.chainSvc.AddChainSelector(c.Request.Context(), req.ChainID, req.Selector); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": req})
}
