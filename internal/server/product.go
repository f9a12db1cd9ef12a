package server

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	productdomain "github.com/smallbiznis/relaypay/internal/product/domain"
)

type updateProductRequest struct {
	ReceivingAddress common.Address `json:"receiving_address"`
	DestinationChain uint64         `json:"destination_chain"`
	IsActive         bool           `json:"is_active"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req productdomain.CreateRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	resp, err := s.productSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateProduct(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req updateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.productSvc.Update(c.Request.Context(), productdomain.UpdateRequest{
		ProductID:        id,
		ReceivingAddress: req.ReceivingAddress,
		DestinationChain: req.DestinationChain,
		IsActive:         req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProductByID(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	resp, err := s.productSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProviderProducts(c *gin.Context) {
	provider, ok := addressParam(c, "provider")
	if !ok {
		return
	}

	resp, err := s.productSvc.ListByProvider(c.Request.Context(), provider)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProductNonce(c *gin.Context) {
	nonce, err := s.productSvc.Nonce(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"nonce": nonce}})
}
