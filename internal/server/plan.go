package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	plandomain "github.com/smallbiznis/relaypay/internal/plan/domain"
)

type updatePlanRequest struct {
	IsActive *bool `json:"is_active"`
}

func (s *Server) CreatePlan(c *gin.Context) {
	var req plandomain.CreateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.planSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdatePlan(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req updatePlanRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.IsActive == nil {
		AbortWithError(c, newValidationError("is_active", "required", "is_active is required"))
		return
	}

	resp, err := s.planSvc.Update(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPlanByID(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	resp, err := s.planSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProductPlans(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	resp, err := s.planSvc.ListByProduct(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPlanNonce(c *gin.Context) {
	nonce, err := s.planSvc.Nonce(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"nonce": nonce}})
}
