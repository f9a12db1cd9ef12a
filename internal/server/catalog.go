package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/relaypay/internal/catalog/domain"
)

func (s *Server) CreateProductWithPlans(c *gin.Context) {
	var req catalogdomain.CreateProductWithPlansRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.catalogSvc.CreateProductWithPlans(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) CreateRecurringSubscription(c *gin.Context) {
	var req catalogdomain.CreateRecurringSubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.catalogSvc.CreateRecurringSubscription(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
