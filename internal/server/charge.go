package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ChargeSubscription collects one period. Anyone may trigger a due charge.
func (s *Server) ChargeSubscription(c *gin.Context) {
	subscriber, ok := addressParam(c, "subscriber")
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	receipt, err := s.charges.Charge(c.Request.Context(), subscriber, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": receipt})
}
