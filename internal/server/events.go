package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	"github.com/smallbiznis/relaypay/pkg/db/pagination"
)

func (s *Server) ListEvents(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name string `form:"name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cursor, err := query.Cursor()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	size := query.Size()
	records, err := s.eventsSvc.List(c.Request.Context(), eventsdomain.ListFilter{
		Name:     strings.TrimSpace(query.Name),
		AfterID:  cursor.AfterID,
		PageSize: size + 1,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	page, info, err := pagination.BuildPage(records, size, func(r eventsdomain.Record) int64 { return r.ID })
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": page, "page_info": info})
}
