package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDashboard moves past-due invoices to OVERDUE before computing the
// figures so the overdue list reflects today.
func (s *Server) GetDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := tenantIDFromContext(c)
	now := s.clock.Now()

	if _, err := s.invoiceSvc.SweepOverdue(ctx, tenantID, now); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.analyticsSvc.GetAnalytics(ctx, tenantID, now)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
