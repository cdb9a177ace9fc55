package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) ParseInvoiceNumber(c *gin.Context) {
	parsed, err := s.invoiceSvc.ParseInvoiceNumber(strings.TrimSpace(c.Param("number")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": parsed})
}

// GetCurrentSequence reports the last allocated sequence for a year without
// allocating. The year defaults to the current one.
func (s *Server) GetCurrentSequence(c *gin.Context) {
	year := s.clock.Now().UTC().Year()
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 9999 {
			AbortWithError(c, newValidationError("year", "invalid_year", "invalid year"))
			return
		}
		year = parsed
	}

	current, err := s.invoiceSvc.CurrentSequence(c.Request.Context(), tenantIDFromContext(c), year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"year": year, "sequence": current}})
}
