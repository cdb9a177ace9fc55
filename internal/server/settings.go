package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	settingsdomain "github.com/smallbiznis/billfold/internal/settings/domain"
)

type updateSettingsRequest struct {
	BusinessName     *string          `json:"business_name"`
	BusinessAddress  *string          `json:"business_address"`
	LogoURL          *string          `json:"logo_url"`
	Currency         *string          `json:"currency"`
	HourlyRate       *decimal.Decimal `json:"hourly_rate"`
	InvoicePrefix    *string          `json:"invoice_prefix"`
	PaymentTermsDays *int             `json:"payment_terms_days"`
}

func (s *Server) GetSettings(c *gin.Context) {
	resp, err := s.settingsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.Update(c.Request.Context(), settingsdomain.UpdateSettingsRequest(req))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
