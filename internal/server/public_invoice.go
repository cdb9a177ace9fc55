package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	publicinvoicedomain "github.com/smallbiznis/billfold/internal/publicinvoice/domain"
	"go.uber.org/zap"
)

const endpointPublicInvoice = "public_invoice_view"

func (s *Server) GetPublicInvoice(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		respondPublicInvoiceUnavailable(c)
		return
	}

	resp, err := s.publicInvoiceSvc.GetInvoiceForPublicView(c.Request.Context(), token)
	if err != nil {
		handlePublicInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetPublicInvoiceHTML(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		respondPublicInvoiceUnavailable(c)
		return
	}

	page, err := s.publicInvoiceSvc.RenderInvoiceHTML(c.Request.Context(), token)
	if err != nil {
		handlePublicInvoiceError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// PublicViewRateLimit throttles public invoice reads per client address. A
// limiter error lets the request through.
func (s *Server) PublicViewRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.publicViewLimiter.Enabled() {
			c.Next()
			return
		}

		ip := strings.TrimSpace(c.ClientIP())
		if ip == "" {
			ip = "unknown"
		}

		result, err := s.publicViewLimiter.Allow(c.Request.Context(), ip)
		if err != nil {
			s.log.Warn("public view rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimit(endpointPublicInvoice, result.Allowed)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Next()
	}
}

func handlePublicInvoiceError(c *gin.Context, err error) {
	if errors.Is(err, publicinvoicedomain.ErrInvoiceUnavailable) {
		respondPublicInvoiceUnavailable(c)
		return
	}
	AbortWithError(c, err)
}

func respondPublicInvoiceUnavailable(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, publicInvoiceUnavailablePayload())
}

func publicInvoiceUnavailablePayload() publicInvoiceErrorResponse {
	return publicInvoiceErrorResponse{
		Code:    "INVOICE_NOT_AVAILABLE",
		Message: "This invoice link is no longer available.",
	}
}

type publicInvoiceErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
