package server

import (
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/smallbiznis/billfold/internal/analytics/domain"
	clientdomain "github.com/smallbiznis/billfold/internal/client/domain"
	expensedomain "github.com/smallbiznis/billfold/internal/expense/domain"
	invoicedomain "github.com/smallbiznis/billfold/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/billfold/internal/payment/domain"
	publicinvoicedomain "github.com/smallbiznis/billfold/internal/publicinvoice/domain"
	settingsdomain "github.com/smallbiznis/billfold/internal/settings/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
	From    string            `json:"from,omitempty"`
	To      string            `json:"to,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var fieldErr *invoicedomain.ValidationError
	if errors.As(err, &fieldErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   fieldErr.Field,
					Code:    "invalid_" + strings.ToLower(fieldErr.Field),
					Message: fieldErr.Reason,
				},
			},
		}
	}

	var transitionErr *invoicedomain.TransitionError
	if errors.As(err, &transitionErr) {
		return http.StatusConflict, errorPayload{
			Type:    "invalid_transition",
			Message: transitionErr.Error(),
			From:    string(transitionErr.From),
			To:      string(transitionErr.To),
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, invoicedomain.ErrInvalidTenant),
		errors.Is(err, clientdomain.ErrInvalidTenant),
		errors.Is(err, settingsdomain.ErrInvalidTenant),
		errors.Is(err, expensedomain.ErrInvalidTenant),
		errors.Is(err, analyticsdomain.ErrInvalidTenant):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, invoicedomain.ErrInvalidTransition):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_transition",
			Message: "invalid transition",
		}
	case errors.Is(err, invoicedomain.ErrConcurrencyConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "concurrent update, retry the request",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, invoicedomain.ErrDeliveryFailed):
		return http.StatusBadGateway, errorPayload{
			Type:    "delivery_failed",
			Message: "invoice email could not be delivered",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, paymentdomain.ErrProviderNotFound):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds error_type and error_code on the request log line.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, invoicedomain.ErrValidation),
		errors.Is(err, invoicedomain.ErrInvalidID),
		errors.Is(err, invoicedomain.ErrMalformedInvoiceNumber),
		errors.Is(err, clientdomain.ErrInvalidName),
		errors.Is(err, clientdomain.ErrInvalidEmail),
		errors.Is(err, clientdomain.ErrInvalidField),
		errors.Is(err, clientdomain.ErrInvalidID),
		errors.Is(err, settingsdomain.ErrInvalidField),
		errors.Is(err, expensedomain.ErrInvalidField),
		errors.Is(err, expensedomain.ErrInvalidAmount),
		errors.Is(err, expensedomain.ErrInvalidID),
		errors.Is(err, paymentdomain.ErrInvalidProvider),
		errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, expensedomain.ErrNotFound),
		errors.Is(err, publicinvoicedomain.ErrInvoiceUnavailable),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, invoicedomain.ErrMalformedInvoiceNumber):
		return "invalid_invoice_number"
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, clientdomain.ErrInvalidField),
		errors.Is(err, settingsdomain.ErrInvalidField),
		errors.Is(err, expensedomain.ErrInvalidField):
		return "invalid_field"
	case errors.Is(err, expensedomain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, clientdomain.ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, clientdomain.ErrInvalidEmail):
		return "invalid_email"
	case errors.Is(err, invoicedomain.ErrInvalidID),
		errors.Is(err, clientdomain.ErrInvalidID),
		errors.Is(err, expensedomain.ErrInvalidID):
		return "invalid_id"
	default:
		code := err.Error()
		if idx := strings.Index(code, ":"); idx > 0 {
			code = code[:idx]
		}
		return code
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_invoice_number":
		return "invoice number is malformed"
	case "invalid_signature":
		return "webhook signature could not be verified"
	default:
		return "invalid value"
	}
}
