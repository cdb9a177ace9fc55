package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	obscontext "github.com/smallbiznis/billfold/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestIDHeader = "X-Request-Id"

// routeResources maps the collection segment in front of a ":id" route
// parameter to the log key carrying that id.
var routeResources = map[string]string{
	"invoices": "invoice_id",
	"clients":  "client_id",
	"expenses": "expense_id",
}

var resourceKeys = []string{"invoice_id", "client_id", "expense_id"}

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug           bool
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware writes one http_request line per request. The logger is
// taken from the request context after the handlers ran, so the line picks
// up the tenant set by authentication along with the invoice, client or
// expense the route addressed.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := ensureRequestID(c)
		c.Request = c.Request.WithContext(obscontext.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		route := lo.Ternary(strings.TrimSpace(c.FullPath()) == "", "unknown", c.FullPath())
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		fields = append(fields, resourceFields(c)...)

		if lastErr := c.Errors.Last(); lastErr != nil {
			var errorType, errorCode string
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields,
				zap.String("error_type", errorType),
				zap.String("error_code", errorCode),
			)
			if cfg.Debug && status >= http.StatusInternalServerError {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		if log := FromContext(c.Request.Context()); log != nil {
			if ce := log.Check(requestLevel(route, status), "http_request"); ce != nil {
				ce.Write(fields...)
			}
		}
	}
}

func ensureRequestID(c *gin.Context) string {
	requestID, _ := lo.Coalesce(
		strings.TrimSpace(c.GetHeader(requestIDHeader)),
		strings.TrimSpace(c.GetString("request_id")),
	)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header(requestIDHeader, requestID)
	return requestID
}

// resourceFields reads the addressed id from the matched route, falling back
// to ids a handler stored on the context after creating the resource.
func resourceFields(c *gin.Context) []zap.Field {
	var fields []zap.Field
	seen := map[string]bool{}

	segments := strings.Split(strings.Trim(c.FullPath(), "/"), "/")
	for i := 1; i < len(segments); i++ {
		key, ok := routeResources[segments[i-1]]
		if !ok || segments[i] != ":id" {
			continue
		}
		if id := strings.TrimSpace(c.Param("id")); id != "" {
			fields = append(fields, zap.String(key, id))
			seen[key] = true
		}
	}
	for _, key := range resourceKeys {
		if seen[key] {
			continue
		}
		if id := strings.TrimSpace(c.GetString(key)); id != "" {
			fields = append(fields, zap.String(key, id))
		}
	}
	return fields
}

func requestLevel(route string, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zap.ErrorLevel
	case route == "/health" || route == "/metrics":
		return zap.DebugLevel
	case strings.HasPrefix(route, "/public/") && status == http.StatusTooManyRequests:
		// shared invoice links get crawled
		return zap.DebugLevel
	case strings.HasPrefix(route, "/webhooks/") && status >= http.StatusBadRequest:
		return zap.WarnLevel
	default:
		return zap.InfoLevel
	}
}
