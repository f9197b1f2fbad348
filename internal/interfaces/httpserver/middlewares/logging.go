package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-workspace/internal/infrastructure/observability"
	"github.com/janhq/jan-workspace/internal/utils/sanitize"
)

// LoggingMiddleware logs HTTP requests with OpenTelemetry trace context.
// The query string carries search text, so it goes through the sanitizer.
func LoggingMiddleware(logger zerolog.Logger, sanitizer *sanitize.Sanitizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		logEvent := logger.Info()
		if statusCode >= 500 {
			logEvent = logger.Error()
		} else if statusCode >= 400 {
			logEvent = logger.Warn()
		}

		if traceID := observability.GetTraceID(c.Request.Context()); traceID != "" {
			logEvent = logEvent.
				Str("trace_id", traceID).
				Str("span_id", observability.GetSpanID(c.Request.Context()))
		}
		if requestID := RequestIDFromContext(c); requestID != "" {
			logEvent = logEvent.Str("request_id", requestID)
		}
		if len(c.Errors) > 0 {
			logEvent = logEvent.Str("errors", c.Errors.String())
		}

		logEvent.
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", sanitizer.Text(raw)).
			Int("status", statusCode).
			Dur("latency", time.Since(start)).
			Str("user_agent", c.Request.UserAgent()).
			Msg("http request")
	}
}
