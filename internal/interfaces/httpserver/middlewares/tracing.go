package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/janhq/jan-workspace/internal/infrastructure/observability"
)

// TracingMiddleware opens a server span per request, continuing any W3C trace the caller sent.
// Workspace and message path params are copied onto the span so dispatch and search requests
// can be found by id.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer(serviceName)
	propagator := otel.GetTextMapPropagator

	return func(c *gin.Context) {
		ctx := propagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		attrs := []attribute.KeyValue{
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("url.path", c.Request.URL.Path),
		}
		if ws := c.Param("workspace_id"); ws != "" {
			attrs = append(attrs, observability.WorkspaceIDKey.String(ws))
		}
		if msg := c.Param("message_id"); msg != "" {
			attrs = append(attrs, observability.MessageIDKey.String(msg))
		}

		ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		if requestID := RequestIDFromContext(c); requestID != "" {
			span.SetAttributes(attribute.String("jan.request.id", requestID))
		}

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status < http.StatusInternalServerError {
			return
		}
		if last := c.Errors.Last(); last != nil {
			observability.RecordError(ctx, last.Err)
			return
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
