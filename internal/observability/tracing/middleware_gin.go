package tracing

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/relaypay/internal/apperror"
	obscontext "github.com/smallbiznis/relaypay/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Route params copied onto the request span. Account params such as
// :subscriber or :holder are left out.
var spanParams = map[string]attribute.Key{
	"id":        "relaypay.resource_id",
	"productId": "relaypay.product_id",
	"selector":  "relaypay.chain_selector",
	"messageId": "relaypay.message_id",
	"token":     "relaypay.token",
}

type MiddlewareConfig struct {
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// GinMiddleware opens a server span per request and tags it with the route,
// its resource ids and the domain error kind, if any.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	provider := cfg.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	tracer := provider.Tracer("relaypay/http")

	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		method := strings.ToUpper(c.Request.Method)
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			if member, err := baggage.NewMember("request_id", requestID); err == nil {
				if bag, err := baggage.New(member); err == nil {
					ctx = baggage.ContextWithBaggage(ctx, bag)
				}
			}
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
			// the address itself stays off the span
			attribute.Bool("relaypay.caller_present", obscontext.CallerFromContext(c.Request.Context()) != ""),
		}
		for _, p := range c.Params {
			if key, ok := spanParams[p.Key]; ok {
				attrs = append(attrs, attribute.String(string(key), p.Value))
			}
		}

		lastErr := c.Errors.Last()
		if lastErr != nil {
			if kind, ok := apperror.KindOf(lastErr.Err); ok {
				attrs = append(attrs, attribute.String("relaypay.error_kind", string(kind)))
			}
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status >= http.StatusInternalServerError {
			if lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
	}
}
