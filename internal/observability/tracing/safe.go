package tracing

import (
	"context"
	"errors"

	"github.com/smallbiznis/relaypay/internal/apperror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// Span attributes that could carry account data are never recorded.
var forbiddenAttributeKeys = map[attribute.Key]struct{}{
	"subscriber":        {},
	"receiving_address": {},
	"caller":            {},
	"http.url":          {},
	"http.user_agent":   {},
}

// ExtractContext pulls the remote span context from inbound headers.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// SafeAttributes drops attributes that may identify an account.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, blocked := forbiddenAttributeKeys[attr.Key]; blocked {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError reduces an error to its domain reason before it is recorded on a span.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	if kind, ok := apperror.KindOf(err); ok {
		return errors.New(string(kind) + ": " + apperror.ReasonOf(err))
	}
	return errors.New("internal error")
}
