package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("outcome", "success"),
		attribute.String("subscriber", "0x01"),
		attribute.String("path", "bridge"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "outcome" && attrs[1].Key != "outcome" {
		t.Fatalf("expected outcome to be retained")
	}
	if attrs[0].Key != "path" && attrs[1].Key != "path" {
		t.Fatalf("expected path to be retained")
	}
}

func TestRecordersTolerateNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "relaypay"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	ctx := context.Background()
	m.RecordCharge(ctx, "local", "success")
	m.RecordBridgeTransfer(ctx, "native", "3478487238524512106")
	m.RecordSubscriptionTransition(ctx, "subscribed")
	m.RecordRelayPublished(ctx, "events", 3)

	var nilMetrics *Metrics
	nilMetrics.RecordCharge(ctx, "local", "success")
}
