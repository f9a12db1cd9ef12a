package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes billing and settlement instruments.
type Metrics struct {
	charges         metric.Int64Counter
	bridgeTransfers metric.Int64Counter
	subscriptions   metric.Int64Counter
	relayPublished  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "relaypay"
	}
	meter := provider.Meter(name)

	charges, err := meter.Int64Counter("relaypay_charges_total")
	if err != nil {
		return nil, err
	}
	bridgeTransfers, err := meter.Int64Counter("relaypay_bridge_transfers_total")
	if err != nil {
		return nil, err
	}
	subscriptions, err := meter.Int64Counter("relaypay_subscription_transitions_total")
	if err != nil {
		return nil, err
	}
	relayPublished, err := meter.Int64Counter("relaypay_relay_published_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		charges:         charges,
		bridgeTransfers: bridgeTransfers,
		subscriptions:   subscriptions,
		relayPublished:  relayPublished,
	}, nil
}

// RecordCharge counts charge attempts by payout path and outcome.
func (m *Metrics) RecordCharge(ctx context.Context, path, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("path", strings.TrimSpace(path)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.charges.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBridgeTransfer counts dispatched bridge transfers by fee mode.
func (m *Metrics) RecordBridgeTransfer(ctx context.Context, feeMode, destination string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("fee_mode", strings.TrimSpace(feeMode)),
		attribute.String("destination", strings.TrimSpace(destination)),
	)
	m.bridgeTransfers.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSubscriptionTransition counts subscription state changes.
func (m *Metrics) RecordSubscriptionTransition(ctx context.Context, transition string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("transition", strings.TrimSpace(transition)))
	m.subscriptions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRelayPublished counts relayed outbox records by source.
func (m *Metrics) RecordRelayPublished(ctx context.Context, source string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.relayPublished.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"path":        {},
	"outcome":     {},
	"fee_mode":    {},
	"destination": {},
	"transition":  {},
	"source":      {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
