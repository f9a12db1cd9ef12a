package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	bridgedomain "github.com/smallbiznis/relaypay/internal/bridge/domain"
	bridgeservice "github.com/smallbiznis/relaypay/internal/bridge/service"
	"github.com/smallbiznis/relaypay/internal/config"
	eventsdomain "github.com/smallbiznis/relaypay/internal/events/domain"
	"github.com/smallbiznis/relaypay/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Interval  time.Duration
	BatchSize int
}

func ProvideConfig(cfg config.Config) Config {
	return Config{Interval: cfg.RelayInterval, BatchSize: cfg.RelayBatchSize}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	return c
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Config    Config `optional:"true"`
	Events    eventsdomain.Service
	Outbox    bridgedomain.Outbox
	Publisher Publisher
	Metrics   *metrics.Metrics `optional:"true"`
}

// Relay forwards committed events and bridge messages to the broker.
type Relay struct {
	log       *zap.Logger
	cfg       Config
	events    eventsdomain.Service
	outbox    bridgedomain.Outbox
	publisher Publisher
	metrics   *metrics.Metrics
}

func New(p Params) *Relay {
	return &Relay{
		log:       p.Log.Named("relay"),
		cfg:       p.Config.withDefaults(),
		events:    p.Events,
		outbox:    p.Outbox,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

// RunOnce drains one batch from each source and returns how many deliveries succeeded.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	events, errEvents := r.relayEvents(ctx)
	messages, errMessages := r.relayBridgeMessages(ctx)
	return events + messages, errors.Join(errEvents, errMessages)
}

func (r *Relay) relayEvents(ctx context.Context) (int, error) {
	records, err := r.events.ClaimPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim events: %w", err)
	}

	published := 0
	var errs error
	for _, record := range records {
		msg := Message{
			Exchange:   EventsExchange,
			RoutingKey: record.Name,
			Body:       record.Payload,
			Headers: map[string]any{
				"event_id":   strconv.FormatInt(record.ID, 10),
				"event_name": record.Name,
				"emitted_at": record.EmittedAt.UTC().Format(time.RFC3339),
			},
		}
		if err := r.publisher.Publish(ctx, msg); err != nil {
			errs = errors.Join(errs, r.events.MarkFailed(ctx, record, err))
			continue
		}
		if err := r.events.MarkPublished(ctx, record.ID); err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		published++
	}
	r.metrics.RecordRelayPublished(ctx, "events", published)
	return published, errs
}

func (r *Relay) relayBridgeMessages(ctx context.Context) (int, error) {
	messages, err := r.outbox.ClaimPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim bridge messages: %w", err)
	}

	published := 0
	var errs error
	for _, m := range messages {
		body, err := json.Marshal(m)
		if err != nil {
			errs = errors.Join(errs, r.outbox.MarkFailed(ctx, m, err))
			continue
		}
		msg := Message{
			Exchange:   BridgeExchange,
			RoutingKey: bridgeservice.RoutingKey(m.Selector),
			Body:       body,
			Headers: map[string]any{
				"message_id":                 m.MessageID.Hex(),
				"destination_chain_selector": m.Selector.String(),
			},
		}
		if err := r.publisher.Publish(ctx, msg); err != nil {
			errs = errors.Join(errs, r.outbox.MarkFailed(ctx, m, err))
			continue
		}
		if err := r.outbox.MarkPublished(ctx, m.ID); err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		published++
	}
	r.metrics.RecordRelayPublished(ctx, "bridge", published)
	return published, errs
}

func (r *Relay) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if n, err := r.RunOnce(ctx); err != nil {
			r.log.Warn("relay run failed", zap.Int("published", n), zap.Error(err))
		} else if n > 0 {
			r.log.Debug("relay run", zap.Int("published", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
