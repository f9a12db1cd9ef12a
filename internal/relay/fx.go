package relay

import (
	"context"

	"github.com/smallbiznis/relaypay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("relay",
	fx.Provide(ProvideConfig),
	fx.Provide(NewPublisher),
	fx.Provide(New),
	fx.Invoke(Start),
)

// NewPublisher dials the broker, falling back to logging when AMQP_URL is unset.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Publisher, error) {
	if cfg.AMQPURL == "" {
		log.Warn("AMQP_URL not set, relay will only log deliveries")
		return NewLogPublisher(log), nil
	}

	pub, err := NewAMQPPublisher(cfg.AMQPURL, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	})
	return pub, nil
}

func Start(lc fx.Lifecycle, cfg config.Config, relay *Relay) {
	if !cfg.RelayEnabled {
		return
	}

	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go relay.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			return nil
		},
	})
}
