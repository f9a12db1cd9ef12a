package keeper

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/relaypay/internal/config"
	obsmetrics "github.com/smallbiznis/relaypay/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("keeper",
	fx.Provide(ProvideConfig),
	fx.Provide(NewLocker),
	fx.Provide(obsmetrics.KeeperWithConfig),
	fx.Provide(New),
	fx.Invoke(Start),
)

// NewLocker returns a Redis-backed lock when REDIS_ADDR is set.
func NewLocker(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Locker {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, keeper runs without a distributed lock")
		return noopLocker{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return NewRedisLocker(client)
}

func Start(lc fx.Lifecycle, cfg config.Config, k *Keeper) {
	if !cfg.KeeperEnabled {
		return
	}

	var (
		cancel context.CancelFunc
		sched  *cron.Cron
	)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			if k.cfg.Schedule != "" {
				c, err := k.StartCron(ctx)
				if err != nil {
					cancel()
					return err
				}
				sched = c
				return nil
			}
			go k.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			if sched != nil {
				<-sched.Stop().Done()
			}
			if cancel != nil {
				cancel()
			}
			return nil
		},
	})
}
