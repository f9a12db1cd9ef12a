package keeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	chargedomain "github.com/smallbiznis/relaypay/internal/charge/domain"
	"github.com/smallbiznis/relaypay/internal/clock"
	obscontext "github.com/smallbiznis/relaypay/internal/observability/context"
	obsmetrics "github.com/smallbiznis/relaypay/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/relaypay/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobChargeDue = "charge_due"

var ErrInvalidConfig = errors.New("keeper: invalid config")

type Params struct {
	fx.In

	Log     *zap.Logger
	Charges chargedomain.Engine
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  Config                    `optional:"true"`
	Locker  Locker                    `optional:"true"`
	Metrics *obsmetrics.KeeperMetrics `optional:"true"`
}

// Keeper periodically charges subscriptions whose interval has elapsed.
type Keeper struct {
	log     *zap.Logger
	cfg     Config
	charges chargedomain.Engine
	genID   *snowflake.Node
	clock   clock.Clock
	locker  Locker
	metrics *obsmetrics.KeeperMetrics
}

func New(p Params) (*Keeper, error) {
	if p.Log == nil || p.Charges == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	locker := p.Locker
	if locker == nil {
		locker = noopLocker{}
	}
	m := p.Metrics
	if m == nil {
		m = obsmetrics.Keeper()
	}
	return &Keeper{
		log:     p.Log.Named("keeper").With(zap.String("component", "keeper")),
		cfg:     p.Config.withDefaults(),
		charges: p.Charges,
		genID:   p.GenID,
		clock:   p.Clock,
		locker:  locker,
		metrics: m,
	}, nil
}

func (k *Keeper) runJob(parent context.Context, name string, batchSize int, fn func(ctx context.Context, run *jobRun) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, k.cfg.JobTimeout)
	defer cancel()

	ctx = obscontext.WithCaller(ctx, "keeper")
	run := k.newJobRun(name, batchSize)
	k.logJobStart(ctx, run)
	k.metrics.IncJobRun(name)

	err := fn(ctx, run)
	k.metrics.ObserveJobDuration(name, time.Since(start))
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	k.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	k.metrics.IncJobError(name, err)
	if isTimeout {
		k.metrics.IncJobTimeout(name)
		k.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", k.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (k *Keeper) RunOnce(parent context.Context) error {
	return k.runJob(parent, jobChargeDue, k.cfg.BatchSize, k.ChargeDueJob)
}

// ChargeDueJob charges one batch of due subscriptions under the keeper lock.
func (k *Keeper) ChargeDueJob(ctx context.Context, run *jobRun) error {
	token, ok, err := k.locker.TryLock(ctx, k.cfg.LockKey, k.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		k.metrics.IncLockSkipped()
		k.logger(ctx).Debug("keeper lock held elsewhere, skipping run")
		return nil
	}
	defer func() {
		if err := k.locker.Release(context.WithoutCancel(ctx), k.cfg.LockKey, token); err != nil {
			k.logger(ctx).Warn("release keeper lock failed", zap.Error(err))
		}
	}()

	due, err := k.charges.ListDue(ctx, k.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("list due: %w", err)
	}

	var errs error
	for _, sub := range due {
		if err := ctx.Err(); err != nil {
			return errors.Join(errs, err)
		}
		errs = errors.Join(errs, k.chargeOne(ctx, run, sub))
	}
	return errs
}

func (k *Keeper) chargeOne(ctx context.Context, run *jobRun, sub subscriptiondomain.Subscription) error {
	_, err := k.charges.Charge(ctx, sub.Subscriber, sub.ID)
	switch {
	case err == nil:
		k.metrics.IncCharge(obsmetrics.ChargeOutcomeCharged, nil)
		run.AddProcessed(1)
		return nil
	case errors.Is(err, subscriptiondomain.ErrIntervalNotMet):
		// another replica or a manual charge got there first
		k.metrics.IncCharge(obsmetrics.ChargeOutcomeIntervalNotMet, err)
		run.IncSkipped()
		return nil
	default:
		k.metrics.IncCharge(obsmetrics.ChargeOutcomeFailed, err)
		run.IncError()
		k.logger(ctx).Warn("charge failed",
			zap.String("subscriber", sub.Subscriber.Hex()),
			zap.Int64("subscription_id", sub.ID),
			zap.Error(err),
		)
		// back off so failing subscriptions do not crowd the batch
		if _, deferErr := k.charges.DeferRetry(context.WithoutCancel(ctx), sub.Subscriber, sub.ID); deferErr != nil {
			k.logger(ctx).Error("defer charge retry failed",
				zap.String("subscriber", sub.Subscriber.Hex()),
				zap.Int64("subscription_id", sub.ID),
				zap.Error(deferErr),
			)
		}
		return fmt.Errorf("charge %s/%d: %w", sub.Subscriber.Hex(), sub.ID, err)
	}
}

func (k *Keeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(k.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := k.clock.Now().Add(k.cfg.RunInterval)

	for {
		if lag := k.clock.Now().Sub(nextRun); lag > 0 {
			k.metrics.ObserveRunLoopLag(lag)
		}
		if err := k.RunOnce(ctx); err != nil {
			k.log.Warn("keeper run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(k.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// StartCron registers RunOnce on the configured cron schedule.
func (k *Keeper) StartCron(ctx context.Context) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddFunc(k.cfg.Schedule, func() {
		if err := k.RunOnce(ctx); err != nil {
			k.log.Warn("keeper run failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("keeper schedule %q: %w", k.cfg.Schedule, err)
	}
	c.Start()
	k.log.Info("keeper scheduled", zap.String("schedule", k.cfg.Schedule))
	return c, nil
}
