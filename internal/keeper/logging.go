package keeper

import (
	"context"
	"time"

	obslogger "github.com/smallbiznis/relaypay/internal/observability/logger"
	"go.uber.org/zap"
)

type jobRun struct {
	job            string
	runID          string
	batchSize      int
	startedAt      time.Time
	processedCount int
	skippedCount   int
	errorCount     int
}

func (r *jobRun) AddProcessed(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.processedCount += count
}

func (r *jobRun) IncSkipped() {
	if r == nil {
		return
	}
	r.skippedCount++
}

func (r *jobRun) IncError() {
	if r == nil {
		return
	}
	r.errorCount++
}

func (k *Keeper) newJobRun(job string, batchSize int) *jobRun {
	return &jobRun{
		job:       job,
		runID:     k.genID.Generate().String(),
		batchSize: batchSize,
		startedAt: time.Now(),
	}
}

func (k *Keeper) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, k.log)
}

func (k *Keeper) logJobStart(ctx context.Context, run *jobRun) {
	k.logger(ctx).Info("keeper.job.start",
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int("batch_size", run.batchSize),
	)
}

func (k *Keeper) logJobFinish(ctx context.Context, run *jobRun) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Int("processed_count", run.processedCount),
		zap.Int("skipped_count", run.skippedCount),
		zap.Int("error_count", run.errorCount),
	}
	log := k.logger(ctx)
	if run.errorCount > 0 {
		log.Warn("keeper.job.finish", fields...)
		return
	}
	log.Info("keeper.job.finish", fields...)
}
