package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/relaypay/internal/apperror"
	"github.com/smallbiznis/relaypay/pkg/db"
)

const (
	ChargeOutcomeCharged        = "charged"
	ChargeOutcomeIntervalNotMet = "interval_not_met"
	ChargeOutcomeFailed         = "failed"
)

const (
	KeeperErrorDeadlineExceeded = "deadline_exceeded"
	KeeperErrorDBConflict       = "db_conflict"
	KeeperErrorUnknown          = "unknown"
)

// KeeperMetrics captures keeper loop health and charge throughput.
type KeeperMetrics struct {
	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobErrors   *prometheus.CounterVec
	jobTimeouts *prometheus.CounterVec
	charges     *prometheus.CounterVec
	lockSkipped prometheus.Counter
	runLoopLag  prometheus.Observer
}

var (
	keeperMetricsOnce sync.Once
	keeperMetrics     *KeeperMetrics
)

// Keeper returns the singleton keeper metrics registry.
func Keeper() *KeeperMetrics {
	return KeeperWithConfig(Config{})
}

// KeeperWithConfig returns the singleton keeper metrics registry using config labels.
func KeeperWithConfig(cfg Config) *KeeperMetrics {
	keeperMetricsOnce.Do(func() {
		keeperMetrics = newKeeperMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return keeperMetrics
}

// ResetKeeperMetricsForTest resets the keeper metrics singleton for tests.
func ResetKeeperMetricsForTest() {
	keeperMetricsOnce = sync.Once{}
	keeperMetrics = nil
}

// NewKeeperMetricsForTest builds keeper metrics on a private registry.
func NewKeeperMetricsForTest(registerer prometheus.Registerer) *KeeperMetrics {
	return newKeeperMetrics(registerer, Config{ServiceName: "relaypay", Environment: "test"})
}

func newKeeperMetrics(registerer prometheus.Registerer, cfg Config) *KeeperMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "relaypay"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "relaypay_keeper_job_runs_total",
		Help:        "Keeper job runs by name.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "relaypay_keeper_job_duration_seconds",
		Help:        "Keeper job latency.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "relaypay_keeper_job_errors_total",
		Help:        "Keeper job errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})
	jobTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "relaypay_keeper_job_timeouts_total",
		Help:        "Keeper job timeouts.",
		ConstLabels: constLabels,
	}, []string{"job"})
	charges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "relaypay_keeper_charges_total",
		Help:        "Charges attempted by the keeper, by outcome and failure kind.",
		ConstLabels: constLabels,
	}, []string{"outcome", "kind"})
	lockSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "relaypay_keeper_lock_skipped_total",
		Help:        "Keeper runs skipped because another instance held the lock.",
		ConstLabels: constLabels,
	})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "relaypay_keeper_runloop_lag_seconds",
		Help:        "Keeper run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(jobRuns, jobDuration, jobErrors, jobTimeouts, charges, lockSkipped, runLoopLag)

	return &KeeperMetrics{
		jobRuns:     jobRuns,
		jobDuration: jobDuration,
		jobErrors:   jobErrors,
		jobTimeouts: jobTimeouts,
		charges:     charges,
		lockSkipped: lockSkipped,
		runLoopLag:  runLoopLag,
	}
}

func (m *KeeperMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *KeeperMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *KeeperMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *KeeperMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifyKeeperError(err)).Inc()
}

// IncCharge records one keeper charge attempt. err is nil for success.
func (m *KeeperMetrics) IncCharge(outcome string, err error) {
	if m == nil {
		return
	}
	kind := "none"
	if err != nil {
		if k, ok := apperror.KindOf(err); ok {
			kind = string(k)
		} else {
			kind = ClassifyKeeperError(err)
		}
	}
	m.charges.WithLabelValues(outcome, kind).Inc()
}

func (m *KeeperMetrics) IncLockSkipped() {
	if m == nil {
		return
	}
	m.lockSkipped.Inc()
}

func (m *KeeperMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil {
		return
	}
	m.runLoopLag.Observe(max(duration, 0).Seconds())
}

// ClassifyKeeperError maps infrastructure errors to low-cardinality reasons.
func ClassifyKeeperError(err error) string {
	switch {
	case err == nil:
		return KeeperErrorUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KeeperErrorDeadlineExceeded
	case db.IsRetryableErr(err), db.IsDuplicateKeyErr(err):
		return KeeperErrorDBConflict
	default:
		return KeeperErrorUnknown
	}
}
