package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/relaypay/internal/apperror"
)

func TestClassifyKeeperError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: KeeperErrorDeadlineExceeded},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: KeeperErrorDBConflict},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: KeeperErrorDBConflict},
		{name: "unknown", err: errors.New("boom"), want: KeeperErrorUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyKeeperError(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIncChargeLabelsByKind(t *testing.T) {
	m := NewKeeperMetricsForTest(prometheus.NewRegistry())

	m.IncCharge(ChargeOutcomeCharged, nil)
	m.IncCharge(ChargeOutcomeFailed, apperror.New(apperror.KindPayment, "ERC20: insufficient allowance"))
	m.IncCharge(ChargeOutcomeFailed, apperror.New(apperror.KindPayment, "ERC20: transfer amount exceeds balance"))

	if got := testutil.ToFloat64(m.charges.WithLabelValues(ChargeOutcomeCharged, "none")); got != 1 {
		t.Fatalf("expected 1 charged, got %v", got)
	}
	if got := testutil.ToFloat64(m.charges.WithLabelValues(ChargeOutcomeFailed, "payment")); got != 2 {
		t.Fatalf("expected 2 payment failures, got %v", got)
	}
}
