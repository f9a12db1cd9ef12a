package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/smallbiznis/relaypay/internal/apperror"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsAccountData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/v1/charges"),
		attribute.String("subscriber", "0xabc"),
		attribute.String("caller", "0xdef"),
	)

	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorKeepsDomainReasonOnly(t *testing.T) {
	wrapped := fmt.Errorf("charge 0xabc/3: %w", apperror.New(apperror.KindState, "time Interval not met"))

	assert.EqualError(t, SafeError(wrapped), "state: time Interval not met")
	assert.EqualError(t, SafeError(errors.New("dial tcp 10.0.0.1:5432")), "internal error")
	assert.NoError(t, SafeError(nil))
}
