package callercontext

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smallbiznis/relaypay/internal/apperror"
)

// CallerContextKey is the request context key for the authenticated caller address.
type CallerContextKey struct{}

// WithCaller stores the authenticated caller in the context.
func WithCaller(ctx context.Context, caller common.Address) context.Context {
	return context.WithValue(ctx, CallerContextKey{}, caller)
}

// CallerFromContext returns the authenticated caller, if set.
func CallerFromContext(ctx context.Context) (common.Address, bool) {
	if ctx == nil {
		return common.Address{}, false
	}

	switch typed := ctx.Value(CallerContextKey{}).(type) {
	case common.Address:
		if typed == (common.Address{}) {
			return common.Address{}, false
		}
		return typed, true
	case string:
		raw := strings.TrimSpace(typed)
		if !common.IsHexAddress(raw) {
			return common.Address{}, false
		}
		return common.HexToAddress(raw), true
	}
	return common.Address{}, false
}

// ErrMissingCaller is returned when an entry point is reached without an authenticated caller.
var ErrMissingCaller = apperror.New(apperror.KindAuthorization, "caller address required")

// RequireCaller returns the authenticated caller or ErrMissingCaller.
func RequireCaller(ctx context.Context) (common.Address, error) {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return common.Address{}, ErrMissingCaller
	}
	return caller, nil
}
