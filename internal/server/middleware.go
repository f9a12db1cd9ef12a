package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/relaypay/internal/callercontext"
	obscontext "github.com/smallbiznis/relaypay/internal/observability/context"
	"github.com/smallbiznis/relaypay/pkg/evm"
)

const HeaderCaller = "X-Caller-Address"

// CallerAddress authenticates the caller from the X-Caller-Address header.
// Requests without the header continue anonymously; entry points that need a
// caller reject them.
func CallerAddress() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderCaller))
		if raw == "" {
			c.Next()
			return
		}

		caller, err := evm.ParseAddress(raw)
		if err != nil || evm.IsZero(caller) {
			AbortWithError(c, newValidationError("caller", "invalid_caller", "invalid caller address"))
			return
		}

		ctx := callercontext.WithCaller(c.Request.Context(), caller)
		ctx = obscontext.WithCaller(ctx, caller.Hex())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
