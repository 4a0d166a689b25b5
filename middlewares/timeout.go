package middlewares

import (
	"context"
	"errors"
	"time"

	"github.com/cmsplatform/gateway/internal"
)

// DefaultTimeout bounds the whole pipeline of one request.
const DefaultTimeout = 30 * time.Second

// Timeout puts a deadline on the request context. Every later stage,
// including the downstream call, sees it. A stage that fails after the
// deadline passed is reported as a *TimeoutError.
//
// Handlers run on the request goroutine; they must honour ctx.Done().
func Timeout(timeout time.Duration) internal.Middleware {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			ctx, cancel := context.WithTimeout(c.Context(), timeout)
			defer cancel()
			c.SetContext(ctx)

			err := next(c)
			if err == nil {
				return nil
			}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !IsTimeoutError(err) {
				c.LogWarn("request timeout", "timeout", timeout.String())
				return errors.Join(&TimeoutError{Timeout: timeout}, err)
			}
			return err
		}
	}
}
