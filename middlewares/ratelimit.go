package middlewares

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/cmsplatform/gateway/internal"
	"github.com/cmsplatform/gateway/pkg/ratelimit"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRetryAfter         = "Retry-After"
)

// RateLimit admits or denies the request by client address and path family.
// Denials return a 429 *internal.HTTPError with Retry-After set. Store
// failures are admitted by the limiter.
//
// The client address is taken from RemoteAddr; install chi's RealIP ahead of
// the router to honour proxy headers.
func RateLimit(limiter *ratelimit.Limiter, opts ...StageOption) internal.Middleware {
	cfg := newStageConfig(opts)

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			r := c.Request()
			d := limiter.Admit(c.Context(), clientAddress(r), r.URL.Path)

			switch {
			case d.Bypassed:
				cfg.metrics.Admission("bypassed")
				return next(c)
			case d.Err != nil:
				cfg.metrics.Admission("error")
				return next(c)
			}

			c.SetHeader(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
			c.SetHeader(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))

			if !d.Allowed() {
				cfg.metrics.Admission("denied")
				c.SetHeader(HeaderRetryAfter, strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
				c.LogInfo("rate limit exceeded", "key", d.Key, "limit", d.Limit)
				return internal.ErrTooManyRequests("rate limit exceeded", internal.WithErrorCode("rate_limited"))
			}

			cfg.metrics.Admission("allowed")
			return next(c)
		}
	}
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
