package middlewares

import (
	"time"

	"github.com/cmsplatform/gateway/internal"
	"github.com/cmsplatform/gateway/pkg/metrics"
)

// Metrics records in-flight requests, status and latency per route pattern.
// Requests that match no route are labelled "unmatched".
func Metrics(m *metrics.Metrics) internal.Middleware {
	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			done := m.RequestStarted()
			defer done()

			start := time.Now()
			err := next(c)

			status := c.ResponseWriter().Status()
			if err != nil && !c.Written() {
				status, _ = internal.TranslateError(err)
			}
			m.ObserveRequest(c.Request().Method, c.RoutePattern(), status, time.Since(start))

			return err
		}
	}
}
