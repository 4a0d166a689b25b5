// Package dispatch forwards gateway requests to downstream services.
//
// Each call gets its own deadline derived from the caller's context, so a
// client that disconnects also cancels the downstream call. Every service has
// its own circuit breaker ([github.com/sony/gobreaker]): after a run of
// consecutive failures the breaker opens and calls fail fast until the open
// timeout elapses.
//
// A failed call is reported as a [*DownstreamError]. Responses the service
// did produce, including 4xx and most 5xx replies, pass through unchanged;
// only 502, 503 and 504 are treated as the service being unavailable.
//
//	client := dispatch.New(dir,
//	    dispatch.WithTimeout(10*time.Second),
//	    dispatch.WithBreaker(dispatch.DefaultBreakerConfig()),
//	)
//	resp, err := client.Dispatch(ctx, services.Content, r, "/articles/42")
//	if dispatch.IsDownstreamError(err) {
//	    // apply the fallback policy
//	}
package dispatch
