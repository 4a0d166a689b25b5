// Package redis opens the shared Redis connection that backs the admission
// counters.
//
// [Open] validates the URL, applies pool and timeout options, and pings the
// server with linear backoff so the gateway can start alongside Redis:
//
//	client, err := redis.Open(ctx, cfg.Redis.URL,
//	    redis.WithPoolSize(cfg.Redis.PoolSize),
//	    redis.WithLogger(log),
//	)
//
// [Healthcheck] feeds the readiness endpoint and [Shutdown] closes the client
// from a shutdown hook.
package redis
