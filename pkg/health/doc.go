// Package health serves the gateway's liveness and readiness probes.
//
// Liveness answers as long as the process runs. Readiness probes the
// dependencies in parallel: required checks (the Redis counter store, the
// authentication service) gate readiness, while optional checks (services
// with a fail-open fallback) only mark the report as degraded.
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(
//	    health.Checks{"redis": redis.Healthcheck(client)},
//	    health.WithOptional(health.Checks{"content": dispatcher.Healthcheck(services.Content)}),
//	))
//
// Append ?format=json or send Accept: application/json for a per-check report.
package health
