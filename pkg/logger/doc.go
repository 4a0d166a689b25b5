// Package logger builds the gateway's structured loggers.
//
// Loggers write JSON through log/slog. Context extractors run on every
// record, so request-scoped values such as the request id or the caller's
// principal appear on each line without being passed around explicitly:
//
//	log := logger.NewWithOptions(logger.Options{Level: slog.LevelDebug},
//	    middlewares.RequestIDExtractor(),
//	    middlewares.PrincipalExtractor(),
//	)
//	log.InfoContext(r.Context(), "dispatched", slog.String("service", "content"))
//	// {"level":"INFO","msg":"dispatched","service":"content","request_id":"..."}
//
// [NewWithSentry] additionally forwards warnings and errors to Sentry and
// falls back to stdout only when no DSN is configured.
//
// [NewNope] returns a discarding logger used as the default everywhere a
// logger is optional.
package logger
