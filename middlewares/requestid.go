package middlewares

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cmsplatform/gateway/internal"
	"github.com/cmsplatform/gateway/pkg/logger"
)

// RequestIDHeader carries the request id to clients and downstream services.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// maxRequestIDLength caps ids accepted from clients.
const maxRequestIDLength = 128

// DefaultRequestIDHeaders are checked in order for an id set by an upstream
// proxy.
var DefaultRequestIDHeaders = []string{RequestIDHeader, "X-Correlation-ID"}

type requestIDConfig struct {
	generator func() string
	headers   []string
}

// RequestIDOption configures RequestID.
type RequestIDOption func(*requestIDConfig)

// WithRequestIDHeaders replaces the headers checked for an incoming id.
func WithRequestIDHeaders(headers ...string) RequestIDOption {
	return func(cfg *requestIDConfig) {
		cfg.headers = headers
	}
}

// WithRequestIDGenerator replaces the UUID generator.
func WithRequestIDGenerator(gen func() string) RequestIDOption {
	return func(cfg *requestIDConfig) {
		if gen != nil {
			cfg.generator = gen
		}
	}
}

// RequestID reuses an incoming id or generates a UUID. The id is stored in
// the request context, echoed in the response and set on the inbound
// request headers so dispatch forwards it downstream.
func RequestID(opts ...RequestIDOption) internal.Middleware {
	cfg := &requestIDConfig{
		headers:   DefaultRequestIDHeaders,
		generator: uuid.NewString,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			var id string
			for _, h := range cfg.headers {
				if v := c.Header(h); v != "" && len(v) <= maxRequestIDLength {
					id = v
					break
				}
			}
			if id == "" {
				id = cfg.generator()
			}

			c.Set(requestIDKey{}, id)
			c.Request().Header.Set(RequestIDHeader, id)
			c.SetHeader(RequestIDHeader, id)

			return next(c)
		}
	}
}

// GetRequestID returns the request id, or "" outside RequestID.
func GetRequestID(c internal.Context) string {
	return RequestIDFromContext(c.Context())
}

// RequestIDFromContext returns the request id stored in ctx.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// RequestIDExtractor adds "request_id" to log records.
func RequestIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v := RequestIDFromContext(ctx); v != "" {
			return slog.String("request_id", v), true
		}
		return slog.Attr{}, false
	}
}
