// Package fallback maps downstream failures to degraded responses.
//
// The authentication service fails closed: without it no identity can be
// established, so clients get a 503. Every other service fails open with a
// 200 and an empty data set, letting the frontend render partial pages.
package fallback

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmsplatform/gateway/pkg/logger"
	"github.com/cmsplatform/gateway/pkg/metrics"
	"github.com/cmsplatform/gateway/pkg/services"
)

// DegradedHeader names the service whose fallback produced the response.
const DegradedHeader = "X-Gateway-Degraded"

// Policy is the fixed response served when a service is unavailable.
type Policy struct {
	Body       any
	StatusCode int
}

// ErrorBody is the fail-closed response body.
type ErrorBody struct {
	Error string `json:"error"`
}

// DegradedBody is the fail-open response body.
type DegradedBody struct {
	Warning string `json:"warning"`
	Data    []any  `json:"data"`
}

// PolicyFor returns the policy bound to svc. Unknown types get the fail-open
// policy; the directory rejects them at startup, so this is never reached
// for a routed request.
func PolicyFor(svc services.Type) Policy {
	if svc == services.Auth {
		return Policy{
			StatusCode: http.StatusServiceUnavailable,
			Body:       ErrorBody{Error: "authentication service unavailable"},
		}
	}
	return Policy{
		StatusCode: http.StatusOK,
		Body: DegradedBody{
			Warning: svc.String() + " unavailable, showing cached/empty data",
			Data:    []any{},
		},
	}
}

// Handler writes fallback responses.
type Handler struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics counts served fallbacks.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// New creates a fallback handler.
func New(opts ...Option) *Handler {
	h := &Handler{logger: logger.NewNope()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle writes the fallback response for svc. cause is logged, never
// exposed to the client.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request, svc services.Type, cause error) error {
	p := PolicyFor(svc)

	attrs := []any{slog.String("service", svc.String()), slog.Int("status", p.StatusCode)}
	if cause != nil {
		attrs = append(attrs, slog.String("cause", cause.Error()))
	}
	h.logger.WarnContext(r.Context(), "serving fallback response", attrs...)
	h.metrics.Fallback(svc.String())

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set(DegradedHeader, svc.String())
	w.WriteHeader(p.StatusCode)
	return json.NewEncoder(w).Encode(p.Body)
}
