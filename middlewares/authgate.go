package middlewares

import (
	"github.com/cmsplatform/gateway/internal"
	"github.com/cmsplatform/gateway/pkg/authgate"
	"github.com/cmsplatform/gateway/pkg/metrics"
)

// StageOption configures the AuthGate and RateLimit stages.
type StageOption func(*stageConfig)

type stageConfig struct {
	metrics *metrics.Metrics
}

// WithStageMetrics records stage outcomes.
func WithStageMetrics(m *metrics.Metrics) StageOption {
	return func(cfg *stageConfig) {
		cfg.metrics = m
	}
}

func newStageConfig(opts []StageOption) *stageConfig {
	cfg := &stageConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// AuthGate rejects requests to protected paths that carry no principal.
// The rejection is a *internal.SecurityError, answered with 401.
func AuthGate(gate *authgate.Gate, opts ...StageOption) internal.Middleware {
	cfg := newStageConfig(opts)

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			path := c.Request().URL.Path
			if gate.Authorize(path, authgate.PrincipalFrom(c.Context())) == authgate.Reject {
				cfg.metrics.AuthRejected()
				return internal.NewSecurityError("authentication required", nil)
			}
			return next(c)
		}
	}
}
