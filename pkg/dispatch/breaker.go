package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/cmsplatform/gateway/pkg/metrics"
	"github.com/cmsplatform/gateway/pkg/services"
)

// BreakerConfig controls the per-service circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures int
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probe requests allowed while half-open.
	HalfOpenRequests int
}

// DefaultBreakerConfig returns the breaker settings used when none are given.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:      5,
		OpenTimeout:      30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// Validate checks the configuration for usable values.
func (c BreakerConfig) Validate() error {
	if c.MaxFailures <= 0 {
		return fmt.Errorf("dispatch: breaker max failures must be positive, got %d", c.MaxFailures)
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("dispatch: breaker open timeout must be positive, got %v", c.OpenTimeout)
	}
	if c.HalfOpenRequests <= 0 {
		return fmt.Errorf("dispatch: breaker half-open requests must be positive, got %d", c.HalfOpenRequests)
	}
	return nil
}

func newBreaker(svc services.Type, cfg BreakerConfig, log *slog.Logger, m *metrics.Metrics) *gobreaker.CircuitBreaker {
	if err := cfg.Validate(); err != nil {
		log.Warn("invalid circuit breaker config, using defaults",
			slog.String("service", svc.String()),
			slog.String("error", err.Error()),
		)
		cfg = DefaultBreakerConfig()
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        svc.String(),
		MaxRequests: uint32(cfg.HalfOpenRequests),
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("service", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			m.BreakerState(name, breakerGauge(to))
		},
		IsSuccessful: func(err error) bool {
			// The caller going away says nothing about downstream health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

func breakerGauge(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
