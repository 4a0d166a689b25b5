package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cmsplatform/gateway/pkg/logger"
)

const (
	defaultTimeout = 3 * time.Second

	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Checks maps a dependency name to its probe.
type Checks map[string]CheckFunc

// Response is the readiness report.
type Response struct {
	Checks map[string]Check `json:"checks,omitempty"`
	Status string           `json:"status"`
}

// Check is the outcome of one probe.
type Check struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

type config struct {
	logger   *slog.Logger
	optional Checks
	timeout  time.Duration
}

// Option configures the readiness handler.
type Option func(*config)

// WithTimeout bounds the whole probe round. Default: 3s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger logs failing probes.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOptional adds probes whose failure degrades the report without making
// the gateway unready. Downstream services that have a fail-open fallback
// belong here.
func WithOptional(checks Checks) Option {
	return func(c *config) {
		for name, fn := range checks {
			c.optional[name] = fn
		}
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		timeout:  defaultTimeout,
		logger:   logger.NewNope(),
		optional: Checks{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Run executes every probe concurrently under one deadline.
func Run(ctx context.Context, required Checks, opts ...Option) *Response {
	return runChecks(ctx, required, newConfig(opts...))
}

func runChecks(ctx context.Context, required Checks, cfg *config) *Response {
	if len(required) == 0 && len(cfg.optional) == 0 {
		return &Response{Status: StatusHealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]Check, len(required)+len(cfg.optional))
	)

	g := &errgroup.Group{}
	probe := func(name string, fn CheckFunc, optional bool) {
		g.Go(func() error {
			res := Check{Status: StatusHealthy, Optional: optional}
			if err := fn(ctx); err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					err = errors.Join(ErrCheckTimeout, err)
				}
				res.Status = StatusUnhealthy
				res.Error = err.Error()
				cfg.logger.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.Bool("optional", optional),
					slog.String("error", err.Error()),
				)
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	for name, fn := range required {
		probe(name, fn, false)
	}
	for name, fn := range cfg.optional {
		if _, dup := required[name]; dup {
			continue
		}
		probe(name, fn, true)
	}
	_ = g.Wait()

	return &Response{Status: overall(results), Checks: results}
}

func overall(results map[string]Check) string {
	status := StatusHealthy
	for _, r := range results {
		if r.Status == StatusHealthy {
			continue
		}
		if !r.Optional {
			return StatusUnhealthy
		}
		status = StatusDegraded
	}
	return status
}
