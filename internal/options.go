package internal

import (
	"log/slog"
	"net/http"

	"github.com/cmsplatform/gateway/pkg/health"
)

// Option configures the App.
type Option func(*App)

// WithLogger sets the app logger. Components derive from it.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMiddleware adds global middleware. It runs for every request,
// including unmatched ones, in the order given.
func WithMiddleware(mw ...Middleware) Option {
	return func(a *App) {
		a.middlewares = append(a.middlewares, mw...)
	}
}

// WithHTTPMiddleware adds global middleware in net/http form, ahead of
// the Middleware chain.
func WithHTTPMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(a *App) {
		a.httpMiddlewares = append(a.httpMiddlewares, mw...)
	}
}

// WithRouteStages adds middleware that runs only once a registrar route has
// matched, in the order given. Unmatched paths never reach a stage.
func WithRouteStages(mw ...Middleware) Option {
	return func(a *App) {
		a.pipeline.stages = append(a.pipeline.stages, mw...)
	}
}

// WithErrorHandler replaces DefaultErrorHandler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(a *App) {
		if h != nil {
			a.pipeline.errorHandler = h
		}
	}
}

// WithRegistry uses an existing registry instead of a new one.
func WithRegistry(r *Registry) Option {
	return func(a *App) {
		if r != nil {
			a.registry = r
		}
	}
}

// WithGroups registers route groups in order. A parent must precede its
// children.
func WithGroups(groups ...RouteGroup) Option {
	return func(a *App) {
		a.groups = append(a.groups, groups...)
	}
}

// WithRegistrar registers a registrar under id.
func WithRegistrar(id string, r Registrar) Option {
	return func(a *App) {
		a.registrars = append(a.registrars, namedRegistrar{id: id, registrar: r})
	}
}

// WithHealthChecks mounts liveness and readiness endpoints.
func WithHealthChecks(opts ...HealthOption) Option {
	return func(a *App) {
		cfg := &healthConfig{
			livenessPath:  defaultLivenessPath,
			readinessPath: defaultReadinessPath,
			required:      health.Checks{},
			optional:      health.Checks{},
		}
		for _, opt := range opts {
			opt(cfg)
		}
		a.healthConfig = cfg
	}
}

// WithMetricsHandler serves h at path. An empty path means /metrics.
func WithMetricsHandler(path string, h http.Handler) Option {
	return func(a *App) {
		if path == "" {
			path = defaultMetricsPath
		}
		a.metricsPath = path
		a.metricsHandler = h
	}
}

// WithMountObserver is called once per mount failure on every build.
func WithMountObserver(fn func(MountFailure)) Option {
	return func(a *App) {
		a.mountObserver = fn
	}
}
