package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cmsplatform/gateway/pkg/health"
	"github.com/cmsplatform/gateway/pkg/logger"
)

// Default server timeouts. WriteTimeout leaves room for the request timeout
// and a slow downstream body.
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 60 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// App is the gateway's HTTP front. It owns the route registry and serves
// the route table built from it. Rebuild swaps in a fresh table without
// interrupting in-flight requests.
type App struct {
	handler         atomic.Pointer[http.Handler]
	registry        *Registry
	pipeline        *pipeline
	healthConfig    *healthConfig
	metricsHandler  http.Handler
	logger          *slog.Logger
	mountObserver   func(MountFailure)
	metricsPath     string
	middlewares     []Middleware
	httpMiddlewares []func(http.Handler) http.Handler
	groups          []RouteGroup
	registrars      []namedRegistrar
	report          atomic.Pointer[MountReport]
	rebuildMu       sync.Mutex
}

type namedRegistrar struct {
	registrar Registrar
	id        string
}

// New creates the gateway app, registers the configured groups and
// registrars, and builds the initial route table.
//
// Group or registrar registration errors are returned; mount failures are
// not, they are logged and available from Report.
//
// Example:
//
//	app, err := gateway.New(
//	    gateway.WithLogger(log),
//	    gateway.WithMiddleware(middlewares.RequestID(), middlewares.Recover()),
//	    gateway.WithRouteStages(middlewares.AuthGate(gate), middlewares.RateLimit(limiter)),
//	    gateway.WithGroups(groups...),
//	    gateway.WithRegistrar("content", proxy.New(services.Content, "/api/content", client, fb)),
//	)
func New(opts ...Option) (*App, error) {
	a := &App{
		logger:   logger.NewNope(),
		pipeline: &pipeline{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = NewRegistry(WithRegistryLogger(a.logger))
	}
	a.pipeline.logger = a.logger
	if a.pipeline.errorHandler == nil {
		a.pipeline.errorHandler = DefaultErrorHandler(a.logger)
	}

	var errs []error
	for _, g := range a.groups {
		if err := a.registry.RegisterGroup(g); err != nil {
			errs = append(errs, err)
		}
	}
	for _, nr := range a.registrars {
		if err := a.registry.RegisterRegistrar(nr.id, nr.registrar); err != nil {
			errs = append(errs, fmt.Errorf("registrar %q: %w", nr.id, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	a.Rebuild()
	return a, nil
}

// Registry returns the registry backing the route table. Changes take
// effect on the next Rebuild.
func (a *App) Registry() *Registry {
	return a.registry
}

// Report returns the result of the most recent build.
func (a *App) Report() MountReport {
	if r := a.report.Load(); r != nil {
		return *r
	}
	return MountReport{}
}

// Rebuild builds a new route table from the current registry snapshot and
// swaps it in atomically.
func (a *App) Rebuild() MountReport {
	a.rebuildMu.Lock()
	defer a.rebuildMu.Unlock()

	mux, report := a.build()
	var h http.Handler = mux
	a.handler.Store(&h)
	a.report.Store(&report)

	for _, f := range report.Failures {
		if a.mountObserver != nil {
			a.mountObserver(f)
		}
	}
	a.logger.Info("route table built",
		slog.Int("mounted", len(report.Mounted)),
		slog.Int("failed", len(report.Failures)),
	)
	return report
}

func (a *App) build() (chi.Router, MountReport) {
	mux := chi.NewRouter()
	p := a.pipeline

	// Not-found handlers must be set before sub-routers are mounted so they
	// inherit them.
	mux.NotFound(p.serve(notFoundHandler))
	mux.MethodNotAllowed(p.serve(methodNotAllowedHandler))

	for _, mw := range a.httpMiddlewares {
		mux.Use(mw)
	}
	for _, mw := range a.middlewares {
		mux.Use(p.adapt(mw))
	}

	if a.healthConfig != nil {
		mux.Get(a.healthConfig.livenessPath, health.LivenessHandler())
		mux.Get(a.healthConfig.readinessPath, health.ReadinessHandler(
			a.healthConfig.required,
			health.WithOptional(a.healthConfig.optional),
			health.WithLogger(a.logger),
		))
	}
	if a.metricsHandler != nil {
		mux.Method(http.MethodGet, a.metricsPath, a.metricsHandler)
	}

	report := a.registry.BuildRouteTable(newRouterAdapter(mux, p))
	return mux, report
}

// ServeHTTP serves the current route table.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := a.handler.Load()
	if h == nil {
		http.Error(w, ErrNotConfigured.Error(), http.StatusServiceUnavailable)
		return
	}
	(*h).ServeHTTP(w, r)
}

// Run starts the HTTP server and blocks until shutdown.
//
// Example:
//
//	err := app.Run(
//	    gateway.Address(cfg.Address),
//	    gateway.Logger(log),
//	    gateway.ShutdownHook(redis.Shutdown(client)),
//	)
func (a *App) Run(opts ...RunOption) error {
	cfg := buildRunConfig(opts...)
	if cfg.logger == nil {
		cfg.logger = a.logger
	}
	return runServer(runtimeConfig{
		handler:         a,
		address:         cfg.address,
		logger:          cfg.logger,
		shutdownTimeout: cfg.shutdownTimeout,
		startupHooks:    cfg.startupHooks,
		shutdownHooks:   cfg.shutdownHooks,
		baseCtx:         cfg.baseCtx,
		ready:           cfg.ready,
	})
}

// healthConfig holds health endpoint configuration.
type healthConfig struct {
	required      health.Checks
	optional      health.Checks
	livenessPath  string
	readinessPath string
}

const (
	defaultLivenessPath  = "/health"
	defaultReadinessPath = "/health/ready"
	defaultMetricsPath   = "/metrics"
)

// HealthOption configures the health endpoints.
type HealthOption func(*healthConfig)

// WithLivenessPath overrides the liveness path. Default: /health.
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath overrides the readiness path. Default: /health/ready.
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithReadinessCheck adds a probe whose failure makes the gateway unready.
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if fn != nil {
			c.required[name] = fn
		}
	}
}

// WithOptionalCheck adds a probe whose failure only degrades readiness.
func WithOptionalCheck(name string, fn health.CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if fn != nil {
			c.optional[name] = fn
		}
	}
}
