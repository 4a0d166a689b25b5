package gateway

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cmsplatform/gateway/internal"
	"github.com/cmsplatform/gateway/pkg/health"
	"github.com/cmsplatform/gateway/pkg/logger"
)

// Type aliases - public API
type (
	// App owns the route table and the HTTP server lifecycle.
	App = internal.App

	// Router is the interface registrars use to declare routes.
	Router = internal.Router

	// Context provides request/response access and helper methods.
	Context = internal.Context

	// HandlerFunc is the signature for route handlers.
	HandlerFunc = internal.HandlerFunc

	// Middleware wraps a HandlerFunc.
	Middleware = internal.Middleware

	// ErrorHandler handles errors returned from handlers and stages.
	ErrorHandler = internal.ErrorHandler

	// Registrar contributes routes under a path prefix.
	Registrar = internal.Registrar

	// RouteGroup is a named path prefix nested under an optional parent.
	RouteGroup = internal.RouteGroup

	// Registry holds route groups and registrars.
	Registry = internal.Registry

	// MountReport lists what BuildRouteTable mounted and what failed.
	MountReport = internal.MountReport

	// MountFailure describes one registrar that could not be mounted.
	MountFailure = internal.MountFailure

	// Option configures the application.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// HealthOption configures health endpoints.
	HealthOption = internal.HealthOption

	// ContextExtractor pulls a slog attribute from a request context.
	ContextExtractor = logger.ContextExtractor

	// HTTPError is an error with an HTTP status and optional error code.
	HTTPError = internal.HTTPError

	// ErrorBody is the JSON body of every translated error.
	ErrorBody = internal.ErrorBody

	// HTTPErrorOption configures an HTTPError.
	HTTPErrorOption = internal.HTTPErrorOption

	// RegistryOption configures a Registry.
	RegistryOption = internal.RegistryOption

	// ResponseWriter records the status and size of the response.
	ResponseWriter = internal.ResponseWriter
)

// New builds the application and its first route table. Invalid groups or
// registrars are returned as errors; registrars that fail while mounting are
// skipped and reported by App.Report.
//
//	app, err := gateway.New(
//	    gateway.WithLogger(log),
//	    gateway.WithGroups(gateway.RouteGroup{Name: "api", Prefix: "/api"}),
//	    gateway.WithRegistrar("content", proxy.New(services.Content, "/api/content", client, fb)),
//	)
//	if err != nil {
//	    return err
//	}
//	return app.Run(gateway.Address(":8080"))
func New(opts ...Option) (*App, error) {
	return internal.New(opts...)
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	return internal.NewRegistry(opts...)
}

// NewRegistrar adapts a function to the Registrar interface.
func NewRegistrar(prefix string, fn func(r Router) error) Registrar {
	return internal.NewRegistrar(prefix, fn)
}

// App options

// WithLogger sets the application logger.
func WithLogger(l *slog.Logger) Option {
	return internal.WithLogger(l)
}

// WithMiddleware adds global middleware. It runs for every request, before
// route resolution, in the order provided.
func WithMiddleware(mw ...Middleware) Option {
	return internal.WithMiddleware(mw...)
}

// WithHTTPMiddleware adds plain net/http middleware ahead of everything else.
func WithHTTPMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return internal.WithHTTPMiddleware(mw...)
}

// WithRouteStages adds stages that run only on resolved routes.
func WithRouteStages(mw ...Middleware) Option {
	return internal.WithRouteStages(mw...)
}

// WithErrorHandler replaces the default error translator.
func WithErrorHandler(h ErrorHandler) Option {
	return internal.WithErrorHandler(h)
}

// WithRegistry uses an existing registry instead of a fresh one.
func WithRegistry(r *Registry) Option {
	return internal.WithRegistry(r)
}

// WithGroups registers route groups in order. A parent must be registered
// before its children.
func WithGroups(groups ...RouteGroup) Option {
	return internal.WithGroups(groups...)
}

// WithRegistrar registers a registrar under id.
func WithRegistrar(id string, r Registrar) Option {
	return internal.WithRegistrar(id, r)
}

// WithHealthChecks enables /health and /health/ready.
//
//	gateway.WithHealthChecks(
//	    gateway.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	    gateway.WithOptionalCheck("content", client.Healthcheck(services.Content)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// WithMetricsHandler mounts a metrics exposition handler at path.
func WithMetricsHandler(path string, h http.Handler) Option {
	return internal.WithMetricsHandler(path, h)
}

// WithMountObserver is called for every registrar that fails to mount.
func WithMountObserver(fn func(MountFailure)) Option {
	return internal.WithMountObserver(fn)
}

// Health options

func WithLivenessPath(path string) HealthOption {
	return internal.WithLivenessPath(path)
}

func WithReadinessPath(path string) HealthOption {
	return internal.WithReadinessPath(path)
}

// WithReadinessCheck adds a check whose failure makes the gateway unready.
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// WithOptionalCheck adds a check whose failure only degrades readiness.
func WithOptionalCheck(name string, fn health.CheckFunc) HealthOption {
	return internal.WithOptionalCheck(name, fn)
}

// Run options

// Address sets the listen address. Default: ":8080".
func Address(addr string) RunOption {
	return internal.Address(addr)
}

// Logger sets the runtime logger.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout bounds graceful shutdown. Default: 30s.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// StartupHook runs after the listener is bound and before serving.
func StartupHook(fn func(context.Context) error) RunOption {
	return internal.StartupHook(fn)
}

// ShutdownHook runs after the server stopped accepting requests.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// WithContext sets the base context; cancelling it stops the server.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// OnReady is called with the bound address once the server accepts requests.
func OnReady(fn func(net.Addr)) RunOption {
	return internal.OnReady(fn)
}

// Helpers

// ContextValue returns the value stored under key, or the zero value of T.
func ContextValue[T any](c Context, key any) T {
	return internal.ContextValue[T](c, key)
}

// TranslateError maps an error to its status code and body.
func TranslateError(err error) (int, ErrorBody) {
	return internal.TranslateError(err)
}

// DefaultErrorHandler is the translator installed by New.
func DefaultErrorHandler(log *slog.Logger) ErrorHandler {
	return internal.DefaultErrorHandler(log)
}

// Errors
var (
	ErrRouteNotFound    = internal.ErrRouteNotFound
	ErrMethodNotAllowed = internal.ErrMethodNotAllowed
	ErrNotConfigured    = internal.ErrNotConfigured
	ErrInvalidGroup     = internal.ErrInvalidGroup
	ErrInvalidParent    = internal.ErrInvalidParent
	ErrCycleDetected    = internal.ErrCycleDetected
	ErrGroupInUse       = internal.ErrGroupInUse
	ErrInvalidRegistrar = internal.ErrInvalidRegistrar
	ErrMountFailed      = internal.ErrMountFailed
	ErrTimeout          = internal.ErrTimeout
)

// NewHTTPError creates an HTTP error.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.NewHTTPError(code, message, opts...)
}

// WithErrorCode sets the machine-readable error code.
func WithErrorCode(code string) HTTPErrorOption {
	return internal.WithErrorCode(code)
}
