// Command gateway runs the CMS platform edge gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cmsplatform/gateway"
	"github.com/cmsplatform/gateway/middlewares"
	"github.com/cmsplatform/gateway/pkg/authgate"
	"github.com/cmsplatform/gateway/pkg/config"
	"github.com/cmsplatform/gateway/pkg/dispatch"
	"github.com/cmsplatform/gateway/pkg/fallback"
	"github.com/cmsplatform/gateway/pkg/logger"
	"github.com/cmsplatform/gateway/pkg/metrics"
	"github.com/cmsplatform/gateway/pkg/ratelimit"
	"github.com/cmsplatform/gateway/pkg/redis"
	"github.com/cmsplatform/gateway/pkg/services"
	"github.com/cmsplatform/gateway/pkg/token"
	"github.com/cmsplatform/gateway/proxy"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gateway: invalid configuration: %v\n", err)
		os.Exit(2)
	}

	log := logger.NewWithSentry(cfg.Sentry,
		logger.Options{Output: os.Stdout, Level: cfg.SlogLevel()},
		middlewares.RequestIDExtractor(),
		middlewares.PrincipalExtractor(),
	)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("gateway stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deps, err := newDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}

	app, err := newApp(cfg, log, deps)
	if err != nil {
		return err
	}

	opts := []gateway.RunOption{
		gateway.Address(cfg.Address),
		gateway.Logger(log),
		gateway.ShutdownTimeout(cfg.ShutdownTimeout),
		gateway.WithContext(ctx),
	}
	if deps.redis != nil {
		opts = append(opts, gateway.ShutdownHook(redis.Shutdown(deps.redis)))
	}
	opts = append(opts, gateway.ShutdownHook(logger.FlushSentry()))

	return app.Run(opts...)
}

// dependencies are the long-lived collaborators of the request pipeline.
type dependencies struct {
	redis    goredis.UniversalClient
	store    ratelimit.CounterStore
	metrics  *metrics.Metrics
	verifier *token.Verifier
	client   *dispatch.Client
	fallback *fallback.Handler
}

func newDependencies(ctx context.Context, cfg *config.Config, log *slog.Logger) (*dependencies, error) {
	deps := &dependencies{metrics: metrics.New()}

	if cfg.Redis.URL != "" {
		client, err := redis.Open(ctx, cfg.Redis.URL,
			redis.WithPoolSize(cfg.Redis.PoolSize),
			redis.WithLogger(log.With("component", "redis")),
		)
		if err != nil {
			return nil, err
		}
		deps.redis = client
		deps.store = ratelimit.NewRedisStore(client)
	} else {
		log.Warn("REDIS_URL is empty, rate limit counters are local to this instance")
		mem := ratelimit.NewMemoryStore()
		go mem.RunJanitor(ctx, cfg.RateLimit.Window)
		deps.store = mem
	}

	verifier, err := token.NewVerifier(cfg.Auth.JWTSecret,
		token.WithIssuer(cfg.Auth.JWTIssuer),
		token.WithAudience(cfg.Auth.JWTAudience),
		token.WithLeeway(cfg.Auth.Leeway),
	)
	if err != nil {
		return nil, err
	}
	deps.verifier = verifier

	dir, err := cfg.Directory()
	if err != nil {
		return nil, err
	}
	deps.client = dispatch.New(dir,
		dispatch.WithTimeout(cfg.Downstream.Timeout),
		dispatch.WithBreaker(dispatch.BreakerConfig{
			MaxFailures:      cfg.Downstream.BreakerMaxFailures,
			OpenTimeout:      cfg.Downstream.BreakerOpenTimeout,
			HalfOpenRequests: 1,
		}),
		dispatch.WithLogger(log.With("component", "dispatch")),
		dispatch.WithMetrics(deps.metrics),
	)
	deps.fallback = fallback.New(
		fallback.WithLogger(log.With("component", "fallback")),
		fallback.WithMetrics(deps.metrics),
	)

	return deps, nil
}

func newApp(cfg *config.Config, log *slog.Logger, deps *dependencies) (*gateway.App, error) {
	public := cfg.PublicPaths()

	global := []gateway.Middleware{
		middlewares.CORS(),
		middlewares.RequestID(),
		middlewares.Metrics(deps.metrics),
		middlewares.Recover(),
		middlewares.Timeout(cfg.RequestTimeout),
		middlewares.Authenticate(deps.verifier),
	}

	stages := []gateway.Middleware{
		middlewares.AuthGate(authgate.New(public), middlewares.WithStageMetrics(deps.metrics)),
	}
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(deps.store,
			ratelimit.WithWindow(cfg.RateLimit.Window),
			ratelimit.WithDefaultLimit(cfg.RateLimit.DefaultLimit),
			ratelimit.WithFamilies(cfg.RateLimitFamilies()...),
			ratelimit.WithPublicPaths(public),
			ratelimit.WithCheckTimeout(cfg.RateLimit.CheckTimeout),
			ratelimit.WithLogger(log.With("component", "ratelimit")),
		)
		stages = append(stages, middlewares.RateLimit(limiter, middlewares.WithStageMetrics(deps.metrics)))
	}

	opts := []gateway.Option{
		gateway.WithLogger(log),
		gateway.WithMiddleware(global...),
		gateway.WithRouteStages(stages...),
		gateway.WithMetricsHandler("/metrics", deps.metrics.Handler()),
		gateway.WithHealthChecks(healthChecks(deps)...),
		gateway.WithMountObserver(func(gateway.MountFailure) { deps.metrics.MountFailed() }),
	}
	if cfg.TrustProxyHeaders {
		opts = append(opts, gateway.WithHTTPMiddleware(middleware.RealIP))
	}

	groups := make([]gateway.RouteGroup, 0, len(cfg.Topology.Groups))
	for _, g := range cfg.Topology.Groups {
		groups = append(groups, gateway.RouteGroup{Name: g.Name, Prefix: g.Prefix, Parent: g.Parent, Tags: g.Tags})
	}
	opts = append(opts, gateway.WithGroups(groups...))

	for _, r := range cfg.Topology.Routes {
		svc, err := services.Parse(r.Service)
		if err != nil {
			return nil, err
		}
		id := svc.String() + "@" + r.Prefix
		opts = append(opts, gateway.WithRegistrar(id, proxy.New(svc, r.Prefix, deps.client, deps.fallback)))
	}

	return gateway.New(opts...)
}

// healthChecks makes Redis and the auth service required for readiness.
// The other services fail open, so they only degrade it.
func healthChecks(deps *dependencies) []gateway.HealthOption {
	var opts []gateway.HealthOption
	if deps.redis != nil {
		opts = append(opts, gateway.WithReadinessCheck("redis", redis.Healthcheck(deps.redis)))
	}
	for _, svc := range services.All() {
		if svc == services.Auth {
			opts = append(opts, gateway.WithReadinessCheck(svc.String(), deps.client.Healthcheck(svc)))
			continue
		}
		opts = append(opts, gateway.WithOptionalCheck(svc.String(), deps.client.Healthcheck(svc)))
	}
	return opts
}
