package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/cmsplatform/gateway/pkg/logger"
	"github.com/cmsplatform/gateway/pkg/publicpath"
	"github.com/cmsplatform/gateway/pkg/ratelimit"
	"github.com/cmsplatform/gateway/pkg/services"
)

// Config is the complete gateway configuration.
type Config struct {
	// Address is the listen address of the HTTP server.
	Address string `env:"GATEWAY_ADDRESS,default=:8080"`

	// TopologyFile points to an optional YAML file describing route groups,
	// routes, rate-limit families, public paths and service addresses.
	TopologyFile string `env:"GATEWAY_CONFIG_FILE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// RequestTimeout bounds the whole request pipeline.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT,default=30s"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=30s"`

	// TrustProxyHeaders derives the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a trusted load balancer.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS,default=false"`

	Sentry     logger.SentryConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Auth       AuthConfig
	Downstream DownstreamConfig
	Services   ServiceAddrs

	// Topology is loaded from TopologyFile, falling back to DefaultTopology.
	Topology Topology
}

// RedisConfig configures the shared counter store.
type RedisConfig struct {
	// URL is a redis:// or rediss:// connection string. Empty selects the
	// in-memory counter store.
	URL      string `env:"REDIS_URL"`
	PoolSize int    `env:"REDIS_POOL_SIZE,default=10"`
}

// RateLimitConfig configures admission control.
type RateLimitConfig struct {
	Enabled      bool          `env:"RATE_LIMIT_ENABLED,default=true"`
	Window       time.Duration `env:"RATE_LIMIT_WINDOW,default=60s"`
	DefaultLimit int           `env:"RATE_LIMIT_DEFAULT,default=100"`
	AuthLimit    int           `env:"RATE_LIMIT_AUTH,default=20"`
	CheckTimeout time.Duration `env:"RATE_LIMIT_CHECK_TIMEOUT,default=250ms"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTIssuer   string        `env:"JWT_ISSUER"`
	JWTAudience string        `env:"JWT_AUDIENCE"`
	Leeway      time.Duration `env:"JWT_LEEWAY,default=30s"`
}

// DownstreamConfig configures the dispatch client.
type DownstreamConfig struct {
	Timeout            time.Duration `env:"DOWNSTREAM_TIMEOUT,default=10s"`
	BreakerMaxFailures int           `env:"BREAKER_MAX_FAILURES,default=5"`
	BreakerOpenTimeout time.Duration `env:"BREAKER_OPEN_TIMEOUT,default=30s"`
}

// ServiceAddrs binds each service type to a base address.
type ServiceAddrs struct {
	Auth         string `env:"AUTH_SERVICE_URL,default=http://localhost:8081"`
	User         string `env:"USER_SERVICE_URL,default=http://localhost:8082"`
	Content      string `env:"CONTENT_SERVICE_URL,default=http://localhost:8083"`
	Media        string `env:"MEDIA_SERVICE_URL,default=http://localhost:8084"`
	Analytics    string `env:"ANALYTICS_SERVICE_URL,default=http://localhost:8085"`
	Notification string `env:"NOTIFICATION_SERVICE_URL,default=http://localhost:8086"`
}

// Map returns the addresses keyed by service type.
func (s ServiceAddrs) Map() map[services.Type]string {
	return map[services.Type]string{
		services.Auth:         s.Auth,
		services.User:         s.User,
		services.Content:      s.Content,
		services.Media:        s.Media,
		services.Analytics:    s.Analytics,
		services.Notification: s.Notification,
	}
}

// Load reads an optional .env file, decodes the environment and applies the
// topology file if one is configured. The returned config is validated.
//
// Missing env files are ignored; any other read error is returned.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Join(ErrEnvFile, err)
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, errors.Join(ErrDecodeEnv, err)
	}

	cfg.Topology = DefaultTopology()
	if cfg.TopologyFile != "" {
		t, err := LoadTopology(cfg.TopologyFile)
		if err != nil {
			return nil, err
		}
		cfg.applyTopology(t)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyTopology overlays the file topology. Sections absent from the file
// keep their defaults; service addresses in the file replace env values.
func (c *Config) applyTopology(t *Topology) {
	if len(t.Groups) > 0 {
		c.Topology.Groups = t.Groups
	}
	if len(t.Routes) > 0 {
		c.Topology.Routes = t.Routes
	}
	if len(t.PublicPaths) > 0 {
		c.Topology.PublicPaths = t.PublicPaths
	}
	if len(t.RateLimitFamilies) > 0 {
		c.Topology.RateLimitFamilies = t.RateLimitFamilies
	}
	for name, addr := range t.Services {
		st, err := services.Parse(name)
		if err != nil || addr == "" {
			continue
		}
		switch st {
		case services.Auth:
			c.Services.Auth = addr
		case services.User:
			c.Services.User = addr
		case services.Content:
			c.Services.Content = addr
		case services.Media:
			c.Services.Media = addr
		case services.Analytics:
			c.Services.Analytics = addr
		case services.Notification:
			c.Services.Notification = addr
		}
	}
	c.Topology.Services = t.Services
}

// Validate reports every configuration error at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Address) == "" {
		errs = append(errs, fmt.Errorf("%w: empty listen address", ErrInvalidConfig))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, fmt.Errorf("%w: rate limit window must be positive", ErrInvalidConfig))
	}
	if c.RateLimit.DefaultLimit <= 0 || c.RateLimit.AuthLimit <= 0 {
		errs = append(errs, fmt.Errorf("%w: rate limits must be positive", ErrInvalidConfig))
	}
	for _, f := range c.Topology.RateLimitFamilies {
		if f.Limit <= 0 || !strings.HasPrefix(f.Prefix, "/") {
			errs = append(errs, fmt.Errorf("%w: rate limit family %q", ErrInvalidConfig, f.Prefix))
		}
	}
	if c.Downstream.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: downstream timeout must be positive", ErrInvalidConfig))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if _, err := services.NewDirectory(c.Services.Map()); err != nil {
		errs = append(errs, err)
	}
	for _, r := range c.Topology.Routes {
		if _, err := services.Parse(r.Service); err != nil {
			errs = append(errs, err)
		}
		if !strings.HasPrefix(r.Prefix, "/") {
			errs = append(errs, fmt.Errorf("%w: route prefix %q must start with /", ErrInvalidConfig, r.Prefix))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Directory builds the validated service directory.
func (c *Config) Directory() (*services.Directory, error) {
	return services.NewDirectory(c.Services.Map())
}

// PublicPaths builds the unified public path list.
func (c *Config) PublicPaths() publicpath.List {
	return publicpath.New(c.Topology.PublicPaths...)
}

// RateLimitFamilies returns the family budgets. The auth family takes its
// budget from RATE_LIMIT_AUTH unless the topology defines it explicitly.
func (c *Config) RateLimitFamilies() []ratelimit.Family {
	out := slices.Clone(c.Topology.RateLimitFamilies)
	hasAuth := slices.ContainsFunc(out, func(f ratelimit.Family) bool {
		return strings.TrimRight(f.Prefix, "/") == authFamilyPrefix
	})
	if !hasAuth {
		out = append(out, ratelimit.Family{Prefix: authFamilyPrefix, Limit: c.RateLimit.AuthLimit})
	}
	return out
}

// SlogLevel returns the parsed log level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	lvl, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLogLevel converts a level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
}
