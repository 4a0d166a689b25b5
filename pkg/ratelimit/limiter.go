package ratelimit

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cmsplatform/gateway/pkg/logger"
	"github.com/cmsplatform/gateway/pkg/publicpath"
)

// Defaults applied by New.
const (
	DefaultWindow       = time.Minute
	DefaultLimit        = 100
	DefaultAuthLimit    = 20
	DefaultCheckTimeout = 250 * time.Millisecond
)

// Outcome is the result of an admission check.
type Outcome int

const (
	Allowed Outcome = iota
	Denied
)

func (o Outcome) String() string {
	if o == Denied {
		return "denied"
	}
	return "allowed"
}

// Decision describes what the limiter decided for one request.
//
// Err is set when the counter store failed and the request was admitted
// anyway. Bypassed is set for public paths, which never touch the store.
type Decision struct {
	Err        error
	Key        string
	Outcome    Outcome
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	Bypassed   bool
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == Allowed
}

// Family assigns a request budget to every path under Prefix.
type Family struct {
	Prefix string `yaml:"prefix"`
	Limit  int    `yaml:"limit"`
}

// DefaultFamilies returns the built-in per-family budgets.
func DefaultFamilies() []Family {
	return []Family{{Prefix: "/api/auth", Limit: DefaultAuthLimit}}
}

// Limiter performs fixed-window admission control against a CounterStore.
// It is safe for concurrent use.
type Limiter struct {
	store        CounterStore
	logger       *slog.Logger
	public       publicpath.List
	families     []Family
	window       time.Duration
	checkTimeout time.Duration
	defaultLimit int
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWindow sets the counting window. Default: 60s.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithDefaultLimit sets the budget for paths outside every family. Default: 100.
func WithDefaultLimit(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.defaultLimit = n
		}
	}
}

// WithFamilies replaces the per-family budgets. The longest matching prefix wins.
func WithFamilies(families ...Family) Option {
	return func(l *Limiter) {
		l.families = families
	}
}

// WithPublicPaths sets the paths that bypass admission control.
func WithPublicPaths(list publicpath.List) Option {
	return func(l *Limiter) {
		l.public = list
	}
}

// WithCheckTimeout bounds a single store round-trip. Default: 250ms.
func WithCheckTimeout(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.checkTimeout = d
		}
	}
}

// WithLogger sets the logger used to report store failures.
func WithLogger(log *slog.Logger) Option {
	return func(l *Limiter) {
		if log != nil {
			l.logger = log
		}
	}
}

// New creates a Limiter backed by store.
func New(store CounterStore, opts ...Option) *Limiter {
	l := &Limiter{
		store:        store,
		logger:       logger.NewNope(),
		public:       publicpath.New(publicpath.Defaults()...),
		families:     DefaultFamilies(),
		window:       DefaultWindow,
		checkTimeout: DefaultCheckTimeout,
		defaultLimit: DefaultLimit,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.families = normalizeFamilies(l.families)
	return l
}

// Window returns the configured counting window.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// LimitFor returns the budget that applies to path.
func (l *Limiter) LimitFor(path string) int {
	for _, f := range l.families {
		if underPrefix(path, f.Prefix) {
			return f.Limit
		}
	}
	return l.defaultLimit
}

// Admit decides whether the request from client for path may proceed.
//
// Store failures never deny a request: the decision is Allowed with Err set.
func (l *Limiter) Admit(ctx context.Context, client, path string) Decision {
	if l.public.Match(path) {
		return Decision{Outcome: Allowed, Bypassed: true}
	}

	limit := l.LimitFor(path)
	key := Key(client, path)
	d := Decision{Outcome: Allowed, Key: key, Limit: limit, Remaining: limit}

	if l.store == nil {
		d.Err = ErrNoStore
		return d
	}

	checkCtx, cancel := context.WithTimeout(ctx, l.checkTimeout)
	defer cancel()

	count, err := l.store.Increment(checkCtx, key, l.window)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(checkCtx.Err(), context.DeadlineExceeded) {
			err = errors.Join(ErrCheckTimeout, err)
		}
		l.logger.WarnContext(ctx, "rate limit check failed, admitting request",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		d.Err = err
		return d
	}

	if count > int64(limit) {
		d.Outcome = Denied
		d.Remaining = 0
		d.RetryAfter = l.retryAfter(checkCtx, key)
		return d
	}

	d.Remaining = limit - int(count)
	return d
}

func (l *Limiter) retryAfter(ctx context.Context, key string) time.Duration {
	r, ok := l.store.(TTLReader)
	if !ok {
		return l.window
	}
	ttl, err := r.TTL(ctx, key)
	if err != nil || ttl <= 0 {
		return l.window
	}
	return ttl
}

// Key builds the counter key for a client and path: the client address and
// the first three path segments, so "/api/content/articles/42" and
// "/api/content/articles/43" share a budget.
func Key(client, path string) string {
	return client + ":" + firstSegments(path, 3)
}

func firstSegments(path string, n int) string {
	parts := make([]string, 0, n)
	for seg := range strings.SplitSeq(path, "/") {
		if seg == "" {
			continue
		}
		parts = append(parts, seg)
		if len(parts) == n {
			break
		}
	}
	return "/" + strings.Join(parts, "/")
}

func underPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func normalizeFamilies(in []Family) []Family {
	out := make([]Family, 0, len(in))
	for _, f := range in {
		if f.Limit <= 0 || f.Prefix == "" {
			continue
		}
		f.Prefix = "/" + strings.Trim(f.Prefix, "/")
		out = append(out, f)
	}
	slices.SortStableFunc(out, func(a, b Family) int {
		return cmp.Compare(len(b.Prefix), len(a.Prefix))
	})
	return out
}
