package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/cmsplatform/gateway/pkg/logger"
	"github.com/cmsplatform/gateway/pkg/metrics"
	"github.com/cmsplatform/gateway/pkg/services"
)

// DefaultTimeout bounds a single downstream call.
const DefaultTimeout = 10 * time.Second

// hopHeaders are stripped before forwarding (RFC 9110, section 7.6.1).
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Client forwards requests to downstream services.
// It is safe for concurrent use.
type Client struct {
	dir      *services.Directory
	http     *http.Client
	logger   *slog.Logger
	metrics  *metrics.Metrics
	breakers map[services.Type]*gobreaker.CircuitBreaker
	breaker  BreakerConfig
	timeout  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is ignored
// in favour of the per-call deadline.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-call deadline. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreaker sets the circuit breaker configuration used for every service.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *Client) {
		c.breaker = cfg
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records call durations and breaker states.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a dispatch client over dir.
func New(dir *services.Directory, opts ...Option) *Client {
	c := &Client{
		dir:     dir,
		http:    &http.Client{},
		logger:  logger.NewNope(),
		breaker: DefaultBreakerConfig(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breakers = make(map[services.Type]*gobreaker.CircuitBreaker, len(services.All()))
	for _, st := range services.All() {
		c.breakers[st] = newBreaker(st, c.breaker, c.logger, c.metrics)
	}
	return c
}

// Resolve returns the base address bound to svc.
func (c *Client) Resolve(svc services.Type) (*url.URL, error) {
	if c.dir == nil {
		return nil, ErrNoDirectory
	}
	return c.dir.Resolve(svc)
}

// Dispatch forwards in to svc, replacing the path with remainder. remainder
// is in escaped form, so encoded characters such as %2F reach the service
// as the client sent them.
//
// Any response the service produces is returned unchanged, including 4xx and
// most 5xx replies. Transport failures, timeouts, an open breaker and
// 502/503/504 replies are returned as *DownstreamError. The caller must close
// the response body.
func (c *Client) Dispatch(ctx context.Context, svc services.Type, in *http.Request, remainder string) (*http.Response, error) {
	base, err := c.Resolve(svc)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)

	out, err := c.outbound(callCtx, base, in, remainder)
	if err != nil {
		cancel()
		return nil, errors.Join(ErrInvalidTarget, err)
	}

	start := time.Now()
	result, err := c.breakers[svc].Execute(func() (any, error) {
		resp, err := c.http.Do(out)
		if err != nil {
			return nil, err
		}
		if isGatewayStatus(resp.StatusCode) {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			_ = resp.Body.Close()
			return nil, &DownstreamError{Service: svc, Status: resp.StatusCode, Err: ErrBadGateway}
		}
		return resp, nil
	})
	elapsed := time.Since(start)

	if err != nil {
		cancel()
		de := classify(callCtx, svc, err)
		c.metrics.DownstreamCall(svc.String(), resultLabel(de), elapsed)
		c.logger.WarnContext(ctx, "downstream call failed",
			slog.String("service", svc.String()),
			slog.String("method", in.Method),
			slog.String("path", remainder),
			slog.Duration("elapsed", elapsed),
			slog.String("error", de.Error()),
		)
		return nil, de
	}

	resp := result.(*http.Response)
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	c.metrics.DownstreamCall(svc.String(), "ok", elapsed)
	return resp, nil
}

// BreakerState reports the breaker state for svc.
func (c *Client) BreakerState(svc services.Type) gobreaker.State {
	b, ok := c.breakers[svc]
	if !ok {
		return gobreaker.StateClosed
	}
	return b.State()
}

// Healthcheck returns a readiness probe that expects a 2xx from the
// service's /health endpoint.
func (c *Client) Healthcheck(svc services.Type) func(context.Context) error {
	return func(ctx context.Context) error {
		base, err := c.Resolve(svc)
		if err != nil {
			return errors.Join(ErrUnhealthy, err)
		}
		base.Path = singleJoin(base.Path, "/health")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
		if err != nil {
			return errors.Join(ErrUnhealthy, err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return errors.Join(ErrUnhealthy, err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("%w: %s returned %d", ErrUnhealthy, svc, resp.StatusCode)
		}
		return nil
	}
}

func (c *Client) outbound(ctx context.Context, base *url.URL, in *http.Request, remainder string) (*http.Request, error) {
	target := *base
	escaped := singleJoin(base.EscapedPath(), remainder)
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return nil, err
	}
	target.Path = path
	target.RawPath = escaped
	target.RawQuery = in.URL.RawQuery

	var body io.Reader
	if in.Body != nil && in.Body != http.NoBody && in.ContentLength != 0 {
		body = in.Body
	}

	out, err := http.NewRequestWithContext(ctx, in.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	out.ContentLength = in.ContentLength
	out.Header = in.Header.Clone()
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	RemoveHopHeaders(out.Header)
	setForwarded(out.Header, in)

	return out, nil
}

func classify(callCtx context.Context, svc services.Type, err error) *DownstreamError {
	if de, ok := AsDownstreamError(err); ok {
		return de
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &DownstreamError{Service: svc, Err: errors.Join(ErrCircuitOpen, err)}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &DownstreamError{Service: svc, Timeout: true, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &DownstreamError{Service: svc, Timeout: true, Err: err}
	}
	return &DownstreamError{Service: svc, Err: err}
}

func resultLabel(de *DownstreamError) string {
	switch {
	case de.Timeout:
		return "timeout"
	case errors.Is(de, ErrCircuitOpen):
		return "circuit_open"
	case de.Status != 0:
		return "bad_gateway"
	default:
		return "error"
	}
}

func isGatewayStatus(code int) bool {
	return code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

// RemoveHopHeaders deletes hop-by-hop headers, including any named by
// Connection.
func RemoveHopHeaders(h http.Header) {
	for _, v := range h.Values("Connection") {
		for f := range strings.SplitSeq(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				h.Del(f)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

func setForwarded(h http.Header, in *http.Request) {
	if ip, _, err := net.SplitHostPort(in.RemoteAddr); err == nil && ip != "" {
		if prior := h.Get("X-Forwarded-For"); prior != "" {
			ip = prior + ", " + ip
		}
		h.Set("X-Forwarded-For", ip)
	}
	if in.Host != "" {
		h.Set("X-Forwarded-Host", in.Host)
	}
	proto := "http"
	if in.TLS != nil {
		proto = "https"
	}
	h.Set("X-Forwarded-Proto", proto)
}

func singleJoin(a, b string) string {
	a = strings.TrimRight(a, "/")
	if b == "" || b == "/" {
		if a == "" {
			return "/"
		}
		return a + "/"
	}
	if !strings.HasPrefix(b, "/") {
		b = "/" + b
	}
	return a + b
}

// cancelOnClose releases the per-call context once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
