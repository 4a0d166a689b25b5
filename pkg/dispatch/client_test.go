package dispatch_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"

	"github.com/cmsplatform/gateway/pkg/dispatch"
	"github.com/cmsplatform/gateway/pkg/services"
)

func directoryWith(t *testing.T, overrides map[services.Type]string) *services.Directory {
	t.Helper()

	addrs := map[services.Type]string{}
	for _, st := range services.All() {
		addrs[st] = "http://" + st.String() + ".invalid"
	}
	for st, addr := range overrides {
		addrs[st] = addr
	}

	dir, err := services.NewDirectory(addrs)
	require.NoError(t, err)
	return dir
}

func TestClient_Resolve(t *testing.T) {
	t.Parallel()

	c := dispatch.New(directoryWith(t, map[services.Type]string{services.Content: "http://content:9000"}))

	u, err := c.Resolve(services.Content)
	require.NoError(t, err)
	require.Equal(t, "http://content:9000", u.String())

	_, err = c.Resolve(services.Type("billing"))
	require.True(t, errors.Is(err, services.ErrUnknownService))

	_, err = dispatch.New(nil).Resolve(services.Auth)
	require.True(t, errors.Is(err, dispatch.ErrNoDirectory))
}

func TestClient_DispatchForwardsRequest(t *testing.T) {
	t.Parallel()

	type seen struct {
		method, path, query, body string
		header                    http.Header
	}
	got := make(chan seen, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- seen{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body), header: r.Header.Clone()}
		w.Header().Set("X-Downstream", "content")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"42"}`))
	}))
	t.Cleanup(srv.Close)

	c := dispatch.New(directoryWith(t, map[services.Type]string{services.Content: srv.URL}))

	in := httptest.NewRequest(http.MethodPost, "http://gateway.local/api/content/articles?draft=true", strings.NewReader(`{"title":"x"}`))
	in.RemoteAddr = "203.0.113.7:5555"
	in.Header.Set("Authorization", "Bearer abc")
	in.Header.Set("X-Request-ID", "req-1")
	in.Header.Set("Connection", "X-Secret-Hop")
	in.Header.Set("X-Secret-Hop", "drop me")
	in.Header.Set("Keep-Alive", "timeout=5")

	resp, err := c.Dispatch(context.Background(), services.Content, in, "/articles")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "content", resp.Header.Get("X-Downstream"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"42"}`, string(body))

	s := <-got
	require.Equal(t, http.MethodPost, s.method)
	require.Equal(t, "/articles", s.path)
	require.Equal(t, "draft=true", s.query)
	require.Equal(t, `{"title":"x"}`, s.body)
	require.Equal(t, "Bearer abc", s.header.Get("Authorization"))
	require.Equal(t, "req-1", s.header.Get("X-Request-ID"))
	require.Equal(t, "203.0.113.7", s.header.Get("X-Forwarded-For"))
	require.Equal(t, "gateway.local", s.header.Get("X-Forwarded-Host"))
	require.Equal(t, "http", s.header.Get("X-Forwarded-Proto"))
	require.Empty(t, s.header.Get("X-Secret-Hop"))
	require.Empty(t, s.header.Get("Keep-Alive"))
}

func TestClient_DispatchKeepsEncodedPath(t *testing.T) {
	t.Parallel()

	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.URL.EscapedPath()
	}))
	t.Cleanup(srv.Close)

	c := dispatch.New(directoryWith(t, map[services.Type]string{services.Content: srv.URL + "/v1"}))

	testCases := []struct {
		name      string
		remainder string
		want      string
	}{
		{name: "encoded slash", remainder: "/files/a%2Fb", want: "/v1/files/a%2Fb"},
		{name: "encoded space", remainder: "/files/c%20d", want: "/v1/files/c%20d"},
		{name: "plain", remainder: "/files/e", want: "/v1/files/e"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := httptest.NewRequest(http.MethodGet, "/api/content"+tc.remainder, nil)
			resp, err := c.Dispatch(context.Background(), services.Content, in, tc.remainder)
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, tc.want, <-got)
		})
	}
}

func TestClient_DispatchPassesThroughErrors(t *testing.T) {
	t.Parallel()

	for _, code := range []int{http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		t.Cleanup(srv.Close)

		c := dispatch.New(directoryWith(t, map[services.Type]string{services.User: srv.URL}))
		in := httptest.NewRequest(http.MethodGet, "/api/users/1", nil)

		resp, err := c.Dispatch(context.Background(), services.User, in, "/1")
		require.NoError(t, err)
		require.Equal(t, code, resp.StatusCode)
		_ = resp.Body.Close()
	}
}

func TestClient_DispatchFailures(t *testing.T) {
	t.Parallel()

	t.Run("gateway status is a downstream failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		t.Cleanup(srv.Close)

		c := dispatch.New(directoryWith(t, map[services.Type]string{services.Media: srv.URL}))
		resp, err := c.Dispatch(context.Background(), services.Media, httptest.NewRequest(http.MethodGet, "/", nil), "/")
		require.Nil(t, resp)

		de, ok := dispatch.AsDownstreamError(err)
		require.True(t, ok)
		require.Equal(t, services.Media, de.Service)
		require.Equal(t, http.StatusServiceUnavailable, de.Status)
		require.False(t, de.Timeout)
		require.True(t, errors.Is(err, dispatch.ErrBadGateway))
	})

	t.Run("slow service times out", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(func() {
			close(release)
			srv.Close()
		})

		c := dispatch.New(
			directoryWith(t, map[services.Type]string{services.Analytics: srv.URL}),
			dispatch.WithTimeout(50*time.Millisecond),
		)

		start := time.Now()
		_, err := c.Dispatch(context.Background(), services.Analytics, httptest.NewRequest(http.MethodGet, "/", nil), "/report")
		require.Less(t, time.Since(start), 2*time.Second)

		de, ok := dispatch.AsDownstreamError(err)
		require.True(t, ok)
		require.True(t, de.Timeout)
	})

	t.Run("unreachable service", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		c := dispatch.New(directoryWith(t, map[services.Type]string{services.Notification: addr}))
		_, err := c.Dispatch(context.Background(), services.Notification, httptest.NewRequest(http.MethodGet, "/", nil), "/")
		require.True(t, dispatch.IsDownstreamError(err))
	})

	t.Run("caller cancellation propagates", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-r.Context().Done()
		}))
		t.Cleanup(srv.Close)

		c := dispatch.New(directoryWith(t, map[services.Type]string{services.User: srv.URL}))

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-started
			cancel()
		}()

		_, err := c.Dispatch(ctx, services.User, httptest.NewRequest(http.MethodGet, "/", nil), "/")
		require.True(t, errors.Is(err, context.Canceled))
		require.Equal(t, gobreaker.StateClosed, c.BreakerState(services.User))
	})
}

func TestClient_BreakerOpens(t *testing.T) {
	t.Parallel()

	hits := make(chan struct{}, 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- struct{}{}
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := dispatch.New(
		directoryWith(t, map[services.Type]string{services.Content: srv.URL}),
		dispatch.WithBreaker(dispatch.BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute, HalfOpenRequests: 1}),
	)

	for range 2 {
		_, err := c.Dispatch(context.Background(), services.Content, httptest.NewRequest(http.MethodGet, "/", nil), "/")
		require.True(t, errors.Is(err, dispatch.ErrBadGateway))
	}
	require.Equal(t, gobreaker.StateOpen, c.BreakerState(services.Content))

	_, err := c.Dispatch(context.Background(), services.Content, httptest.NewRequest(http.MethodGet, "/", nil), "/")
	require.True(t, errors.Is(err, dispatch.ErrCircuitOpen))
	require.Len(t, hits, 2, "open breaker must not reach the service")

	// Other services keep their own breaker.
	require.Equal(t, gobreaker.StateClosed, c.BreakerState(services.User))
}

func TestClient_Healthcheck(t *testing.T) {
	t.Parallel()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(healthy.Close)

	sick := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(sick.Close)

	c := dispatch.New(directoryWith(t, map[services.Type]string{
		services.Auth: healthy.URL,
		services.User: sick.URL,
	}))

	require.NoError(t, c.Healthcheck(services.Auth)(context.Background()))
	require.True(t, errors.Is(c.Healthcheck(services.User)(context.Background()), dispatch.ErrUnhealthy))
}

func TestDownstreamError_Message(t *testing.T) {
	t.Parallel()

	require.Equal(t, "dispatch: media: timed out: boom",
		(&dispatch.DownstreamError{Service: services.Media, Timeout: true, Err: errors.New("boom")}).Error())
	require.Equal(t, "dispatch: auth: status 502",
		(&dispatch.DownstreamError{Service: services.Auth, Status: 502}).Error())
}
