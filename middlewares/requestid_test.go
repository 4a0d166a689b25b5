package middlewares_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cmsplatform/gateway/internal"
	"github.com/cmsplatform/gateway/middlewares"
	"github.com/cmsplatform/gateway/pkg/logger"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("generates a uuid", func(t *testing.T) {
		t.Parallel()

		var seen, forwarded string
		h := newHarness(t, harnessConfig{global: []internal.Middleware{middlewares.RequestID()}}, func(c internal.Context) error {
			seen = middlewares.GetRequestID(c)
			forwarded = c.Header(middlewares.RequestIDHeader)
			return ok(c)
		})

		rec := h.get("/x")
		id := rec.Header().Get(middlewares.RequestIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		require.Equal(t, id, seen)
		require.Equal(t, id, forwarded)
	})

	testCases := []struct {
		name   string
		header string
		value  string
		want   string
	}{
		{name: "reuses X-Request-ID", header: "X-Request-ID", value: "req-1", want: "req-1"},
		{name: "reuses X-Correlation-ID", header: "X-Correlation-ID", value: "corr-1", want: "corr-1"},
		{name: "ignores oversized ids", header: "X-Request-ID", value: strings.Repeat("a", 200)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, harnessConfig{global: []internal.Middleware{middlewares.RequestID()}}, ok)
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header.Set(tc.header, tc.value)

			got := h.do(req).Header().Get(middlewares.RequestIDHeader)
			if tc.want == "" {
				require.NotEqual(t, tc.value, got)
				require.NotEmpty(t, got)
				return
			}
			require.Equal(t, tc.want, got)
		})
	}

	t.Run("custom generator and headers", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.RequestID(
			middlewares.WithRequestIDHeaders("X-Trace"),
			middlewares.WithRequestIDGenerator(func() string { return "fixed" }),
		)
		h := newHarness(t, harnessConfig{global: []internal.Middleware{mw}}, ok)

		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Request-ID", "ignored")
		require.Equal(t, "fixed", h.do(req).Header().Get(middlewares.RequestIDHeader))

		req = httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Trace", "trace-7")
		require.Equal(t, "trace-7", h.do(req).Header().Get(middlewares.RequestIDHeader))
	})

	t.Run("applies to unmatched routes", func(t *testing.T) {
		t.Parallel()

		app, err := internal.New(internal.WithMiddleware(middlewares.RequestID()))
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.NotEmpty(t, rec.Header().Get(middlewares.RequestIDHeader))
	})
}

func TestRequestIDExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewWithOptions(logger.Options{Output: &buf, Level: slog.LevelInfo}, middlewares.RequestIDExtractor())

	h := newHarness(t, harnessConfig{global: []internal.Middleware{middlewares.RequestID()}}, func(c internal.Context) error {
		log.InfoContext(c.Context(), "inside")
		return ok(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "log-me")
	h.do(req)
	require.Contains(t, buf.String(), `"request_id":"log-me"`)

	_, found := middlewares.RequestIDExtractor()(context.Background())
	require.False(t, found)
}
