package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmsplatform/gateway/internal"
	"github.com/cmsplatform/gateway/middlewares"
	"github.com/cmsplatform/gateway/pkg/metrics"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	items := internal.NewRegistrar("/api/items", func(r internal.Router) error {
		r.GET("/{id}", ok)
		r.GET("/boom", func(internal.Context) error { panic("boom") })
		return nil
	})

	app, err := internal.New(
		internal.WithMiddleware(middlewares.Metrics(m), middlewares.Recover()),
		internal.WithRegistrar("items", items),
	)
	require.NoError(t, err)

	for _, path := range []string{"/api/items/1", "/api/items/2", "/api/items/boom", "/missing"} {
		app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, m)
	require.Contains(t, body, `gateway_http_requests_total{method="GET",route="/api/items/{id}",status="200"} 2`)
	require.Contains(t, body, `gateway_http_requests_total{method="GET",route="/api/items/boom",status="500"} 1`)
	require.Contains(t, body, `gateway_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	require.Contains(t, body, "gateway_http_inflight_requests 0")
}
