package fallback_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmsplatform/gateway/pkg/fallback"
	"github.com/cmsplatform/gateway/pkg/metrics"
	"github.com/cmsplatform/gateway/pkg/services"
)

func TestHandle_Asymmetry(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		svc      services.Type
		wantCode int
		wantBody string
	}{
		{svc: services.Auth, wantCode: http.StatusServiceUnavailable, wantBody: `{"error":"authentication service unavailable"}`},
		{svc: services.User, wantCode: http.StatusOK, wantBody: `{"warning":"user unavailable, showing cached/empty data","data":[]}`},
		{svc: services.Content, wantCode: http.StatusOK, wantBody: `{"warning":"content unavailable, showing cached/empty data","data":[]}`},
		{svc: services.Media, wantCode: http.StatusOK, wantBody: `{"warning":"media unavailable, showing cached/empty data","data":[]}`},
		{svc: services.Analytics, wantCode: http.StatusOK, wantBody: `{"warning":"analytics unavailable, showing cached/empty data","data":[]}`},
		{svc: services.Notification, wantCode: http.StatusOK, wantBody: `{"warning":"notification unavailable, showing cached/empty data","data":[]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.svc.String(), func(t *testing.T) {
			t.Parallel()

			h := fallback.New()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/"+tc.svc.String()+"/x", nil)

			err := h.Handle(rec, req, tc.svc, errors.New("connection refused"))
			require.NoError(t, err)
			require.Equal(t, tc.wantCode, rec.Code)
			require.JSONEq(t, tc.wantBody, rec.Body.String())
			require.Equal(t, tc.svc.String(), rec.Header().Get(fallback.DegradedHeader))
			require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
			require.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestHandle_CountsFallbacks(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	h := fallback.New(fallback.WithMetrics(m))

	for range 3 {
		rec := httptest.NewRecorder()
		require.NoError(t, h.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), services.Media, nil))
	}

	body := httptest.NewRecorder()
	m.Handler().ServeHTTP(body, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, body.Body.String(), `gateway_downstream_fallbacks_total{service="media"} 3`)
}

func TestPolicyFor(t *testing.T) {
	t.Parallel()

	for _, st := range services.All() {
		p := fallback.PolicyFor(st)
		if st == services.Auth {
			require.Equal(t, http.StatusServiceUnavailable, p.StatusCode)
			continue
		}
		require.Equal(t, http.StatusOK, p.StatusCode)
	}
}
