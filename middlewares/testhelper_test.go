package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmsplatform/gateway/internal"
	"github.com/cmsplatform/gateway/pkg/logger"
)

// harness serves a single catch-all handler behind the middleware under test
// and records every error that reaches the error handler.
type harness struct {
	app  *internal.App
	mu   sync.Mutex
	errs []error
}

type harnessConfig struct {
	global []internal.Middleware
	stages []internal.Middleware
}

func newHarness(t *testing.T, cfg harnessConfig, h internal.HandlerFunc) *harness {
	t.Helper()

	hs := &harness{}
	translate := internal.DefaultErrorHandler(logger.NewNope())

	reg := internal.NewRegistrar("", func(r internal.Router) error {
		r.Any("/", h)
		r.Any("/*", h)
		return nil
	})

	app, err := internal.New(
		internal.WithMiddleware(cfg.global...),
		internal.WithRouteStages(cfg.stages...),
		internal.WithRegistrar("test", reg),
		internal.WithErrorHandler(func(c internal.Context, err error) error {
			hs.mu.Lock()
			hs.errs = append(hs.errs, err)
			hs.mu.Unlock()
			return translate(c, err)
		}),
	)
	require.NoError(t, err)
	hs.app = app
	return hs
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.app.ServeHTTP(rec, req)
	return rec
}

func (h *harness) get(path string) *httptest.ResponseRecorder {
	return h.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (h *harness) lastErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.errs) == 0 {
		return nil
	}
	return h.errs[len(h.errs)-1]
}

func ok(c internal.Context) error {
	return c.String(http.StatusOK, "ok")
}
