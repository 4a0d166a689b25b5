package internal_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmsplatform/gateway/internal"
)

func TestRegistry_FullPath(t *testing.T) {
	t.Parallel()

	reg := internal.NewRegistry()
	require.NoError(t, reg.RegisterGroup(internal.RouteGroup{Name: "api", Prefix: "/api"}))
	require.NoError(t, reg.RegisterGroup(internal.RouteGroup{Name: "content", Prefix: "content/", Parent: "api"}))
	require.NoError(t, reg.RegisterGroup(internal.RouteGroup{Name: "drafts", Prefix: "/drafts", Parent: "content"}))

	testCases := []struct {
		group string
		want  string
	}{
		{group: "api", want: "/api"},
		{group: "content", want: "/api/content"},
		{group: "drafts", want: "/api/content/drafts"},
		{group: "missing", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.group, func(t *testing.T) {
			t.Parallel()

			got, err := reg.FullPath(tc.group)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestRegistry_RegisterGroup(t *testing.T) {
	t.Parallel()

	t.Run("unknown parent leaves registry unchanged", func(t *testing.T) {
		t.Parallel()

		reg := internal.NewRegistry()
		err := reg.RegisterGroup(internal.RouteGroup{Name: "media", Prefix: "/media", Parent: "api"})
		require.True(t, errors.Is(err, internal.ErrInvalidParent))

		var ipe *internal.InvalidParentError
		require.True(t, errors.As(err, &ipe))
		require.Equal(t, "api", ipe.Parent)
		require.Empty(t, reg.Groups())
	})

	t.Run("empty name", func(t *testing.T) {
		t.Parallel()

		err := internal.NewRegistry().RegisterGroup(internal.RouteGroup{Prefix: "/x"})
		require.True(t, errors.Is(err, internal.ErrInvalidGroup))
	})

	t.Run("re-parenting into own subtree is a cycle", func(t *testing.T) {
		t.Parallel()

		reg := internal.NewRegistry()
		require.NoError(t, reg.RegisterGroup(internal.RouteGroup{Name: "a", Prefix: "/a"}))
		require.NoError(t, reg.RegisterGroup(internal.RouteGroup{Name: "b", Prefix: "/b", Parent: "a"}))

		err := reg.RegisterGroup(internal.RouteGroup{Name: "a", Prefix: "/a", Parent: "b"})
		require.True(t, errors.Is(err, internal.ErrCycleDetected))

		a, ok := reg.Group("a")
		require.True(t, ok)
		require.Empty(t, a.Parent)
	})

	t.Run("self parent", func(t *testing.T) {
		t.Parallel()

		reg := internal.NewRegistry()
		require.NoError(t, reg.RegisterGroup(internal.RouteGroup{Name: "a", Prefix: "/a"}))
		err := reg.RegisterGroup(internal.RouteGroup{Name: "a", Prefix: "/a", Parent: "a"})
		require.True(t, errors.Is(err, internal.ErrCycleDetected))
	})

	t.Run("replacement keeps position and dedups tags", func(t *testing.T) {
		t.Parallel()

		reg := internal.NewRegistry()
		require.NoError(t, reg.RegisterGroup(internal.RouteGroup{Name: "api", Prefix: "/api"}))
		require.NoError(t, reg.RegisterGroup(internal.RouteGroup{Name: "auth", Prefix: "/auth", Parent: "api"}))
		require.NoError(t, reg.RegisterGroup(internal.RouteGroup{Name: "api", Prefix: "/v1", Tags: []string{"public", "cms", "public"}}))

		groups := reg.Groups()
		require.Len(t, groups, 2)
		require.Equal(t, "api", groups[0].Name)
		require.Equal(t, []string{"cms", "public"}, groups[0].Tags)
		require.True(t, groups[0].HasTag("cms"))

		p, err := reg.FullPath("auth")
		require.NoError(t, err)
		require.Equal(t, "/v1/auth", p)
	})
}

func TestRegistry_RemoveGroup(t *testing.T) {
	t.Parallel()

	reg := internal.NewRegistry()
	require.NoError(t, reg.RegisterGroup(internal.RouteGroup{Name: "api", Prefix: "/api"}))
	require.NoError(t, reg.RegisterGroup(internal.RouteGroup{Name: "users", Prefix: "/users", Parent: "api"}))

	require.True(t, errors.Is(reg.RemoveGroup("api"), internal.ErrGroupInUse))
	require.NoError(t, reg.RemoveGroup("users"))
	require.NoError(t, reg.RemoveGroup("api"))
	require.NoError(t, reg.RemoveGroup("never-registered"))
	require.Empty(t, reg.Groups())
}

func TestRegistry_RegisterRegistrar(t *testing.T) {
	t.Parallel()

	reg := internal.NewRegistry()
	noop := func(internal.Router) error { return nil }

	require.ErrorIs(t, reg.RegisterRegistrar("", internal.NewRegistrar("/a", noop)), internal.ErrInvalidRegistrar)
	require.ErrorIs(t, reg.RegisterRegistrar("a", nil), internal.ErrInvalidRegistrar)

	require.NoError(t, reg.RegisterRegistrar("content", internal.NewRegistrar("/api/content", noop)))
	require.NoError(t, reg.RegisterRegistrar("media", internal.NewRegistrar("/api/media", noop)))
	require.NoError(t, reg.RegisterRegistrar("content", internal.NewRegistrar("/api/content/v2", noop)))
	require.Equal(t, []string{"content", "media"}, reg.Registrars())

	require.True(t, reg.RemoveRegistrar("content"))
	require.False(t, reg.RemoveRegistrar("content"))
	require.Equal(t, []string{"media"}, reg.Registrars())
}

// text registers GET "/" and GET "/*" answering body.
func text(prefix, body string) internal.Registrar {
	return internal.NewRegistrar(prefix, func(r internal.Router) error {
		h := func(c internal.Context) error { return c.String(http.StatusOK, body) }
		r.GET("/", h)
		r.GET("/*", h)
		return nil
	})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRegistry_BuildRouteTable(t *testing.T) {
	t.Parallel()

	app, err := internal.New(
		internal.WithGroups(
			internal.RouteGroup{Name: "api", Prefix: "/api"},
			internal.RouteGroup{Name: "content", Prefix: "/content", Parent: "api"},
			internal.RouteGroup{Name: "empty", Prefix: "/empty", Parent: "api"},
		),
		internal.WithRegistrar("root", text("/api", "api-root")),
		internal.WithRegistrar("content", text("/api/content", "content")),
		internal.WithRegistrar("legacy", text("/legacy", "legacy")),
	)
	require.NoError(t, err)
	require.NoError(t, app.Report().Err())
	require.ElementsMatch(t, []string{"root", "content", "legacy"}, app.Report().Mounted)

	testCases := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{path: "/api/content", wantCode: http.StatusOK, wantBody: "content"},
		{path: "/api/content/articles/1", wantCode: http.StatusOK, wantBody: "content"},
		{path: "/api/other", wantCode: http.StatusOK, wantBody: "api-root"},
		{path: "/legacy/x", wantCode: http.StatusOK, wantBody: "legacy"},
		{path: "/nowhere", wantCode: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()

			rec := get(t, app, tc.path)
			require.Equal(t, tc.wantCode, rec.Code)
			if tc.wantBody != "" {
				require.Equal(t, tc.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRegistry_BuildRouteTable_FailSoft(t *testing.T) {
	t.Parallel()

	failing := internal.NewRegistrar("/api/broken", func(internal.Router) error {
		return errors.New("plugin misconfigured")
	})
	panicking := internal.NewRegistrar("/api/users", func(r internal.Router) error {
		h := http.NotFoundHandler()
		r.Mount("/x", h)
		r.Mount("/x", h)
		return nil
	})

	var observed []string
	app, err := internal.New(
		internal.WithGroups(
			internal.RouteGroup{Name: "api", Prefix: "/api"},
			internal.RouteGroup{Name: "users", Prefix: "/users", Parent: "api"},
		),
		internal.WithRegistrar("broken", failing),
		internal.WithRegistrar("users-bad", panicking),
		internal.WithRegistrar("users", text("/api/users", "users")),
		internal.WithMountObserver(func(f internal.MountFailure) { observed = append(observed, f.ID) }),
	)
	require.NoError(t, err)

	report := app.Report()
	require.Len(t, report.Failures, 2)
	require.ElementsMatch(t, []string{"broken", "users-bad"}, observed)
	require.True(t, errors.Is(report.Err(), internal.ErrMountFailed))

	var pe *internal.PanicError
	for _, f := range report.Failures {
		if f.ID == "users-bad" {
			require.True(t, errors.As(f.Err, &pe))
		}
	}
	require.NotNil(t, pe)

	rec := get(t, app, "/api/users/42")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "users", rec.Body.String())
}

func TestApp_Rebuild(t *testing.T) {
	t.Parallel()

	app, err := internal.New()
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, get(t, app, "/api/plugins/x").Code)

	require.NoError(t, app.Registry().RegisterRegistrar("plugin", text("/api/plugins", "plugin")))
	require.Equal(t, http.StatusNotFound, get(t, app, "/api/plugins/x").Code)

	report := app.Rebuild()
	require.Equal(t, []string{"plugin"}, report.Mounted)
	require.Equal(t, http.StatusOK, get(t, app, "/api/plugins/x").Code)

	app.Registry().RemoveRegistrar("plugin")
	app.Rebuild()
	require.Equal(t, http.StatusNotFound, get(t, app, "/api/plugins/x").Code)
}

func TestApp_New_RejectsBadTopology(t *testing.T) {
	t.Parallel()

	_, err := internal.New(
		internal.WithGroups(internal.RouteGroup{Name: "child", Prefix: "/c", Parent: "missing"}),
	)
	require.True(t, errors.Is(err, internal.ErrInvalidParent))
}
