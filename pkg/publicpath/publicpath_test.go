package publicpath_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmsplatform/gateway/pkg/publicpath"
)

func TestList_Match(t *testing.T) {
	t.Parallel()

	list := publicpath.New(publicpath.Defaults()...)

	testCases := []struct {
		name string
		path string
		want bool
	}{
		{name: "health exact", path: "/health", want: true},
		{name: "health readiness", path: "/health/ready", want: true},
		{name: "health lookalike", path: "/healthz", want: false},
		{name: "metrics", path: "/metrics", want: true},
		{name: "metrics child is not public", path: "/metrics/extra", want: false},
		{name: "login", path: "/api/auth/login", want: true},
		{name: "login trailing slash", path: "/api/auth/login/", want: true},
		{name: "register", path: "/api/auth/register", want: true},
		{name: "refresh", path: "/api/auth/refresh", want: true},
		{name: "logout is protected", path: "/api/auth/logout", want: false},
		{name: "content is protected", path: "/api/content/articles", want: false},
		{name: "root is protected", path: "/", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, list.Match(tc.path))
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("collapses duplicates and normalizes", func(t *testing.T) {
		t.Parallel()

		list := publicpath.New(
			publicpath.Exact("status"),
			publicpath.Exact("/status/"),
			publicpath.Rule{},
		)
		require.Equal(t, []publicpath.Rule{{Path: "/status"}}, list.Rules())
		require.True(t, list.Match("/status"))
	})

	t.Run("zero value matches nothing", func(t *testing.T) {
		t.Parallel()

		var list publicpath.List
		require.False(t, list.Match("/health"))
	})

	t.Run("root prefix matches everything", func(t *testing.T) {
		t.Parallel()

		list := publicpath.New(publicpath.Prefix("/"))
		require.True(t, list.Match("/anything/at/all"))
	})
}
