package authgate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmsplatform/gateway/pkg/authgate"
	"github.com/cmsplatform/gateway/pkg/publicpath"
)

type user struct{ id string }

func (u *user) Subject() string { return u.id }

func TestGate_Authorize(t *testing.T) {
	t.Parallel()

	gate := authgate.New(publicpath.New(publicpath.Defaults()...))
	var typedNil *user

	testCases := []struct {
		name      string
		path      string
		principal authgate.Principal
		want      authgate.Outcome
	}{
		{name: "public path without principal", path: "/api/auth/login", want: authgate.Continue},
		{name: "health without principal", path: "/health/ready", want: authgate.Continue},
		{name: "protected path without principal", path: "/api/content/articles", want: authgate.Reject},
		{name: "protected path with principal", path: "/api/content/articles", principal: &user{id: "u1"}, want: authgate.Continue},
		{name: "empty subject is absent", path: "/api/users/me", principal: &user{}, want: authgate.Reject},
		{name: "typed nil is absent", path: "/api/users/me", principal: typedNil, want: authgate.Reject},
		{name: "logout requires principal", path: "/api/auth/logout", want: authgate.Reject},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, gate.Authorize(tc.path, tc.principal))
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		ctx := authgate.WithPrincipal(context.Background(), &user{id: "u1"})
		p := authgate.PrincipalFrom(ctx)
		require.NotNil(t, p)
		require.Equal(t, "u1", p.Subject())
	})

	t.Run("absent", func(t *testing.T) {
		t.Parallel()
		require.Nil(t, authgate.PrincipalFrom(context.Background()))
	})

	t.Run("typed nil reads as absent", func(t *testing.T) {
		t.Parallel()

		var u *user
		ctx := authgate.WithPrincipal(context.Background(), u)
		require.Nil(t, authgate.PrincipalFrom(ctx))
	})
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "continue", authgate.Continue.String())
	require.Equal(t, "reject", authgate.Reject.String())
}
