package internal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFullPath_BoundedWalk(t *testing.T) {
	t.Parallel()

	t.Run("cycle in snapshot", func(t *testing.T) {
		t.Parallel()

		s := &registryState{groups: map[string]RouteGroup{
			"a": {Name: "a", Prefix: "/a", Parent: "b"},
			"b": {Name: "b", Prefix: "/b", Parent: "a"},
		}}
		_, err := fullPath(s, "a")
		require.True(t, errors.Is(err, ErrCycleDetected))

		var ce *CycleDetectedError
		require.True(t, errors.As(err, &ce))
		require.Equal(t, "a", ce.Group)
	})

	t.Run("chain deeper than the limit", func(t *testing.T) {
		t.Parallel()

		s := &registryState{groups: map[string]RouteGroup{"g0": {Name: "g0", Prefix: "/g0"}}}
		for i := 1; i <= maxGroupDepth+1; i++ {
			name := fmt.Sprintf("g%d", i)
			s.groups[name] = RouteGroup{Name: name, Prefix: "/" + name, Parent: fmt.Sprintf("g%d", i-1)}
		}
		_, err := fullPath(s, fmt.Sprintf("g%d", maxGroupDepth+1))
		require.True(t, errors.Is(err, ErrCycleDetected))

		p, err := fullPath(s, "g3")
		require.NoError(t, err)
		require.Equal(t, "/g0/g1/g2/g3", p)
	})
}

func TestCleanPrefix(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"":          "",
		"/":         "",
		"api":       "/api",
		"/api/":     "/api",
		" /api/v1 ": "/api/v1",
	} {
		require.Equal(t, want, cleanPrefix(in), "input %q", in)
	}
}
