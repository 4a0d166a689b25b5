package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestOpen_Validation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "empty", url: "", wantErr: ErrEmptyConnectionURL},
		{name: "http scheme", url: "http://localhost:6379", wantErr: ErrFailedToParseURL},
		{name: "no scheme", url: "localhost:6379", wantErr: ErrFailedToParseURL},
		{name: "bad port", url: "redis://localhost:notaport", wantErr: ErrFailedToParseURL},
		{name: "bad database", url: "redis://localhost:6379/abc", wantErr: ErrFailedToParseURL},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client, err := Open(context.Background(), tc.url)
			require.Nil(t, client)
			require.True(t, errors.Is(err, tc.wantErr))
		})
	}
}

func TestOpen_Miniredis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	client, err := Open(context.Background(), "redis://"+mr.Addr(), WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, Healthcheck(client)(context.Background()))
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	v, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", v)
}

func TestOpen_RetriesThenFails(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	start := time.Now()
	client, err := Open(context.Background(), "redis://"+addr,
		WithRetry(2, 10*time.Millisecond),
		WithDialTimeout(100*time.Millisecond),
	)
	require.Nil(t, client)
	require.True(t, errors.Is(err, ErrConnectionFailed))
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestOpen_ContextCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Open(ctx, "redis://"+addr, WithRetry(5, time.Second), WithDialTimeout(20*time.Millisecond))
	require.True(t, errors.Is(err, ErrConnectionFailed))
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	t.Run("nil client", func(t *testing.T) {
		t.Parallel()
		require.True(t, errors.Is(Healthcheck(nil)(context.Background()), ErrHealthcheckFailed))
	})

	t.Run("server gone", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		client, err := Open(context.Background(), "redis://"+mr.Addr(), WithRetry(1, 0))
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		mr.Close()
		require.True(t, errors.Is(Healthcheck(client)(context.Background()), ErrHealthcheckFailed))
	})
}

type closer struct {
	called bool
	err    error
}

func (c *closer) Close() error {
	c.called = true
	return c.err
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	c := &closer{err: errors.New("boom")}
	err := Shutdown(c)(context.Background())
	require.True(t, c.called)
	require.EqualError(t, err, "boom")
}

func TestWait(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, wait(ctx, time.Hour), context.Canceled)
	require.NoError(t, wait(context.Background(), time.Millisecond))
}
