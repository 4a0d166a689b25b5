package ratelimit

import (
	"context"
	"time"
)

// CounterStore is a shared fixed-window counter.
//
// Increment atomically adds one to the counter stored under key and returns
// the new value. When the returned value is 1 the implementation must arm an
// expiry of window on the key so the counter resets when the window elapses.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// TTLReader is implemented by stores that can report the remaining lifetime
// of a counter. The limiter uses it to compute Retry-After on denial.
type TTLReader interface {
	TTL(ctx context.Context, key string) (time.Duration, error)
}
