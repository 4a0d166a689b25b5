// Package ratelimit implements fixed-window admission control over a shared
// counter store.
//
// Each request is counted under a key made of the client address and the
// first three path segments. The first hit in a window arms the key's expiry;
// once the count exceeds the budget for the path family the request is
// denied until the key expires.
//
// # Stores
//
// [RedisStore] uses INCR and EXPIRE and is the production store: counters are
// shared by every gateway instance. [MemoryStore] keeps counters in process
// and suits single-instance development and tests.
//
// # Failure policy
//
// The limiter fails open. A store error or a check slower than the check
// timeout admits the request and reports the error on the [Decision]:
//
//	store := ratelimit.NewRedisStore(client)
//	limiter := ratelimit.New(store,
//	    ratelimit.WithWindow(time.Minute),
//	    ratelimit.WithFamilies(ratelimit.Family{Prefix: "/api/auth", Limit: 20}),
//	)
//
//	d := limiter.Admit(ctx, clientIP, r.URL.Path)
//	if !d.Allowed() {
//	    // 429 with Retry-After: d.RetryAfter
//	}
package ratelimit
