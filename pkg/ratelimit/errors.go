package ratelimit

import "errors"

var (
	ErrStoreUnavailable = errors.New("ratelimit: counter store unavailable")
	ErrCheckTimeout     = errors.New("ratelimit: admission check timed out")
	ErrNoStore          = errors.New("ratelimit: no counter store configured")
)
