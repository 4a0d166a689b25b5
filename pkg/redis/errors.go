package redis

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("redis: connection URL is empty")
	ErrFailedToParseURL   = errors.New("redis: invalid connection URL")
	ErrConnectionFailed   = errors.New("redis: counter store is unreachable")
	ErrHealthcheckFailed  = errors.New("redis: ping failed")
)
