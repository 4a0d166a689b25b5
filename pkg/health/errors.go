package health

import "errors"

var (
	ErrCheckFailed  = errors.New("health: probe failed")
	ErrCheckTimeout = errors.New("health: probe timed out")
)
