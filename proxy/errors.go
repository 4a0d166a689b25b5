package proxy

import "errors"

var ErrNotConfigured = errors.New("proxy: dispatcher or fallback handler is not configured")
