package logger

import "errors"

var ErrSentryFlush = errors.New("logger: sentry events were not flushed before the deadline")
