package middlewares

import (
	"errors"

	"github.com/cmsplatform/gateway/internal"
)

// PanicError is a recovered panic; the error translator answers it with 500.
type PanicError = internal.PanicError

// TimeoutError is a request that hit its deadline; translated to 504.
type TimeoutError = internal.TimeoutError

func IsPanicError(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

func IsTimeoutError(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

func AsPanicError(err error) *PanicError {
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}

func AsTimeoutError(err error) *TimeoutError {
	var te *TimeoutError
	if errors.As(err, &te) {
		return te
	}
	return nil
}
