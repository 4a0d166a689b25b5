package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cmsplatform/gateway/pkg/services"
)

var (
	ErrCircuitOpen   = errors.New("dispatch: circuit breaker open")
	ErrBadGateway    = errors.New("dispatch: downstream returned a gateway error")
	ErrUnhealthy     = errors.New("dispatch: downstream healthcheck failed")
	ErrNoDirectory   = errors.New("dispatch: service directory is not configured")
	ErrInvalidTarget = errors.New("dispatch: invalid downstream target")
)

// DownstreamError reports that a downstream service could not produce a
// usable response. It is the trigger for the fallback policy of Service.
type DownstreamError struct {
	Err     error
	Service services.Type
	Status  int
	Timeout bool
}

func (e *DownstreamError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dispatch: %s", e.Service)
	switch {
	case e.Timeout:
		b.WriteString(": timed out")
	case e.Status != 0:
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DownstreamError) Unwrap() error {
	return e.Err
}

// IsDownstreamError reports whether err is or wraps a DownstreamError.
func IsDownstreamError(err error) bool {
	var de *DownstreamError
	return errors.As(err, &de)
}

// AsDownstreamError extracts the DownstreamError from err if present.
func AsDownstreamError(err error) (*DownstreamError, bool) {
	var de *DownstreamError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
