package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrRouteNotFound    = errors.New("gateway: route not found")
	ErrMethodNotAllowed = errors.New("gateway: method not allowed")
	ErrNotConfigured    = errors.New("gateway: route table not built")

	ErrInvalidGroup     = errors.New("registry: invalid route group")
	ErrInvalidParent    = errors.New("registry: parent group is not registered")
	ErrCycleDetected    = errors.New("registry: route group cycle detected")
	ErrGroupInUse       = errors.New("registry: route group has children")
	ErrInvalidRegistrar = errors.New("registry: invalid registrar")
	ErrMountFailed      = errors.New("registry: mount failed")
)

// HTTPError is a structured API error. Code selects the status; ErrorCode
// is the machine-readable code returned to clients.
type HTTPError struct {
	// Err is the underlying cause. It is logged, never sent to clients.
	Err error

	Message   string
	ErrorCode string
	RequestID string
	Code      int
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) StatusCode() int {
	return e.Code
}

func (e *HTTPError) StatusText() string {
	return http.StatusText(e.Code)
}

// HTTPErrorOption configures an HTTPError.
type HTTPErrorOption func(*HTTPError)

// NewHTTPError creates an HTTPError with the given status and message.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	e := &HTTPError{Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithErrorCode(code string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.ErrorCode = code
	}
}

func WithRequestID(id string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.RequestID = id
	}
}

func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Err = err
	}
}

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message, opts...)
}

func ErrUnsupportedMediaType(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnsupportedMediaType, message, opts...)
}

func ErrTooManyRequests(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusTooManyRequests, message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message, opts...)
}

func ErrServiceUnavailable(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusServiceUnavailable, message, opts...)
}

// AsHTTPError returns the first HTTPError in err's chain, or nil.
func AsHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}
	return nil
}

// SecurityError reports a request that lacks the identity a protected path
// requires. It translates to 401.
type SecurityError struct {
	Err     error
	Message string
}

// NewSecurityError creates a SecurityError.
func NewSecurityError(message string, cause error) *SecurityError {
	return &SecurityError{Message: message, Err: cause}
}

func (e *SecurityError) Error() string {
	if e.Message == "" {
		return "authentication required"
	}
	return e.Message
}

func (e *SecurityError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a request that exceeded its deadline. It translates
// to 504.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timeout after %s", e.Timeout)
}

// Unwrap lets errors.Is match both ErrTimeout and context.DeadlineExceeded.
func (e *TimeoutError) Unwrap() []error {
	return []error{ErrTimeout, context.DeadlineExceeded}
}

// ErrTimeout is carried by every TimeoutError.
var ErrTimeout = errors.New("gateway: request timed out")

// PanicError wraps a recovered panic. It translates to 500.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// InvalidParentError reports a group whose parent is not registered.
type InvalidParentError struct {
	Group  string
	Parent string
}

func (e *InvalidParentError) Error() string {
	return fmt.Sprintf("registry: group %q references unknown parent %q", e.Group, e.Parent)
}

func (e *InvalidParentError) Unwrap() error {
	return ErrInvalidParent
}

// CycleDetectedError reports a parent chain that loops or exceeds the
// maximum depth.
type CycleDetectedError struct {
	Group string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("registry: parent chain of group %q does not terminate", e.Group)
}

func (e *CycleDetectedError) Unwrap() error {
	return ErrCycleDetected
}
