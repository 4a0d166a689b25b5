package internal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Fixed client-facing messages. Internal details never reach the body.
const (
	msgTimeout      = "request timed out"
	msgUnauthorized = "authentication required"
	msgInternal     = "internal error"
	msgNotFound     = "resource not found"
	msgNoMethod     = "method not allowed"
	codeNoMethod    = "method_not_allowed"
)

// TranslateError maps err to a status code and body.
//
//	*PanicError                       500, whatever the panic value was
//	*HTTPError                        its status, {error, code}
//	*TimeoutError, DeadlineExceeded   504
//	*SecurityError                    401
//	ErrRouteNotFound                  404
//	anything else                     500
func TranslateError(err error) (int, ErrorBody) {
	var pe *PanicError
	if errors.As(err, &pe) {
		return http.StatusInternalServerError, ErrorBody{Error: msgInternal}
	}

	if he := AsHTTPError(err); he != nil && he.Code > 0 {
		msg := he.Message
		if msg == "" {
			msg = http.StatusText(he.Code)
		}
		return he.Code, ErrorBody{Error: msg, Code: he.ErrorCode}
	}

	var te *TimeoutError
	if errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, ErrorBody{Error: msgTimeout}
	}

	var se *SecurityError
	if errors.As(err, &se) {
		msg := se.Message
		if msg == "" {
			msg = msgUnauthorized
		}
		return http.StatusUnauthorized, ErrorBody{Error: msg}
	}

	if errors.Is(err, ErrRouteNotFound) {
		return http.StatusNotFound, ErrorBody{Error: msgNotFound}
	}

	return http.StatusInternalServerError, ErrorBody{Error: msgInternal}
}

// DefaultErrorHandler writes the translated error as JSON. Server errors are
// logged at error level with the cause; client errors at debug level.
// A request whose client already went away gets no response.
func DefaultErrorHandler(log *slog.Logger) ErrorHandler {
	return func(c Context, err error) error {
		if errors.Is(err, context.Canceled) && c.Context().Err() != nil {
			log.DebugContext(c.Context(), "client closed request", slog.String("path", c.Request().URL.Path))
			return nil
		}

		status, body := TranslateError(err)

		attrs := []any{
			slog.Int("status", status),
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path),
			slog.String("error", err.Error()),
		}
		var pe *PanicError
		if errors.As(err, &pe) {
			attrs = append(attrs, slog.String("stack", string(pe.Stack)))
		}
		if status >= http.StatusInternalServerError {
			log.ErrorContext(c.Context(), "request failed", attrs...)
		} else {
			log.DebugContext(c.Context(), "request rejected", attrs...)
		}

		return c.JSON(status, body)
	}
}

func notFoundHandler(Context) error {
	return ErrRouteNotFound
}

func methodNotAllowedHandler(Context) error {
	return NewHTTPError(http.StatusMethodNotAllowed, msgNoMethod,
		WithErrorCode(codeNoMethod),
		WithError(ErrMethodNotAllowed),
	)
}
