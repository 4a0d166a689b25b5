package internal

// HandlerFunc is the signature for route handlers.
// Returning a non-nil error hands it to the gateway's error handler.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc. It may inspect the request, short-circuit
// by returning an error, or decorate the response.
//
// Example:
//
//	func RequireJSON(next gateway.HandlerFunc) gateway.HandlerFunc {
//	    return func(c gateway.Context) error {
//	        if c.Header("Content-Type") != "application/json" {
//	            return gateway.ErrUnsupportedMediaType("expected JSON")
//	        }
//	        return next(c)
//	    }
//	}
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler writes the response for an error returned by a handler.
type ErrorHandler func(Context, error) error

// Registrar contributes routes under a path prefix. Feature modules
// implement it; the registry attaches each registrar to the group whose full
// path equals its prefix, or mounts it standalone.
type Registrar interface {
	Prefix() string
	Routes(r Router) error
}

type registrarFunc struct {
	fn     func(Router) error
	prefix string
}

func (f registrarFunc) Prefix() string        { return f.prefix }
func (f registrarFunc) Routes(r Router) error { return f.fn(r) }

// NewRegistrar adapts a function to the Registrar interface.
func NewRegistrar(prefix string, fn func(r Router) error) Registrar {
	return registrarFunc{prefix: prefix, fn: fn}
}
