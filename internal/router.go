package internal

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router is the interface registrars use to declare routes. Paths are
// relative to the registrar's prefix.
type Router interface {
	GET(path string, h HandlerFunc, mw ...Middleware)
	POST(path string, h HandlerFunc, mw ...Middleware)
	PUT(path string, h HandlerFunc, mw ...Middleware)
	PATCH(path string, h HandlerFunc, mw ...Middleware)
	DELETE(path string, h HandlerFunc, mw ...Middleware)
	HEAD(path string, h HandlerFunc, mw ...Middleware)
	OPTIONS(path string, h HandlerFunc, mw ...Middleware)

	// Any registers h for every method.
	Any(path string, h HandlerFunc, mw ...Middleware)

	// Group creates an inline group sharing middleware but no prefix.
	Group(fn func(r Router))

	// Route creates a sub-router under pattern.
	Route(pattern string, fn func(r Router))

	// Use appends middleware that runs before route resolution completes.
	Use(mw ...Middleware)

	// Mount attaches a plain http.Handler. Route stages do not apply to it.
	Mount(pattern string, h http.Handler)
}

// pipeline carries what every adapted handler needs.
type pipeline struct {
	logger       *slog.Logger
	errorHandler ErrorHandler
	// stages run on every resolved endpoint, outermost first.
	stages []Middleware
}

// serve runs h with a fresh Context and routes any error to the error handler.
func (p *pipeline) serve(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := newContext(w, r, p.logger)
		if err := h(c); err != nil {
			p.handleError(c, err)
		}
	}
}

func (p *pipeline) handleError(c Context, err error) {
	if c.Written() {
		c.LogDebug("error after response was written", slog.String("error", err.Error()))
		return
	}
	if herr := p.errorHandler(c, err); herr != nil {
		c.LogError("error handler failed", slog.String("error", herr.Error()))
	}
}

// adapt converts a Middleware to chi's func(http.Handler) http.Handler form.
// Context changes made by the middleware flow into next.
func (p *pipeline) adapt(mw Middleware) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		inner := func(c Context) error {
			next.ServeHTTP(c.Response(), c.Request())
			return nil
		}
		return p.serve(mw(inner))
	}
}

// endpoint applies route middleware (first listed runs first) inside the
// pipeline stages.
func (p *pipeline) endpoint(h HandlerFunc, mw []Middleware) http.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	for i := len(p.stages) - 1; i >= 0; i-- {
		h = p.stages[i](h)
	}
	return p.serve(h)
}

type routerAdapter struct {
	router chi.Router
	p      *pipeline
}

func newRouterAdapter(r chi.Router, p *pipeline) *routerAdapter {
	return &routerAdapter{router: r, p: p}
}

func (r *routerAdapter) GET(path string, h HandlerFunc, mw ...Middleware) {
	r.router.Get(path, r.p.endpoint(h, mw))
}

func (r *routerAdapter) POST(path string, h HandlerFunc, mw ...Middleware) {
	r.router.Post(path, r.p.endpoint(h, mw))
}

func (r *routerAdapter) PUT(path string, h HandlerFunc, mw ...Middleware) {
	r.router.Put(path, r.p.endpoint(h, mw))
}

func (r *routerAdapter) PATCH(path string, h HandlerFunc, mw ...Middleware) {
	r.router.Patch(path, r.p.endpoint(h, mw))
}

func (r *routerAdapter) DELETE(path string, h HandlerFunc, mw ...Middleware) {
	r.router.Delete(path, r.p.endpoint(h, mw))
}

func (r *routerAdapter) HEAD(path string, h HandlerFunc, mw ...Middleware) {
	r.router.Head(path, r.p.endpoint(h, mw))
}

func (r *routerAdapter) OPTIONS(path string, h HandlerFunc, mw ...Middleware) {
	r.router.Options(path, r.p.endpoint(h, mw))
}

func (r *routerAdapter) Any(path string, h HandlerFunc, mw ...Middleware) {
	r.router.Handle(path, r.p.endpoint(h, mw))
}

func (r *routerAdapter) Group(fn func(Router)) {
	r.router.Group(func(cr chi.Router) {
		fn(newRouterAdapter(cr, r.p))
	})
}

func (r *routerAdapter) Route(pattern string, fn func(Router)) {
	r.router.Route(pattern, func(cr chi.Router) {
		fn(newRouterAdapter(cr, r.p))
	})
}

func (r *routerAdapter) Use(mw ...Middleware) {
	for _, m := range mw {
		r.router.Use(r.p.adapt(m))
	}
}

func (r *routerAdapter) Mount(pattern string, h http.Handler) {
	r.router.Mount(pattern, h)
}
