// Package internal implements the gateway's HTTP core. Import
// "github.com/cmsplatform/gateway" instead, which re-exports the public API.
//
// # Core Types
//
//   - App: owns the route registry, serves the current route table and runs
//     the server lifecycle
//   - Registry: route groups and registrars, read lock-free from snapshots
//   - Registrar: a feature module contributing routes under a prefix
//   - Router: the interface registrars declare routes on
//   - Context: request and response access; it is also a context.Context
//   - HandlerFunc, Middleware, ErrorHandler: the handler chain
//
// # Request Flow
//
// Global middleware (request id, panic recovery, metrics, request timeout,
// token verification) runs for every request. The route table then resolves
// the path. Route stages (authentication gate, admission control) run only
// for resolved routes, so an unknown path is a 404 before any gate runs.
// Every error a handler or stage returns reaches the error handler, which
// by default is [DefaultErrorHandler] over [TranslateError]:
//
//	*HTTPError                        its status, {"error", "code"}
//	*TimeoutError, DeadlineExceeded   504 {"error":"request timed out"}
//	*SecurityError                    401 {"error": message}
//	ErrRouteNotFound                  404 {"error":"resource not found"}
//	anything else                     500 {"error":"internal error"}
//
// # Route Table
//
// [Registry.BuildRouteTable] mounts each root group as a sub-router, attaches
// registrars whose prefix equals the group's full path, then recurses into
// child groups. Registrars matching no group mount standalone. Mount errors
// and router panics are collected in a [MountReport]; the rest of the table
// still builds. [App.Rebuild] swaps in a fresh table atomically after the
// registry changes.
package internal
