// Package gateway is the edge request pipeline of the CMS platform.
//
// A request passes through global middleware, is resolved against a route
// table built from a registry of route groups and registrars, runs the route
// stages (authentication gate, admission control), and is finally dispatched
// to a downstream service. Failures along the way end in one error
// translator that writes a JSON body.
//
// # Route groups and registrars
//
// Groups form a forest of path prefixes. A registrar whose prefix equals the
// full path of a group is mounted inside it; any other registrar is mounted
// standalone at its own prefix. A registrar that fails to mount is skipped
// and reported; the rest of the table still serves.
//
//	app, err := gateway.New(
//	    gateway.WithGroups(
//	        gateway.RouteGroup{Name: "api", Prefix: "/api"},
//	        gateway.RouteGroup{Name: "content", Prefix: "/content", Parent: "api"},
//	    ),
//	    gateway.WithRegistrar("content", proxy.New(services.Content, "/api/content", client, fb)),
//	)
//
// # Errors
//
// Handlers and stages return errors. The default error handler maps them:
//
//	*HTTPError                  its own status and body
//	*TimeoutError, deadline     504 {"error":"request timed out"}
//	*SecurityError              401 {"error":"authentication required"}
//	ErrRouteNotFound            404 {"error":"resource not found"}
//	anything else               500 {"error":"internal error"}
//
// Internal details never reach the client; 5xx errors are logged with the
// cause.
//
// # Running
//
//	err := app.Run(
//	    gateway.Address(":8080"),
//	    gateway.ShutdownTimeout(30*time.Second),
//	    gateway.ShutdownHook(redis.Shutdown(client)),
//	)
//
// Run blocks until SIGINT or SIGTERM, then drains in-flight requests and
// runs the shutdown hooks.
package gateway
