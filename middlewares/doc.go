// Package middlewares provides the gateway's request stages.
//
// Global middleware runs before route resolution and applies to every
// request, including ones that end in 404:
//
//   - CORS answers preflight requests.
//   - RequestID assigns an id, echoes it in X-Request-ID and forwards it
//     downstream.
//   - Metrics records request counts and latency per route pattern.
//   - Recover turns panics into a *PanicError (translated to 500).
//   - Timeout puts a deadline on the request context.
//   - Authenticate verifies a bearer token and stores the principal.
//
// Route stages run only on resolved endpoints and are installed with
// gateway.WithRouteStages:
//
//   - AuthGate rejects protected paths without a principal (401).
//   - RateLimit applies per client and path family budgets (429).
//
// # Recommended order
//
//	app, err := gateway.New(
//	    gateway.WithLogger(log),
//	    gateway.WithMiddleware(
//	        middlewares.CORS(),
//	        middlewares.RequestID(),
//	        middlewares.Metrics(m),
//	        middlewares.Recover(),
//	        middlewares.Timeout(30*time.Second),
//	        middlewares.Authenticate(verifier),
//	    ),
//	    gateway.WithRouteStages(
//	        middlewares.AuthGate(gate, middlewares.WithStageMetrics(m)),
//	        middlewares.RateLimit(limiter, middlewares.WithStageMetrics(m)),
//	    ),
//	)
//
// Use RequestIDExtractor and PrincipalExtractor with the logger so every
// record carries request_id and principal:
//
//	log := logger.New(middlewares.RequestIDExtractor(), middlewares.PrincipalExtractor())
package middlewares
