// Package server provides HTTP routing, middleware, authentication and metrics for the admin API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// The [BasicRouter] implementation uses gorilla/mux internally, so routes carry path variables
// (e.g. /api/engines/{oid}) and method matching.
//
// [Middleware] added with [BasicRouter.Use] runs for every matched route, in the order it was added.
//
// # Handler Interface
//
// Groups of endpoints implement the [Handler] interface and register their own routes,
// keeping route definitions next to the handlers serving them.
//
// # Middleware
//
//   - [Logging] and [Recover] for request logs and panics
//   - [CORS] for browser clients of the admin API
//   - [RateLimiter] for per-client token buckets
//   - [Authenticator.Require] for bearer JWTs carrying a permissions claim
//   - [Metrics.Middleware] for Prometheus request counters
//
// # Errors
//
// Failed requests answer with an [ErrorResponse]; [StatusFor] maps sentinel errors to HTTP statuses.
package server
