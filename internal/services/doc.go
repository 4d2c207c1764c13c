// Package services implements the [Client] used by the CLI to reach a running admin server.
//
// # API Client
//
// [APIService] performs raw GET, POST and DELETE requests against the admin routes and decodes
// JSON bodies when present. A bearer token, when configured, is sent on every request.
//
// Requests failing at the transport level are retried with a fixed delay. HTTP error statuses are
// returned as responses, never retried.
//
// # Typed Helpers
//
// [APIService.Engines] and [APIService.CheckEngine] decode the engines table and connectivity
// check answers of the admin API.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : request could not be built, sent or read
//   - [shared.ErrNotAuthenticated] : the server answered 401
//   - [shared.ErrForbidden] : the server answered 403
package services
