// Package web implements the engines management views of the admin API.
//
// The views mirror the admin forms of the engines container and answer with JSON descriptors
// a browser client renders:
//
//   - Engines table: one row per engine with name, DSN, pool and echo cells plus clone and trash actions
//   - Toolbar: the "Add SQL engine" action, shown only with the manage permission
//   - Add, clone and edit forms: GET returns the form descriptor, POST submits it
//   - AJAX renderers: a successful submit returns callbacks adding or refreshing a table row
//
// Routes
//
//	GET    /api/engines                  → engines table
//	GET    /api/engines/add              → add form
//	POST   /api/engines/add              → add an engine
//	GET    /api/engines/{oid}/clone      → clone form
//	POST   /api/engines/{oid}/clone      → clone an engine
//	GET    /api/engines/{oid}/properties → edit form
//	POST   /api/engines/{oid}/properties → edit an engine
//	DELETE /api/engines/{oid}            → remove an engine
//	GET    /api/engines/{oid}/history    → lifecycle events
//	POST   /api/engines/{oid}/test       → connectivity check
//	GET    /api/vocabularies/engines     → registered engine names
//	GET    /health                       → liveness
//
// Every form and mutating route requires the manage_sql_engines permission.
package web
