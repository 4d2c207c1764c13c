// Package registry holds the named engine utilities of the process.
//
// A [Registry] maps engine names to their configuration and lazily opens one pooled [sql.DB] handle per engine,
// tuned from the engine pool options. Handles are cached with an idle expiration and closed when evicted,
// when the engine is refreshed after an edit, or when it is unregistered.
//
// [Registry.WithSession] runs a function inside a transaction on the named engine,
// committing on success and rolling back on error.
package registry
