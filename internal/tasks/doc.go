// Package tasks runs connectivity checks against the registered engines with real-time progress reporting.
//
// # Core Operations
//
//  1. [Checker.Check] : Probe a single engine
//     - Opens the engine handle if needed and pings it within the engine pool timeout
//     - Retries transient failures with a fixed delay
//     - Returns latency, attempts and pool statistics
//
//  2. [Checker.CheckAll] : Probe every registered engine
//     - Worker pool with a shared rate limiter
//     - Results sorted by engine name with healthy/failed counts
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
