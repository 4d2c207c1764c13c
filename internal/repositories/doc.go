// Package repositories implements SQLite persistence for the engines container.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Engines are soft deleted via deleted_at timestamps and excluded from queries by default,
// so a removed engine's name can be reused while its history stays queryable.
//
// Key Implementations:
//   - [EngineRepository] : Engine utility persistence with name-based lookups
//   - [EventRepository] : Append-only lifecycle history of engines
//
// Sequence numbers provide stable, human-readable ordering (e.g., engine #3) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
