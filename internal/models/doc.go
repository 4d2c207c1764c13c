// Package models defines domain entities and persistence interfaces for the alchemy engine registry.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs exchanged with forms, config files and exports
//   - [EngineProperties] : The editable properties of an engine (name, DSN, pool options)
//   - [EngineView] : JSON representation of an engine with its DSN redacted
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Engine] : A named engine utility held by the manager container
//   - [EngineEvent] : Lifecycle history (added, modified, removed) of an engine
//
// [Manager] describes the container itself: its label and the admin table it is rendered into.
//
// All persistent entities implement the [Model] interface providing ID generation, timestamps and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models
