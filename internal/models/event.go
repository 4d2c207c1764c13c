package models

import (
	"fmt"
	"time"
)

// EventKind enumerates the lifecycle events of an engine utility.
type EventKind string

const (
	EngineAdded    EventKind = "added"
	EngineModified EventKind = "modified"
	EngineRemoved  EventKind = "removed"
)

// EngineEvent records one lifecycle change of an engine held by the manager.
type EngineEvent struct {
	id         string
	engineID   string
	engineName string
	kind       EventKind
	changes    []string
	createdAt  time.Time
}

// NewEngineEvent creates an unsaved [EngineEvent] for engine.
func NewEngineEvent(kind EventKind, engine *Engine, changes []string) *EngineEvent {
	return &EngineEvent{
		engineID:   engine.ID(),
		engineName: engine.Name(),
		kind:       kind,
		changes:    changes,
		createdAt:  time.Now(),
	}
}

// RestoreEngineEvent rebuilds a stored event from its columns.
func RestoreEngineEvent(engineID, engineName string, kind EventKind, changes []string) *EngineEvent {
	return &EngineEvent{
		engineID:   engineID,
		engineName: engineName,
		kind:       kind,
		changes:    changes,
	}
}

func (e *EngineEvent) ID() string               { return e.id }
func (e *EngineEvent) SetID(id string)          { e.id = id }
func (e *EngineEvent) EngineID() string         { return e.engineID }
func (e *EngineEvent) EngineName() string       { return e.engineName }
func (e *EngineEvent) Kind() EventKind          { return e.kind }
func (e *EngineEvent) Changes() []string        { return e.changes }
func (e *EngineEvent) CreatedAt() time.Time     { return e.createdAt }
func (e *EngineEvent) SetCreatedAt(t time.Time) { e.createdAt = t }

// UpdatedAt returns the creation time: events are immutable.
func (e *EngineEvent) UpdatedAt() time.Time { return e.createdAt }

// Validate checks the event carries an engine and a known kind.
func (e *EngineEvent) Validate() error {
	if e.engineID == "" {
		return fmt.Errorf("event engine id is required")
	}
	switch e.kind {
	case EngineAdded, EngineModified, EngineRemoved:
		return nil
	default:
		return fmt.Errorf("unknown event kind: %q", e.kind)
	}
}
