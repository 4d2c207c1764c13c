package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/alchemy/internal/models"
	"github.com/desertthunder/alchemy/internal/shared"
)

// EventRepository stores the audit trail of engine lifecycle events.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new [EventRepository] with the given database connection
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts an event with a generated ID
func (r *EventRepository) Create(event *models.EngineEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO engine_events (id, engine_id, engine_name, kind, changes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		id,
		event.EngineID(),
		event.EngineName(),
		string(event.Kind()),
		strings.Join(event.Changes(), ","),
		event.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	event.SetID(id)
	return nil
}

// List returns the events of one engine, or of every engine when engineID is empty, oldest first.
func (r *EventRepository) List(engineID string) ([]*models.EngineEvent, error) {
	query := `SELECT id, engine_id, engine_name, kind, changes, created_at FROM engine_events`
	args := []any{}
	if engineID != "" {
		query += " WHERE engine_id = ?"
		args = append(args, engineID)
	}
	query += " ORDER BY created_at ASC, rowid ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []*models.EngineEvent{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func scanEvent(row scanner) (*models.EngineEvent, error) {
	var (
		id, engineID, engineName, kind, changes string
		createdAt                               time.Time
	)

	if err := row.Scan(&id, &engineID, &engineName, &kind, &changes, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	var fields []string
	if changes != "" {
		fields = strings.Split(changes, ",")
	}

	event := models.RestoreEngineEvent(engineID, engineName, models.EventKind(kind), fields)
	event.SetID(id)
	event.SetCreatedAt(createdAt)
	return event, nil
}
