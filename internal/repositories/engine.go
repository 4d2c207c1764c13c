package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/alchemy/internal/models"
	"github.com/desertthunder/alchemy/internal/shared"
)

var _ models.Repository[*models.Engine] = (*EngineRepository)(nil)

const engineColumns = `id, sequence, name, dsn, echo, use_pool, pool_size, pool_recycle, pool_timeout, echo_pool, created_at, updated_at, deleted_at`

// EngineRepository implements [models.Repository] for [models.Engine] persistence.
//
// It is the storage of the manager container: engines are keyed by their generated id.
type EngineRepository struct {
	db *sql.DB
}

// NewEngineRepository creates a new [EngineRepository] with the given database connection
func NewEngineRepository(db *sql.DB) *EngineRepository {
	return &EngineRepository{db: db}
}

// Create inserts a new engine into the database with generated ID and sequence
func (r *EngineRepository) Create(engine *models.Engine) error {
	if err := engine.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "engines")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	p := engine.Properties()

	query := `
		INSERT INTO engines (id, sequence, name, dsn, driver, echo, use_pool, pool_size, pool_recycle, pool_timeout, echo_pool, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		p.Name,
		p.DSN,
		engine.Driver(),
		p.Echo,
		p.UsePool,
		p.PoolSize,
		p.PoolRecycle,
		p.PoolTimeout,
		p.EchoPool,
		engine.CreatedAt(),
		engine.UpdatedAt(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", shared.ErrDuplicateEngine, p.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to insert engine: %w", err)
	}

	engine.SetID(id)
	engine.SetSequence(sequence)
	return nil
}

// Get retrieves an engine by ID, excluding soft-deleted engines
func (r *EngineRepository) Get(id string) (*models.Engine, error) {
	query := `SELECT ` + engineColumns + ` FROM engines WHERE id = ? AND deleted_at IS NULL`

	engine, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrEngineNotFound, id)
	}
	return engine, err
}

// GetByName retrieves a live engine by its registered name
func (r *EngineRepository) GetByName(name string) (*models.Engine, error) {
	query := `SELECT ` + engineColumns + ` FROM engines WHERE name = ? AND deleted_at IS NULL`

	engine, err := r.scan(r.db.QueryRow(query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrEngineNotFound, name)
	}
	return engine, err
}

// Update modifies an existing engine in the database.
//
// The name is immutable once the engine is registered and is never written.
func (r *EngineRepository) Update(engine *models.Engine) error {
	if err := engine.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	p := engine.Properties()

	query := `
		UPDATE engines
		SET dsn = ?, driver = ?, echo = ?, use_pool = ?, pool_size = ?, pool_recycle = ?, pool_timeout = ?, echo_pool = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		p.DSN,
		engine.Driver(),
		p.Echo,
		p.UsePool,
		p.PoolSize,
		p.PoolRecycle,
		p.PoolTimeout,
		p.EchoPool,
		now,
		engine.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update engine: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrEngineNotFound, engine.ID())
	}

	engine.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes an engine by ID
func (r *EngineRepository) Delete(id string) error {
	query := `UPDATE engines SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete engine: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrEngineNotFound, id)
	}

	return nil
}

// List retrieves all engines matching the given criteria, excluding soft-deleted engines.
//
// Supported criteria: "name" (exact match) and "driver".
func (r *EngineRepository) List(criteria map[string]any) ([]*models.Engine, error) {
	query := `SELECT ` + engineColumns + ` FROM engines WHERE deleted_at IS NULL`
	args := []any{}

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name = ?"
		args = append(args, name)
	}

	if driver, ok := criteria["driver"].(string); ok && driver != "" {
		query += " AND driver = ?"
		args = append(args, driver)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query engines: %w", err)
	}
	defer rows.Close()

	engines := []*models.Engine{}
	for rows.Next() {
		engine, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		engines = append(engines, engine)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return engines, nil
}

// scan reads one engine row.
//
// [sql.ErrNoRows] is returned unwrapped so callers can map it to [shared.ErrEngineNotFound].
func (r *EngineRepository) scan(row scanner) (*models.Engine, error) {
	var (
		id        string
		sequence  int
		p         models.EngineProperties
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &p.Name, &p.DSN, &p.Echo, &p.UsePool, &p.PoolSize, &p.PoolRecycle, &p.PoolTimeout, &p.EchoPool, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan engine: %w", err)
	}

	engine := models.NewEngine(sequence, p)
	engine.SetID(id)
	engine.SetCreatedAt(createdAt)
	engine.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		engine.SetDeletedAt(&deletedAt.Time)
	}

	return engine, nil
}
