package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/alchemy/internal/shared"
)

// Session is a transaction on a named engine.
//
// Statements are logged when the engine has echo enabled.
type Session struct {
	tx     *sql.Tx
	engine string
	echo   bool
	logger *log.Logger
}

// Engine returns the name of the engine the session runs on.
func (s *Session) Engine() string { return s.engine }

// Tx exposes the underlying transaction.
func (s *Session) Tx() *sql.Tx { return s.tx }

func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	s.log(query, args)
	return s.tx.ExecContext(ctx, query, args...)
}

func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	s.log(query, args)
	return s.tx.QueryContext(ctx, query, args...)
}

func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	s.log(query, args)
	return s.tx.QueryRowContext(ctx, query, args...)
}

func (s *Session) log(query string, args []any) {
	if !s.echo {
		return
	}
	s.logger.Info(query, "engine", s.engine, "args", args)
}

// WithSession runs fn inside a transaction on the named engine.
//
// The transaction commits when fn returns nil and rolls back otherwise.
// Acquiring a connection waits at most the engine pool timeout.
func (r *Registry) WithSession(ctx context.Context, name string, fn func(*Session) error) error {
	engine, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrEngineNotFound, name)
	}

	db, err := r.DB(ctx, name)
	if err != nil {
		return err
	}

	acquireCtx, cancel := context.WithTimeout(ctx, engine.PoolTimeout())
	conn, err := db.Conn(acquireCtx)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: no connection available on %s", shared.ErrTimeout, name)
		}
		return fmt.Errorf("%w: %s: %v", shared.ErrConnectionFailed, name, err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction on %s: %w", name, err)
	}

	session := &Session{
		tx:     tx,
		engine: name,
		echo:   engine.Properties().Echo,
		logger: r.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(session); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Warn("rollback failed", "engine", name, "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction on %s: %w", name, err)
	}
	return nil
}
