// Package schema provides the shared declarative base for tables bound to named engines.
//
// Consumer packages declare their tables once on a [Base] (usually [Default])
// and create them on whichever engine they are deployed against.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/alchemy/internal/shared"
)

// Execer runs a statement. It is satisfied by [sql.DB], [sql.Tx], [sql.Conn] and registry sessions.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Column is one column of a declared table.
type Column struct {
	Name       string `toml:"name"`
	Type       string `toml:"type"`
	PrimaryKey bool   `toml:"primary_key"`
	NotNull    bool   `toml:"not_null"`
	Unique     bool   `toml:"unique"`
	Default    string `toml:"default"` // SQL expression, empty for none
}

// Table is a declared table.
type Table struct {
	Name        string   `toml:"name"`
	Columns     []Column `toml:"columns"`
	Constraints []string `toml:"constraints"` // table constraints appended verbatim, e.g. "UNIQUE (a, b)"
}

// CreateSQL returns the CREATE TABLE IF NOT EXISTS statement of the table.
func (t Table) CreateSQL() string {
	defs := make([]string, 0, len(t.Columns)+len(t.Constraints))
	for _, c := range t.Columns {
		def := c.Name + " " + c.Type
		if c.PrimaryKey {
			def += " PRIMARY KEY"
		}
		if c.NotNull {
			def += " NOT NULL"
		}
		if c.Unique {
			def += " UNIQUE"
		}
		if c.Default != "" {
			def += " DEFAULT " + c.Default
		}
		defs = append(defs, def)
	}
	defs = append(defs, t.Constraints...)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.Name, strings.Join(defs, ", "))
}

// DropSQL returns the DROP TABLE IF EXISTS statement of the table.
func (t Table) DropSQL() string {
	return "DROP TABLE IF EXISTS " + t.Name
}

func (t Table) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: table name is required", shared.ErrInvalidInput)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: table %s has no columns", shared.ErrInvalidInput, t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" || c.Type == "" {
			return fmt.Errorf("%w: table %s has a column without name or type", shared.ErrInvalidInput, t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: table %s declares column %s twice", shared.ErrInvalidInput, t.Name, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// Base collects table declarations in declaration order.
type Base struct {
	mu     sync.RWMutex
	tables []Table
	index  map[string]int
}

// NewBase creates an empty [Base].
func NewBase() *Base {
	return &Base{index: make(map[string]int)}
}

// Default is the base shared by every package of the process.
var Default = NewBase()

// Register declares a table. Table names are unique within a base.
func (b *Base) Register(t Table) error {
	if err := t.validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.index[t.Name]; ok {
		return fmt.Errorf("%w: table %s is already declared", shared.ErrInvalidInput, t.Name)
	}
	b.index[t.Name] = len(b.tables)
	b.tables = append(b.tables, t)
	return nil
}

// MustRegister is like [Base.Register] but panics on error, for package-level declarations.
func (b *Base) MustRegister(t Table) Table {
	if err := b.Register(t); err != nil {
		panic(err)
	}
	return t
}

// Table returns the declared table with the given name.
func (b *Base) Table(name string) (Table, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i, ok := b.index[name]
	if !ok {
		return Table{}, false
	}
	return b.tables[i], true
}

// Tables returns the declared tables in declaration order.
func (b *Base) Tables() []Table {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tables := make([]Table, len(b.tables))
	copy(tables, b.tables)
	return tables
}

// CreateAll creates every declared table missing from db, in declaration order.
func (b *Base) CreateAll(ctx context.Context, db Execer) error {
	for _, t := range b.Tables() {
		if _, err := db.ExecContext(ctx, t.CreateSQL()); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// DropAll drops every declared table, in reverse declaration order.
func (b *Base) DropAll(ctx context.Context, db Execer) error {
	tables := b.Tables()
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.ExecContext(ctx, tables[i].DropSQL()); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", tables[i].Name, err)
		}
	}
	return nil
}
