package models

import (
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/alchemy/internal/dsn"
	"github.com/desertthunder/alchemy/internal/shared"
)

// Engine property defaults.
const (
	DefaultDSN         = "sqlite://"
	DefaultPoolSize    = 25
	DefaultPoolRecycle = -1
	DefaultPoolTimeout = 30
)

// EngineProperties are the editable properties of an engine utility.
type EngineProperties struct {
	Name        string `json:"name"`
	DSN         string `json:"dsn"`
	Echo        bool   `json:"echo"`
	UsePool     bool   `json:"use_pool"`
	PoolSize    int    `json:"pool_size"`    // maximum open connections, 0 for unlimited
	PoolRecycle int    `json:"pool_recycle"` // connection lifetime in seconds, -1 for never
	PoolTimeout int    `json:"pool_timeout"` // seconds to wait for a connection
	EchoPool    bool   `json:"echo_pool"`
}

// DefaultEngineProperties returns the properties of a freshly created engine.
func DefaultEngineProperties() EngineProperties {
	return EngineProperties{
		DSN:         DefaultDSN,
		UsePool:     true,
		PoolSize:    DefaultPoolSize,
		PoolRecycle: DefaultPoolRecycle,
		PoolTimeout: DefaultPoolTimeout,
	}
}

// PropertiesFromConfig applies a static engine declaration over the defaults.
func PropertiesFromConfig(c shared.EngineConfig) EngineProperties {
	p := DefaultEngineProperties()
	p.Name = c.Name
	if c.DSN != "" {
		p.DSN = c.DSN
	}
	p.Echo = c.Echo
	p.EchoPool = c.EchoPool
	if c.UsePool != nil {
		p.UsePool = *c.UsePool
	}
	if c.PoolSize != nil {
		p.PoolSize = *c.PoolSize
	}
	if c.PoolRecycle != nil {
		p.PoolRecycle = *c.PoolRecycle
	}
	if c.PoolTimeout != nil {
		p.PoolTimeout = *c.PoolTimeout
	}
	return p
}

// Normalize trims surrounding whitespace from text properties.
func (p EngineProperties) Normalize() EngineProperties {
	p.Name = strings.TrimSpace(p.Name)
	p.DSN = strings.TrimSpace(p.DSN)
	return p
}

// Validate checks every property and reports all failures at once.
func (p EngineProperties) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(p.Name) == "" {
		errs.Add("name", "Required input is missing.")
	}

	if strings.TrimSpace(p.DSN) == "" {
		errs.Add("dsn", "Required input is missing.")
	} else if _, err := dsn.Parse(p.DSN); err != nil {
		errs.Add("dsn", err.Error())
	}

	if p.PoolSize < 0 {
		errs.Add("pool_size", "Value is too small.")
	}
	if p.PoolRecycle < -1 {
		errs.Add("pool_recycle", "Value is too small.")
	}
	if p.PoolTimeout <= 0 {
		errs.Add("pool_timeout", "Value is too small.")
	}

	return errs.Err()
}

// Diff returns the sorted names of properties that differ between p and other.
func (p EngineProperties) Diff(other EngineProperties) []string {
	changes := []string{}
	add := func(changed bool, field string) {
		if changed {
			changes = append(changes, field)
		}
	}

	add(p.Name != other.Name, "name")
	add(p.DSN != other.DSN, "dsn")
	add(p.Echo != other.Echo, "echo")
	add(p.UsePool != other.UsePool, "use_pool")
	add(p.PoolSize != other.PoolSize, "pool_size")
	add(p.PoolRecycle != other.PoolRecycle, "pool_recycle")
	add(p.PoolTimeout != other.PoolTimeout, "pool_timeout")
	add(p.EchoPool != other.EchoPool, "echo_pool")

	sort.Strings(changes)
	return changes
}

// Engine is a named engine utility: one configured database connection held by the manager.
type Engine struct {
	id        string
	sequence  int
	props     EngineProperties
	static    bool
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewEngine creates an unsaved [Engine] with the given properties.
func NewEngine(sequence int, props EngineProperties) *Engine {
	now := time.Now()
	return &Engine{
		sequence:  sequence,
		props:     props.Normalize(),
		createdAt: now,
		updatedAt: now,
	}
}

// NewStaticEngine creates an engine declared in the configuration file.
//
// Static engines are registered under their name and never persisted.
func NewStaticEngine(props EngineProperties) *Engine {
	e := NewEngine(0, props)
	e.id = "static:" + e.props.Name
	e.static = true
	return e
}

func (e *Engine) ID() string                   { return e.id }
func (e *Engine) SetID(id string)              { e.id = id }
func (e *Engine) Sequence() int                { return e.sequence }
func (e *Engine) SetSequence(seq int)          { e.sequence = seq }
func (e *Engine) Name() string                 { return e.props.Name }
func (e *Engine) DSN() string                  { return e.props.DSN }
func (e *Engine) Static() bool                 { return e.static }
func (e *Engine) Properties() EngineProperties { return e.props }
func (e *Engine) CreatedAt() time.Time         { return e.createdAt }
func (e *Engine) SetCreatedAt(t time.Time)     { e.createdAt = t }
func (e *Engine) UpdatedAt() time.Time         { return e.updatedAt }
func (e *Engine) SetUpdatedAt(t time.Time)     { e.updatedAt = t }
func (e *Engine) DeletedAt() *time.Time        { return e.deletedAt }
func (e *Engine) SetDeletedAt(t *time.Time)    { e.deletedAt = t }
func (e *Engine) IsDeleted() bool              { return e.deletedAt != nil }

// SetProperties replaces the engine properties and returns the names of the fields that changed.
func (e *Engine) SetProperties(props EngineProperties) []string {
	props = props.Normalize()
	changes := e.props.Diff(props)
	e.props = props
	return changes
}

// Driver returns the database/sql driver name for the engine DSN, or "" when it does not parse.
func (e *Engine) Driver() string {
	d, err := dsn.Parse(e.props.DSN)
	if err != nil {
		return ""
	}
	return d.Driver
}

// ParsedDSN parses the engine DSN.
func (e *Engine) ParsedDSN() (*dsn.DSN, error) {
	return dsn.Parse(e.props.DSN)
}

// RedactedDSN returns the DSN with its password masked.
func (e *Engine) RedactedDSN() string {
	d, err := dsn.Parse(e.props.DSN)
	if err != nil {
		return e.props.DSN
	}
	return d.Redacted()
}

// Memory reports whether the engine is an in-process database living only as long as its connections.
func (e *Engine) Memory() bool {
	d, err := dsn.Parse(e.props.DSN)
	return err == nil && d.Memory
}

// PoolRecycle returns the maximum connection lifetime, 0 meaning connections are reused forever.
func (e *Engine) PoolRecycle() time.Duration {
	if e.props.PoolRecycle <= 0 {
		return 0
	}
	return time.Duration(e.props.PoolRecycle) * time.Second
}

// PoolTimeout returns how long a session may wait to acquire a connection.
func (e *Engine) PoolTimeout() time.Duration {
	return time.Duration(e.props.PoolTimeout) * time.Second
}

// Validate checks if the engine's data is valid.
func (e *Engine) Validate() error {
	return e.props.Validate()
}

// Copy returns an unsaved deep copy of the engine: every property is kept, identity and timestamps are not.
func (e *Engine) Copy() *Engine {
	return NewEngine(0, e.props)
}

// EngineView is the JSON representation of an engine.
type EngineView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DSN         string    `json:"dsn"`
	Driver      string    `json:"driver"`
	Echo        bool      `json:"echo"`
	UsePool     bool      `json:"use_pool"`
	PoolSize    int       `json:"pool_size"`
	PoolRecycle int       `json:"pool_recycle"`
	PoolTimeout int       `json:"pool_timeout"`
	EchoPool    bool      `json:"echo_pool"`
	Static      bool      `json:"static"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// View returns the [EngineView] of the engine with its DSN redacted.
func (e *Engine) View() EngineView {
	return EngineView{
		ID:          e.id,
		Name:        e.props.Name,
		DSN:         e.RedactedDSN(),
		Driver:      e.Driver(),
		Echo:        e.props.Echo,
		UsePool:     e.props.UsePool,
		PoolSize:    e.props.PoolSize,
		PoolRecycle: e.props.PoolRecycle,
		PoolTimeout: e.props.PoolTimeout,
		EchoPool:    e.props.EchoPool,
		Static:      e.static,
		CreatedAt:   e.createdAt,
		UpdatedAt:   e.updatedAt,
	}
}
