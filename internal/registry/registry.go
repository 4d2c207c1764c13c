package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	gocache "github.com/patrickmn/go-cache"

	"github.com/desertthunder/alchemy/internal/models"
	"github.com/desertthunder/alchemy/internal/shared"
)

const (
	DefaultIdleTTL         = 10 * time.Minute
	DefaultCleanupInterval = time.Minute
)

// HandleFunc observes a handle being opened or closed.
type HandleFunc func(name string, db *sql.DB)

// Options configures a [Registry].
type Options struct {
	IdleTTL         time.Duration // idle time before a handle is closed, <= 0 keeps handles open
	CleanupInterval time.Duration
	OnOpen          HandleFunc
	OnClose         HandleFunc
}

// Registry is the set of named engine utilities with their live handles.
//
// Registered engines must not be mutated by callers: use [Registry.Refresh] to replace a configuration.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*models.Engine

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex // serializes opening and dropping the handle of one engine

	handles *gocache.Cache
	opts    Options
	logger  *log.Logger
}

type handle struct {
	db     *sql.DB
	engine *models.Engine
	ttl    time.Duration
}

// New creates an empty [Registry].
func New(logger *log.Logger, opts Options) *Registry {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.IdleTTL == 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}

	r := &Registry{
		engines: make(map[string]*models.Engine),
		locks:   make(map[string]*sync.Mutex),
		handles: gocache.New(gocache.NoExpiration, opts.CleanupInterval),
		opts:    opts,
		logger:  shared.WithLogger(logger, "component", "registry"),
	}
	r.handles.OnEvicted(r.evicted)
	return r
}

var (
	defaultMu       sync.RWMutex
	defaultRegistry *Registry
)

// Default returns the process-wide registry, creating it on first use.
func Default() *Registry {
	defaultMu.RLock()
	r := defaultRegistry
	defaultMu.RUnlock()
	if r != nil {
		return r
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = New(nil, Options{})
	}
	return defaultRegistry
}

// SetDefault replaces the process-wide registry.
func SetDefault(r *Registry) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRegistry = r
}

// Register adds an engine utility under its name.
//
// Registering the same engine id again replaces its configuration; another id holding the name is an error.
func (r *Registry) Register(engine *models.Engine) error {
	if err := engine.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	r.mu.Lock()
	existing, ok := r.engines[engine.Name()]
	if ok && existing.ID() != engine.ID() {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrDuplicateEngine, engine.Name())
	}
	r.engines[engine.Name()] = engine
	r.mu.Unlock()

	if ok {
		r.dropHandle(engine.Name())
	}

	r.logger.Debug("engine registered", "engine", engine.Name(), "driver", engine.Driver(), "dsn", engine.RedactedDSN())
	return nil
}

// Unregister removes engine and closes its handle.
//
// Nothing is removed when its name is registered by another engine id.
func (r *Registry) Unregister(engine *models.Engine) error {
	name := engine.Name()

	r.mu.Lock()
	existing, ok := r.engines[name]
	if !ok || existing.ID() != engine.ID() {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s (%s)", shared.ErrEngineNotFound, name, engine.ID())
	}
	delete(r.engines, name)
	r.mu.Unlock()

	r.dropHandle(name)
	r.logger.Debug("engine unregistered", "engine", name)
	return nil
}

// Refresh replaces the configuration of a registered engine and clears its handle,
// so the next [Registry.DB] call reopens it with the new options.
func (r *Registry) Refresh(engine *models.Engine) error {
	if err := engine.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	r.mu.Lock()
	existing, ok := r.engines[engine.Name()]
	if !ok || existing.ID() != engine.ID() {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrEngineNotFound, engine.Name())
	}
	r.engines[engine.Name()] = engine
	r.mu.Unlock()

	r.dropHandle(engine.Name())
	r.logger.Debug("engine refreshed", "engine", engine.Name())
	return nil
}

// Lookup returns the engine registered under name.
func (r *Registry) Lookup(name string) (*models.Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	engine, ok := r.engines[name]
	return engine, ok
}

// Names returns the sorted names of the registered engines.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Engines returns the registered engines sorted by name.
func (r *Registry) Engines() []*models.Engine {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	engines := make([]*models.Engine, 0, len(names))
	for _, name := range names {
		if engine, ok := r.engines[name]; ok {
			engines = append(engines, engine)
		}
	}
	return engines
}

// Len returns the number of registered engines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}

// DB returns the pooled handle of the named engine, opening it on first use.
//
// Only callers of the same engine wait while its handle is being opened.
func (r *Registry) DB(ctx context.Context, name string) (*sql.DB, error) {
	if _, ok := r.Lookup(name); !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrEngineNotFound, name)
	}

	lock := r.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	engine, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrEngineNotFound, name)
	}

	if v, found := r.handles.Get(name); found {
		h := v.(*handle)
		if h.engine == engine {
			r.handles.Set(name, h, h.ttl)
			return h.db, nil
		}
	}

	// expired items stay cached until the janitor runs and Set would replace them unclosed
	r.handles.Delete(name)

	db, err := openHandle(ctx, engine)
	if err != nil {
		return nil, err
	}

	ttl := r.opts.IdleTTL
	if ttl < 0 || engine.Memory() {
		ttl = gocache.NoExpiration
	}
	r.handles.Set(name, &handle{db: db, engine: engine, ttl: ttl}, ttl)

	if engine.Properties().EchoPool {
		r.logger.Info("pool opened", "engine", name, "driver", engine.Driver(), "pool_size", engine.Properties().PoolSize)
	}
	if r.opts.OnOpen != nil {
		r.opts.OnOpen(name, db)
	}

	return db, nil
}

// Stats returns the pool statistics of the named engine when its handle is open.
func (r *Registry) Stats(name string) (sql.DBStats, bool) {
	v, found := r.handles.Get(name)
	if !found {
		return sql.DBStats{}, false
	}
	return v.(*handle).db.Stats(), true
}

// Close closes every open handle. Registered engines are kept.
func (r *Registry) Close() error {
	r.handles.DeleteExpired()
	for name := range r.handles.Items() {
		r.handles.Delete(name)
	}
	return nil
}

// Ping opens the named engine if needed and checks it answers within its pool timeout.
func (r *Registry) Ping(ctx context.Context, name string) error {
	engine, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrEngineNotFound, name)
	}

	db, err := r.DB(ctx, name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, engine.PoolTimeout())
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", shared.ErrTimeout, name)
		}
		return fmt.Errorf("%w: %s: %v", shared.ErrConnectionFailed, name, err)
	}
	return nil
}

func (r *Registry) dropHandle(name string) {
	lock := r.nameLock(name)
	lock.Lock()
	defer lock.Unlock()
	r.handles.Delete(name)
}

func (r *Registry) nameLock(name string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	lock, ok := r.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[name] = lock
	}
	return lock
}

// evicted closes a handle leaving the cache, whether it expired or was deleted.
func (r *Registry) evicted(name string, v any) {
	h, ok := v.(*handle)
	if !ok {
		return
	}

	if err := h.db.Close(); err != nil {
		r.logger.Warn("failed to close pool", "engine", name, "error", err)
	}
	if h.engine.Properties().EchoPool {
		r.logger.Info("pool closed", "engine", name)
	}
	if r.opts.OnClose != nil {
		r.opts.OnClose(name, h.db)
	}
}

var openHandle = open

// open creates the handle of engine and applies its pool options.
func open(ctx context.Context, engine *models.Engine) (*sql.DB, error) {
	d, err := engine.ParsedDSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.Driver, d.DataSource)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrConnectionFailed, engine.Name(), err)
	}

	p := engine.Properties()
	switch {
	case d.Memory:
		// every connection to an in-memory database sees its own copy
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case !p.UsePool:
		db.SetMaxOpenConns(p.PoolSize)
		db.SetMaxIdleConns(0)
		db.SetConnMaxLifetime(engine.PoolRecycle())
	default:
		db.SetMaxOpenConns(p.PoolSize)
		if p.PoolSize > 0 {
			db.SetMaxIdleConns(p.PoolSize)
		}
		db.SetConnMaxLifetime(engine.PoolRecycle())
	}

	pingCtx, cancel := context.WithTimeout(ctx, engine.PoolTimeout())
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrConnectionFailed, engine.Name(), err)
	}

	return db, nil
}
