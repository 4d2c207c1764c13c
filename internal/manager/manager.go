// Package manager implements the engines container: the add, clone, edit and remove operations
// behind the admin forms, keeping the manager store and the registry in step.
package manager

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/alchemy/internal/models"
	"github.com/desertthunder/alchemy/internal/registry"
	"github.com/desertthunder/alchemy/internal/repositories"
	"github.com/desertthunder/alchemy/internal/shared"
)

// DuplicateNameMessage is the form error raised when an added or cloned engine reuses a registered name.
const DuplicateNameMessage = "An SQLAlchemy engine is already registered with this name!"

// Event is a lifecycle notification of the container.
type Event struct {
	Kind    models.EventKind
	Engine  *models.Engine
	Changes []string
}

// Subscriber receives container events synchronously, after the change is stored and registered.
type Subscriber func(Event)

// Service is the engines container of a site.
type Service struct {
	mu          sync.Mutex
	info        models.Manager
	engines     *repositories.EngineRepository
	events      *repositories.EventRepository
	registry    *registry.Registry
	logger      *log.Logger
	subscribers []Subscriber
}

// New creates a [Service] persisting engines in db and registering them in reg.
func New(db *sql.DB, reg *registry.Registry, info models.Manager, logger *log.Logger) *Service {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Service{
		info:     info,
		engines:  repositories.NewEngineRepository(db),
		events:   repositories.NewEventRepository(db),
		registry: reg,
		logger:   shared.WithLogger(logger, "component", "manager"),
	}
}

// Info describes the container.
func (s *Service) Info() models.Manager { return s.info }

// Registry returns the registry the container publishes its engines to.
func (s *Service) Registry() *registry.Registry { return s.registry }

// Subscribe registers fn for every later event.
func (s *Service) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Load registers the static engines declared in the configuration, then every persisted engine.
//
// A persisted engine whose name is taken by a static one is skipped with a warning.
func (s *Service) Load(static []shared.EngineConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range static {
		engine := models.NewStaticEngine(models.PropertiesFromConfig(c))
		if err := s.registry.Register(engine); err != nil {
			return fmt.Errorf("failed to register static engine %q: %w", c.Name, err)
		}
	}

	engines, err := s.engines.List(nil)
	if err != nil {
		return fmt.Errorf("failed to load engines: %w", err)
	}

	for _, engine := range engines {
		if err := s.registry.Register(engine); err != nil {
			s.logger.Warn("engine not registered", "engine", engine.Name(), "id", engine.ID(), "error", err)
			continue
		}
	}

	s.logger.Info("engines loaded", "static", len(static), "stored", len(engines), "registered", s.registry.Len())
	return nil
}

// Get returns the engine stored under oid, including static engines.
func (s *Service) Get(oid string) (*models.Engine, error) {
	engine, err := s.engines.Get(oid)
	if err == nil {
		return engine, nil
	}
	if !errors.Is(err, shared.ErrEngineNotFound) {
		return nil, err
	}

	for _, e := range s.registry.Engines() {
		if e.Static() && e.ID() == oid {
			return e, nil
		}
	}
	return nil, err
}

// List returns the stored engines in sequence order followed by the static engines by name.
func (s *Service) List() ([]*models.Engine, error) {
	engines, err := s.engines.List(nil)
	if err != nil {
		return nil, err
	}

	static := []*models.Engine{}
	for _, e := range s.registry.Engines() {
		if e.Static() {
			static = append(static, e)
		}
	}
	sort.Slice(static, func(i, j int) bool { return static[i].Name() < static[j].Name() })

	return append(engines, static...), nil
}

// History returns the recorded lifecycle events of an engine, or of the whole container when oid is empty.
func (s *Service) History(oid string) ([]*models.EngineEvent, error) {
	return s.events.List(oid)
}

// ExtractAddData checks submitted add form data, including that no engine is already registered with its name.
func (s *Service) ExtractAddData(props models.EngineProperties) (models.EngineProperties, error) {
	props = props.Normalize()

	form := &FormError{}
	if err := props.Validate(); err != nil {
		var verrs models.ValidationErrors
		if !errors.As(err, &verrs) {
			return props, err
		}
		form.Fields = verrs
	}

	if props.Name != "" {
		if _, taken := s.registry.Lookup(props.Name); taken {
			form.Messages = append(form.Messages, DuplicateNameMessage)
		}
	}

	return props, form.Err()
}

// Add stores a new engine built from the add form data under a generated id and registers it.
func (s *Service) Add(props models.EngineProperties) (*models.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	props, err := s.ExtractAddData(props)
	if err != nil {
		return nil, err
	}

	return s.add(models.NewEngine(0, props))
}

// Clone stores a copy of the engine stored under oid with a new name.
//
// Every other property is copied from the source engine.
func (s *Service) Clone(oid, name string) (*models.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source, err := s.Get(oid)
	if err != nil {
		return nil, err
	}

	clone := source.Copy()
	props := clone.Properties()
	props.Name = name

	props, err = s.ExtractAddData(props)
	if err != nil {
		return nil, err
	}
	clone.SetProperties(props)

	engine, err := s.add(clone)
	if err != nil {
		return nil, err
	}

	s.logger.Info("engine cloned", "source", source.Name(), "engine", engine.Name(), "id", engine.ID())
	return engine, nil
}

func (s *Service) add(engine *models.Engine) (*models.Engine, error) {
	if err := s.engines.Create(engine); err != nil {
		if errors.Is(err, shared.ErrDuplicateEngine) {
			return nil, &FormError{Messages: []string{DuplicateNameMessage}}
		}
		return nil, err
	}

	if err := s.registry.Register(engine); err != nil {
		if delErr := s.engines.Delete(engine.ID()); delErr != nil {
			s.logger.Error("failed to discard unregistered engine", "id", engine.ID(), "error", delErr)
		}
		if errors.Is(err, shared.ErrDuplicateEngine) {
			return nil, &FormError{Messages: []string{DuplicateNameMessage}}
		}
		return nil, err
	}

	s.logger.Info("engine added", "engine", engine.Name(), "id", engine.ID(), "dsn", engine.RedactedDSN())
	s.emit(Event{Kind: models.EngineAdded, Engine: engine})
	return engine, nil
}

// Edit applies the edit form data to the engine stored under oid and returns the changed fields.
//
// The name is displayed only and never changes. Nothing is stored when no field changed.
func (s *Service) Edit(oid string, props models.EngineProperties) (*models.Engine, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	engine, err := s.editable(oid)
	if err != nil {
		return nil, nil, err
	}

	props.Name = engine.Name()
	props = props.Normalize()
	if err := props.Validate(); err != nil {
		var verrs models.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, nil, &FormError{Fields: verrs}
		}
		return nil, nil, err
	}

	if holder, ok := s.registry.Lookup(engine.Name()); ok && holder.ID() != engine.ID() {
		return nil, nil, fmt.Errorf("%w: %s is registered by engine %s", shared.ErrDuplicateEngine, engine.Name(), holder.ID())
	}

	changes := engine.SetProperties(props)
	if len(changes) == 0 {
		return engine, changes, nil
	}

	if err := s.engines.Update(engine); err != nil {
		return nil, nil, err
	}
	if err := s.registry.Refresh(engine); err != nil {
		if !errors.Is(err, shared.ErrEngineNotFound) {
			return nil, nil, err
		}
		if err := s.registry.Register(engine); err != nil {
			return nil, nil, err
		}
	}

	s.logger.Info("engine modified", "engine", engine.Name(), "id", engine.ID(), "changes", changes)
	s.emit(Event{Kind: models.EngineModified, Engine: engine, Changes: changes})
	return engine, changes, nil
}

// Remove deletes the engine stored under oid and unregisters it.
func (s *Service) Remove(oid string) (*models.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	engine, err := s.editable(oid)
	if err != nil {
		return nil, err
	}

	if err := s.engines.Delete(engine.ID()); err != nil {
		return nil, err
	}
	if err := s.registry.Unregister(engine); err != nil && !errors.Is(err, shared.ErrEngineNotFound) {
		return nil, err
	}

	s.logger.Info("engine removed", "engine", engine.Name(), "id", engine.ID())
	s.emit(Event{Kind: models.EngineRemoved, Engine: engine})
	return engine, nil
}

// editable returns the stored engine under oid, refusing static engines.
func (s *Service) editable(oid string) (*models.Engine, error) {
	engine, err := s.Get(oid)
	if err != nil {
		return nil, err
	}
	if engine.Static() {
		return nil, fmt.Errorf("%w: %s", shared.ErrReadOnlyEngine, engine.Name())
	}
	return engine, nil
}

// emit records the event and notifies subscribers. Callers hold s.mu.
func (s *Service) emit(e Event) {
	record := models.NewEngineEvent(e.Kind, e.Engine, e.Changes)
	if err := s.events.Create(record); err != nil {
		s.logger.Warn("failed to record event", "kind", e.Kind, "engine", e.Engine.Name(), "error", err)
	}

	for _, fn := range s.subscribers {
		fn(e)
	}
}
