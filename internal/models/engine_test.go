package models

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/desertthunder/alchemy/internal/shared"
)

func TestEngineProperties(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		p := DefaultEngineProperties()
		if p.DSN != "sqlite://" || !p.UsePool || p.PoolSize != 25 || p.PoolRecycle != -1 || p.PoolTimeout != 30 {
			t.Errorf("unexpected defaults: %+v", p)
		}
		if p.Echo || p.EchoPool {
			t.Error("echo options should default to false")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*EngineProperties)
			fields []string
		}{
			{name: "valid", mutate: func(p *EngineProperties) {}, fields: nil},
			{name: "missing name", mutate: func(p *EngineProperties) { p.Name = "  " }, fields: []string{"name"}},
			{name: "missing dsn", mutate: func(p *EngineProperties) { p.DSN = "" }, fields: []string{"dsn"}},
			{name: "unsupported dsn", mutate: func(p *EngineProperties) { p.DSN = "oracle://db" }, fields: []string{"dsn"}},
			{name: "negative pool size", mutate: func(p *EngineProperties) { p.PoolSize = -1 }, fields: []string{"pool_size"}},
			{name: "pool recycle below -1", mutate: func(p *EngineProperties) { p.PoolRecycle = -2 }, fields: []string{"pool_recycle"}},
			{name: "zero pool timeout", mutate: func(p *EngineProperties) { p.PoolTimeout = 0 }, fields: []string{"pool_timeout"}},
			{
				name:   "reports every failure",
				mutate: func(p *EngineProperties) { p.Name = ""; p.PoolSize = -5 },
				fields: []string{"name", "pool_size"},
			},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				p := DefaultEngineProperties()
				p.Name = "main"
				tt.mutate(&p)

				err := p.Validate()
				if tt.fields == nil {
					if err != nil {
						t.Fatalf("expected no error, got %v", err)
					}
					return
				}

				var verrs ValidationErrors
				if !errors.As(err, &verrs) {
					t.Fatalf("expected ValidationErrors, got %v", err)
				}
				if !errors.Is(err, shared.ErrInvalidInput) {
					t.Error("validation errors should match ErrInvalidInput")
				}

				got := make([]string, len(verrs))
				for i, fe := range verrs {
					got[i] = fe.Field
				}
				if !reflect.DeepEqual(got, tt.fields) {
					t.Errorf("fields = %v, want %v", got, tt.fields)
				}
			})
		}
	})

	t.Run("Diff", func(t *testing.T) {
		a := DefaultEngineProperties()
		a.Name = "main"
		b := a
		if changes := a.Diff(b); len(changes) != 0 {
			t.Errorf("expected no changes, got %v", changes)
		}

		b.PoolSize = 5
		b.Echo = true
		b.DSN = "sqlite:///app.db"
		want := []string{"dsn", "echo", "pool_size"}
		if changes := a.Diff(b); !reflect.DeepEqual(changes, want) {
			t.Errorf("changes = %v, want %v", changes, want)
		}
	})

	t.Run("PropertiesFromConfig", func(t *testing.T) {
		usePool := false
		size := 3
		p := PropertiesFromConfig(shared.EngineConfig{Name: "cfg", UsePool: &usePool, PoolSize: &size})

		if p.Name != "cfg" || p.UsePool || p.PoolSize != 3 {
			t.Errorf("explicit values not applied: %+v", p)
		}
		if p.DSN != DefaultDSN || p.PoolTimeout != DefaultPoolTimeout || p.PoolRecycle != DefaultPoolRecycle {
			t.Errorf("defaults not kept for unset values: %+v", p)
		}
	})
}

func TestEngine(t *testing.T) {
	newEngine := func() *Engine {
		p := DefaultEngineProperties()
		p.Name = " main "
		p.DSN = "postgresql://scott:tiger@db/shop"
		return NewEngine(1, p)
	}

	t.Run("NewEngine normalizes properties", func(t *testing.T) {
		e := newEngine()
		if e.Name() != "main" {
			t.Errorf("expected trimmed name, got %q", e.Name())
		}
		if e.Driver() != "postgres" {
			t.Errorf("expected postgres driver, got %q", e.Driver())
		}
		if e.RedactedDSN() != "postgresql://scott:***@db/shop" {
			t.Errorf("unexpected redacted dsn %q", e.RedactedDSN())
		}
	})

	t.Run("SetProperties reports changes", func(t *testing.T) {
		e := newEngine()
		p := e.Properties()
		p.PoolRecycle = 3600

		changes := e.SetProperties(p)
		if !reflect.DeepEqual(changes, []string{"pool_recycle"}) {
			t.Errorf("unexpected changes %v", changes)
		}
		if e.PoolRecycle() != time.Hour {
			t.Errorf("expected pool recycle 1h, got %v", e.PoolRecycle())
		}
		if changes := e.SetProperties(p); len(changes) != 0 {
			t.Errorf("expected no changes on second set, got %v", changes)
		}
	})

	t.Run("PoolRecycle never", func(t *testing.T) {
		if d := newEngine().PoolRecycle(); d != 0 {
			t.Errorf("expected 0 for -1 recycle, got %v", d)
		}
	})

	t.Run("Copy keeps properties only", func(t *testing.T) {
		e := newEngine()
		e.SetID("abc")
		e.SetSequence(7)

		c := e.Copy()
		if c.ID() != "" || c.Sequence() != 0 {
			t.Errorf("copy should not keep identity: id=%q seq=%d", c.ID(), c.Sequence())
		}
		if c.Properties() != e.Properties() {
			t.Error("copy should keep every property")
		}

		p := c.Properties()
		p.Name = "other"
		c.SetProperties(p)
		if e.Name() != "main" {
			t.Error("changing the copy must not change the original")
		}
	})

	t.Run("Static engine", func(t *testing.T) {
		p := DefaultEngineProperties()
		p.Name = "memory"
		e := NewStaticEngine(p)
		if !e.Static() || e.ID() != "static:memory" {
			t.Errorf("unexpected static engine %+v", e.View())
		}
	})

	t.Run("View redacts dsn", func(t *testing.T) {
		v := newEngine().View()
		if v.DSN != "postgresql://scott:***@db/shop" {
			t.Errorf("expected redacted dsn in view, got %q", v.DSN)
		}
	})
}

func TestManager(t *testing.T) {
	m := NewManager("")
	if m.Label != "SQL engines" {
		t.Errorf("expected default label, got %q", m.Label)
	}
	if got := m.RowID("abc"); got != "alchemy-engines-table-row-abc" {
		t.Errorf("unexpected row id %q", got)
	}
}

func TestEngineEvent(t *testing.T) {
	e := NewEngine(0, DefaultEngineProperties())
	e.SetID("abc")

	if err := NewEngineEvent(EngineAdded, e, nil).Validate(); err != nil {
		t.Errorf("expected valid event, got %v", err)
	}
	if err := NewEngineEvent(EventKind("renamed"), e, nil).Validate(); err == nil {
		t.Error("expected error for unknown kind")
	}
	if err := NewEngineEvent(EngineAdded, NewEngine(0, DefaultEngineProperties()), nil).Validate(); err == nil {
		t.Error("expected error for unsaved engine")
	}
}
