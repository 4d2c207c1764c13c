package registry

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/alchemy/internal/models"
	"github.com/desertthunder/alchemy/internal/shared"
)

func newEngine(id, name, dsn string) *models.Engine {
	props := models.DefaultEngineProperties()
	props.Name = name
	props.DSN = dsn
	engine := models.NewEngine(0, props)
	engine.SetID(id)
	return engine
}

func newRegistry(t *testing.T, opts Options) (*Registry, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := shared.NewLogger(&buf)
	r := New(logger, opts)
	t.Cleanup(func() { r.Close() })
	return r, &buf
}

func TestRegistry(t *testing.T) {
	t.Run("Register", func(t *testing.T) {
		r, _ := newRegistry(t, Options{})

		if err := r.Register(newEngine("1", "main", "sqlite://")); err != nil {
			t.Fatalf("failed to register engine: %v", err)
		}

		engine, ok := r.Lookup("main")
		if !ok {
			t.Fatal("expected engine to be registered")
		}
		if engine.ID() != "1" {
			t.Errorf("expected id 1, got %s", engine.ID())
		}
		if r.Len() != 1 {
			t.Errorf("expected 1 engine, got %d", r.Len())
		}
	})

	t.Run("DuplicateName", func(t *testing.T) {
		r, _ := newRegistry(t, Options{})

		if err := r.Register(newEngine("1", "main", "sqlite://")); err != nil {
			t.Fatalf("failed to register engine: %v", err)
		}

		err := r.Register(newEngine("2", "main", "sqlite://"))
		if !errors.Is(err, shared.ErrDuplicateEngine) {
			t.Fatalf("expected ErrDuplicateEngine, got %v", err)
		}
	})

	t.Run("ReRegisterSameID", func(t *testing.T) {
		r, _ := newRegistry(t, Options{})

		if err := r.Register(newEngine("1", "main", "sqlite://")); err != nil {
			t.Fatalf("failed to register engine: %v", err)
		}
		if err := r.Register(newEngine("1", "main", "ramsql://rereg")); err != nil {
			t.Fatalf("expected re-registration to succeed, got %v", err)
		}

		engine, _ := r.Lookup("main")
		if engine.DSN() != "ramsql://rereg" {
			t.Errorf("expected replaced dsn, got %s", engine.DSN())
		}
	})

	t.Run("InvalidEngine", func(t *testing.T) {
		r, _ := newRegistry(t, Options{})

		err := r.Register(newEngine("1", "main", "oracle://db"))
		if err == nil {
			t.Fatal("expected error for unsupported dialect")
		}
		if r.Len() != 0 {
			t.Errorf("expected empty registry, got %d", r.Len())
		}
	})

	t.Run("Names", func(t *testing.T) {
		r, _ := newRegistry(t, Options{})

		for i, name := range []string{"zeta", "alpha", "mid"} {
			if err := r.Register(newEngine(string(rune('a'+i)), name, "sqlite://")); err != nil {
				t.Fatalf("failed to register %s: %v", name, err)
			}
		}

		got := strings.Join(r.Names(), ",")
		if got != "alpha,mid,zeta" {
			t.Errorf("expected sorted names, got %s", got)
		}
		if len(r.Engines()) != 3 {
			t.Errorf("expected 3 engines, got %d", len(r.Engines()))
		}
	})

	t.Run("Unregister", func(t *testing.T) {
		var closed []string
		r, _ := newRegistry(t, Options{OnClose: func(name string, _ *sql.DB) { closed = append(closed, name) }})

		engine := newEngine("1", "main", "sqlite://")
		if err := r.Register(engine); err != nil {
			t.Fatalf("failed to register engine: %v", err)
		}
		if _, err := r.DB(context.Background(), "main"); err != nil {
			t.Fatalf("failed to open engine: %v", err)
		}

		if err := r.Unregister(engine); err != nil {
			t.Fatalf("failed to unregister engine: %v", err)
		}
		if _, ok := r.Lookup("main"); ok {
			t.Error("expected engine to be removed")
		}
		if len(closed) != 1 || closed[0] != "main" {
			t.Errorf("expected handle to be closed, got %v", closed)
		}

		if err := r.Unregister(engine); !errors.Is(err, shared.ErrEngineNotFound) {
			t.Errorf("expected ErrEngineNotFound, got %v", err)
		}
	})

	t.Run("UnregisterOtherID", func(t *testing.T) {
		r, _ := newRegistry(t, Options{})

		if err := r.Register(newEngine("static:main", "main", "sqlite://")); err != nil {
			t.Fatalf("failed to register engine: %v", err)
		}

		err := r.Unregister(newEngine("2", "main", "sqlite://"))
		if !errors.Is(err, shared.ErrEngineNotFound) {
			t.Errorf("expected ErrEngineNotFound, got %v", err)
		}
		if registered, ok := r.Lookup("main"); !ok || registered.ID() != "static:main" {
			t.Error("expected the engine holding the name to be kept")
		}
	})
}

func TestRegistryDB(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		r, _ := newRegistry(t, Options{})

		if _, err := r.DB(ctx, "missing"); !errors.Is(err, shared.ErrEngineNotFound) {
			t.Fatalf("expected ErrEngineNotFound, got %v", err)
		}
	})

	t.Run("CachesHandle", func(t *testing.T) {
		opened := 0
		r, _ := newRegistry(t, Options{OnOpen: func(string, *sql.DB) { opened++ }})

		if err := r.Register(newEngine("1", "main", "sqlite://")); err != nil {
			t.Fatalf("failed to register engine: %v", err)
		}

		first, err := r.DB(ctx, "main")
		if err != nil {
			t.Fatalf("failed to open engine: %v", err)
		}
		second, err := r.DB(ctx, "main")
		if err != nil {
			t.Fatalf("failed to open engine: %v", err)
		}

		if first != second {
			t.Error("expected the cached handle to be reused")
		}
		if opened != 1 {
			t.Errorf("expected a single open, got %d", opened)
		}
	})

	t.Run("PoolOptions", func(t *testing.T) {
		r, _ := newRegistry(t, Options{})

		path := filepath.Join(t.TempDir(), "pool.db")
		engine := newEngine("1", "file", "sqlite:///"+path)
		props := engine.Properties()
		props.PoolSize = 3
		engine.SetProperties(props)

		if err := r.Register(engine); err != nil {
			t.Fatalf("failed to register engine: %v", err)
		}

		db, err := r.DB(ctx, "file")
		if err != nil {
			t.Fatalf("failed to open engine: %v", err)
		}
		if got := db.Stats().MaxOpenConnections; got != 3 {
			t.Errorf("expected max open connections 3, got %d", got)
		}
	})

	t.Run("MemoryIsSingleConnection", func(t *testing.T) {
		r, _ := newRegistry(t, Options{})

		if err := r.Register(newEngine("1", "main", "sqlite://")); err != nil {
			t.Fatalf("failed to register engine: %v", err)
		}

		db, err := r.DB(ctx, "main")
		if err != nil {
			t.Fatalf("failed to open engine: %v", err)
		}
		if got := db.Stats().MaxOpenConnections; got != 1 {
			t.Errorf("expected max open connections 1, got %d", got)
		}
	})

	t.Run("RefreshReopens", func(t *testing.T) {
		r, _ := newRegistry(t, Options{})

		engine := newEngine("1", "main", "sqlite://")
		if err := r.Register(engine); err != nil {
			t.Fatalf("failed to register engine: %v", err)
		}

		before, err := r.DB(ctx, "main")
		if err != nil {
			t.Fatalf("failed to open engine: %v", err)
		}

		edited := newEngine("1", "main", "ramsql://refresh")
		if err := r.Refresh(edited); err != nil {
			t.Fatalf("failed to refresh engine: %v", err)
		}

		if err := before.Ping(); err == nil {
			t.Error("expected the previous handle to be closed")
		}

		after, err := r.DB(ctx, "main")
		if err != nil {
			t.Fatalf("failed to reopen engine: %v", err)
		}
		if after == before {
			t.Error("expected a new handle after refresh")
		}
	})

	t.Run("RefreshUnknown", func(t *testing.T) {
		r, _ := newRegistry(t, Options{})

		if err := r.Refresh(newEngine("1", "main", "sqlite://")); !errors.Is(err, shared.ErrEngineNotFound) {
			t.Fatalf("expected ErrEngineNotFound, got %v", err)
		}
	})

	t.Run("IdleEviction", func(t *testing.T) {
		closed := make(chan string, 1)
		r, _ := newRegistry(t, Options{
			IdleTTL:         20 * time.Millisecond,
			CleanupInterval: 10 * time.Millisecond,
			OnClose:         func(name string, _ *sql.DB) { closed <- name },
		})

		path := filepath.Join(t.TempDir(), "idle.db")
		if err := r.Register(newEngine("1", "idle", "sqlite:///"+path)); err != nil {
			t.Fatalf("failed to register engine: %v", err)
		}
		if _, err := r.DB(ctx, "idle"); err != nil {
			t.Fatalf("failed to open engine: %v", err)
		}

		select {
		case name := <-closed:
			if name != "idle" {
				t.Errorf("expected idle handle to be evicted, got %s", name)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("expected idle handle to be evicted")
		}

		if _, ok := r.Stats("idle"); ok {
			t.Error("expected no stats once the handle is evicted")
		}
	})

	t.Run("ExpiredHandleIsClosed", func(t *testing.T) {
		var mu sync.Mutex
		opened, closed := 0, 0
		r, _ := newRegistry(t, Options{
			IdleTTL:         50 * time.Millisecond,
			CleanupInterval: time.Hour,
			OnOpen: func(string, *sql.DB) {
				mu.Lock()
				defer mu.Unlock()
				opened++
			},
			OnClose: func(string, *sql.DB) {
				mu.Lock()
				defer mu.Unlock()
				closed++
			},
		})

		path := filepath.Join(t.TempDir(), "expired.db")
		if err := r.Register(newEngine("1", "expired", "sqlite:///"+path)); err != nil {
			t.Fatalf("failed to register engine: %v", err)
		}

		first, err := r.DB(ctx, "expired")
		if err != nil {
			t.Fatalf("failed to open engine: %v", err)
		}
		time.Sleep(100 * time.Millisecond)

		second, err := r.DB(ctx, "expired")
		if err != nil {
			t.Fatalf("failed to reopen engine: %v", err)
		}

		if first == second {
			t.Error("expected a new handle once the first one expired")
		}
		mu.Lock()
		if opened != 2 || closed != 1 {
			t.Errorf("expected 2 opened and 1 closed, got %d and %d", opened, closed)
		}
		mu.Unlock()
		if err := first.Ping(); err == nil {
			t.Error("expected the expired handle to be closed")
		}
	})

	t.Run("OpensEnginesIndependently", func(t *testing.T) {
		r, _ := newRegistry(t, Options{})

		blocked := make(chan struct{})
		release := make(chan struct{})
		openHandle = func(ctx context.Context, engine *models.Engine) (*sql.DB, error) {
			if engine.Name() == "down" {
				close(blocked)
				<-release
				return nil, shared.ErrConnectionFailed
			}
			return open(ctx, engine)
		}
		t.Cleanup(func() { openHandle = open })

		for i, name := range []string{"down", "up"} {
			if err := r.Register(newEngine(string(rune('1'+i)), name, "ramsql://"+name)); err != nil {
				t.Fatalf("failed to register %s: %v", name, err)
			}
		}

		downErr := make(chan error, 1)
		go func() {
			_, err := r.DB(ctx, "down")
			downErr <- err
		}()
		<-blocked

		upErr := make(chan error, 1)
		go func() {
			_, err := r.DB(ctx, "up")
			upErr <- err
		}()

		select {
		case err := <-upErr:
			if err != nil {
				t.Errorf("failed to open engine: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("expected up to open while down is still opening")
		}

		close(release)
		if err := <-downErr; !errors.Is(err, shared.ErrConnectionFailed) {
			t.Errorf("expected ErrConnectionFailed, got %v", err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		r, _ := newRegistry(t, Options{})

		if err := r.Register(newEngine("1", "ram", "ramsql://ping")); err != nil {
			t.Fatalf("failed to register engine: %v", err)
		}
		if err := r.Ping(ctx, "ram"); err != nil {
			t.Fatalf("failed to ping engine: %v", err)
		}
		if _, ok := r.Stats("ram"); !ok {
			t.Error("expected stats for open handle")
		}
	})
}

func TestRegistryWithSession(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, dsn string, echo bool) (*Registry, *bytes.Buffer) {
		t.Helper()
		r, buf := newRegistry(t, Options{})

		engine := newEngine("1", "main", dsn)
		props := engine.Properties()
		props.Echo = echo
		engine.SetProperties(props)
		if err := r.Register(engine); err != nil {
			t.Fatalf("failed to register engine: %v", err)
		}

		err := r.WithSession(ctx, "main", func(s *Session) error {
			_, err := s.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS items (a INT)")
			return err
		})
		if err != nil {
			t.Fatalf("failed to create table: %v", err)
		}
		return r, buf
	}

	count := func(t *testing.T, r *Registry) int {
		t.Helper()
		var n int
		err := r.WithSession(ctx, "main", func(s *Session) error {
			rows, err := s.QueryContext(ctx, "SELECT a FROM items")
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				n++
			}
			return rows.Err()
		})
		if err != nil {
			t.Fatalf("failed to count rows: %v", err)
		}
		return n
	}

	drivers := []struct {
		name     string
		commit   string
		rollback string
	}{
		{"SQLite", "sqlite://", "sqlite://"},
		{"RamSQL", "ramsql://session-commit", "ramsql://session-rollback"},
	}

	for _, tt := range drivers {
		t.Run(tt.name, func(t *testing.T) {
			t.Run("Commit", func(t *testing.T) {
				r, _ := setup(t, tt.commit, false)

				err := r.WithSession(ctx, "main", func(s *Session) error {
					_, err := s.ExecContext(ctx, "INSERT INTO items (a) VALUES (1)")
					return err
				})
				if err != nil {
					t.Fatalf("session failed: %v", err)
				}

				if n := count(t, r); n != 1 {
					t.Errorf("expected 1 row, got %d", n)
				}
			})

			t.Run("Rollback", func(t *testing.T) {
				r, _ := setup(t, tt.rollback, false)
				boom := errors.New("boom")

				err := r.WithSession(ctx, "main", func(s *Session) error {
					if _, err := s.ExecContext(ctx, "INSERT INTO items (a) VALUES (1)"); err != nil {
						return err
					}
					return boom
				})
				if !errors.Is(err, boom) {
					t.Fatalf("expected fn error to be returned, got %v", err)
				}

				if n := count(t, r); n != 0 {
					t.Errorf("expected rollback to discard the row, got %d", n)
				}
			})
		})
	}

	t.Run("Echo", func(t *testing.T) {
		r, buf := setup(t, "sqlite://", true)

		err := r.WithSession(ctx, "main", func(s *Session) error {
			_, err := s.ExecContext(ctx, "INSERT INTO items (a) VALUES (?)", 7)
			return err
		})
		if err != nil {
			t.Fatalf("session failed: %v", err)
		}

		if !strings.Contains(buf.String(), "INSERT INTO items") {
			t.Errorf("expected statement to be echoed, got %q", buf.String())
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		r, _ := newRegistry(t, Options{})

		err := r.WithSession(ctx, "missing", func(*Session) error { return nil })
		if !errors.Is(err, shared.ErrEngineNotFound) {
			t.Fatalf("expected ErrEngineNotFound, got %v", err)
		}
	})
}

func TestDefault(t *testing.T) {
	previous := Default()
	t.Cleanup(func() { SetDefault(previous) })

	custom := New(nil, Options{})
	SetDefault(custom)
	if Default() != custom {
		t.Error("expected the custom registry to become the default")
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = Default().Len()
		}()
	}
	wg.Wait()
}
