package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/alchemy/internal/manager"
	"github.com/desertthunder/alchemy/internal/models"
	"github.com/desertthunder/alchemy/internal/registry"
	"github.com/desertthunder/alchemy/internal/services"
	"github.com/desertthunder/alchemy/internal/shared"
	"github.com/desertthunder/alchemy/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	api        *services.APIService
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	API        *services.APIService
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		api:        opts.API,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the logger used by every later command.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Before loads the configuration named by the root --config flag and applies the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if cmd.IsSet("config") {
		if _, err := os.Stat(path); err != nil {
			return ctx, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		}
	}

	config, err := shared.LoadOrDefault(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.configPath = path

	level := config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))

	r.logger.Debug("configuration loaded", "path", path, "engines", len(config.Engines))
	return ctx, nil
}

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "alchemy",
		Usage:   "Register, inspect and serve named SQL engines",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("ALCHEMY_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, engineCommand, serveCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// environment is the set of live components a command works against.
type environment struct {
	store    *sql.DB
	registry *registry.Registry
	manager  *manager.Service
}

// open connects the manager store, fills a fresh registry with the static and stored engines
// and installs it as the process default.
func (r *Runner) open(opts registry.Options) (*environment, error) {
	if opts.IdleTTL == 0 {
		opts.IdleTTL = r.config.Registry.IdleTTL()
	}
	if opts.CleanupInterval == 0 {
		opts.CleanupInterval = r.config.Registry.Cleanup()
	}

	store, err := shared.OpenStore(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open manager store: %w", err)
	}

	reg := registry.New(r.logger, opts)
	service := manager.New(store, reg, models.NewManager(r.config.Manager.Label), r.logger)
	if err := service.Load(r.config.Engines); err != nil {
		reg.Close()
		store.Close()
		return nil, err
	}
	registry.SetDefault(reg)

	return &environment{store: store, registry: reg, manager: service}, nil
}

func (e *environment) checker(opts tasks.CheckOpts, logger *log.Logger) *tasks.Checker {
	return tasks.NewChecker(e.registry, opts, logger)
}

// Close disposes of every open engine handle, then the manager store.
func (e *environment) Close() error {
	return errors.Join(e.registry.Close(), e.store.Close())
}

// resolve finds an engine by id, falling back to its registered name.
func (e *environment) resolve(ref string) (*models.Engine, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: engine id or name", shared.ErrMissingArgument)
	}

	engine, err := e.manager.Get(ref)
	if err == nil {
		return engine, nil
	}
	if !errors.Is(err, shared.ErrEngineNotFound) {
		return nil, err
	}

	engines, err := e.manager.List()
	if err != nil {
		return nil, err
	}
	for _, candidate := range engines {
		if candidate.Name() == ref {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrEngineNotFound, ref)
}

func (r *Runner) apiService(cmd *cli.Command) *services.APIService {
	if r.api != nil {
		return r.api
	}

	baseURL := cmd.String("url")
	if baseURL == "" {
		baseURL = "http://" + r.config.Server.Addr()
	}
	return services.NewAPIService(baseURL, r.httpClient, services.APIOpts{
		Token:    cmd.String("token"),
		Attempts: uint(cmd.Int("retries")) + 1,
		Delay:    250 * time.Millisecond,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
