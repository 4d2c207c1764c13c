package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/alchemy/internal/registry"
	"github.com/desertthunder/alchemy/internal/shared"
	"github.com/desertthunder/alchemy/internal/tasks"
	"github.com/desertthunder/alchemy/internal/ui"
)

// TUI launches the interactive terminal UI for browsing and checking engines.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	env, err := r.open(registry.Options{})
	if err != nil {
		return err
	}
	defer env.Close()

	checker := env.checker(tasks.CheckOpts{}, r.logger)
	model := ui.NewModel(ctx, env.manager.Info().Label, env.manager, checker)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
