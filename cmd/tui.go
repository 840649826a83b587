package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive study timer.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/studyx-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	c, closeFn, err := r.openTimer(ctx, fileLogger)
	if err != nil {
		return err
	}
	defer closeFn()

	model := ui.NewModel(ctx, c, r.config.Timer.Subjects)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
