package tui

import (
	"context"
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the terminal console and blocks until the user quits or ctx
// is done.
func Run(ctx context.Context, cfg Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app := NewApp(ctx, cfg)
	p := tea.NewProgram(app, tea.WithContext(ctx), tea.WithAltScreen())

	updates := cfg.Console.Store().Subscribe()
	defer cfg.Console.Store().Unsubscribe(updates)
	go func() {
		for range updates {
			p.Send(stateMsg{})
		}
	}()

	if cfg.Watcher != nil {
		go func() {
			err := cfg.Watcher.Watch(ctx, func(code string) {
				p.Send(CodeDroppedMsg{Code: code})
			})
			if err != nil {
				app.logger.Warn("code watch stopped", slog.String("error", err.Error()))
			}
		}()
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
