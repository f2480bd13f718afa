package system

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/novaplanner/nova/internal/cli"
	nerrors "github.com/novaplanner/nova/internal/errors"
	"github.com/novaplanner/nova/internal/tui"
)

type WatchCmd struct{}

func (c *WatchCmd) Run(ctx *cli.Context) error {
	ctx.PerformAutomaticBackup()

	m, cancel := tui.New(ctx.Store, ctx.Config.Filter(), ctx.Config.Sort())
	defer cancel()

	if ctx.Store.Online() && !ctx.Store.Attached() {
		if err := ctx.Store.Attach(context.Background()); err != nil {
			nerrors.Warnf("live sync unavailable: %v", err)
		}
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch view failed: %w", err)
	}
	return nil
}
