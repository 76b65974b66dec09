package system

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/tui"
	"github.com/julianstephens/tally/internal/tui/state"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	ctx.PerformAutomaticBackup()

	base := ctx.Context()
	model := tui.NewModel(state.Deps{
		Store:    ctx.Store,
		Timers:   ctx.Coordinator(base),
		Context:  base,
		Now:      ctx.Clock,
		Location: ctx.Location(),
		Settings: ctx.Settings(),
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui exited with error: %w", err)
	}
	return nil
}
