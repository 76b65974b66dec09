package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/tui/handlers"
	"github.com/julianstephens/tally/internal/tui/state"
)

// chromeHeight is the space taken by tabs, banners and help.
const chromeHeight = 6

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, max(msg.Height-chromeHeight, 0))
		return m, nil
	case tickMsg:
		m.onTick()
		return m, tick()
	}

	switch m.State {
	case state.ViewAddHabit:
		return m, handlers.HandleAddHabitState(&m.Model, msg)
	case state.ViewConfirmDelete:
		return m, handlers.HandleConfirmDeleteState(&m.Model, msg)
	case state.ViewConfirmArchive:
		return m, handlers.HandleConfirmArchiveState(&m.Model, msg)
	}

	if handled, cmd := handlers.HandleHabitMessages(&m.Model, msg); handled {
		return m, cmd
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && !m.HabitsModel.Filtering() {
		if handled, cmd := handlers.HandleGlobalKeys(&m.Model, keyMsg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	if m.State == state.ViewToday {
		m.HabitsModel, cmd = m.HabitsModel.Update(msg)
	}
	return m, cmd
}

// onTick advances live timers every second and periodically applies relay
// commands and re-stamps snapshots so widgets see the timers as fresh.
func (m *Model) onTick() {
	m.Ticks++
	if m.Ticks%syncEvery != 0 {
		m.RefreshLive()
		return
	}

	rec, err := m.Timers.ReconcileExternalCommands(m.Context)
	if rec.Taken {
		if err != nil {
			m.Status = "⚠ pending " + string(rec.Intent.Action) + " failed: " + err.Error()
		} else {
			m.Status = "Applied " + string(rec.Intent.Action) + " from widget"
		}
		logger.Debug("tui applied relay command", "habit", rec.Intent.HabitID, "action", rec.Intent.Action)
	}
	m.Timers.Refresh(m.Context)
	m.Reload()
}
