package handlers

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tally/internal/tui/state"
)

// HandleConfirmDeleteState handles the delete confirmation state. A running
// timer for the habit is discarded first.
func HandleConfirmDeleteState(m *state.Model, msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "y", "Y":
			if m.HabitToDeleteID != "" {
				m.Timers.Discard(m.Context, m.HabitToDeleteID)
				if err := m.Store.DeleteHabit(m.HabitToDeleteID); err != nil {
					m.Status = "⚠ " + err.Error()
				} else {
					m.Status = "Deleted habit"
				}
				m.HabitToDeleteID = ""
				m.Reload()
				m.UpdateValidationStatus()
			}
			m.State = state.ViewToday
		case "n", "N", "esc":
			m.HabitToDeleteID = ""
			m.State = state.ViewToday
		}
	}
	return nil
}

// HandleConfirmArchiveState handles the archive confirmation state
func HandleConfirmArchiveState(m *state.Model, msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "y", "Y":
			if m.HabitToArchiveID != "" {
				if err := m.Store.ArchiveHabit(m.HabitToArchiveID); err != nil {
					m.Status = "⚠ " + err.Error()
				} else {
					m.Status = "Archived habit"
				}
				m.HabitToArchiveID = ""
				m.Reload()
			}
			m.State = state.ViewToday
		case "n", "N", "esc":
			m.HabitToArchiveID = ""
			m.State = state.ViewToday
		}
	}
	return nil
}
