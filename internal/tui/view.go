package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/tally/internal/tui/state"
)

func (m Model) View() string {
	if m.Quitting {
		return ""
	}

	var content string
	switch m.State {
	case state.ViewToday:
		content = m.HabitsModel.View()
	case state.ViewHistory:
		content = m.HistoryModel.View()
	case state.ViewSettings:
		content = m.SettingsModel.View()
	case state.ViewAddHabit:
		content = m.viewForm()
	case state.ViewConfirmDelete:
		content = m.viewConfirm("Delete this habit? Its timer is discarded; restore later with 'r'.")
	case state.ViewConfirmArchive:
		content = m.viewConfirm("Archive this habit?")
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		m.viewBanner(),
		content,
		m.Help.View(m),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for _, v := range state.Tabs {
		if m.State == v {
			tabs = append(tabs, activeTabStyle.Render(v.Title()))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(v.Title()))
		}
	}
	if m.Timers != nil && m.Timers.Degraded() {
		tabs = append(tabs, warningStyle.Render("  timers not syncing"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewBanner() string {
	switch {
	case m.ValidationWarning != "":
		return warningStyle.Render(m.ValidationWarning)
	case m.Status != "":
		return statusStyle.Render(m.Status)
	}
	return ""
}

func (m Model) viewForm() string {
	if m.FormError == "" {
		return docStyle.Render(m.Form.View())
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		dangerStyle.Render(m.FormError),
		m.Form.View(),
	))
}

func (m Model) viewConfirm(question string) string {
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		dangerStyle.Render(question),
		"",
		"(y/n)",
	))
}
