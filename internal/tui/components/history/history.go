// Package history renders one habit's recent days and streak summary.
package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/tally/internal/calendar"
	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/streak"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	exceededStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	restStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const barWidth = 20

type Model struct {
	habit   *models.Habit
	records []streak.DayRecord
	summary streak.Summary
	width   int
	height  int
}

func New(width, height int) Model {
	return Model{width: width, height: height}
}

// SetHabit loads the history shown for habit. records are oldest first.
func (m *Model) SetHabit(habit models.Habit, records []streak.DayRecord, summary streak.Summary) {
	m.habit = &habit
	m.records = records
	m.summary = summary
}

func (m Model) HabitID() string {
	if m.habit == nil {
		return ""
	}
	return m.habit.ID
}

func (m Model) View() string {
	if m.habit == nil {
		return "\n  Select a habit on the Today tab and press 'i'."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.habit.Name))
	fmt.Fprintf(&b, "  goal %s\n", m.habit.FormatAmount(m.habit.Goal))
	fmt.Fprintf(&b, "Current streak %d · best %d · %d completions\n\n", m.summary.Current, m.summary.Best, m.summary.Total)

	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		wd, _ := calendar.Weekday(r.Day)
		fmt.Fprintf(&b, "%s %s  %s\n", r.Day, wd.String()[:3], m.line(r))
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m Model) line(r streak.DayRecord) string {
	if !r.Active && r.Total == 0 {
		return restStyle.Render(strings.Repeat(" ", barWidth) + " rest")
	}

	filled := 0
	if r.Total > 0 {
		filled = r.Total * barWidth / m.habit.Goal
	}
	filled = min(filled, barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	amount := m.habit.FormatAmount(r.Total)

	switch r.State {
	case constants.DayExceeded:
		return exceededStyle.Render(bar + " " + amount + " ★")
	case constants.DayCompleted:
		return completedStyle.Render(bar + " " + amount + " ✓")
	default:
		return bar + " " + amount
	}
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
