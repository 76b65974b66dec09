package settings

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/tally/internal/models"
)

type Model struct {
	settings models.Settings
	width    int
	height   int
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Width(25)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			MarginTop(1).
			MarginBottom(1)
)

func New(settings models.Settings, width, height int) Model {
	return Model{
		settings: settings,
		width:    width,
		height:   height,
	}
}

func (m *Model) SetSettings(settings models.Settings) {
	m.settings = settings
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func row(label, value string) string {
	return fmt.Sprintf("%s %s", labelStyle.Render(label), valueStyle.Render(value))
}

func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	var sections []string

	general := lipgloss.JoinVertical(
		lipgloss.Left,
		row("Timezone:", m.settings.Timezone),
		row("Week Start:", m.settings.WeekStart),
		row("Default Log Days:", fmt.Sprintf("%d", m.settings.DefaultLogDays)),
	)
	sections = append(sections, sectionStyle.Render(titleStyle.Render("General")+"\n"+general))

	tier := "free"
	if m.settings.Unlocked {
		tier = "unlocked"
	}
	timers := lipgloss.JoinVertical(
		lipgloss.Left,
		row("Tier:", tier),
		row("Concurrent Timers:", fmt.Sprintf("%d", m.settings.TimerLimit())),
		row("Add Increment:", models.FormatSeconds(m.settings.IncrementSec)),
		row("Stale After (min):", fmt.Sprintf("%d", m.settings.StaleWindowMin)),
		row("Tray Updates:", fmt.Sprintf("%t", m.settings.TrayEnabled)),
	)
	sections = append(sections, sectionStyle.Render(titleStyle.Render("Timers")+"\n"+timers))

	helpText := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true).
		MarginTop(2).
		Render("Change values with 'tally settings set <key> <value>'")
	sections = append(sections, helpText)

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Left,
		lipgloss.Top,
		lipgloss.NewStyle().Padding(2, 4).Render(content),
	)
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
