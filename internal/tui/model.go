// Package tui is the interactive dashboard: today's habits with live timers,
// a per-habit history view and the current settings.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tally/internal/tui/components/habits"
	"github.com/julianstephens/tally/internal/tui/state"
)

// syncEvery is how many ticks pass between shared store syncs.
const syncEvery = 15

type tickMsg time.Time

type Model struct {
	state.Model
}

func NewModel(d state.Deps) Model {
	return Model{Model: state.New(d)}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.Keys.Tab, m.Keys.Quit, m.Keys.Help}
	if m.State == state.ViewToday {
		hk := habits.DefaultKeyMap()
		keys = append(keys, hk.Add, hk.Toggle, hk.Stop, hk.History)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.Keys.Tab, m.Keys.ShiftTab, m.Keys.Quit, m.Keys.Help}
	navigation := []key.Binding{m.Keys.Up, m.Keys.Down}

	var actions []key.Binding
	if m.State == state.ViewToday {
		hk := habits.DefaultKeyMap()
		actions = []key.Binding{hk.Add, hk.Toggle, hk.Plus, hk.Stop, hk.Complete, hk.History, hk.Archive, hk.Delete, hk.Restore}
	}
	return [][]key.Binding{global, navigation, actions}
}
