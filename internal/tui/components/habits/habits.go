package habits

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tally/internal/models"
)

type AddHabitMsg struct{}

// ToggleMsg logs one unit on a count habit, or starts, pauses or resumes a
// duration habit's timer.
type ToggleMsg struct {
	ID string
}

type IncrementMsg struct {
	ID string
}

type StopMsg struct {
	ID string
}

type CompleteMsg struct {
	ID string
}

type ArchiveHabitMsg struct {
	ID string
}

type DeleteHabitMsg struct {
	ID string
}

type RestoreHabitMsg struct {
	ID string
}

type ShowHistoryMsg struct {
	ID string
}

type Item struct {
	Habit     models.Habit
	Progress  int
	Active    bool // scheduled today
	Session   *models.SessionState
	Streak    int
	IsDeleted bool
}

func (i Item) Complete() bool {
	return i.Progress >= i.Habit.Goal
}

func (i Item) Title() string {
	title := i.Habit.Name
	switch {
	case i.IsDeleted:
		return "[DELETED] " + title
	case i.Session != nil && *i.Session == models.SessionRunning:
		return "▶ " + title
	case i.Session != nil:
		return "⏸ " + title
	case i.Complete():
		return "✓ " + title
	case !i.Active:
		return "· " + title
	default:
		return "○ " + title
	}
}

func (i Item) Description() string {
	if i.IsDeleted {
		return "can restore with 'r'"
	}
	desc := fmt.Sprintf("%s / %s", i.Habit.FormatAmount(i.Progress), i.Habit.FormatAmount(i.Habit.Goal))
	if !i.Active {
		desc += "  rest day"
	}
	if i.Streak > 0 {
		desc += fmt.Sprintf("  🔥 %d", i.Streak)
	}
	return desc
}

func (i Item) FilterValue() string { return i.Habit.Name }

type KeyMap struct {
	Add      key.Binding
	Toggle   key.Binding
	Plus     key.Binding
	Stop     key.Binding
	Complete key.Binding
	History  key.Binding
	Archive  key.Binding
	Delete   key.Binding
	Restore  key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "log/timer"),
		),
		Plus: key.NewBinding(
			key.WithKeys("+"),
			key.WithHelp("+", "add time"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		Complete: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "complete"),
		),
		History: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "history"),
		),
		Archive: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "archive"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Restore: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restore"),
		),
	}
}

func (k KeyMap) bindings() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Plus, k.Stop, k.Complete, k.History, k.Archive, k.Delete, k.Restore}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(items []Item, width, height int) Model {
	l := list.New(toListItems(items), list.NewDefaultDelegate(), width, height)
	l.Title = "Today"
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Toggle, keys.Stop}
	}
	l.AdditionalFullHelpKeys = keys.bindings

	return Model{list: l, keys: keys}
}

func toListItems(items []Item) []list.Item {
	out := make([]list.Item, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

func (m *Model) SetItems(items []Item) {
	m.list.SetItems(toListItems(items))
}

func (m Model) Items() []Item {
	out := make([]Item, 0, len(m.list.Items()))
	for _, it := range m.list.Items() {
		if item, ok := it.(Item); ok {
			out = append(out, item)
		}
	}
	return out
}

// Selected returns the highlighted item.
func (m Model) Selected() (Item, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i, ok
}

// Filtering reports whether the user is typing a filter query.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m *Model) Select(index int) {
	m.list.Select(index)
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		if key.Matches(msg, m.keys.Add) {
			return m, func() tea.Msg { return AddHabitMsg{} }
		}
		if i, ok := m.Selected(); ok {
			if out := m.itemAction(msg, i); out != nil {
				return m, func() tea.Msg { return out }
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) itemAction(msg tea.KeyMsg, i Item) tea.Msg {
	id := i.Habit.ID
	if i.IsDeleted {
		if key.Matches(msg, m.keys.Restore) {
			return RestoreHabitMsg{ID: id}
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Toggle):
		return ToggleMsg{ID: id}
	case key.Matches(msg, m.keys.Plus):
		if i.Session != nil {
			return IncrementMsg{ID: id}
		}
	case key.Matches(msg, m.keys.Stop):
		if i.Session != nil {
			return StopMsg{ID: id}
		}
	case key.Matches(msg, m.keys.Complete):
		return CompleteMsg{ID: id}
	case key.Matches(msg, m.keys.History):
		return ShowHistoryMsg{ID: id}
	case key.Matches(msg, m.keys.Archive):
		return ArchiveHabitMsg{ID: id}
	case key.Matches(msg, m.keys.Delete):
		return DeleteHabitMsg{ID: id}
	}
	return nil
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  No habits yet.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
