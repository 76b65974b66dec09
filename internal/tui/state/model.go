// Package state holds the TUI model shared by the handlers and views.
package state

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/tally/internal/calendar"
	"github.com/julianstephens/tally/internal/forms"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
	"github.com/julianstephens/tally/internal/streak"
	"github.com/julianstephens/tally/internal/timer"
	"github.com/julianstephens/tally/internal/tui/components/habits"
	"github.com/julianstephens/tally/internal/tui/components/history"
	"github.com/julianstephens/tally/internal/tui/components/settings"
	"github.com/julianstephens/tally/internal/validation"
)

// View selects what the TUI is showing.
type View int

const (
	ViewToday View = iota
	ViewHistory
	ViewSettings
	ViewAddHabit
	ViewConfirmDelete
	ViewConfirmArchive
)

// Tabs are the views reachable with tab / shift+tab, in order.
var Tabs = []View{ViewToday, ViewHistory, ViewSettings}

func (v View) Title() string {
	switch v {
	case ViewToday:
		return "Today"
	case ViewHistory:
		return "History"
	case ViewSettings:
		return "Settings"
	}
	return ""
}

// Deps are the collaborators the TUI drives.
type Deps struct {
	Store    storage.Provider
	Timers   *timer.Coordinator
	Context  context.Context
	Now      func() time.Time
	Location *time.Location
	Settings models.Settings
}

// Model represents the shared state for the TUI
type Model struct {
	Deps

	State               View
	Keys                KeyMap
	Help                help.Model
	HabitsModel         habits.Model
	HistoryModel        history.Model
	SettingsModel       settings.Model
	Form                *huh.Form
	HabitForm           *forms.HabitFormModel
	Quitting            bool
	Width               int
	Height              int
	Ticks               int
	HabitToDeleteID     string
	HabitToArchiveID    string
	ValidationWarning   string
	ValidationConflicts []validation.Conflict
	Status              string // last action result, shown under the tabs
	FormError           string
}

// New creates a new state Model
func New(d Deps) Model {
	if d.Context == nil {
		d.Context = context.Background()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.Local
	}

	m := Model{
		Deps:          d,
		State:         ViewToday,
		Keys:          DefaultKeyMap(),
		Help:          help.New(),
		HabitsModel:   habits.New(nil, 0, 0),
		HistoryModel:  history.New(0, 0),
		SettingsModel: settings.New(d.Settings, 0, 0),
	}
	m.Reload()
	m.UpdateValidationStatus()
	return m
}

// LocalNow is the clock in the configured timezone. Streak math compares its
// hour and date with Today, so it must never see the system zone.
func (m *Model) LocalNow() time.Time {
	return m.Now().In(m.Location)
}

func (m *Model) Today() string {
	return calendar.Today(m.Now(), m.Location)
}

// Reload rebuilds the habit list from the store and the coordinator.
func (m *Model) Reload() {
	list, err := m.Store.GetAllHabits(false, true)
	if err != nil {
		logger.Warn("failed to load habits", "error", err)
		m.Status = "⚠ failed to load habits"
		return
	}

	today := m.Today()
	now := m.LocalNow()
	items := make([]habits.Item, 0, len(list))
	for _, h := range list {
		item := habits.Item{Habit: h, IsDeleted: h.DeletedAt != nil}
		if !item.IsDeleted {
			item.Active = calendar.IsActiveOnDate(h, today)
			entries, err := m.Store.GetProgressEntries(h.ID, "", today)
			if err != nil {
				logger.Warn("failed to load progress", "habit", h.ID, "error", err)
			}
			item.Progress = streak.DayTotals(entries)[today]
			item.Streak = streak.CurrentStreak(h, entries, today, now)
			m.applySession(&item)
		}
		items = append(items, item)
	}

	// Live habits first, deleted ones at the bottom.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsDeleted != items[j].IsDeleted {
			return !items[i].IsDeleted
		}
		return items[i].Habit.Name < items[j].Habit.Name
	})
	m.HabitsModel.SetItems(items)

	if id := m.HistoryModel.HabitID(); id != "" {
		if err := m.LoadHistory(id); err != nil {
			logger.Debug("history reload failed", "habit", id, "error", err)
		}
	}
}

func (m *Model) applySession(item *habits.Item) {
	if m.Timers == nil {
		return
	}
	s, ok := m.Timers.Session(item.Habit.ID)
	if !ok {
		item.Session = nil
		return
	}
	state := s.State
	item.Session = &state
	item.Progress = s.LiveProgress(m.Now())
}

// RefreshLive updates progress of habits with a timer without touching the
// store.
func (m *Model) RefreshLive() {
	items := m.HabitsModel.Items()
	changed := false
	for i := range items {
		if items[i].Session == nil {
			continue
		}
		m.applySession(&items[i])
		changed = true
	}
	if changed {
		m.HabitsModel.SetItems(items)
	}
}

// LoadHistory points the history view at habitID.
func (m *Model) LoadHistory(habitID string) error {
	h, err := m.Store.GetHabit(habitID)
	if err != nil {
		return err
	}
	days := m.Settings.DefaultLogDays
	if days <= 0 {
		return errors.New("default_log_days must be positive")
	}

	today := m.Today()
	from, err := calendar.AddDays(today, -(days - 1))
	if err != nil {
		return err
	}
	entries, err := m.Store.GetProgressEntries(h.ID, "", today)
	if err != nil {
		return err
	}
	records, err := streak.History(h, entries, from, today)
	if err != nil {
		return err
	}
	m.HistoryModel.SetHabit(h, records, streak.Summarize(h, entries, today, m.LocalNow()))
	return nil
}

// SetSize sizes every component for the content area.
func (m *Model) SetSize(width, height int) {
	m.Width = width
	m.Height = height
	m.HabitsModel.SetSize(width, height)
	m.HistoryModel.SetSize(width, height)
	m.SettingsModel.SetSize(width, height)
}
