package handlers

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/forms"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
	"github.com/julianstephens/tally/internal/timer"
	"github.com/julianstephens/tally/internal/tui/components/habits"
	"github.com/julianstephens/tally/internal/tui/state"
)

// HandleAddHabitState handles the add habit state
func HandleAddHabitState(m *state.Model, msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.FormError = ""
		m.State = state.ViewToday
		return nil
	}

	form, cmd := m.Form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.Form = f
	}
	cmds = append(cmds, cmd)

	switch m.Form.State {
	case huh.StateCompleted:
		if err := addHabit(m); err != nil {
			// Stay in the form so the user can fix the value or press esc.
			m.FormError = err.Error()
			m.Form.State = huh.StateNormal
			return tea.Batch(cmds...)
		}
		m.FormError = ""
		m.State = state.ViewToday
		m.Reload()
		m.UpdateValidationStatus()
	case huh.StateAborted:
		m.FormError = ""
		m.State = state.ViewToday
	}
	return tea.Batch(cmds...)
}

func addHabit(m *state.Model) error {
	habit, err := m.HabitForm.Habit(m.Now())
	if err != nil {
		return err
	}
	if _, err := m.Store.GetHabitByName(habit.Name); err == nil {
		return fmt.Errorf("a habit named %q already exists", habit.Name)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err := m.Store.AddHabit(habit); err != nil {
		return fmt.Errorf("failed to add habit: %w", err)
	}
	m.Status = fmt.Sprintf("Added %s", habit.Name)
	return nil
}

// HandleHabitMessages handles messages from the habits component
func HandleHabitMessages(m *state.Model, msg tea.Msg) (bool, tea.Cmd) {
	var err error

	switch msg := msg.(type) {
	case habits.AddHabitMsg:
		m.HabitForm = forms.NewHabitFormModel(m.Today())
		m.Form = forms.NewHabitForm(m.HabitForm)
		m.State = state.ViewAddHabit
		return true, m.Form.Init()

	case habits.ToggleMsg:
		err = toggle(m, msg.ID)

	case habits.IncrementMsg:
		err = m.Timers.AddFixedIncrement(m.Context, msg.ID, m.Settings.IncrementSec)
		if err == nil {
			m.Status = "Added " + models.FormatSeconds(m.Settings.IncrementSec)
		}

	case habits.StopMsg:
		var committed int
		var ok bool
		committed, ok, err = m.Timers.Stop(m.Context, msg.ID)
		if err == nil && ok {
			m.Status = "Stopped at " + models.FormatSeconds(committed)
		}

	case habits.CompleteMsg:
		err = complete(m, msg.ID)

	case habits.ShowHistoryMsg:
		if err = m.LoadHistory(msg.ID); err == nil {
			m.State = state.ViewHistory
		}

	case habits.ArchiveHabitMsg:
		m.HabitToArchiveID = msg.ID
		m.State = state.ViewConfirmArchive
		return true, nil

	case habits.DeleteHabitMsg:
		m.HabitToDeleteID = msg.ID
		m.State = state.ViewConfirmDelete
		return true, nil

	case habits.RestoreHabitMsg:
		err = m.Store.RestoreHabit(msg.ID)
		if err == nil {
			m.Status = "Restored habit"
		}

	default:
		return false, nil
	}

	if err != nil {
		m.Status = "⚠ " + describe(err)
	}
	m.Reload()
	return true, nil
}

func toggle(m *state.Model, habitID string) error {
	habit, err := m.Store.GetHabit(habitID)
	if err != nil {
		return err
	}
	if habit.IsDuration() {
		return m.Timers.Toggle(m.Context, habit)
	}
	if err := logManual(m, habit, 1); err != nil {
		return err
	}
	m.Status = "Logged 1 " + strings.ToLower(habit.Name)
	return nil
}

// complete brings today's progress up to the goal. Running timers are
// stopped with the goal as a floor; idle habits get a manual entry.
func complete(m *state.Model, habitID string) error {
	habit, err := m.Store.GetHabit(habitID)
	if err != nil {
		return err
	}
	if _, ok := m.Timers.Session(habitID); ok {
		_, err := m.Timers.Complete(m.Context, habit)
		return err
	}

	logged, err := m.Store.GetProgressForDay(habitID, m.Today())
	if err != nil {
		return err
	}
	if logged >= habit.Goal {
		m.Status = habit.Name + " is already complete"
		return nil
	}
	return logManual(m, habit, habit.Goal-logged)
}

func logManual(m *state.Model, habit models.Habit, delta int) error {
	return m.Store.AddProgressEntry(models.ProgressEntry{
		ID:        uuid.New().String(),
		HabitID:   habit.ID,
		Day:       m.Today(),
		Delta:     delta,
		Source:    constants.SourceManual,
		CreatedAt: m.Now(),
	})
}

func describe(err error) string {
	if errors.Is(err, timer.ErrConcurrencyLimitExceeded) {
		return err.Error() + " (tally settings set unlocked true)"
	}
	return err.Error()
}
