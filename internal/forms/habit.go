// Package forms holds the huh forms shared by the CLI and the TUI.
package forms

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/julianstephens/tally/internal/calendar"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/validation"
)

// HabitFormModel represents the form model for habit creation
type HabitFormModel struct {
	Name  string
	Type  models.HabitType
	Goal  string
	Days  string
	Start string
}

// NewHabitFormModel returns a model prefilled for a daily count habit
// starting today.
func NewHabitFormModel(today string) *HabitFormModel {
	return &HabitFormModel{
		Type:  models.HabitTypeCount,
		Goal:  "1",
		Days:  "daily",
		Start: today,
	}
}

// NewHabitForm creates a new form for adding habits
func NewHabitForm(fm *HabitFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit Name").
				Value(&fm.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("habit name cannot be empty")
					}
					return nil
				}),
			huh.NewSelect[models.HabitType]().
				Title("Type").
				Options(
					huh.NewOption("Count (times per day)", models.HabitTypeCount),
					huh.NewOption("Duration (timed)", models.HabitTypeDuration),
				).
				Value(&fm.Type),
			huh.NewInput().
				Title("Daily Goal").
				Description("A number for count habits; 30m or 1h15m for duration habits").
				Value(&fm.Goal).
				Validate(func(s string) error {
					_, err := validation.ParseGoal(fm.Type, s)
					return err
				}),
			huh.NewInput().
				Title("Active Days").
				Description("daily, weekdays, weekends or e.g. mon,wed,fri").
				Value(&fm.Days).
				Validate(func(s string) error {
					_, err := calendar.ParseWeekdays(s)
					return err
				}),
			huh.NewInput().
				Title("Start Date (YYYY-MM-DD)").
				Value(&fm.Start).
				Validate(func(s string) error {
					if !calendar.ValidateDate(strings.TrimSpace(s)) {
						return fmt.Errorf("invalid date, use YYYY-MM-DD")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())
}

// Habit converts the form values into a new habit.
func (fm *HabitFormModel) Habit(now time.Time) (models.Habit, error) {
	goal, err := validation.ParseGoal(fm.Type, fm.Goal)
	if err != nil {
		return models.Habit{}, err
	}
	mask, err := calendar.ParseWeekdays(fm.Days)
	if err != nil {
		return models.Habit{}, err
	}

	habit := models.Habit{
		ID:         uuid.New().String(),
		Name:       strings.TrimSpace(fm.Name),
		Type:       fm.Type,
		Goal:       goal,
		ActiveDays: mask,
		StartDate:  strings.TrimSpace(fm.Start),
		CreatedAt:  now,
	}
	if err := validation.ValidateHabit(habit); err != nil {
		return models.Habit{}, err
	}
	return habit, nil
}
