package habits

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/tally/internal/calendar"
	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/forms"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
	"github.com/julianstephens/tally/internal/streak"
	"github.com/julianstephens/tally/internal/validation"
)

type HabitCmd struct {
	Add       HabitAddCmd       `cmd:"" help:"Add a new habit."`
	Edit      HabitEditCmd      `cmd:"" help:"Edit a habit's name, goal, days or start date."`
	List      HabitListCmd      `cmd:"" help:"List habits with today's progress and streaks."`
	Log       HabitLogCmd       `cmd:"" help:"Show habit log (ASCII history)."`
	Stats     HabitStatsCmd     `cmd:"" help:"Show streaks and completion rate for a habit."`
	Archive   HabitArchiveCmd   `cmd:"" help:"Archive a habit."`
	Unarchive HabitUnarchiveCmd `cmd:"" help:"Unarchive a habit."`
	Delete    HabitDeleteCmd    `cmd:"" help:"Delete a habit (soft delete)."`
	Restore   HabitRestoreCmd   `cmd:"" help:"Restore a deleted habit."`
	Export    HabitExportCmd    `cmd:"" help:"Export habits and progress as YAML or JSON."`
}

type HabitAddCmd struct {
	Name        string `arg:"" optional:"" help:"Habit name. Omit to fill in a form."`
	Type        string `help:"count or duration." enum:"count,duration" default:"count"`
	Goal        string `help:"Daily goal: a number for count habits, 30m or 1h15m for duration habits." default:"1"`
	Days        string `help:"Active weekdays: daily, weekdays, weekends or e.g. mon,wed,fri." default:"daily"`
	Start       string `help:"Start date (YYYY-MM-DD). Defaults to today."`
	Interactive bool   `short:"i" help:"Fill in the habit with an interactive form."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	fm := forms.NewHabitFormModel(ctx.Today())
	fm.Name = c.Name
	fm.Type = models.HabitType(c.Type)
	fm.Goal = c.Goal
	fm.Days = c.Days
	if c.Start != "" {
		fm.Start = c.Start
	}

	if c.Interactive || strings.TrimSpace(c.Name) == "" {
		if err := forms.NewHabitForm(fm).Run(); err != nil {
			return fmt.Errorf("habit form cancelled: %w", err)
		}
	}

	habit, err := fm.Habit(ctx.Clock())
	if err != nil {
		return err
	}

	if _, err := ctx.Store.GetHabitByName(habit.Name); err == nil {
		return fmt.Errorf("habit with name %q already exists", habit.Name)
	}
	if err := ctx.Store.AddHabit(habit); err != nil {
		return err
	}

	ctx.Printf("Added habit: %s (%s)\n", habit.Name, describeGoal(habit))
	return nil
}

type HabitEditCmd struct {
	Habit string  `arg:"" help:"Habit name or ID."`
	Name  *string `help:"New name."`
	Goal  *string `help:"New daily goal."`
	Days  *string `help:"New active weekdays."`
	Start *string `help:"New start date (YYYY-MM-DD)."`
}

func (c *HabitEditCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}

	updated := false
	if c.Name != nil {
		name := strings.TrimSpace(*c.Name)
		if existing, err := ctx.Store.GetHabitByName(name); err == nil && existing.ID != habit.ID {
			return fmt.Errorf("habit with name %q already exists", name)
		}
		habit.Name = name
		updated = true
	}
	if c.Goal != nil {
		goal, err := validation.ParseGoal(habit.Type, *c.Goal)
		if err != nil {
			return err
		}
		habit.Goal = goal
		updated = true
	}
	if c.Days != nil {
		mask, err := calendar.ParseWeekdays(*c.Days)
		if err != nil {
			return err
		}
		habit.ActiveDays = mask
		updated = true
	}
	if c.Start != nil {
		habit.StartDate = strings.TrimSpace(*c.Start)
		updated = true
	}

	if !updated {
		ctx.Println("No changes specified. Use --name, --goal, --days or --start.")
		return nil
	}
	if err := validation.ValidateHabit(habit); err != nil {
		return err
	}
	if err := ctx.Store.UpdateHabit(habit); err != nil {
		return err
	}

	ctx.Printf("Updated habit: %s (%s)\n", habit.Name, describeGoal(habit))
	return nil
}

type HabitListCmd struct {
	Archived bool `help:"Include archived habits."`
	Deleted  bool `help:"Include deleted habits."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	habits, err := ctx.Store.GetAllHabits(c.Archived, c.Deleted)
	if err != nil {
		return err
	}

	if len(habits) == 0 {
		ctx.Println("No habits found. Add one with 'tally habit add'.")
		return nil
	}

	today := ctx.Today()
	now := ctx.Clock().In(ctx.Location())
	first := calendar.FirstWeekday(ctx.Settings().WeekStart)

	for _, habit := range habits {
		status := ""
		if habit.DeletedAt != nil {
			status = " [DELETED]"
		} else if habit.ArchivedAt != nil {
			status = " [ARCHIVED]"
		}

		entries, err := ctx.Store.GetProgressEntries(habit.ID, "", today)
		if err != nil {
			return err
		}
		totals := streak.DayTotals(entries)
		summary := streak.Summarize(habit, entries, today, now)

		marker := " "
		switch {
		case !calendar.IsActiveOnDate(habit, today):
			marker = "·"
		case totals[today] >= habit.Goal:
			marker = "✓"
		}

		ctx.Printf("%s %-20s %s / %-8s  %s  streak %d (best %d)%s\n",
			marker,
			habit.Name,
			habit.FormatAmount(totals[today]),
			habit.FormatAmount(habit.Goal),
			calendar.FormatMask(habit.ActiveDays, first),
			summary.Current,
			summary.Best,
			status,
		)
	}
	return nil
}

type HabitArchiveCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	if err := ctx.Store.ArchiveHabit(habit.ID); err != nil {
		return err
	}
	ctx.Printf("Archived habit: %s\n", habit.Name)
	return nil
}

type HabitUnarchiveCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *HabitUnarchiveCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	if err := ctx.Store.UnarchiveHabit(habit.ID); err != nil {
		return err
	}
	ctx.Printf("Unarchived habit: %s\n", habit.Name)
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}

	// A live timer for a deleted habit could never be stopped.
	if ctx.Coordinator(ctx.Context()).Discard(ctx.Context(), habit.ID) {
		ctx.Printf("Discarded running timer for %s\n", habit.Name)
	}

	if err := ctx.Store.DeleteHabit(habit.ID); err != nil {
		return err
	}
	ctx.Printf("Deleted habit: %s\n", habit.Name)
	return nil
}

type HabitRestoreCmd struct {
	Habit string `arg:"" help:"Name or ID of the deleted habit."`
}

func (c *HabitRestoreCmd) Run(ctx *cli.Context) error {
	all, err := ctx.Store.GetAllHabits(true, true)
	if err != nil {
		return err
	}

	var match *models.Habit
	for i := range all {
		h := all[i]
		if h.DeletedAt == nil {
			continue
		}
		if h.ID == c.Habit || h.Name == c.Habit {
			match = &h
			break
		}
	}
	if match == nil {
		return fmt.Errorf("no deleted habit %q", c.Habit)
	}

	if _, err := ctx.Store.GetHabitByName(match.Name); err == nil {
		return fmt.Errorf("cannot restore %q: another habit already uses that name", match.Name)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	if err := ctx.Store.RestoreHabit(match.ID); err != nil {
		return err
	}
	ctx.Printf("Restored habit: %s\n", match.Name)
	return nil
}

func describeGoal(h models.Habit) string {
	return fmt.Sprintf("%s, goal %s", h.Type, h.FormatAmount(h.Goal))
}
