package timers

import (
	"errors"
	"fmt"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/timer"
	"github.com/julianstephens/tally/internal/validation"
)

type TimerCmd struct {
	Start   TimerStartCmd   `cmd:"" help:"Start a timer for a duration habit."`
	Pause   TimerPauseCmd   `cmd:"" help:"Pause a running timer."`
	Resume  TimerResumeCmd  `cmd:"" help:"Resume a paused timer."`
	Toggle  TimerToggleCmd  `cmd:"" help:"Start, pause or resume a timer."`
	Add     TimerAddCmd     `cmd:"" help:"Add time to a running or paused timer."`
	Stop    TimerStopCmd    `cmd:"" help:"Stop a timer and log its progress."`
	Discard TimerDiscardCmd `cmd:"" help:"Throw a timer away without logging."`
	Status  TimerStatusCmd  `cmd:"" help:"Show active timers." default:"1"`
}

// durationHabit resolves ref and rejects count habits.
func durationHabit(ctx *cli.Context, ref string) (models.Habit, error) {
	habit, err := ctx.ResolveHabit(ref)
	if err != nil {
		return models.Habit{}, err
	}
	if !habit.IsDuration() {
		return models.Habit{}, fmt.Errorf("%s is a count habit; use 'tally log %q' instead", habit.Name, habit.Name)
	}
	return habit, nil
}

type TimerStartCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
	Fresh bool   `help:"Start from zero instead of today's logged progress."`
}

func (c *TimerStartCmd) Run(ctx *cli.Context) error {
	habit, err := durationHabit(ctx, c.Habit)
	if err != nil {
		return err
	}
	coord := ctx.Coordinator(ctx.Context())
	if _, ok := coord.Session(habit.ID); ok {
		ctx.Printf("%s already has a timer\n", habit.Name)
		return nil
	}

	base := 0
	if !c.Fresh {
		base, err = ctx.Store.GetProgressForDay(habit.ID, ctx.Today())
		if err != nil {
			return err
		}
	}
	if err := coord.Start(ctx.Context(), habit.ID, base); err != nil {
		return cli.LimitError(err)
	}
	ctx.Printf("▶ Started %s at %s / %s\n", habit.Name, habit.FormatAmount(base), habit.FormatAmount(habit.Goal))
	return nil
}

type TimerPauseCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *TimerPauseCmd) Run(ctx *cli.Context) error {
	habit, err := durationHabit(ctx, c.Habit)
	if err != nil {
		return err
	}
	coord := ctx.Coordinator(ctx.Context())
	if err := coord.Pause(ctx.Context(), habit.ID); err != nil {
		return sessionError(habit, err)
	}
	live, _ := coord.LiveProgress(habit.ID)
	ctx.Printf("⏸ Paused %s at %s\n", habit.Name, habit.FormatAmount(live))
	return nil
}

type TimerResumeCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *TimerResumeCmd) Run(ctx *cli.Context) error {
	habit, err := durationHabit(ctx, c.Habit)
	if err != nil {
		return err
	}
	coord := ctx.Coordinator(ctx.Context())
	if err := coord.Resume(ctx.Context(), habit.ID); err != nil {
		return sessionError(habit, err)
	}
	live, _ := coord.LiveProgress(habit.ID)
	ctx.Printf("▶ Resumed %s at %s\n", habit.Name, habit.FormatAmount(live))
	return nil
}

type TimerToggleCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *TimerToggleCmd) Run(ctx *cli.Context) error {
	habit, err := durationHabit(ctx, c.Habit)
	if err != nil {
		return err
	}
	coord := ctx.Coordinator(ctx.Context())
	if err := coord.Toggle(ctx.Context(), habit); err != nil {
		return cli.LimitError(err)
	}
	s, _ := coord.Session(habit.ID)
	live, _ := coord.LiveProgress(habit.ID)
	ctx.Printf("%s %s %s at %s\n", stateIcon(s.State), stateVerb(s.State), habit.Name, habit.FormatAmount(live))
	return nil
}

type TimerAddCmd struct {
	Habit  string `arg:"" help:"Habit name or ID."`
	Amount string `arg:"" optional:"" help:"Time to add, e.g. 5m. Defaults to the increment_sec setting."`
}

func (c *TimerAddCmd) Run(ctx *cli.Context) error {
	habit, err := durationHabit(ctx, c.Habit)
	if err != nil {
		return err
	}

	seconds := ctx.Settings().IncrementSec
	if c.Amount != "" {
		seconds, err = validation.ParseDurationSeconds(c.Amount)
		if err != nil {
			return err
		}
	}

	coord := ctx.Coordinator(ctx.Context())
	if err := coord.AddFixedIncrement(ctx.Context(), habit.ID, seconds); err != nil {
		return sessionError(habit, err)
	}
	live, _ := coord.LiveProgress(habit.ID)
	ctx.Printf("+%s to %s (%s)\n", models.FormatSeconds(seconds), habit.Name, habit.FormatAmount(live))
	return nil
}

type TimerStopCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *TimerStopCmd) Run(ctx *cli.Context) error {
	habit, err := durationHabit(ctx, c.Habit)
	if err != nil {
		return err
	}
	committed, ok, err := ctx.Coordinator(ctx.Context()).Stop(ctx.Context(), habit.ID)
	if err != nil {
		return err
	}
	if !ok {
		ctx.Printf("%s has no timer\n", habit.Name)
		return nil
	}
	ctx.Printf("■ Stopped %s at %s / %s\n", habit.Name, habit.FormatAmount(committed), habit.FormatAmount(habit.Goal))
	return nil
}

type TimerDiscardCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *TimerDiscardCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	if !ctx.Coordinator(ctx.Context()).Discard(ctx.Context(), habit.ID) {
		ctx.Printf("%s has no timer\n", habit.Name)
		return nil
	}
	ctx.Printf("Discarded timer for %s\n", habit.Name)
	return nil
}

type TimerStatusCmd struct{}

func (c *TimerStatusCmd) Run(ctx *cli.Context) error {
	coord := ctx.Coordinator(ctx.Context())
	sessions := coord.Sessions()

	if coord.Degraded() {
		ctx.Println("⚠ Shared timer store unavailable; timers are local to this run.")
	}
	if len(sessions) == 0 {
		ctx.Printf("No active timers (limit %d).\n", coord.Limit())
		return nil
	}

	now := ctx.Clock()
	for _, s := range sessions {
		name := s.HabitID
		goal := ""
		if habit, err := ctx.Store.GetHabit(s.HabitID); err == nil {
			name = habit.Name
			goal = " / " + habit.FormatAmount(habit.Goal)
		}
		since := s.StartedAt.In(ctx.Location()).Format(constants.TimeFormat)
		ctx.Printf("%s %-20s %s%s  (%s since %s)\n",
			stateIcon(s.State), name, models.FormatSeconds(s.LiveProgress(now)), goal, s.State, since)
	}
	ctx.Printf("%d of %d timers in use\n", len(sessions), coord.Limit())
	return nil
}

func stateIcon(state models.SessionState) string {
	switch state {
	case models.SessionRunning:
		return "▶"
	case models.SessionPaused:
		return "⏸"
	default:
		return "■"
	}
}

func stateVerb(state models.SessionState) string {
	if state == models.SessionPaused {
		return "Paused"
	}
	return "Running"
}

func sessionError(habit models.Habit, err error) error {
	switch {
	case errors.Is(err, timer.ErrNoSession):
		return fmt.Errorf("%s has no timer; start one with 'tally timer start %q'", habit.Name, habit.Name)
	case errors.Is(err, timer.ErrNotRunning):
		return fmt.Errorf("%s is not running", habit.Name)
	case errors.Is(err, timer.ErrNotPaused):
		return fmt.Errorf("%s is not paused", habit.Name)
	}
	return err
}
