package habits

import (
	"fmt"
	"strings"

	"github.com/julianstephens/tally/internal/calendar"
	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/streak"
)

type HabitLogCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
	Days  int    `help:"Number of days to show. Defaults to the default_log_days setting."`
}

func (c *HabitLogCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}

	days := c.Days
	if days <= 0 {
		days = ctx.Settings().DefaultLogDays
	}

	today := ctx.Today()
	from, err := calendar.AddDays(today, -(days - 1))
	if err != nil {
		return err
	}
	entries, err := ctx.Store.GetProgressEntries(habit.ID, from, today)
	if err != nil {
		return err
	}
	records, err := streak.History(habit, entries, from, today)
	if err != nil {
		return err
	}

	ctx.Printf("%s (goal %s)\n\n", habit.Name, habit.FormatAmount(habit.Goal))
	for _, r := range records {
		wd, _ := calendar.Weekday(r.Day)
		ctx.Printf("%s %s  %s %s\n", r.Day, wd.String()[:3], bar(r, habit.Goal), cell(r, habit.FormatAmount(r.Total)))
	}
	return nil
}

const barWidth = 20

// bar draws a day's progress toward the goal, capped at the bar width.
func bar(r streak.DayRecord, goal int) string {
	if !r.Active && r.Total == 0 {
		return strings.Repeat(" ", barWidth)
	}
	filled := 0
	if goal > 0 && r.Total > 0 {
		filled = r.Total * barWidth / goal
		if filled > barWidth {
			filled = barWidth
		}
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

func cell(r streak.DayRecord, amount string) string {
	switch {
	case !r.Active && r.Total == 0:
		return "rest"
	case r.State == constants.DayExceeded:
		return amount + " ★"
	case r.State == constants.DayCompleted:
		return amount + " ✓"
	default:
		return amount
	}
}

type HabitStatsCmd struct {
	Habit  string `arg:"" help:"Habit name or ID."`
	Window int    `help:"Trailing window in days for the completion rate." default:"30"`
}

func (c *HabitStatsCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}

	today := ctx.Today()
	entries, err := ctx.Store.GetProgressEntries(habit.ID, "", today)
	if err != nil {
		return err
	}

	summary := streak.Summarize(habit, entries, today, ctx.Clock().In(ctx.Location()))
	rate := streak.CompletionRate(habit, entries, today, c.Window)
	first := calendar.FirstWeekday(ctx.Settings().WeekStart)

	ctx.Printf("%s\n", habit.Name)
	ctx.Printf("  Type:            %s\n", habit.Type)
	ctx.Printf("  Goal:            %s\n", habit.FormatAmount(habit.Goal))
	ctx.Printf("  Active days:     %s\n", calendar.FormatMask(habit.ActiveDays, first))
	ctx.Printf("  Started:         %s\n", habit.StartDate)
	ctx.Printf("  Current streak:  %s\n", plural(summary.Current, "day"))
	ctx.Printf("  Best streak:     %s\n", plural(summary.Best, "day"))
	ctx.Printf("  Completions:     %d\n", summary.Total)
	ctx.Printf("  Last %d days:    %.0f%%\n", c.Window, rate*100)
	return nil
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
