package habits

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/tally/internal/calendar"
	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/validation"
)

// LogCmd appends a manual progress entry. Entries are deltas, so a negative
// amount corrects an earlier one.
type LogCmd struct {
	Habit  string `arg:"" help:"Habit name or ID."`
	Amount string `arg:"" optional:"" help:"Amount to add: a count, or a duration such as 25m. Defaults to 1 for count habits."`
	Day    string `help:"Day to log for (YYYY-MM-DD). Defaults to today."`
}

func (c *LogCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}

	amount := strings.TrimSpace(c.Amount)
	if amount == "" {
		if habit.IsDuration() {
			return fmt.Errorf("duration habits need an amount, e.g. 'tally log %q 25m'", habit.Name)
		}
		amount = "1"
	}
	delta, err := validation.ParseAmount(habit, amount)
	if err != nil {
		return err
	}

	today := ctx.Today()
	day := today
	if c.Day != "" {
		if !calendar.ValidateDate(c.Day) {
			return fmt.Errorf("invalid day %q (expected YYYY-MM-DD)", c.Day)
		}
		if c.Day > today {
			return fmt.Errorf("cannot log progress for a future day")
		}
		day = c.Day
	}
	if habit.StartDate != "" && day < habit.StartDate {
		return fmt.Errorf("%s starts on %s", habit.Name, habit.StartDate)
	}

	entry := models.ProgressEntry{
		ID:        uuid.New().String(),
		HabitID:   habit.ID,
		Day:       day,
		Delta:     delta,
		Source:    constants.SourceManual,
		CreatedAt: ctx.Clock(),
	}
	if err := ctx.Store.AddProgressEntry(entry); err != nil {
		return err
	}

	total, err := ctx.Store.GetProgressForDay(habit.ID, day)
	if err != nil {
		return err
	}
	ctx.Printf("Logged %s for %s on %s (%s / %s)\n",
		habit.FormatAmount(delta), habit.Name, day,
		habit.FormatAmount(total), habit.FormatAmount(habit.Goal))
	return nil
}
