package habits

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/streak"
)

// ExportedHabit is a habit with its progress log and streak summary.
type ExportedHabit struct {
	models.Habit `yaml:",inline"`
	Summary      streak.Summary         `json:"summary" yaml:"summary"`
	Entries      []models.ProgressEntry `json:"entries" yaml:"entries"`
}

type Export struct {
	ExportedAt string          `json:"exported_at" yaml:"exported_at"`
	AsOf       string          `json:"as_of" yaml:"as_of"`
	Habits     []ExportedHabit `json:"habits" yaml:"habits"`
}

type HabitExportCmd struct {
	Format   string `help:"Output format." enum:"yaml,json" default:"yaml"`
	Output   string `short:"o" help:"Write to a file instead of stdout."`
	Archived bool   `help:"Include archived habits."`
}

func (c *HabitExportCmd) Run(ctx *cli.Context) error {
	export, err := BuildExport(ctx, c.Archived)
	if err != nil {
		return err
	}

	var w io.Writer = ctx.Out
	if w == nil {
		w = os.Stdout
	}
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", c.Output, err)
		}
		defer f.Close()
		w = f
	}

	switch c.Format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(export)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err = enc.Encode(export)
		if err == nil {
			err = enc.Close()
		}
	}
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	if c.Output != "" {
		ctx.Printf("Exported %d habit(s) to %s\n", len(export.Habits), c.Output)
	}
	return nil
}

// BuildExport collects live habits with their entries as of today.
func BuildExport(ctx *cli.Context, includeArchived bool) (Export, error) {
	habits, err := ctx.Store.GetAllHabits(includeArchived, false)
	if err != nil {
		return Export{}, err
	}

	today := ctx.Today()
	now := ctx.Clock().In(ctx.Location())
	export := Export{
		ExportedAt: now.Format(time.RFC3339),
		AsOf:       today,
		Habits:     make([]ExportedHabit, 0, len(habits)),
	}
	for _, habit := range habits {
		entries, err := ctx.Store.GetProgressEntries(habit.ID, "", "")
		if err != nil {
			return Export{}, err
		}
		if entries == nil {
			entries = []models.ProgressEntry{}
		}
		export.Habits = append(export.Habits, ExportedHabit{
			Habit:   habit,
			Summary: streak.Summarize(habit, entries, today, now),
			Entries: entries,
		})
	}
	return export, nil
}
