package surface

import (
	"errors"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/relay"
	"github.com/julianstephens/tally/internal/timerstore"
)

type CommandCmd struct {
	Post CommandPostCmd `cmd:"" help:"Queue a timer action for the next tally run to apply."`
}

// CommandPostCmd parks an intent in the shared mailbox without touching the
// timer itself. A later intent replaces one that has not been applied yet.
type CommandPostCmd struct {
	Habit  string `arg:"" help:"Habit name or ID."`
	Action string `arg:"" help:"toggle, add or complete."`
}

func (c *CommandPostCmd) Run(ctx *cli.Context) error {
	action, err := relay.ParseAction(c.Action)
	if err != nil {
		return err
	}
	habit, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}

	intent, err := relay.Post(ctx.Context(), ctx.SharedStore(), habit.ID, action, ctx.Clock())
	if errors.Is(err, timerstore.ErrStoreUnavailable) {
		// An outage only delays sync; the caller can post again.
		logger.Warn("command not queued, shared timer store unavailable", "habit", habit.ID, "action", action, "error", err)
		ctx.Printf("Could not queue %s for %s right now; try again shortly.\n", action, habit.Name)
		return nil
	}
	if err != nil {
		return err
	}
	ctx.Printf("Queued %s for %s\n", intent.Action, habit.Name)
	return nil
}
