package system

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/observability"
	"github.com/julianstephens/tally/internal/timer"
)

// WatchCmd keeps one activation alive: it applies relay commands as they
// arrive and re-stamps running timers so widgets keep treating them as live.
type WatchCmd struct {
	Interval time.Duration `help:"How often to poll for relay commands." default:"2s"`
	Metrics  string        `help:"Serve Prometheus metrics on this address (e.g. :9464)."`
}

func (c *WatchCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.Metrics != "" {
		go func() {
			if err := observability.Serve(runCtx, c.Metrics); err != nil {
				logger.Error("metrics server failed", "addr", c.Metrics, "error", err)
			}
		}()
		ctx.Printf("Serving metrics on %s/metrics\n", c.Metrics)
	}

	coord := ctx.Coordinator(runCtx)
	ctx.Printf("Watching for timer commands every %s (Ctrl+C to stop)\n", c.Interval)
	return c.loop(runCtx, ctx, coord)
}

func (c *WatchCmd) loop(runCtx context.Context, ctx *cli.Context, coord *timer.Coordinator) error {
	interval := c.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			ctx.Println("Stopped watching.")
			return nil
		case <-ticker.C:
			c.tick(runCtx, ctx, coord)
		}
	}
}

func (c *WatchCmd) tick(runCtx context.Context, ctx *cli.Context, coord *timer.Coordinator) {
	rec, err := coord.ReconcileExternalCommands(runCtx)
	if rec.Taken {
		name := rec.Intent.HabitID
		if habit, lookupErr := ctx.Store.GetHabit(rec.Intent.HabitID); lookupErr == nil {
			name = habit.Name
		}
		if err != nil {
			ctx.Printf("⚠ %s for %s failed: %v\n", rec.Intent.Action, name, err)
		} else {
			ctx.Printf("%s  %s %s\n", ctx.Clock().Format(time.TimeOnly), rec.Intent.Action, name)
		}
	}
	coord.Refresh(runCtx)
}
