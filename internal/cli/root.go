package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/tally/internal/backup"
	"github.com/julianstephens/tally/internal/calendar"
	"github.com/julianstephens/tally/internal/constants"
	tallyerrors "github.com/julianstephens/tally/internal/errors"
	"github.com/julianstephens/tally/internal/liveactivity"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
	"github.com/julianstephens/tally/internal/timer"
	"github.com/julianstephens/tally/internal/timerstore"
)

// Context is handed to every command's Run method.
type Context struct {
	Store     storage.Provider
	Shared    timerstore.Store
	Publisher liveactivity.Publisher

	// Base, Now and Out default to context.Background, time.Now and os.Stdout.
	Base context.Context
	Now  func() time.Time
	Out  io.Writer

	coordinator *timer.Coordinator
}

// Context returns the context blocking store calls run under.
func (c *Context) Context() context.Context {
	if c.Base != nil {
		return c.Base
	}
	return context.Background()
}

func (c *Context) Clock() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.writer(), format, args...)
}

func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.writer(), args...)
}

func (c *Context) writer() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

// Settings returns persisted settings with defaults applied.
func (c *Context) Settings() models.Settings {
	settings, err := c.Store.GetSettings()
	if err != nil {
		logger.Warn("failed to read settings, using defaults", "error", err)
		return models.DefaultSettings()
	}
	models.ApplyDefaultSettings(&settings)
	return settings
}

// Location is the zone calendar days are computed in.
func (c *Context) Location() *time.Location {
	settings := c.Settings()
	loc, err := calendar.LoadLocation(settings.Timezone)
	if err != nil {
		logger.Warn("invalid timezone setting, using local time", "timezone", settings.Timezone, "error", err)
		return time.Local
	}
	return loc
}

// Today returns the current local calendar day.
func (c *Context) Today() string {
	return calendar.Today(c.Clock(), c.Location())
}

// SharedStore returns the shared timer store, or an unavailable store when
// none was opened.
func (c *Context) SharedStore() timerstore.Store {
	if c.Shared == nil {
		return timerstore.Unavailable{}
	}
	return c.Shared
}

// Coordinator builds the timer coordinator on first use and activates it:
// sessions from earlier runs are rehydrated and one pending relay command is
// applied.
func (c *Context) Coordinator(ctx context.Context) *timer.Coordinator {
	if c.coordinator != nil {
		return c.coordinator
	}

	settings := c.Settings()
	store := c.Store
	c.coordinator = timer.New(c.SharedStore(), store, c.Publisher,
		timer.WithClock(c.Clock),
		timer.WithLocation(c.Location()),
		timer.WithStaleWindow(time.Duration(settings.StaleWindowMin)*time.Minute),
		timer.WithIncrement(settings.IncrementSec),
		timer.WithLimitSource(func() int {
			s, err := store.GetSettings()
			if err != nil {
				return constants.FreeTimerLimit
			}
			return s.TimerLimit()
		}),
	)

	rec, err := c.coordinator.Activate(ctx)
	if rec.Taken {
		c.reportReconciliation(rec, err)
	}
	return c.coordinator
}

func (c *Context) reportReconciliation(rec timer.Reconciliation, err error) {
	name := rec.Intent.HabitID
	if habit, lookupErr := c.Store.GetHabit(rec.Intent.HabitID); lookupErr == nil {
		name = habit.Name
	}
	if err != nil {
		c.Printf("⚠ Pending %s for %s could not be applied: %v\n", rec.Intent.Action, name, err)
		return
	}
	c.Printf("Applied pending %s for %s\n", rec.Intent.Action, name)
}

// ResolveHabit looks a habit up by id or name.
func (c *Context) ResolveHabit(ref string) (models.Habit, error) {
	habit, err := storage.LookupHabit(c.Store, ref)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Habit{}, fmt.Errorf("habit %q not found", ref)
	}
	return habit, err
}

// LimitError adds the upgrade hint to a timer limit failure.
func LimitError(err error) error {
	if errors.Is(err, timer.ErrConcurrencyLimitExceeded) {
		return tallyerrors.WithHint(err, "run 'tally settings set unlocked true' to run up to 3 timers at once")
	}
	return err
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if IsPostgres(c.Store.GetConfigPath()) {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.CreateBackup(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// IsPostgres reports whether a --config value names a PostgreSQL database.
func IsPostgres(config string) bool {
	return config == "postgresql" ||
		strings.HasPrefix(config, "postgres://") ||
		strings.HasPrefix(config, "postgresql://") ||
		strings.Contains(config, "host=")
}
