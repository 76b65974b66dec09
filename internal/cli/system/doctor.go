package system

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/tally/internal/backup"
	"github.com/julianstephens/tally/internal/calendar"
	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/migration"
	"github.com/julianstephens/tally/internal/storage"
	"github.com/julianstephens/tally/internal/storage/postgres"
	"github.com/julianstephens/tally/internal/storage/sqlite"
	"github.com/julianstephens/tally/internal/timerstore"
	"github.com/julianstephens/tally/internal/validation"
)

type DoctorCmd struct {
	Fix bool `help:"Soft-delete duplicate habits, keeping the oldest of each name."`
}

// errWarning marks a check result that should not fail the run.
type errWarning struct{ msg string }

func (w errWarning) Error() string { return w.msg }

func warning(format string, args ...any) error {
	return errWarning{msg: fmt.Sprintf(format, args...)}
}

type check struct {
	name    string
	needsDB bool
	run     func(*cli.Context) error
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	checks := []check{
		{name: "Schema version", needsDB: true, run: checkSchemaVersion},
		{name: "Migrations complete", needsDB: true, run: checkMigrationsComplete},
		{name: "Backups present", run: checkBackupsPresent},
		{name: "Data validation", needsDB: true, run: cmd.checkValidation},
		{name: "Clock/timezone", run: checkClockTimezone},
		{name: "Shared timer store", run: checkSharedStore},
	}

	hasError := false
	dbReachable := true
	if err := checkDBReachable(ctx); err != nil {
		ctx.Printf("❌ Database reachable: FAIL\n")
		ctx.Printf("   Error: %v\n", err)
		hasError = true
		dbReachable = false
	} else {
		ctx.Printf("✓ Database reachable: OK\n")
	}

	for _, c := range checks {
		if c.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		var warn errWarning
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case errors.As(err, &warn):
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	ctx.Println("All diagnostics passed!")
	return nil
}

func storeDB(store storage.Provider) *sql.DB {
	switch s := store.(type) {
	case *sqlite.Store:
		return s.GetDB()
	case *postgres.Store:
		return s.GetDB()
	}
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	if db := storeDB(ctx.Store); db != nil {
		var result int
		if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}
	return nil
}

func schemaStatus(ctx *cli.Context) (migration.Status, error) {
	runner, err := migrationRunner(ctx.Store)
	if err != nil {
		return migration.Status{}, err
	}
	st, err := runner.Status()
	if err != nil {
		return migration.Status{}, fmt.Errorf("failed to read schema status: %w", err)
	}
	return st, nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	st, err := schemaStatus(ctx)
	if err != nil {
		return err
	}
	if st.Current > st.Latest {
		return fmt.Errorf("%w: version %d, supported %d", migration.ErrSchemaTooNew, st.Current, st.Latest)
	}
	return nil
}

func checkMigrationsComplete(ctx *cli.Context) error {
	st, err := schemaStatus(ctx)
	if err != nil {
		return err
	}
	if n := len(st.Pending); n > 0 {
		return fmt.Errorf("migrations incomplete: %d pending, current version %d, latest version %d (run 'tally migrate')", n, st.Current, st.Latest)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if cli.IsPostgres(ctx.Store.GetConfigPath()) {
		return nil
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.ListBackups()
	if err != nil {
		return warning("failed to list backups: %v", err)
	}
	if len(backups) == 0 {
		return warning("no backups found - consider creating one with 'tally backup create'")
	}
	return nil
}

func (cmd *DoctorCmd) checkValidation(ctx *cli.Context) error {
	habits, err := ctx.Store.GetAllHabits(true, true)
	if err != nil {
		return fmt.Errorf("failed to get habits: %w", err)
	}
	entries, err := ctx.Store.GetAllProgressEntries()
	if err != nil {
		return fmt.Errorf("failed to get progress entries: %w", err)
	}

	v := validation.New()
	result := v.ValidateHabits(habits)

	if cmd.Fix && result.HasConflicts() {
		for _, action := range validation.AutoFixDuplicateHabits(result.Conflicts, habits, ctx.Store.DeleteHabit) {
			ctx.Printf("   🔧 %s\n", action.Action)
		}
		if habits, err = ctx.Store.GetAllHabits(true, true); err != nil {
			return fmt.Errorf("failed to reload habits: %w", err)
		}
		result = v.ValidateHabits(habits)
	}

	result.Conflicts = append(result.Conflicts, v.ValidateEntries(habits, entries).Conflicts...)
	if result.HasConflicts() {
		return errors.New(result.FormatReport())
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := ctx.Clock()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return nil
	}
	if _, err := calendar.LoadLocation(settings.Timezone); err != nil {
		return fmt.Errorf("timezone setting %q is invalid: %w", settings.Timezone, err)
	}
	return nil
}

func checkSharedStore(ctx *cli.Context) error {
	snaps, err := ctx.SharedStore().List(ctx.Context())
	if err != nil {
		if errors.Is(err, timerstore.ErrStoreUnavailable) {
			return warning("timers will not sync across surfaces: %v", err)
		}
		return warning("failed to read shared timer store: %v", err)
	}

	now := ctx.Clock()
	stale := 0
	for _, snap := range snaps {
		if snap.IsStale(now) {
			stale++
		}
	}
	if stale > 0 {
		return warning("%d of %d timer snapshot(s) are stale; the next timer command will refresh them", stale, len(snaps))
	}
	return nil
}
