package system

import (
	"fmt"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/migration"
	"github.com/julianstephens/tally/internal/storage"
)

type MigrateCmd struct {
	DryRun bool `help:"List pending migrations without applying them."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	runner, err := migrationRunner(ctx.Store)
	if err != nil {
		return err
	}

	if c.DryRun {
		st, err := runner.Status()
		if err != nil {
			return fmt.Errorf("failed to read schema status: %w", err)
		}
		ctx.Printf("Schema version %d of %d\n", st.Current, st.Latest)
		if len(st.Pending) == 0 {
			ctx.Println("No pending migrations.")
			return nil
		}
		for _, m := range st.Pending {
			ctx.Printf("  pending %03d_%s\n", m.Version, m.Name)
		}
		return nil
	}

	count, err := runner.ApplyMigrations(func(msg string) {
		ctx.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		ctx.Println("No migrations to apply. Database is up to date.")
	} else {
		ctx.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}

// migrationRunner returns the store's runner over its own connection and
// embedded migration set.
func migrationRunner(store storage.Provider) (*migration.Runner, error) {
	m, ok := store.(interface {
		Migrations() (*migration.Runner, error)
	})
	if !ok {
		return nil, fmt.Errorf("migrations are not supported for %T", store)
	}
	return m.Migrations()
}
