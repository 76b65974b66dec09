package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/cli/backups"
	"github.com/julianstephens/tally/internal/cli/habits"
	"github.com/julianstephens/tally/internal/cli/settings"
	"github.com/julianstephens/tally/internal/cli/surface"
	"github.com/julianstephens/tally/internal/cli/system"
	"github.com/julianstephens/tally/internal/cli/timers"
	"github.com/julianstephens/tally/internal/constants"
	tallyerrors "github.com/julianstephens/tally/internal/errors"
	"github.com/julianstephens/tally/internal/keyring"
	"github.com/julianstephens/tally/internal/liveactivity"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/storage"
	"github.com/julianstephens/tally/internal/storage/postgres"
	"github.com/julianstephens/tally/internal/storage/sqlite"
	"github.com/julianstephens/tally/internal/timerstore"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Database file path or PostgreSQL connection string. For PostgreSQL, credentials must NOT be embedded in the connection string. Use environment variables, .pgpass, or OS keyring instead." type:"string" default:"${default_config}"`
	Shared  string `help:"Shared timer region read by widgets and the tray." type:"path" default:"${default_shared}" env:"${shared_env}"`
	Debug   bool   `help:"Write debug logs to stderr as well as the log file."`

	Init     system.InitCmd       `cmd:"" help:"Initialize tally storage."`
	Migrate  system.MigrateCmd    `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd     `cmd:"" help:"Run health checks and diagnostics."`
	Tui      system.TuiCmd        `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Watch    system.WatchCmd      `cmd:"" help:"Apply widget commands and keep timers fresh until interrupted."`
	Backup   backups.BackupCmd    `cmd:"" help:"Manage database backups."`
	Habit    habits.HabitCmd      `cmd:"" help:"Manage habits."`
	Log      habits.LogCmd        `cmd:"" help:"Log progress for a habit."`
	Timer    timers.TimerCmd      `cmd:"" help:"Control duration timers."`
	Command  surface.CommandCmd   `cmd:"" help:"Queue a command for the next tally activation."`
	Widget   surface.WidgetCmd    `cmd:"" help:"Print live timers from the shared region."`
	Settings settings.SettingsCmd `cmd:"" help:"Manage application settings."`
	Keyring  system.KeyringCmd    `cmd:"" help:"Manage the database connection stored in the OS keyring."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracker with streaks and cross-surface timers"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":        constants.Version,
			"shared_env":     constants.EnvSharedPath,
			"default_config": constants.DefaultConfigPath,
			"default_shared": constants.DefaultSharedPath,
		},
	)

	config := resolveConfig(CLI.Config)
	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: configDir(config)}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}

	store, err := openStore(config, CLI.Config == config)
	if err != nil {
		tallyerrors.Fatal(err)
	}
	defer store.Close()

	shared := openShared(CLI.Shared)
	defer shared.Close()

	appCtx := &cli.Context{
		Store:     store,
		Shared:    shared,
		Publisher: liveactivity.NopPublisher{},
		Base:      context.Background(),
	}

	// Init handles its own loading.
	if ctx.Selected() != nil && ctx.Selected().Name != "init" {
		if err := store.Load(); err != nil {
			tallyerrors.Fatal(err)
		}
		appCtx.Publisher = publisher(appCtx)
	}

	if err := ctx.Run(appCtx); err != nil {
		tallyerrors.Fatal(err)
	}
}

// resolveConfig falls back to the environment and then the OS keyring when
// --config was left at its default.
func resolveConfig(flag string) string {
	if flag != constants.DefaultConfigPath {
		return flag
	}
	if env := os.Getenv(constants.EnvDBConnection); env != "" {
		return env
	}
	if connStr, err := keyring.GetConnectionString(); err == nil && connStr != "" {
		return connStr
	} else if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		logger.Debug("keyring lookup failed", "error", err)
	}
	return flag
}

// openStore picks the backend from the config value. Embedded passwords are
// refused only when they were typed on the command line.
func openStore(config string, fromFlag bool) (storage.Provider, error) {
	if !cli.IsPostgres(config) {
		return sqlite.NewStore(kong.ExpandPath(config)), nil
	}

	if valid, err := postgres.ValidateConnString(config); !valid {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return nil, err
		}
		if fromFlag {
			return nil, tallyerrors.WithHint(
				errors.New("PostgreSQL connection strings with embedded credentials are not allowed on the command line"),
				"store it with 'tally keyring set', export "+constants.EnvDBConnection+", or use a .pgpass file",
			)
		}
	}
	return postgres.New(config), nil
}

func openShared(path string) timerstore.Store {
	store, err := timerstore.OpenSQLite(kong.ExpandPath(path))
	if err != nil {
		logger.Warn("shared timer region unavailable", "path", path, "error", err)
		return timerstore.Unavailable{Err: err}
	}
	return store
}

// publisher pushes timer changes to the tray app when enabled.
func publisher(ctx *cli.Context) liveactivity.Publisher {
	if !ctx.Settings().TrayEnabled {
		return liveactivity.NopPublisher{}
	}
	tray := liveactivity.NewTrayPublisher()
	tray.Labels = func(habitID string) string {
		habit, err := ctx.Store.GetHabit(habitID)
		if err != nil {
			return ""
		}
		return habit.Name
	}
	return tray
}

// configDir is where logs live: next to the SQLite file, or the default
// config directory for PostgreSQL.
func configDir(config string) string {
	if cli.IsPostgres(config) {
		config = constants.DefaultConfigPath
	}
	return filepath.Dir(kong.ExpandPath(config))
}
