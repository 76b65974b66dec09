package system

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/keyring"
	"github.com/julianstephens/tally/internal/storage/postgres"
)

// KeyringCmd manages the PostgreSQL connection tally falls back to when
// --config is left at its default and TALLY_DB_CONNECTION is unset.
type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
	Get    KeyringGetCmd    `cmd:"" help:"Show the stored connection with any password redacted."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
	Status KeyringStatusCmd `cmd:"" help:"Check whether the OS keyring is available." default:"1"`
}

type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string (URL or key=value form)."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	if cmd.ConnectionString == "postgresql" || !cli.IsPostgres(cmd.ConnectionString) {
		return errors.New("connection string must be a PostgreSQL URL or key=value string")
	}

	// The keyring is encrypted, so an embedded password is accepted here.
	if _, err := postgres.ValidateConnString(cmd.ConnectionString); err != nil && !errors.Is(err, postgres.ErrEmbeddedCredentials) {
		return fmt.Errorf("invalid connection string: %w", err)
	}
	target, err := postgres.Describe(cmd.ConnectionString)
	if err != nil {
		return err
	}

	previous, err := keyring.GetConnectionString()
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to read keyring: %w", err)
	}
	if previous == cmd.ConnectionString {
		ctx.Printf("Keyring already holds the connection to %s\n", target)
		return nil
	}

	if err := keyring.SetConnectionString(cmd.ConnectionString); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}
	if previous != "" {
		ctx.Printf("Replaced stored connection with %s\n", target)
	} else {
		ctx.Printf("Stored connection to %s\n", target)
	}
	warnShadowed(ctx)
	return nil
}

type KeyringGetCmd struct{}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	connStr, err := storedConnString()
	if err != nil {
		return err
	}
	ctx.Println(postgres.Redact(connStr))
	if target, err := postgres.Describe(connStr); err == nil {
		ctx.Printf("Schema: %s\n", target.Schema)
	}
	return nil
}

type KeyringDeleteCmd struct{}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	if err := keyring.DeleteConnectionString(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return fmt.Errorf("failed to delete connection string from keyring: %w", err)
	}
	ctx.Println("Removed stored connection; tally will use " + constants.DefaultConfigPath)
	return nil
}

type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		ctx.Println("OS keyring is not available on this system")
		return keyring.ErrKeyringUnavailable
	}
	ctx.Println("OS keyring is available")

	connStr, err := keyring.GetConnectionString()
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		ctx.Println("No connection string stored")
		return nil
	case err != nil:
		return fmt.Errorf("failed to read keyring: %w", err)
	}

	target, err := postgres.Describe(connStr)
	if err != nil {
		ctx.Println("Stored connection string cannot be parsed; replace it with 'tally keyring set'")
		return nil
	}
	ctx.Printf("Stored connection: %s\n", target)
	warnShadowed(ctx)
	return nil
}

func storedConnString() (string, error) {
	connStr, err := keyring.GetConnectionString()
	if errors.Is(err, keyring.ErrNotFound) {
		return "", errors.New("no connection string found in keyring; use 'tally keyring set' to store one")
	}
	if err != nil {
		return "", fmt.Errorf("failed to retrieve connection string from keyring: %w", err)
	}
	return connStr, nil
}

// warnShadowed notes that the environment wins over the keyring.
func warnShadowed(ctx *cli.Context) {
	if os.Getenv(constants.EnvDBConnection) != "" {
		ctx.Printf("Note: %s is set and takes precedence over the keyring\n", constants.EnvDBConnection)
	}
}
