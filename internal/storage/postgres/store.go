// Package postgres is the PostgreSQL ledger. All tables live in one schema
// (tally by default) that the connection's search_path is pinned to.
package postgres

import (
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/migration"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
	"github.com/julianstephens/tally/migrations"
)

const (
	maxOpenConns    = 10
	connMaxLifetime = 5 * time.Minute
)

type Store struct {
	connStr string
	schema  string
	db      *sql.DB
}

var _ storage.Provider = (*Store)(nil)

type Option func(*Store)

// WithSchema keeps tally's tables in schema instead of the default one.
// Ignored when the connection string already sets search_path.
func WithSchema(schema string) Option {
	return func(s *Store) {
		if schema != "" {
			s.schema = schema
		}
	}
}

func New(connStr string, opts ...Option) *Store {
	s := &Store{connStr: connStr, schema: constants.AppName}
	for _, opt := range opts {
		opt(s)
	}

	c, err := parseConnString(connStr)
	if err != nil {
		logger.Warn("could not parse PostgreSQL connection string, using it as given", "error", err)
		return s
	}
	if path, ok := c.get("search_path"); ok {
		if schema := firstSchema(path); schema != "" {
			s.schema = schema
		}
		return s
	}
	if pinned, err := withSearchPath(connStr, s.schema); err == nil {
		s.connStr = pinned
	}
	return s
}

// Schema returns the schema holding tally's tables.
func (s *Store) Schema() string {
	return s.schema
}

func (s *Store) open() (*sql.DB, error) {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		c, _ := parseConnString(s.connStr)
		return nil, connectError(err, c)
	}
	return db, nil
}

// Init connects, creates the schema, applies migrations and seeds settings.
func (s *Store) Init() error {
	db, err := s.open()
	if err != nil {
		return err
	}
	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(s.schema)); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema %s: %w", s.schema, err)
	}
	s.db = db

	runner, err := s.Migrations()
	if err != nil {
		return err
	}
	if _, err := runner.ApplyMigrations(func(msg string) { logger.Info(msg) }); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	settings, err := s.GetSettings()
	if err != nil {
		settings = models.DefaultSettings()
	}
	models.ApplyDefaultSettings(&settings)
	if err := s.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save default settings: %w", err)
	}
	return nil
}

// Load connects to an initialized database and refuses a schema written by
// a newer build.
func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	s.db = db

	runner, err := s.Migrations()
	if err != nil {
		return err
	}
	return runner.ValidateVersion()
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrations returns a runner for the embedded PostgreSQL migrations over the
// store's connection.
func (s *Store) Migrations() (*migration.Runner, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	sub, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	return migration.NewRunner(s.db, sub, migration.DriverPostgres), nil
}

// GetConfigPath returns a fixed label; the connection string is never echoed.
func (s *Store) GetConfigPath() string {
	return "postgresql"
}

// GetDB returns the underlying database connection, or nil before Init/Load.
func (s *Store) GetDB() *sql.DB {
	return s.db
}
