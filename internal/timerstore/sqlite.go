package timerstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/tally/internal/migration"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/migrations"
)

const timeLayout = time.RFC3339Nano

// SQLiteStore keeps the shared region in a WAL-mode SQLite file that every
// tally process on the machine opens independently.
type SQLiteStore struct {
	path string
	db   *sql.DB
	opts options
}

// OpenSQLite opens (creating if needed) the shared region at path. Any
// failure is reported as ErrStoreUnavailable.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, unavailable("open", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, unavailable("open", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, unavailable("open", err)
	}

	subFS, err := fs.Sub(migrations.FS, "shared")
	if err != nil {
		db.Close()
		return nil, unavailable("open", err)
	}
	if _, err := migration.NewRunner(db, subFS, migration.DriverSQLite).ApplyMigrations(nil); err != nil {
		db.Close()
		return nil, unavailable("migrate", err)
	}

	return &SQLiteStore{path: path, db: db, opts: buildOptions(opts)}, nil
}

// Path returns the file backing the region.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Put(ctx context.Context, snap models.SharedSnapshot) (int64, error) {
	var revision int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO timer_snapshots (habit_id, base_progress, started_at, state, day, seeded, revision, updated_at, stale_after, removed)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, 0)
		ON CONFLICT(habit_id) DO UPDATE SET
			base_progress = excluded.base_progress,
			started_at = excluded.started_at,
			state = excluded.state,
			day = excluded.day,
			seeded = excluded.seeded,
			revision = timer_snapshots.revision + 1,
			updated_at = excluded.updated_at,
			stale_after = excluded.stale_after,
			removed = 0
		RETURNING revision`,
		snap.HabitID,
		snap.BaseProgress,
		formatTime(snap.StartedAt),
		string(snap.State),
		snap.Day,
		snap.Seeded,
		formatTime(snap.UpdatedAt),
		formatTime(snap.StaleAfter),
	).Scan(&revision)
	if err != nil {
		return 0, unavailable("put", err)
	}
	return revision, nil
}

func (s *SQLiteStore) Get(ctx context.Context, habitID string) (models.SharedSnapshot, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT habit_id, base_progress, started_at, state, day, seeded, revision, updated_at, stale_after
		FROM timer_snapshots
		WHERE habit_id = ? AND removed = 0`, habitID)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SharedSnapshot{}, false, nil
	}
	if err != nil {
		return models.SharedSnapshot{}, false, unavailable("get", err)
	}
	if snap.IsStale(s.opts.now()) {
		return models.SharedSnapshot{}, false, nil
	}
	return snap, true, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.SharedSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT habit_id, base_progress, started_at, state, day, seeded, revision, updated_at, stale_after
		FROM timer_snapshots
		WHERE removed = 0
		ORDER BY habit_id`)
	if err != nil {
		return nil, unavailable("list", err)
	}
	defer rows.Close()

	var snaps []models.SharedSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, unavailable("list", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list", err)
	}
	return snaps, nil
}

// Remove tombstones the row so the revision counter keeps climbing if the
// habit's timer is started again.
func (s *SQLiteStore) Remove(ctx context.Context, habitID string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE timer_snapshots SET removed = 1 WHERE habit_id = ?", habitID)
	if err != nil {
		return unavailable("remove", err)
	}
	return nil
}

func (s *SQLiteStore) PostCommand(ctx context.Context, intent models.CommandIntent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO command_mailbox (slot, habit_id, action, issued_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			habit_id = excluded.habit_id,
			action = excluded.action,
			issued_at = excluded.issued_at`,
		intent.HabitID, string(intent.Action), formatTime(intent.IssuedAt))
	if err != nil {
		return unavailable("post command", err)
	}
	return nil
}

func (s *SQLiteStore) TakeCommand(ctx context.Context) (models.CommandIntent, bool, error) {
	var (
		intent   models.CommandIntent
		action   string
		issuedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"DELETE FROM command_mailbox WHERE slot = 1 RETURNING habit_id, action, issued_at",
	).Scan(&intent.HabitID, &action, &issuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CommandIntent{}, false, nil
	}
	if err != nil {
		return models.CommandIntent{}, false, unavailable("take command", err)
	}

	intent.Action = models.CommandAction(action)
	if intent.IssuedAt, err = parseTime(issuedAt); err != nil {
		return models.CommandIntent{}, false, unavailable("take command", err)
	}
	return intent, true, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (models.SharedSnapshot, error) {
	var (
		snap                             models.SharedSnapshot
		state                            string
		startedAt, updatedAt, staleAfter string
	)
	if err := row.Scan(&snap.HabitID, &snap.BaseProgress, &startedAt, &state, &snap.Day, &snap.Seeded, &snap.Revision, &updatedAt, &staleAfter); err != nil {
		return models.SharedSnapshot{}, err
	}
	snap.State = models.SessionState(state)

	var err error
	if snap.StartedAt, err = parseTime(startedAt); err != nil {
		return models.SharedSnapshot{}, err
	}
	if snap.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.SharedSnapshot{}, err
	}
	if snap.StaleAfter, err = parseTime(staleAfter); err != nil {
		return models.SharedSnapshot{}, err
	}
	return snap, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
