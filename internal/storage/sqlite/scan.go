package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/julianstephens/tally/internal/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const habitColumns = "id, name, type, goal, active_days, start_date, created_at, archived_at, deleted_at"

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var habitType, activeDays, createdAt string
	var archivedAt, deletedAt sql.NullString

	if err := row.Scan(&h.ID, &h.Name, &habitType, &h.Goal, &activeDays, &h.StartDate, &createdAt, &archivedAt, &deletedAt); err != nil {
		return models.Habit{}, err
	}
	h.Type = models.HabitType(habitType)

	mask, err := models.ParseWeekdayMask(activeDays)
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse active_days for habit %s: %w", h.ID, err)
	}
	h.ActiveDays = mask

	if h.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse created_at for habit %s: %w", h.ID, err)
	}
	if h.ArchivedAt, err = parseNullTime(archivedAt); err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse archived_at for habit %s: %w", h.ID, err)
	}
	if h.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse deleted_at for habit %s: %w", h.ID, err)
	}
	return h, nil
}

const entryColumns = "id, habit_id, day, delta, source, created_at, deleted_at"

func scanEntry(row rowScanner) (models.ProgressEntry, error) {
	var e models.ProgressEntry
	var createdAt string
	var deletedAt sql.NullString

	if err := row.Scan(&e.ID, &e.HabitID, &e.Day, &e.Delta, &e.Source, &createdAt, &deletedAt); err != nil {
		return models.ProgressEntry{}, err
	}

	var err error
	if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return models.ProgressEntry{}, fmt.Errorf("failed to parse created_at for entry %s: %w", e.ID, err)
	}
	if e.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return models.ProgressEntry{}, fmt.Errorf("failed to parse deleted_at for entry %s: %w", e.ID, err)
	}
	return e, nil
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}
