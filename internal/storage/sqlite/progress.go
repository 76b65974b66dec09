package sqlite

import (
	"time"

	"github.com/julianstephens/tally/internal/models"
)

func (s *Store) AddProgressEntry(entry models.ProgressEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO progress_entries (id, habit_id, day, delta, source, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.HabitID, entry.Day, entry.Delta, entry.Source,
		entry.CreatedAt.Format(time.RFC3339), nullTime(entry.DeletedAt))
	return err
}

func (s *Store) GetProgressEntries(habitID, startDay, endDay string) ([]models.ProgressEntry, error) {
	query := "SELECT " + entryColumns + " FROM progress_entries WHERE habit_id = ? AND deleted_at IS NULL"
	args := []any{habitID}
	if startDay != "" {
		query += " AND day >= ?"
		args = append(args, startDay)
	}
	if endDay != "" {
		query += " AND day <= ?"
		args = append(args, endDay)
	}
	query += " ORDER BY day, created_at"

	return s.queryEntries(query, args...)
}

func (s *Store) GetProgressForDay(habitID, day string) (int, error) {
	var total int
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(delta), 0) FROM progress_entries
		WHERE habit_id = ? AND day = ? AND deleted_at IS NULL`,
		habitID, day).Scan(&total)
	return total, err
}

func (s *Store) DeleteProgressEntry(id string) error {
	return s.execOne(`
		UPDATE progress_entries SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		"progress entry not found or already deleted",
		time.Now().Format(time.RFC3339), id)
}

func (s *Store) RestoreProgressEntry(id string) error {
	return s.execOne(`
		UPDATE progress_entries SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL`,
		"progress entry not found or not deleted",
		id)
}

// GetAllProgressEntries returns every entry, deleted ones included.
func (s *Store) GetAllProgressEntries() ([]models.ProgressEntry, error) {
	return s.queryEntries("SELECT " + entryColumns + " FROM progress_entries ORDER BY habit_id, day, created_at")
}

func (s *Store) queryEntries(query string, args ...any) ([]models.ProgressEntry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ProgressEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
