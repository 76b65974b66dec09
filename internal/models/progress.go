package models

import "time"

// ProgressEntry is one append-only delta in a habit's progress log.
// Several entries may share a day; the day's progress is their sum.
type ProgressEntry struct {
	ID        string     `json:"id" yaml:"id"`
	HabitID   string     `json:"habit_id" yaml:"habit_id"`
	Day       string     `json:"day" yaml:"day"` // YYYY-MM-DD format
	Delta     int        `json:"delta" yaml:"delta"`
	Source    string     `json:"source" yaml:"source"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" yaml:"deleted_at,omitempty"`
}
