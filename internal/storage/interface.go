package storage

import (
	"errors"

	"github.com/julianstephens/tally/internal/models"
)

// ErrNotFound is returned when a habit or entry does not exist (or is
// soft-deleted and the lookup excludes deleted rows).
var ErrNotFound = errors.New("not found")

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Habits
	AddHabit(models.Habit) error
	GetHabit(id string) (models.Habit, error)
	GetHabitByName(name string) (models.Habit, error)
	GetAllHabits(includeArchived, includeDeleted bool) ([]models.Habit, error)
	UpdateHabit(models.Habit) error
	ArchiveHabit(id string) error
	UnarchiveHabit(id string) error
	DeleteHabit(id string) error
	RestoreHabit(id string) error

	// Progress entries
	AddProgressEntry(models.ProgressEntry) error
	// GetProgressEntries returns a habit's live entries with startDay <= day <= endDay.
	// An empty bound is open.
	GetProgressEntries(habitID, startDay, endDay string) ([]models.ProgressEntry, error)
	// GetProgressForDay returns the summed live deltas for one day.
	GetProgressForDay(habitID, day string) (int, error)
	DeleteProgressEntry(id string) error
	RestoreProgressEntry(id string) error

	// Bulk retrieval for export and store-to-store migration
	GetAllProgressEntries() ([]models.ProgressEntry, error)

	// Utils
	GetConfigPath() string
}

// LookupHabit resolves a habit by id first, then by name.
func LookupHabit(p Provider, ref string) (models.Habit, error) {
	habit, err := p.GetHabit(ref)
	if err == nil {
		return habit, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.Habit{}, err
	}
	return p.GetHabitByName(ref)
}
