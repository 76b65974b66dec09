package sqlite

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testHabit(id, name string) models.Habit {
	return models.Habit{
		ID:         id,
		Name:       name,
		Type:       models.HabitTypeDuration,
		Goal:       1800,
		ActiveDays: models.MaskFromWeekdays([]time.Weekday{time.Monday, time.Wednesday, time.Friday}),
		StartDate:  "2024-03-01",
		CreatedAt:  time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestInitWritesDefaultSettings(t *testing.T) {
	store := setupTestStore(t)

	settings, err := store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings != models.DefaultSettings() {
		t.Errorf("expected default settings, got %+v", settings)
	}
	if settings.TimerLimit() != constants.FreeTimerLimit {
		t.Errorf("expected free timer limit, got %d", settings.TimerLimit())
	}

	settings.Unlocked = true
	settings.Timezone = "Europe/Berlin"
	if err := store.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	updated, err := store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if !updated.Unlocked || updated.Timezone != "Europe/Berlin" {
		t.Errorf("settings not persisted: %+v", updated)
	}
}

func TestLoadRequiresInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	if err := store.Load(); err == nil {
		t.Error("expected error loading an uninitialized store")
	}
}

func TestLoadAfterInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	first := NewStore(path)
	if err := first.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := first.AddHabit(testHabit("h1", "Reading")); err != nil {
		t.Fatalf("AddHabit failed: %v", err)
	}
	first.Close()

	second := NewStore(path)
	if err := second.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer second.Close()
	if _, err := second.GetHabit("h1"); err != nil {
		t.Errorf("habit not visible after reload: %v", err)
	}
}

func TestHabitRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	habit := testHabit("h1", "Reading")

	if err := store.AddHabit(habit); err != nil {
		t.Fatalf("AddHabit failed: %v", err)
	}

	got, err := store.GetHabit("h1")
	if err != nil {
		t.Fatalf("GetHabit failed: %v", err)
	}
	if got.Name != "Reading" || got.Type != models.HabitTypeDuration || got.Goal != 1800 {
		t.Errorf("unexpected habit: %+v", got)
	}
	if got.ActiveDays != habit.ActiveDays {
		t.Errorf("active days: expected %s, got %s", habit.ActiveDays, got.ActiveDays)
	}
	if got.StartDate != "2024-03-01" || !got.CreatedAt.Equal(habit.CreatedAt) {
		t.Errorf("dates not preserved: %+v", got)
	}

	byName, err := store.GetHabitByName("Reading")
	if err != nil {
		t.Fatalf("GetHabitByName failed: %v", err)
	}
	if byName.ID != "h1" {
		t.Errorf("expected h1, got %s", byName.ID)
	}

	got.Goal = 2400
	got.ActiveDays = models.EveryDay()
	if err := store.UpdateHabit(got); err != nil {
		t.Fatalf("UpdateHabit failed: %v", err)
	}
	updated, _ := store.GetHabit("h1")
	if updated.Goal != 2400 || updated.ActiveDays != models.EveryDay() {
		t.Errorf("update not applied: %+v", updated)
	}
}

func TestGetHabitNotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.GetHabit("missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	_, err = storage.LookupHabit(store, "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound from lookup, got %v", err)
	}
}

func TestLookupHabitByIDOrName(t *testing.T) {
	store := setupTestStore(t)
	if err := store.AddHabit(testHabit("h1", "Reading")); err != nil {
		t.Fatal(err)
	}
	for _, ref := range []string{"h1", "Reading"} {
		h, err := storage.LookupHabit(store, ref)
		if err != nil {
			t.Fatalf("LookupHabit(%q) failed: %v", ref, err)
		}
		if h.ID != "h1" {
			t.Errorf("LookupHabit(%q) = %s", ref, h.ID)
		}
	}
}

func TestArchiveAndSoftDelete(t *testing.T) {
	store := setupTestStore(t)
	for _, h := range []models.Habit{testHabit("h1", "Reading"), testHabit("h2", "Running"), testHabit("h3", "Piano")} {
		if err := store.AddHabit(h); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.ArchiveHabit("h2"); err != nil {
		t.Fatalf("ArchiveHabit failed: %v", err)
	}
	if err := store.ArchiveHabit("h2"); err == nil {
		t.Error("expected error archiving twice")
	}
	if err := store.DeleteHabit("h3"); err != nil {
		t.Fatalf("DeleteHabit failed: %v", err)
	}

	tests := []struct {
		name            string
		includeArchived bool
		includeDeleted  bool
		want            int
	}{
		{"active only", false, false, 1},
		{"with archived", true, false, 2},
		{"with deleted", false, true, 2},
		{"everything", true, true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			habits, err := store.GetAllHabits(tt.includeArchived, tt.includeDeleted)
			if err != nil {
				t.Fatalf("GetAllHabits failed: %v", err)
			}
			if len(habits) != tt.want {
				t.Errorf("expected %d habits, got %d", tt.want, len(habits))
			}
		})
	}

	if _, err := store.GetHabit("h3"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("deleted habit should not be found, got %v", err)
	}
	if err := store.RestoreHabit("h3"); err != nil {
		t.Fatalf("RestoreHabit failed: %v", err)
	}
	if err := store.RestoreHabit("h3"); err == nil {
		t.Error("expected error restoring a live habit")
	}
	if err := store.UnarchiveHabit("h2"); err != nil {
		t.Fatalf("UnarchiveHabit failed: %v", err)
	}
	habits, _ := store.GetAllHabits(false, false)
	if len(habits) != 3 {
		t.Errorf("expected 3 active habits after restore, got %d", len(habits))
	}
}

func TestProgressEntriesAreSummed(t *testing.T) {
	store := setupTestStore(t)
	if err := store.AddHabit(testHabit("h1", "Reading")); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	entries := []models.ProgressEntry{
		{ID: "e1", HabitID: "h1", Day: "2024-03-04", Delta: 3, Source: constants.SourceManual, CreatedAt: now},
		{ID: "e2", HabitID: "h1", Day: "2024-03-04", Delta: 4, Source: constants.SourceTimer, CreatedAt: now.Add(time.Minute)},
		{ID: "e3", HabitID: "h1", Day: "2024-03-05", Delta: 10, Source: constants.SourceManual, CreatedAt: now.Add(24 * time.Hour)},
	}
	for _, e := range entries {
		if err := store.AddProgressEntry(e); err != nil {
			t.Fatalf("AddProgressEntry failed: %v", err)
		}
	}

	total, err := store.GetProgressForDay("h1", "2024-03-04")
	if err != nil {
		t.Fatalf("GetProgressForDay failed: %v", err)
	}
	if total != 7 {
		t.Errorf("expected 7, got %d", total)
	}

	empty, err := store.GetProgressForDay("h1", "2024-03-10")
	if err != nil {
		t.Fatalf("GetProgressForDay failed: %v", err)
	}
	if empty != 0 {
		t.Errorf("expected 0 for a day without entries, got %d", empty)
	}

	ranged, err := store.GetProgressEntries("h1", "2024-03-05", "")
	if err != nil {
		t.Fatalf("GetProgressEntries failed: %v", err)
	}
	if len(ranged) != 1 || ranged[0].ID != "e3" {
		t.Errorf("unexpected ranged entries: %+v", ranged)
	}

	all, err := store.GetProgressEntries("h1", "", "")
	if err != nil {
		t.Fatalf("GetProgressEntries failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "e1" || all[1].ID != "e2" {
		t.Errorf("expected entries ordered by day then creation, got %+v", all)
	}
}

func TestProgressEntrySoftDelete(t *testing.T) {
	store := setupTestStore(t)
	if err := store.AddHabit(testHabit("h1", "Reading")); err != nil {
		t.Fatal(err)
	}
	entry := models.ProgressEntry{ID: "e1", HabitID: "h1", Day: "2024-03-04", Delta: 5, Source: constants.SourceManual, CreatedAt: time.Now()}
	if err := store.AddProgressEntry(entry); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteProgressEntry("e1"); err != nil {
		t.Fatalf("DeleteProgressEntry failed: %v", err)
	}
	total, _ := store.GetProgressForDay("h1", "2024-03-04")
	if total != 0 {
		t.Errorf("deleted entry still counted: %d", total)
	}

	all, err := store.GetAllProgressEntries()
	if err != nil {
		t.Fatalf("GetAllProgressEntries failed: %v", err)
	}
	if len(all) != 1 || all[0].DeletedAt == nil {
		t.Errorf("expected deleted entry in bulk export, got %+v", all)
	}

	if err := store.RestoreProgressEntry("e1"); err != nil {
		t.Fatalf("RestoreProgressEntry failed: %v", err)
	}
	total, _ = store.GetProgressForDay("h1", "2024-03-04")
	if total != 5 {
		t.Errorf("expected restored total 5, got %d", total)
	}
	if err := store.DeleteProgressEntry("missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProgressEntryRequiresHabit(t *testing.T) {
	store := setupTestStore(t)
	err := store.AddProgressEntry(models.ProgressEntry{ID: "e1", HabitID: "ghost", Day: "2024-03-04", Delta: 1, Source: constants.SourceManual, CreatedAt: time.Now()})
	if err == nil {
		t.Error("expected foreign key violation for unknown habit")
	}
}
