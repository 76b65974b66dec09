package system

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage/sqlite"
)

func setupTestInitDB(t *testing.T) (*cli.Context, string) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	store := sqlite.NewStore(dbPath)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	return &cli.Context{Store: store, Out: &bytes.Buffer{}}, dbPath
}

func TestInitCmd_Success(t *testing.T) {
	ctx, dbPath := setupTestInitDB(t)

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Errorf("init command failed: %v", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file was not created at %s", dbPath)
	}
}

func TestInitCmd_Idempotent(t *testing.T) {
	ctx, _ := setupTestInitDB(t)

	cmd := &InitCmd{}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	if err := cmd.Run(ctx); err != nil {
		t.Errorf("second init failed (should be idempotent): %v", err)
	}
}

func TestInitCmd_ForceDeletesExisting(t *testing.T) {
	ctx, dbPath := setupTestInitDB(t)

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("initial init failed: %v", err)
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		t.Fatalf("failed to get initial settings: %v", err)
	}
	settings.Unlocked = true
	if err := ctx.Store.SaveSettings(settings); err != nil {
		t.Fatalf("failed to save modified settings: %v", err)
	}
	if err := ctx.Store.Close(); err != nil {
		t.Fatalf("failed to close store before force reset: %v", err)
	}

	if err := (&InitCmd{Force: true}).Run(ctx); err != nil {
		t.Fatalf("init with force failed: %v", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatalf("database file was not recreated after force")
	}

	fresh, err := ctx.Store.GetSettings()
	if err != nil {
		t.Fatalf("failed to get settings after force: %v", err)
	}
	if fresh.Unlocked != constants.DefaultUnlocked {
		t.Errorf("expected default unlocked=%v after force, got %v", constants.DefaultUnlocked, fresh.Unlocked)
	}
}

func TestInitCmd_ForceWithNonExistentDatabase(t *testing.T) {
	ctx, dbPath := setupTestInitDB(t)

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatalf("database file should not exist initially")
	}
	if err := (&InitCmd{Force: true}).Run(ctx); err != nil {
		t.Fatalf("init with force on non-existent database failed: %v", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file was not created")
	}
}

func TestInitCmd_ForceRejectsSameSource(t *testing.T) {
	ctx, dbPath := setupTestInitDB(t)

	err := (&InitCmd{Force: true, Source: dbPath}).Run(ctx)
	if err == nil {
		t.Fatal("expected error when source and destination are the same")
	}
}

func TestInitCmd_MigratesFromSource(t *testing.T) {
	sourcePath := filepath.Join(t.TempDir(), "source.db")
	source := sqlite.NewStore(sourcePath)
	if err := source.Init(); err != nil {
		t.Fatalf("failed to init source: %v", err)
	}

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	habit := models.Habit{
		ID:         "h1",
		Name:       "Meditate",
		Type:       models.HabitTypeDuration,
		Goal:       1200,
		ActiveDays: models.EveryDay(),
		StartDate:  "2026-03-01",
		CreatedAt:  now,
	}
	if err := source.AddHabit(habit); err != nil {
		t.Fatal(err)
	}
	entry := models.ProgressEntry{
		ID: "e1", HabitID: "h1", Day: "2026-03-09", Delta: 600,
		Source: constants.SourceTimer, CreatedAt: now,
	}
	if err := source.AddProgressEntry(entry); err != nil {
		t.Fatal(err)
	}
	settings, _ := source.GetSettings()
	settings.Unlocked = true
	if err := source.SaveSettings(settings); err != nil {
		t.Fatal(err)
	}
	if err := source.Close(); err != nil {
		t.Fatal(err)
	}

	ctx, _ := setupTestInitDB(t)
	if err := (&InitCmd{Source: sourcePath}).Run(ctx); err != nil {
		t.Fatalf("init with source failed: %v", err)
	}

	got, err := ctx.Store.GetHabit("h1")
	if err != nil {
		t.Fatalf("habit not migrated: %v", err)
	}
	if got.Name != "Meditate" || got.Goal != 1200 {
		t.Errorf("unexpected migrated habit: %+v", got)
	}
	total, err := ctx.Store.GetProgressForDay("h1", "2026-03-09")
	if err != nil || total != 600 {
		t.Errorf("migrated progress = %d, %v; want 600", total, err)
	}
	migrated, _ := ctx.Store.GetSettings()
	if !migrated.Unlocked {
		t.Error("expected settings to be migrated")
	}
}
