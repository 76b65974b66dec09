package timer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/tally/internal/calendar"
	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/observability"
)

// Reconciliation describes the command consumed by one reconcile pass.
type Reconciliation struct {
	Intent models.CommandIntent
	// Taken is false when the mailbox was empty.
	Taken bool
	// Committed is set when the command stopped a session or logged progress.
	Committed int
}

// ReconcileExternalCommands takes at most one pending command from the shared
// store and applies it. The command is consumed even when applying it fails;
// the failure is returned so the caller can surface it.
func (c *Coordinator) ReconcileExternalCommands(ctx context.Context) (Reconciliation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncLocked(ctx)

	intent, ok, err := c.store.TakeCommand(ctx)
	if err != nil {
		c.storeFailedLocked("take command", err)
		return Reconciliation{}, nil
	}
	if !ok {
		return Reconciliation{}, nil
	}

	result := Reconciliation{Intent: intent, Taken: true}
	committed, err := c.applyLocked(ctx, intent)
	result.Committed = committed

	outcome := "applied"
	if err != nil {
		outcome = "failed"
		c.log.Warn("external command failed", "habit", intent.HabitID, "action", intent.Action, "error", err)
	}
	observability.RecordCommand(string(intent.Action), outcome)
	return result, err
}

func (c *Coordinator) applyLocked(ctx context.Context, intent models.CommandIntent) (int, error) {
	habit, err := c.ledger.GetHabit(intent.HabitID)
	if err != nil {
		return 0, fmt.Errorf("unknown habit %s: %w", intent.HabitID, err)
	}

	switch intent.Action {
	case models.ActionToggle:
		return 0, c.toggleLocked(ctx, habit)
	case models.ActionAdd:
		return 0, c.addLocked(ctx, habit.ID, c.increment)
	case models.ActionComplete:
		return c.completeLocked(ctx, habit)
	default:
		return 0, fmt.Errorf("unsupported action %q", intent.Action)
	}
}

// Toggle starts an idle habit's timer from today's committed progress,
// pauses a running one and resumes a paused one.
func (c *Coordinator) Toggle(ctx context.Context, habit models.Habit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncLocked(ctx)
	return c.toggleLocked(ctx, habit)
}

func (c *Coordinator) toggleLocked(ctx context.Context, habit models.Habit) error {
	s, ok := c.sessions[habit.ID]
	if !ok {
		if !habit.IsDuration() {
			return ErrNotDurationHabit
		}
		today := calendar.Today(c.now(), c.loc)
		base, err := c.ledger.GetProgressForDay(habit.ID, today)
		if err != nil {
			return fmt.Errorf("failed to read progress for %s: %w", today, err)
		}
		return c.startLocked(ctx, habit.ID, base)
	}

	if s.State == models.SessionRunning {
		return c.pauseLocked(ctx, habit.ID)
	}
	return c.resumeLocked(ctx, habit.ID)
}

// Complete brings today's progress up to the goal. A session is stopped with
// at least the goal committed; an idle habit gets the shortfall appended.
func (c *Coordinator) Complete(ctx context.Context, habit models.Habit) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncLocked(ctx)
	return c.completeLocked(ctx, habit)
}

func (c *Coordinator) completeLocked(ctx context.Context, habit models.Habit) (int, error) {
	if _, ok := c.sessions[habit.ID]; ok {
		committed, _, err := c.stopLocked(ctx, habit.ID, habit.Goal, constants.SourceRelay)
		return committed, err
	}

	now := c.now()
	today := calendar.Today(now, c.loc)
	logged, err := c.ledger.GetProgressForDay(habit.ID, today)
	if err != nil {
		return 0, fmt.Errorf("failed to read progress for %s: %w", today, err)
	}
	if logged >= habit.Goal {
		return logged, nil
	}

	entry := models.ProgressEntry{
		ID:        uuid.New().String(),
		HabitID:   habit.ID,
		Day:       today,
		Delta:     habit.Goal - logged,
		Source:    constants.SourceRelay,
		CreatedAt: now,
	}
	if err := c.ledger.AddProgressEntry(entry); err != nil {
		return 0, fmt.Errorf("failed to log completion: %w", err)
	}
	observability.RecordTransition("complete")
	return habit.Goal, nil
}
