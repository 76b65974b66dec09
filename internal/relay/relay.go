// Package relay lets a surface that does not own the timer coordinator (a
// widget button, the tray app, a shell shortcut) request a timer action. The
// intent is parked in the shared store's command slot and acted on the next
// time the owning process activates.
package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/timerstore"
)

// InvalidActionError reports an action name the relay does not understand.
type InvalidActionError struct {
	Action string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %q (expected toggle, add or complete)", e.Action)
}

// ParseAction accepts the action names case-insensitively.
func ParseAction(s string) (models.CommandAction, error) {
	switch models.CommandAction(strings.ToLower(strings.TrimSpace(s))) {
	case models.ActionToggle:
		return models.ActionToggle, nil
	case models.ActionAdd:
		return models.ActionAdd, nil
	case models.ActionComplete:
		return models.ActionComplete, nil
	}
	return "", &InvalidActionError{Action: s}
}

// Post parks an intent for habitID, replacing any intent not yet consumed.
func Post(ctx context.Context, store timerstore.Store, habitID string, action models.CommandAction, now time.Time) (models.CommandIntent, error) {
	if habitID == "" {
		return models.CommandIntent{}, fmt.Errorf("habit id is required")
	}
	if _, err := ParseAction(string(action)); err != nil {
		return models.CommandIntent{}, err
	}

	intent := models.CommandIntent{
		HabitID:  habitID,
		Action:   action,
		IssuedAt: now,
	}
	if err := store.PostCommand(ctx, intent); err != nil {
		return models.CommandIntent{}, fmt.Errorf("failed to post %s for habit %s: %w", action, habitID, err)
	}
	return intent, nil
}
