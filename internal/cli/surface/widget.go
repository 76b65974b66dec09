package surface

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/tally/internal/cli"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/timerstore"
)

// WidgetItem is one timer as rendered by the widget.
type WidgetItem struct {
	HabitID  string              `json:"habit_id"`
	Name     string              `json:"name"`
	State    models.SessionState `json:"state"`
	Progress int                 `json:"progress"`
	Goal     int                 `json:"goal"`
	Revision int64               `json:"revision"`
}

// WidgetCmd renders live timers for a status bar. It only reads the shared
// snapshots, so it never starts, stops or refreshes a timer; stale or
// missing snapshots are simply left out.
type WidgetCmd struct {
	JSON  bool   `help:"Print JSON instead of a single line."`
	Empty string `help:"Text printed when no timer is live." default:""`
}

func (c *WidgetCmd) Run(ctx *cli.Context) error {
	items, err := Snapshot(ctx)
	if err != nil {
		if !errors.Is(err, timerstore.ErrStoreUnavailable) {
			return err
		}
		logger.Debug("widget rendering without shared store", "error", err)
		items = nil
	}

	if c.JSON {
		if items == nil {
			items = []WidgetItem{}
		}
		data, err := json.Marshal(items)
		if err != nil {
			return err
		}
		ctx.Println(string(data))
		return nil
	}

	if len(items) == 0 {
		if c.Empty != "" {
			ctx.Println(c.Empty)
		}
		return nil
	}
	ctx.Println(RenderLine(items))
	return nil
}

// Snapshot reads the live snapshot of every duration habit.
func Snapshot(ctx *cli.Context) ([]WidgetItem, error) {
	habits, err := ctx.Store.GetAllHabits(false, false)
	if err != nil {
		return nil, err
	}

	shared := ctx.SharedStore()
	now := ctx.Clock()
	var items []WidgetItem
	for _, habit := range habits {
		if !habit.IsDuration() {
			continue
		}
		snap, ok, err := shared.Get(ctx.Context(), habit.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		items = append(items, WidgetItem{
			HabitID:  habit.ID,
			Name:     habit.Name,
			State:    snap.State,
			Progress: snap.LiveProgress(now),
			Goal:     habit.Goal,
			Revision: snap.Revision,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].State != items[j].State {
			return items[i].State == models.SessionRunning
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

// RenderLine formats items as "▶ Meditate 12:03/20:00 · ⏸ Read 5:00/30:00".
func RenderLine(items []WidgetItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		icon := "▶"
		if it.State == models.SessionPaused {
			icon = "⏸"
		}
		parts = append(parts, fmt.Sprintf("%s %s %s/%s", icon, it.Name,
			models.FormatSeconds(it.Progress), models.FormatSeconds(it.Goal)))
	}
	return strings.Join(parts, " · ")
}
