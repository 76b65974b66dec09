package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/tally/internal/calendar"
	"github.com/julianstephens/tally/internal/models"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictDuplicateHabitName ConflictType = "duplicate_habit_name"
	ConflictEmptyHabitName     ConflictType = "empty_habit_name"
	ConflictInvalidGoal        ConflictType = "invalid_goal"
	ConflictInvalidHabitType   ConflictType = "invalid_habit_type"
	ConflictNoActiveDays       ConflictType = "no_active_days"
	ConflictInvalidDate        ConflictType = "invalid_date"
	ConflictOrphanedEntry      ConflictType = "orphaned_entry"
	ConflictEntryBeforeStart   ConflictType = "entry_before_start"
	ConflictNegativeDayTotal   ConflictType = "negative_day_total"
)

// Conflict represents a detected problem in habits or progress entries
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string   // YYYY-MM-DD format (if applicable)
	Items       []string // Habit names involved
	HabitIDs    []string // IDs of habits involved (for auto-fixing)
	EntryIDs    []string // IDs of progress entries involved
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// FixAction represents an action taken during auto-fix
type FixAction struct {
	Action         string   // Human-readable description of the action
	SourceConflict Conflict // The conflict that triggered this fix action
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// Validator validates habits and their progress logs
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// ValidateHabit checks a single habit definition. It returns the first
// problem found, or nil.
func ValidateHabit(h models.Habit) error {
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("habit name cannot be empty")
	}
	if h.Type != models.HabitTypeCount && h.Type != models.HabitTypeDuration {
		return fmt.Errorf("invalid habit type %q (must be %s or %s)", h.Type, models.HabitTypeCount, models.HabitTypeDuration)
	}
	if h.Goal <= 0 {
		return fmt.Errorf("goal must be positive, got %d", h.Goal)
	}
	if h.ActiveDays.Count() == 0 {
		return fmt.Errorf("habit must be active on at least one weekday")
	}
	if h.StartDate != "" && !calendar.ValidateDate(h.StartDate) {
		return fmt.Errorf("invalid start date %q (expected YYYY-MM-DD)", h.StartDate)
	}
	return nil
}

// ValidateHabits checks live habits for problems. Deleted habits are skipped.
func (v *Validator) ValidateHabits(habits []models.Habit) ValidationResult {
	result := ValidationResult{}

	byName := make(map[string][]models.Habit)
	for _, h := range habits {
		if h.DeletedAt != nil {
			continue
		}

		name := strings.TrimSpace(h.Name)
		if name == "" {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictEmptyHabitName,
				Description: fmt.Sprintf("Habit %s has an empty name", h.ID),
				HabitIDs:    []string{h.ID},
			})
		} else {
			key := strings.ToLower(name)
			byName[key] = append(byName[key], h)
		}

		if h.Type != models.HabitTypeCount && h.Type != models.HabitTypeDuration {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidHabitType,
				Description: fmt.Sprintf("Habit %q has invalid type %q", h.Name, h.Type),
				Items:       []string{h.Name},
				HabitIDs:    []string{h.ID},
			})
		}
		if h.Goal <= 0 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidGoal,
				Description: fmt.Sprintf("Habit %q has non-positive goal %d", h.Name, h.Goal),
				Items:       []string{h.Name},
				HabitIDs:    []string{h.ID},
			})
		}
		if h.ActiveDays.Count() == 0 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictNoActiveDays,
				Description: fmt.Sprintf("Habit %q is not active on any weekday", h.Name),
				Items:       []string{h.Name},
				HabitIDs:    []string{h.ID},
			})
		}
		if h.StartDate != "" && !calendar.ValidateDate(h.StartDate) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidDate,
				Description: fmt.Sprintf("Habit %q has invalid start date %q", h.Name, h.StartDate),
				Date:        h.StartDate,
				Items:       []string{h.Name},
				HabitIDs:    []string{h.ID},
			})
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		group := byName[name]
		if len(group) < 2 {
			continue
		}
		ids := make([]string, len(group))
		items := make([]string, len(group))
		for i, h := range group {
			ids[i] = h.ID
			items[i] = h.Name
		}
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictDuplicateHabitName,
			Description: fmt.Sprintf("Duplicate habit name %q (%d habits)", group[0].Name, len(group)),
			Items:       items,
			HabitIDs:    ids,
		})
	}

	return result
}

// ValidateEntries checks the progress log against the habits it belongs to.
// Deleted entries are skipped.
func (v *Validator) ValidateEntries(habits []models.Habit, entries []models.ProgressEntry) ValidationResult {
	result := ValidationResult{}

	habitMap := make(map[string]models.Habit, len(habits))
	for _, h := range habits {
		habitMap[h.ID] = h
	}

	type dayKey struct{ habitID, day string }
	totals := make(map[dayKey]int)
	entryIDs := make(map[dayKey][]string)

	for _, e := range entries {
		if e.DeletedAt != nil {
			continue
		}

		if !calendar.ValidateDate(e.Day) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidDate,
				Description: fmt.Sprintf("Progress entry %s has invalid day %q", e.ID, e.Day),
				Date:        e.Day,
				EntryIDs:    []string{e.ID},
			})
			continue
		}

		h, ok := habitMap[e.HabitID]
		if !ok {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictOrphanedEntry,
				Description: fmt.Sprintf("Progress entry %s references unknown habit %s", e.ID, e.HabitID),
				Date:        e.Day,
				EntryIDs:    []string{e.ID},
			})
			continue
		}

		if h.StartDate != "" && e.Day < h.StartDate {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictEntryBeforeStart,
				Description: fmt.Sprintf("Progress for %q on %s predates its start date %s", h.Name, e.Day, h.StartDate),
				Date:        e.Day,
				Items:       []string{h.Name},
				HabitIDs:    []string{h.ID},
				EntryIDs:    []string{e.ID},
			})
		}

		k := dayKey{e.HabitID, e.Day}
		totals[k] += e.Delta
		entryIDs[k] = append(entryIDs[k], e.ID)
	}

	keys := make([]dayKey, 0, len(totals))
	for k, total := range totals {
		if total < 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].habitID != keys[j].habitID {
			return keys[i].habitID < keys[j].habitID
		}
		return keys[i].day < keys[j].day
	})
	for _, k := range keys {
		h := habitMap[k.habitID]
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictNegativeDayTotal,
			Description: fmt.Sprintf("Progress for %q on %s sums to %d", h.Name, k.day, totals[k]),
			Date:        k.day,
			Items:       []string{h.Name},
			HabitIDs:    []string{h.ID},
			EntryIDs:    entryIDs[k],
		})
	}

	return result
}

// ParseGoal parses a goal for the given habit type. Count goals are plain
// integers; duration goals accept Go durations ("30m", "1h15m") or a bare
// number of minutes. The result is in the habit's unit.
func ParseGoal(habitType models.HabitType, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("goal cannot be empty")
	}

	switch habitType {
	case models.HabitTypeCount:
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid count goal %q: %w", s, err)
		}
		if n <= 0 {
			return 0, fmt.Errorf("goal must be positive, got %d", n)
		}
		return n, nil
	case models.HabitTypeDuration:
		secs, err := ParseDurationSeconds(s)
		if err != nil {
			return 0, err
		}
		if secs <= 0 {
			return 0, fmt.Errorf("goal must be positive, got %s", s)
		}
		return secs, nil
	default:
		return 0, fmt.Errorf("invalid habit type %q", habitType)
	}
}

// ParseDurationSeconds parses a duration amount into whole seconds. A bare
// integer is read as minutes. Negative amounts are allowed for corrections.
func ParseDurationSeconds(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n * 60, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q (use e.g. 30m, 1h15m or minutes)", s)
	}
	return int(d / time.Second), nil
}

// ParseAmount parses a logged amount for the habit. Unlike goals, amounts
// may be negative to correct earlier entries, but never zero.
func ParseAmount(habit models.Habit, s string) (int, error) {
	var (
		n   int
		err error
	)
	if habit.IsDuration() {
		n, err = ParseDurationSeconds(s)
	} else {
		n, err = strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			err = fmt.Errorf("invalid amount %q: %w", s, err)
		}
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("amount cannot be zero")
	}
	return n, nil
}

// AutoFixDuplicateHabits resolves duplicate-name conflicts by keeping the
// oldest habit and soft-deleting the rest.
func AutoFixDuplicateHabits(conflicts []Conflict, habits []models.Habit, deleteFunc func(id string) error) []FixAction {
	actions := []FixAction{}

	habitMap := make(map[string]models.Habit)
	for _, h := range habits {
		habitMap[h.ID] = h
	}

	for _, conflict := range conflicts {
		if conflict.Type != ConflictDuplicateHabitName || len(conflict.HabitIDs) <= 1 {
			continue
		}

		var live []models.Habit
		for _, id := range conflict.HabitIDs {
			if h, ok := habitMap[id]; ok && h.DeletedAt == nil {
				live = append(live, h)
			}
		}
		if len(live) <= 1 {
			continue
		}

		// Oldest first, ID as tie-break.
		sort.Slice(live, func(i, j int) bool {
			if !live[i].CreatedAt.Equal(live[j].CreatedAt) {
				return live[i].CreatedAt.Before(live[j].CreatedAt)
			}
			return live[i].ID < live[j].ID
		})

		keep := live[0]
		var deletedIDs, failedIDs []string
		for _, h := range live[1:] {
			if err := deleteFunc(h.ID); err == nil {
				deletedIDs = append(deletedIDs, h.ID)
			} else {
				failedIDs = append(failedIDs, h.ID)
			}
		}

		if len(deletedIDs) > 0 {
			msg := fmt.Sprintf("Removed %d duplicate habit(s) named %q (kept ID: %s, removed: %v)", len(deletedIDs), keep.Name, keep.ID, deletedIDs)
			if len(failedIDs) > 0 {
				msg += fmt.Sprintf(" (failed to remove: %v)", failedIDs)
			}
			actions = append(actions, FixAction{Action: msg, SourceConflict: conflict})
		} else if len(failedIDs) > 0 {
			actions = append(actions, FixAction{
				Action:         fmt.Sprintf("Failed to remove duplicates for %q: %v", keep.Name, failedIDs),
				SourceConflict: conflict,
			})
		}
	}

	return actions
}
