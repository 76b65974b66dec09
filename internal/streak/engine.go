// Package streak derives statistics from a habit's progress log: completed
// days, current and best streaks, totals and per-day completion state.
//
// Every function is pure. Callers pass the wall clock explicitly, already
// converted to the user's timezone, so results are reproducible in tests.
package streak

import (
	"sort"
	"time"

	"github.com/julianstephens/tally/internal/calendar"
	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/models"
)

type DayState = constants.DayState

// Summary is the streak overview shown for a habit.
type Summary struct {
	Current int `json:"current" yaml:"current"`
	Best    int `json:"best" yaml:"best"`
	Total   int `json:"total" yaml:"total"`
}

// DayRecord is one row of a habit's history.
type DayRecord struct {
	Day    string   `json:"day"`
	Active bool     `json:"active"`
	Total  int      `json:"total"`
	State  DayState `json:"state"`
}

// DayTotals sums the deltas of non-deleted entries per day.
func DayTotals(entries []models.ProgressEntry) map[string]int {
	totals := make(map[string]int)
	for _, e := range entries {
		if e.DeletedAt != nil {
			continue
		}
		totals[e.Day] += e.Delta
	}
	return totals
}

// DayStateFor classifies a day's summed progress against the habit goal.
func DayStateFor(habit models.Habit, total int) DayState {
	switch {
	case total > habit.Goal:
		return constants.DayExceeded
	case total >= habit.Goal:
		return constants.DayCompleted
	default:
		return constants.DayInProgress
	}
}

// DayStateOn classifies a single day using the full entry list.
func DayStateOn(habit models.Habit, entries []models.ProgressEntry, day string) DayState {
	return DayStateFor(habit, DayTotals(entries)[day])
}

// bounds parses the habit start and asOf days. ok is false when there is
// nothing to compute: an invalid habit, or asOf before the start date.
func bounds(habit models.Habit, asOf string) (start, end time.Time, ok bool) {
	if habit.Goal <= 0 {
		return start, end, false
	}
	start, err := calendar.ParseDate(habit.StartDate)
	if err != nil {
		return start, end, false
	}
	end, err = calendar.ParseDate(asOf)
	if err != nil || end.Before(start) {
		return start, end, false
	}
	return start, end, true
}

// CompletedDates returns the days in [StartDate, asOf] whose summed progress
// meets the goal, in ascending order.
func CompletedDates(habit models.Habit, entries []models.ProgressEntry, asOf string) []string {
	start, end, ok := bounds(habit, asOf)
	if !ok {
		return nil
	}
	startDay, endDay := calendar.FormatDate(start), calendar.FormatDate(end)

	var days []string
	for day, total := range DayTotals(entries) {
		if day < startDay || day > endDay {
			continue
		}
		if total >= habit.Goal {
			days = append(days, day)
		}
	}
	sort.Strings(days)
	return days
}

// TotalCompletions counts the distinct completed days in [StartDate, asOf].
func TotalCompletions(habit models.Habit, entries []models.ProgressEntry, asOf string) int {
	return len(CompletedDates(habit, entries, asOf))
}

// CurrentStreak walks backward from asOf counting completed active days.
// Inactive days are skipped without breaking the streak. When asOf is today,
// today is active but not yet complete, and the local hour is before
// constants.GraceHour, today is left open and the walk starts from yesterday.
func CurrentStreak(habit models.Habit, entries []models.ProgressEntry, asOf string, now time.Time) int {
	start, day, ok := bounds(habit, asOf)
	if !ok || habit.ActiveDays.Count() == 0 {
		return 0
	}
	totals := DayTotals(entries)

	today := now.Format(constants.DateFormat)
	if asOf == today &&
		calendar.IsActiveOnDate(habit, today) &&
		totals[today] < habit.Goal &&
		now.Hour() < constants.GraceHour {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for !day.Before(start) {
		d := calendar.FormatDate(day)
		if calendar.IsActiveOnDate(habit, d) {
			if totals[d] < habit.Goal {
				break
			}
			streak++
		}
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// BestStreak scans forward from the start date and returns the longest run
// of completed active days up to asOf.
func BestStreak(habit models.Habit, entries []models.ProgressEntry, asOf string) int {
	day, end, ok := bounds(habit, asOf)
	if !ok || habit.ActiveDays.Count() == 0 {
		return 0
	}
	totals := DayTotals(entries)

	best, running := 0, 0
	for !day.After(end) {
		d := calendar.FormatDate(day)
		if calendar.IsActiveOnDate(habit, d) {
			if totals[d] >= habit.Goal {
				running++
				if running > best {
					best = running
				}
			} else {
				running = 0
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return best
}

// Summarize computes current, best and total in one call.
func Summarize(habit models.Habit, entries []models.ProgressEntry, asOf string, now time.Time) Summary {
	return Summary{
		Current: CurrentStreak(habit, entries, asOf, now),
		Best:    BestStreak(habit, entries, asOf),
		Total:   TotalCompletions(habit, entries, asOf),
	}
}

// CompletionRate returns the share of active days completed over the
// trailing window of days ending at asOf, clipped to the start date.
func CompletionRate(habit models.Habit, entries []models.ProgressEntry, asOf string, window int) float64 {
	start, end, ok := bounds(habit, asOf)
	if !ok || window <= 0 {
		return 0
	}
	from := end.AddDate(0, 0, -(window - 1))
	if from.Before(start) {
		from = start
	}
	totals := DayTotals(entries)

	active, completed := 0, 0
	for day := from; !day.After(end); day = day.AddDate(0, 0, 1) {
		d := calendar.FormatDate(day)
		if !calendar.IsActiveOnDate(habit, d) {
			continue
		}
		active++
		if totals[d] >= habit.Goal {
			completed++
		}
	}
	if active == 0 {
		return 0
	}
	return float64(completed) / float64(active)
}

// History returns one record per day in [from, to], oldest first.
func History(habit models.Habit, entries []models.ProgressEntry, from, to string) ([]DayRecord, error) {
	start, err := calendar.ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := calendar.ParseDate(to)
	if err != nil {
		return nil, err
	}
	totals := DayTotals(entries)

	var records []DayRecord
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		d := calendar.FormatDate(day)
		records = append(records, DayRecord{
			Day:    d,
			Active: calendar.IsActiveOnDate(habit, d),
			Total:  totals[d],
			State:  DayStateFor(habit, totals[d]),
		})
	}
	return records, nil
}
