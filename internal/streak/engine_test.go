package streak

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/models"
)

func entry(day string, delta int) models.ProgressEntry {
	return models.ProgressEntry{
		ID:      fmt.Sprintf("%s-%d", day, delta),
		HabitID: "h1",
		Day:     day,
		Delta:   delta,
		Source:  constants.SourceManual,
	}
}

func at(day string, hour int) time.Time {
	t, err := time.ParseInLocation(constants.DateFormat, day, time.UTC)
	if err != nil {
		panic(err)
	}
	return t.Add(time.Duration(hour) * time.Hour)
}

func dailyHabit(goal int) models.Habit {
	return models.Habit{
		ID:         "h1",
		Name:       "Read",
		Type:       models.HabitTypeCount,
		Goal:       goal,
		ActiveDays: models.EveryDay(),
		StartDate:  "2024-03-01",
	}
}

func TestCurrentStreakSkipsInactiveDays(t *testing.T) {
	h := dailyHabit(1)
	h.StartDate = "2024-03-04" // Monday
	h.ActiveDays = models.MaskFromWeekdays([]time.Weekday{time.Monday})
	entries := []models.ProgressEntry{
		entry("2024-03-04", 1),
		entry("2024-03-11", 1),
		entry("2024-03-18", 1),
	}

	assert.Equal(t, 3, CurrentStreak(h, entries, "2024-03-18", at("2024-03-18", 20)))
	// Wednesday after the third Monday: the inactive days in between do not break it
	assert.Equal(t, 3, CurrentStreak(h, entries, "2024-03-20", at("2024-03-20", 12)))
	// The next Monday is open until the grace hour
	assert.Equal(t, 3, CurrentStreak(h, entries, "2024-03-25", at("2024-03-25", 9)))
}

func TestCurrentStreakGraceWindow(t *testing.T) {
	h := dailyHabit(2)
	entries := []models.ProgressEntry{
		entry("2024-03-01", 2),
		entry("2024-03-02", 2),
		entry("2024-03-03", 2),
		entry("2024-03-04", 2),
		entry("2024-03-05", 1), // today, started but not complete
	}

	t.Run("before grace hour keeps yesterday's streak", func(t *testing.T) {
		assert.Equal(t, 4, CurrentStreak(h, entries, "2024-03-05", at("2024-03-05", 20)))
	})

	t.Run("at grace hour the open day breaks the streak", func(t *testing.T) {
		assert.Equal(t, 0, CurrentStreak(h, entries, "2024-03-05", at("2024-03-05", 23)))
	})

	t.Run("historical query gets no grace", func(t *testing.T) {
		assert.Equal(t, 0, CurrentStreak(h, entries, "2024-03-05", at("2024-03-10", 20)))
	})

	t.Run("completed today counts", func(t *testing.T) {
		done := append(entries, entry("2024-03-05", 1))
		assert.Equal(t, 5, CurrentStreak(h, done, "2024-03-05", at("2024-03-05", 23)))
	})
}

func TestCurrentStreakInactiveToday(t *testing.T) {
	h := dailyHabit(1)
	h.ActiveDays = models.MaskFromWeekdays([]time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday})
	entries := []models.ProgressEntry{
		entry("2024-03-06", 1), // Wed
		entry("2024-03-07", 1), // Thu
		entry("2024-03-08", 1), // Fri
	}
	// Saturday 23:30: the weekend is skipped even past the grace hour
	assert.Equal(t, 3, CurrentStreak(h, entries, "2024-03-09", at("2024-03-09", 23)))
}

func TestDayStateSumsEntries(t *testing.T) {
	h := dailyHabit(5)

	tests := []struct {
		name    string
		entries []models.ProgressEntry
		want    DayState
	}{
		{name: "sum exceeds goal", entries: []models.ProgressEntry{entry("2024-03-02", 3), entry("2024-03-02", 4)}, want: constants.DayExceeded},
		{name: "exactly goal", entries: []models.ProgressEntry{entry("2024-03-02", 5)}, want: constants.DayCompleted},
		{name: "split exactly goal", entries: []models.ProgressEntry{entry("2024-03-02", 2), entry("2024-03-02", 3)}, want: constants.DayCompleted},
		{name: "below goal", entries: []models.ProgressEntry{entry("2024-03-02", 3)}, want: constants.DayInProgress},
		{name: "negative correction", entries: []models.ProgressEntry{entry("2024-03-02", 6), entry("2024-03-02", -2)}, want: constants.DayInProgress},
		{name: "other day ignored", entries: []models.ProgressEntry{entry("2024-03-03", 9)}, want: constants.DayInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DayStateOn(h, tt.entries, "2024-03-02"))
		})
	}
}

func TestDeletedEntriesIgnored(t *testing.T) {
	h := dailyHabit(1)
	deleted := entry("2024-03-01", 1)
	now := time.Now()
	deleted.DeletedAt = &now

	assert.Empty(t, CompletedDates(h, []models.ProgressEntry{deleted}, "2024-03-05"))
}

func TestEmptyMaskYieldsNoStreak(t *testing.T) {
	h := dailyHabit(1)
	h.ActiveDays = models.WeekdayMask{}
	entries := []models.ProgressEntry{entry("2024-03-01", 1), entry("2024-03-02", 1)}

	assert.Equal(t, 0, CurrentStreak(h, entries, "2024-03-02", at("2024-03-02", 10)))
	assert.Equal(t, 0, BestStreak(h, entries, "2024-03-02"))
}

func TestAsOfBeforeStartDate(t *testing.T) {
	h := dailyHabit(1)
	h.StartDate = "2024-03-10"
	entries := []models.ProgressEntry{entry("2024-03-01", 1), entry("2024-03-02", 1)}

	got := Summarize(h, entries, "2024-03-05", at("2024-03-05", 10))
	assert.Equal(t, Summary{}, got)
	assert.Zero(t, CompletionRate(h, entries, "2024-03-05", 7))
}

func TestEntriesBeforeStartDateIgnored(t *testing.T) {
	h := dailyHabit(1)
	h.StartDate = "2024-03-03"
	entries := []models.ProgressEntry{
		entry("2024-03-01", 1),
		entry("2024-03-02", 1),
		entry("2024-03-03", 1),
		entry("2024-03-04", 1),
	}

	assert.Equal(t, []string{"2024-03-03", "2024-03-04"}, CompletedDates(h, entries, "2024-03-04"))
	assert.Equal(t, 2, CurrentStreak(h, entries, "2024-03-04", at("2024-03-04", 22)))
	assert.Equal(t, 2, BestStreak(h, entries, "2024-03-04"))
}

func TestBestStreak(t *testing.T) {
	h := dailyHabit(1)
	entries := []models.ProgressEntry{
		entry("2024-03-01", 1),
		entry("2024-03-02", 1),
		entry("2024-03-03", 1),
		// 03-04 missed
		entry("2024-03-05", 1),
		entry("2024-03-06", 1),
	}

	assert.Equal(t, 3, BestStreak(h, entries, "2024-03-06"))
	assert.Equal(t, 2, CurrentStreak(h, entries, "2024-03-06", at("2024-03-06", 12)))
	assert.Equal(t, 5, TotalCompletions(h, entries, "2024-03-06"))
	// Restricting asOf drops later completions
	assert.Equal(t, 3, TotalCompletions(h, entries, "2024-03-04"))
}

func TestSummarize(t *testing.T) {
	h := dailyHabit(1)
	entries := []models.ProgressEntry{
		entry("2024-03-01", 1),
		entry("2024-03-02", 1),
	}

	got := Summarize(h, entries, "2024-03-03", at("2024-03-03", 8))
	assert.Equal(t, Summary{Current: 2, Best: 2, Total: 2}, got)
}

func TestCompletionRate(t *testing.T) {
	h := dailyHabit(1)
	entries := []models.ProgressEntry{
		entry("2024-03-03", 1),
		entry("2024-03-04", 1),
	}

	assert.InDelta(t, 0.5, CompletionRate(h, entries, "2024-03-04", 4), 1e-9)
	// Window larger than the habit's life is clipped to the start date
	assert.InDelta(t, 0.5, CompletionRate(h, entries, "2024-03-04", 30), 1e-9)
	assert.Zero(t, CompletionRate(h, entries, "2024-03-04", 0))
}

func TestHistory(t *testing.T) {
	h := dailyHabit(2)
	h.StartDate = "2024-03-02"
	entries := []models.ProgressEntry{
		entry("2024-03-02", 3),
		entry("2024-03-03", 1),
	}

	records, err := History(h, entries, "2024-03-01", "2024-03-03")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.False(t, records[0].Active)
	assert.Equal(t, constants.DayExceeded, records[1].State)
	assert.Equal(t, 1, records[2].Total)
	assert.Equal(t, constants.DayInProgress, records[2].State)

	_, err = History(h, entries, "bad", "2024-03-03")
	assert.Error(t, err)
}
