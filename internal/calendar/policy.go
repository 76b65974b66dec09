// Package calendar answers scheduling questions about habits: whether a habit
// is active on a given day and how weekdays are ordered for display. All
// functions are pure.
package calendar

import (
	"os"
	"strings"
	"time"

	"github.com/julianstephens/tally/internal/models"
)

// IsActiveOnDate reports whether the habit is scheduled on day. A day before
// the habit's start date, or one that does not parse, is never active.
func IsActiveOnDate(habit models.Habit, day string) bool {
	t, err := ParseDate(day)
	if err != nil {
		return false
	}
	if day < habit.StartDate {
		return false
	}
	return habit.ActiveDays.Has(t.Weekday())
}

// Weekday returns the weekday of a YYYY-MM-DD day.
func Weekday(day string) (time.Weekday, error) {
	t, err := ParseDate(day)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}

// Regions whose conventional week starts on Sunday.
var sundayFirstRegions = map[string]bool{
	"US": true, "CA": true, "JP": true, "BR": true, "MX": true, "IL": true,
	"PH": true, "KR": true, "TW": true, "HK": true, "IN": true, "ZA": true,
	"SA": true,
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekday parses a weekday name or abbreviation.
func ParseWeekday(s string) (time.Weekday, bool) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	return wd, ok
}

// FirstWeekday resolves the week_start setting. "auto" (or anything
// unrecognized) falls back to the locale region from the environment.
func FirstWeekday(setting string) time.Weekday {
	if wd, ok := ParseWeekday(setting); ok {
		return wd
	}
	return localeFirstWeekday(localeFromEnv())
}

func localeFromEnv() string {
	for _, key := range []string{"LC_ALL", "LC_TIME", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// localeFirstWeekday maps a POSIX locale like "en_US.UTF-8" to a week start.
func localeFirstWeekday(locale string) time.Weekday {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	parts := strings.Split(locale, "_")
	if len(parts) < 2 {
		// C/POSIX locales keep the system numbering
		return time.Sunday
	}
	if sundayFirstRegions[strings.ToUpper(parts[1])] {
		return time.Sunday
	}
	return time.Monday
}

// OrderedWeekdays returns the seven weekdays starting from first. This only
// affects display; masks are always stored Sunday first.
func OrderedWeekdays(first time.Weekday) []time.Weekday {
	days := make([]time.Weekday, 7)
	for i := range days {
		days[i] = time.Weekday((int(first) + i) % 7)
	}
	return days
}

// FormatMask renders a mask in display order, e.g. "M T W T F . .".
func FormatMask(mask models.WeekdayMask, first time.Weekday) string {
	var parts []string
	for _, wd := range OrderedWeekdays(first) {
		if mask.Has(wd) {
			parts = append(parts, wd.String()[:1])
		} else {
			parts = append(parts, ".")
		}
	}
	return strings.Join(parts, " ")
}

// ParseWeekdays parses a comma-separated list of weekdays. The shorthands
// "daily", "weekdays" and "weekends" are accepted as well.
func ParseWeekdays(s string) (models.WeekdayMask, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "daily", "all":
		return models.EveryDay(), nil
	case "weekdays":
		return models.MaskFromWeekdays([]time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}), nil
	case "weekends":
		return models.MaskFromWeekdays([]time.Weekday{time.Saturday, time.Sunday}), nil
	}

	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		wd, ok := ParseWeekday(part)
		if !ok {
			return models.WeekdayMask{}, &InvalidWeekdayError{Value: strings.TrimSpace(part)}
		}
		days = append(days, wd)
	}
	return models.MaskFromWeekdays(days), nil
}

// InvalidWeekdayError is returned for an unrecognized weekday name.
type InvalidWeekdayError struct {
	Value string
}

func (e *InvalidWeekdayError) Error() string {
	return "invalid weekday: " + e.Value
}
