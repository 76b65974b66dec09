package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/tally/internal/constants"
)

type HabitType = constants.HabitType

const (
	HabitTypeCount    = constants.HabitTypeCount
	HabitTypeDuration = constants.HabitTypeDuration
)

// WeekdayMask marks the weekdays a habit is scheduled on. It is indexed by
// time.Weekday, so slot 0 is Sunday regardless of the display week start.
type WeekdayMask [7]bool

// EveryDay returns a mask with all seven weekdays set.
func EveryDay() WeekdayMask {
	return WeekdayMask{true, true, true, true, true, true, true}
}

// MaskFromWeekdays builds a mask from a list of weekdays.
func MaskFromWeekdays(days []time.Weekday) WeekdayMask {
	var m WeekdayMask
	for _, d := range days {
		if d >= time.Sunday && d <= time.Saturday {
			m[d] = true
		}
	}
	return m
}

// ParseWeekdayMask parses the seven-character storage form ("1111100"),
// Sunday first.
func ParseWeekdayMask(s string) (WeekdayMask, error) {
	var m WeekdayMask
	if len(s) != 7 {
		return m, fmt.Errorf("weekday mask must have 7 slots, got %d", len(s))
	}
	for i, c := range s {
		switch c {
		case '1':
			m[i] = true
		case '0':
		default:
			return WeekdayMask{}, fmt.Errorf("invalid weekday mask character %q", c)
		}
	}
	return m, nil
}

func (m WeekdayMask) Has(d time.Weekday) bool {
	if d < time.Sunday || d > time.Saturday {
		return false
	}
	return m[d]
}

// Count returns the number of active weekdays.
func (m WeekdayMask) Count() int {
	n := 0
	for _, on := range m {
		if on {
			n++
		}
	}
	return n
}

// Weekdays returns the active weekdays in system order (Sunday first).
func (m WeekdayMask) Weekdays() []time.Weekday {
	var days []time.Weekday
	for i, on := range m {
		if on {
			days = append(days, time.Weekday(i))
		}
	}
	return days
}

// String returns the storage form of the mask.
func (m WeekdayMask) String() string {
	var b strings.Builder
	for _, on := range m {
		if on {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func (m WeekdayMask) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *WeekdayMask) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekdayMask(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Habit represents a recurring goal to track
type Habit struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Type       HabitType   `json:"type" yaml:"type"`
	Goal       int         `json:"goal" yaml:"goal"` // units for count habits, seconds for duration habits
	ActiveDays WeekdayMask `json:"active_days" yaml:"active_days"`
	StartDate  string      `json:"start_date" yaml:"start_date"` // YYYY-MM-DD format
	CreatedAt  time.Time   `json:"created_at" yaml:"created_at"`
	ArchivedAt *time.Time  `json:"archived_at,omitempty" yaml:"archived_at,omitempty"`
	DeletedAt  *time.Time  `json:"deleted_at,omitempty" yaml:"deleted_at,omitempty"`
}

func (h Habit) IsDuration() bool {
	return h.Type == HabitTypeDuration
}

// FormatAmount renders a progress amount in the habit's unit.
func (h Habit) FormatAmount(amount int) string {
	if !h.IsDuration() {
		return fmt.Sprintf("%d", amount)
	}
	return FormatSeconds(amount)
}

// FormatSeconds renders seconds as H:MM:SS or M:SS.
func FormatSeconds(total int) string {
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%s%d:%02d", sign, m, s)
}
