package calendar

import (
	"testing"
	"time"
)

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantErr  bool
	}{
		{
			name:     "empty string returns local",
			timezone: "",
			wantErr:  false,
		},
		{
			name:     "Local returns local",
			timezone: "Local",
			wantErr:  false,
		},
		{
			name:     "valid timezone UTC",
			timezone: "UTC",
			wantErr:  false,
		},
		{
			name:     "valid timezone America/New_York",
			timezone: "America/New_York",
			wantErr:  false,
		},
		{
			name:     "invalid timezone",
			timezone: "Invalid/Timezone",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadLocation(tt.timezone)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadLocation() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && loc == nil {
				t.Errorf("LoadLocation() returned nil location without error")
			}
		})
	}
}

func TestToday(t *testing.T) {
	est, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 02:30 UTC on the 15th is still the 14th in New York
	now := time.Date(2026, 1, 15, 2, 30, 0, 0, time.UTC)
	if got := Today(now, est); got != "2026-01-14" {
		t.Errorf("Today() = %q, want %q", got, "2026-01-14")
	}
	if got := Today(now, time.UTC); got != "2026-01-15" {
		t.Errorf("Today() = %q, want %q", got, "2026-01-15")
	}
}

func TestParseDateInLocation(t *testing.T) {
	utc, _ := time.LoadLocation("UTC")

	tests := []struct {
		name    string
		dateStr string
		wantDay int
		wantErr bool
	}{
		{name: "valid date", dateStr: "2026-01-15", wantDay: 15},
		{name: "invalid format", dateStr: "2026/01/15", wantErr: true},
		{name: "invalid date", dateStr: "2026-13-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateInLocation(tt.dateStr, utc)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDateInLocation() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got.Day() != tt.wantDay {
				t.Errorf("ParseDateInLocation() day = %v, want %v", got.Day(), tt.wantDay)
			}
		})
	}
}

func TestDayArithmetic(t *testing.T) {
	next, err := AddDays("2024-02-28", 1)
	if err != nil {
		t.Fatalf("AddDays() error = %v", err)
	}
	if next != "2024-02-29" {
		t.Errorf("AddDays() = %q, want leap day", next)
	}

	prev, err := AddDays("2024-03-01", -1)
	if err != nil {
		t.Fatalf("AddDays() error = %v", err)
	}
	if prev != "2024-02-29" {
		t.Errorf("AddDays() = %q, want leap day", prev)
	}

	n, err := DaysBetween("2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("DaysBetween() error = %v", err)
	}
	if n != 30 {
		t.Errorf("DaysBetween() = %d, want 30", n)
	}

	if _, err := AddDays("not-a-date", 1); err == nil {
		t.Error("AddDays() expected error for invalid day")
	}
}
