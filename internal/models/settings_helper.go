package models

import (
	"fmt"

	"github.com/julianstephens/tally/internal/constants"
)

// MapToSettings converts a map of key-value pairs to a Settings struct.
func MapToSettings(data map[string]string) (Settings, error) {
	settings := Settings{}

	for key, value := range data {
		switch key {
		case constants.SettingTimezone:
			settings.Timezone = value
		case constants.SettingWeekStart:
			settings.WeekStart = value
		case constants.SettingUnlocked:
			settings.Unlocked = value == "true"
		case constants.SettingStaleWindowMin:
			if _, err := fmt.Sscanf(value, "%d", &settings.StaleWindowMin); err != nil {
				return Settings{}, fmt.Errorf("parsing stale_window_min: %w", err)
			}
		case constants.SettingIncrementSec:
			if _, err := fmt.Sscanf(value, "%d", &settings.IncrementSec); err != nil {
				return Settings{}, fmt.Errorf("parsing increment_sec: %w", err)
			}
		case constants.SettingTrayEnabled:
			settings.TrayEnabled = value == "true"
		case constants.SettingDefaultLogDays:
			if _, err := fmt.Sscanf(value, "%d", &settings.DefaultLogDays); err != nil {
				return Settings{}, fmt.Errorf("parsing default_log_days: %w", err)
			}
		}
	}
	return settings, nil
}

// SettingsToMap converts a Settings struct to a map of key-value pairs.
func SettingsToMap(settings Settings) map[string]string {
	return map[string]string{
		constants.SettingTimezone:       settings.Timezone,
		constants.SettingWeekStart:      settings.WeekStart,
		constants.SettingUnlocked:       fmt.Sprintf("%v", settings.Unlocked),
		constants.SettingStaleWindowMin: fmt.Sprintf("%d", settings.StaleWindowMin),
		constants.SettingIncrementSec:   fmt.Sprintf("%d", settings.IncrementSec),
		constants.SettingTrayEnabled:    fmt.Sprintf("%v", settings.TrayEnabled),
		constants.SettingDefaultLogDays: fmt.Sprintf("%d", settings.DefaultLogDays),
	}
}

// DefaultSettings returns the settings a fresh store is initialized with.
func DefaultSettings() Settings {
	return Settings{
		Timezone:       constants.DefaultTimezone,
		WeekStart:      constants.DefaultWeekStart,
		Unlocked:       constants.DefaultUnlocked,
		StaleWindowMin: constants.DefaultStaleWindowMin,
		IncrementSec:   constants.DefaultIncrementSec,
		TrayEnabled:    constants.DefaultTrayEnabled,
		DefaultLogDays: constants.DefaultLogDays,
	}
}

// ApplyDefaultSettings applies default values to missing settings.
func ApplyDefaultSettings(settings *Settings) {
	if settings.Timezone == "" {
		settings.Timezone = constants.DefaultTimezone
	}
	if settings.WeekStart == "" {
		settings.WeekStart = constants.DefaultWeekStart
	}
	if settings.StaleWindowMin == 0 {
		settings.StaleWindowMin = constants.DefaultStaleWindowMin
	}
	if settings.IncrementSec == 0 {
		settings.IncrementSec = constants.DefaultIncrementSec
	}
	if settings.DefaultLogDays == 0 {
		settings.DefaultLogDays = constants.DefaultLogDays
	}
}

// TimerLimit returns how many timers may run at once for the current tier.
func (s Settings) TimerLimit() int {
	if s.Unlocked {
		return constants.UnlockedTimerLimit
	}
	return constants.FreeTimerLimit
}
