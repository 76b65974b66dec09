package models

// Settings represents application-wide settings
type Settings struct {
	Timezone       string `json:"timezone"`         // IANA timezone name (e.g. "America/New_York", or "Local" for system timezone)
	WeekStart      string `json:"week_start"`       // display week start: a weekday name or "auto"
	Unlocked       bool   `json:"unlocked"`         // whether the unlocked tier is active (raises the timer limit)
	StaleWindowMin int    `json:"stale_window_min"` // minutes a shared snapshot stays authoritative after a write
	IncrementSec   int    `json:"increment_sec"`    // seconds added by the "add" command
	TrayEnabled    bool   `json:"tray_enabled"`     // whether timer changes are pushed to the tray app
	DefaultLogDays int    `json:"default_log_days"` // default number of days shown by "habit log"
}
