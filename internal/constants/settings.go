package constants

const (
	// Settings keys
	SettingTimezone       = "timezone"
	SettingWeekStart      = "week_start"
	SettingUnlocked       = "unlocked"
	SettingStaleWindowMin = "stale_window_min"
	SettingIncrementSec   = "increment_sec"
	SettingTrayEnabled    = "tray_enabled"
	SettingDefaultLogDays = "default_log_days"

	// Default Settings Values
	DefaultTimezone       = "Local" // Use system local timezone by default
	DefaultWeekStart      = "auto"
	DefaultUnlocked       = false
	DefaultStaleWindowMin = 12 * 60
	DefaultIncrementSec   = 60
	DefaultTrayEnabled    = true
	DefaultLogDays        = 14
)
