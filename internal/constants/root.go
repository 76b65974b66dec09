package constants

import "time"

// HabitType represents how progress on a habit is measured
type HabitType string

// SessionState represents the state of a running duration timer
type SessionState string

// CommandAction represents a control intent posted by an external surface
type CommandAction string

// DayState represents the completion state of a habit on a single day
type DayState string

const (
	AppName            = "tally"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/tally/tally.db"
	DefaultSharedPath  = "~/.config/tally/shared.db"
	Version            = "v0.3.0"
	LogFileName        = "tally.log"

	// Environment
	EnvDBConnection = "TALLY_DB_CONNECTION"
	EnvSharedPath   = "TALLY_SHARED_PATH"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "tally-"
	BackupFileSuffix = ".db"

	// Live activity tray constants
	TrayLockfileName     = "tally-tray.lock"
	TrayAppIdentifier    = "com.julianstephens.tally"
	TrayExecutablePrefix = "tally-tray"
	TrayRequestTimeout   = 2 * time.Second

	// Habit types
	HabitTypeCount    HabitType = "count"
	HabitTypeDuration HabitType = "duration"

	// Timer session states
	SessionRunning SessionState = "running"
	SessionPaused  SessionState = "paused"

	// Command relay actions
	ActionToggle   CommandAction = "toggle"
	ActionAdd      CommandAction = "add"
	ActionComplete CommandAction = "complete"

	// Day states
	DayInProgress DayState = "in_progress"
	DayCompleted  DayState = "completed"
	DayExceeded   DayState = "exceeded"

	// GraceHour is the local wall-clock hour from which an unfinished
	// active day breaks the current streak.
	GraceHour = 23

	// Timer limits
	FreeTimerLimit     = 1
	UnlockedTimerLimit = 3

	// Progress entry sources
	SourceManual = "manual"
	SourceTimer  = "timer"
	SourceRelay  = "relay"
)
