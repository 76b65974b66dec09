package timer

import "errors"

var (
	// ErrConcurrencyLimitExceeded is returned by Start when the session cap is
	// reached. No state changes.
	ErrConcurrencyLimitExceeded = errors.New("timer limit reached")
	// ErrNotRunning is returned by Pause for a paused session.
	ErrNotRunning = errors.New("timer is not running")
	// ErrNotPaused is returned by Resume for a running session.
	ErrNotPaused = errors.New("timer is not paused")
	// ErrNoSession is returned when an operation needs a session and the
	// habit is idle.
	ErrNoSession = errors.New("no timer for habit")
	// ErrInvalidIncrement is returned for non-positive increments.
	ErrInvalidIncrement = errors.New("increment must be positive")
	// ErrNotDurationHabit is returned when a timer is requested for a count habit.
	ErrNotDurationHabit = errors.New("timers are only available for duration habits")
)
