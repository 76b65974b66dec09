package models

import (
	"time"

	"github.com/julianstephens/tally/internal/constants"
)

type SessionState = constants.SessionState
type CommandAction = constants.CommandAction

const (
	SessionRunning = constants.SessionRunning
	SessionPaused  = constants.SessionPaused

	ActionToggle   = constants.ActionToggle
	ActionAdd      = constants.ActionAdd
	ActionComplete = constants.ActionComplete
)

// TimerSession is an in-progress, not yet committed duration timer.
// While running, StartedAt marks the beginning of the current running
// stretch; earlier stretches are already folded into BaseProgress.
// Day and Seeded record the local day the session began on and the logged
// progress it was seeded with, so a session crossing midnight commits only
// what it accumulated.
type TimerSession struct {
	HabitID      string       `json:"habit_id"`
	BaseProgress int          `json:"base_progress"`
	StartedAt    time.Time    `json:"started_at"`
	State        SessionState `json:"state"`
	Day          string       `json:"day,omitempty"`
	Seeded       int          `json:"seeded"`
}

// Gained returns the progress accumulated since the session was seeded.
func (s TimerSession) Gained(now time.Time) int {
	if g := s.LiveProgress(now) - s.Seeded; g > 0 {
		return g
	}
	return 0
}

// ElapsedSeconds returns the whole seconds of the current running stretch.
func (s TimerSession) ElapsedSeconds(now time.Time) int {
	if s.State != SessionRunning || now.Before(s.StartedAt) {
		return 0
	}
	return int(now.Sub(s.StartedAt) / time.Second)
}

// LiveProgress returns the uncommitted progress as of now.
func (s TimerSession) LiveProgress(now time.Time) int {
	return s.BaseProgress + s.ElapsedSeconds(now)
}

// SharedSnapshot is the externally readable mirror of a TimerSession.
type SharedSnapshot struct {
	HabitID      string       `json:"habit_id"`
	BaseProgress int          `json:"base_progress"`
	StartedAt    time.Time    `json:"started_at"`
	State        SessionState `json:"state"`
	Day          string       `json:"day,omitempty"`
	Seeded       int          `json:"seeded"`
	Revision     int64        `json:"revision"`
	UpdatedAt    time.Time    `json:"updated_at"`
	StaleAfter   time.Time    `json:"stale_after"`
}

// NewSnapshot mirrors a session, stamping it as fresh for the given window.
func NewSnapshot(s TimerSession, now time.Time, window time.Duration) SharedSnapshot {
	return SharedSnapshot{
		HabitID:      s.HabitID,
		BaseProgress: s.BaseProgress,
		StartedAt:    s.StartedAt,
		State:        s.State,
		Day:          s.Day,
		Seeded:       s.Seeded,
		UpdatedAt:    now,
		StaleAfter:   now.Add(window),
	}
}

// Session converts the snapshot back into a session.
func (s SharedSnapshot) Session() TimerSession {
	return TimerSession{
		HabitID:      s.HabitID,
		BaseProgress: s.BaseProgress,
		StartedAt:    s.StartedAt,
		State:        s.State,
		Day:          s.Day,
		Seeded:       s.Seeded,
	}
}

// IsStale reports whether readers must treat the snapshot as advisory only.
func (s SharedSnapshot) IsStale(now time.Time) bool {
	return now.After(s.StaleAfter)
}

// LiveProgress returns the progress the snapshot implies at now.
func (s SharedSnapshot) LiveProgress(now time.Time) int {
	return s.Session().LiveProgress(now)
}

// CommandIntent is a control request posted through the command relay.
type CommandIntent struct {
	HabitID  string        `json:"habit_id"`
	Action   CommandAction `json:"action"`
	IssuedAt time.Time     `json:"issued_at"`
}
