// Package timer owns the duration-timer state machine for one process.
//
// A habit is Idle, Running or Paused. Stopping from either active state
// commits the session's progress to the ledger as a single entry for today
// and returns the habit to Idle. Every mutation is mirrored into the shared
// timer store so other surfaces can render it, and pushed to the live
// activity publisher.
//
// Several processes may hold a coordinator at once. Before every mutation the
// coordinator re-reads the shared store: a snapshot with a newer revision
// replaces the in-memory session and a session whose snapshot is gone was
// ended elsewhere and is dropped.
//
// The coordinator keeps working when the shared store is unavailable; it then
// behaves as a process-local timer with no cross-surface sync.
package timer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/julianstephens/tally/internal/calendar"
	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/liveactivity"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/observability"
	"github.com/julianstephens/tally/internal/timerstore"
)

// Ledger is the slice of habit persistence the coordinator needs.
type Ledger interface {
	GetHabit(id string) (models.Habit, error)
	GetProgressForDay(habitID, day string) (int, error)
	AddProgressEntry(entry models.ProgressEntry) error
}

type Coordinator struct {
	mu sync.Mutex

	store     timerstore.Store
	ledger    Ledger
	publisher liveactivity.Publisher
	log       *log.Logger

	now         func() time.Time
	loc         *time.Location
	limit       LimitSource
	staleWindow time.Duration
	increment   int

	sessions  map[string]models.TimerSession
	revisions map[string]int64
	// unsynced holds sessions whose last put failed; sync must not drop them.
	unsynced map[string]bool
	degraded bool
}

// New builds a coordinator. store and publisher may be nil, in which case the
// coordinator runs local-only and publishes nowhere.
func New(store timerstore.Store, ledger Ledger, publisher liveactivity.Publisher, opts ...Option) *Coordinator {
	if store == nil {
		store = timerstore.Unavailable{}
	}
	if publisher == nil {
		publisher = liveactivity.NopPublisher{}
	}

	c := &Coordinator{
		store:       store,
		ledger:      ledger,
		publisher:   publisher,
		log:         logger.With("timer"),
		now:         time.Now,
		loc:         time.Local,
		limit:       defaultLimit,
		staleWindow: time.Duration(constants.DefaultStaleWindowMin) * time.Minute,
		increment:   constants.DefaultIncrementSec,
		sessions:    make(map[string]models.TimerSession),
		revisions:   make(map[string]int64),
		unsynced:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Activate rehydrates sessions persisted by earlier activations and applies
// any pending external command. Call it at the start of every activation.
func (c *Coordinator) Activate(ctx context.Context) (Reconciliation, error) {
	c.mu.Lock()
	for _, habitID := range c.syncLocked(ctx) {
		// Re-stamp so readers see the session as fresh again.
		c.publishLocked(ctx, habitID)
	}
	c.mu.Unlock()

	return c.ReconcileExternalCommands(ctx)
}

// syncLocked aligns the in-memory sessions with the shared store and returns
// the habits whose sessions were adopted for the first time.
func (c *Coordinator) syncLocked(ctx context.Context) []string {
	snaps, err := c.store.List(ctx)
	if err != nil {
		c.storeFailedLocked("list", err)
		return nil
	}

	var adopted []string
	seen := make(map[string]bool, len(snaps))
	for _, snap := range snaps {
		seen[snap.HabitID] = true
		_, known := c.sessions[snap.HabitID]
		if known && snap.Revision <= c.revisions[snap.HabitID] {
			continue
		}
		c.adoptLocked(snap)
		if !known {
			adopted = append(adopted, snap.HabitID)
		}
	}

	for habitID := range c.sessions {
		if seen[habitID] || c.unsynced[habitID] {
			continue
		}
		c.log.Debug("timer ended by another process", "habit", habitID)
		delete(c.sessions, habitID)
		delete(c.revisions, habitID)
	}
	observability.SetActiveSessions(len(c.sessions))
	return adopted
}

func (c *Coordinator) adoptLocked(snap models.SharedSnapshot) {
	c.sessions[snap.HabitID] = snap.Session()
	c.revisions[snap.HabitID] = snap.Revision
	delete(c.unsynced, snap.HabitID)
}

// Start creates a running session seeded with baseProgress. Starting a habit
// that already has a session is a no-op.
func (c *Coordinator) Start(ctx context.Context, habitID string, baseProgress int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncLocked(ctx)
	return c.startLocked(ctx, habitID, baseProgress)
}

func (c *Coordinator) startLocked(ctx context.Context, habitID string, baseProgress int) error {
	if _, ok := c.sessions[habitID]; ok {
		return nil
	}

	limit := c.limit()
	if len(c.sessions) >= limit {
		observability.RecordLimitRejection()
		return fmt.Errorf("%w (%d of %d in use)", ErrConcurrencyLimitExceeded, len(c.sessions), limit)
	}

	if baseProgress < 0 {
		baseProgress = 0
	}
	now := c.now()
	c.sessions[habitID] = models.TimerSession{
		HabitID:      habitID,
		BaseProgress: baseProgress,
		StartedAt:    now,
		State:        models.SessionRunning,
		Day:          calendar.Today(now, c.loc),
		Seeded:       baseProgress,
	}
	c.log.Debug("timer started", "habit", habitID, "base", baseProgress)
	observability.RecordTransition("start")
	observability.SetActiveSessions(len(c.sessions))

	c.publishLocked(ctx, habitID)
	return nil
}

// Pause freezes a running session.
func (c *Coordinator) Pause(ctx context.Context, habitID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncLocked(ctx)
	return c.pauseLocked(ctx, habitID)
}

func (c *Coordinator) pauseLocked(ctx context.Context, habitID string) error {
	s, ok := c.sessions[habitID]
	if !ok {
		return ErrNoSession
	}
	if s.State != models.SessionRunning {
		return ErrNotRunning
	}

	now := c.now()
	s.BaseProgress = s.LiveProgress(now)
	s.StartedAt = now
	s.State = models.SessionPaused
	c.sessions[habitID] = s
	observability.RecordTransition("pause")

	c.publishLocked(ctx, habitID)
	return nil
}

// Resume restarts a paused session.
func (c *Coordinator) Resume(ctx context.Context, habitID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncLocked(ctx)
	return c.resumeLocked(ctx, habitID)
}

func (c *Coordinator) resumeLocked(ctx context.Context, habitID string) error {
	s, ok := c.sessions[habitID]
	if !ok {
		return ErrNoSession
	}
	if s.State != models.SessionPaused {
		return ErrNotPaused
	}

	s.StartedAt = c.now()
	s.State = models.SessionRunning
	c.sessions[habitID] = s
	observability.RecordTransition("resume")

	c.publishLocked(ctx, habitID)
	return nil
}

// AddFixedIncrement adds seconds to a session without changing its state.
func (c *Coordinator) AddFixedIncrement(ctx context.Context, habitID string, seconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncLocked(ctx)
	return c.addLocked(ctx, habitID, seconds)
}

func (c *Coordinator) addLocked(ctx context.Context, habitID string, seconds int) error {
	if seconds <= 0 {
		return ErrInvalidIncrement
	}
	s, ok := c.sessions[habitID]
	if !ok {
		return ErrNoSession
	}

	s.BaseProgress += seconds
	c.sessions[habitID] = s
	observability.RecordTransition("add")

	c.publishLocked(ctx, habitID)
	return nil
}

// Stop ends the session and commits its progress. committed is the session's
// final live progress; only the part exceeding what is already logged for
// today is appended, so stopping twice never double counts. A session that
// began on an earlier day commits only what it gained on top of its seed, and
// committed is then today's resulting total. ok is false when the habit had
// no session.
func (c *Coordinator) Stop(ctx context.Context, habitID string) (committed int, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncLocked(ctx)
	return c.stopLocked(ctx, habitID, 0, constants.SourceTimer)
}

// stopLocked commits max(live progress, floor).
func (c *Coordinator) stopLocked(ctx context.Context, habitID string, floor int, source string) (int, bool, error) {
	s, ok := c.sessions[habitID]
	if !ok {
		return 0, false, nil
	}

	now := c.now()
	today := calendar.Today(now, c.loc)
	logged, err := c.ledger.GetProgressForDay(habitID, today)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read progress for %s: %w", today, err)
	}

	committed := s.LiveProgress(now)
	if s.Day != "" && s.Day != today {
		committed = logged + s.Gained(now)
	}
	if committed < floor {
		committed = floor
	}

	if delta := committed - logged; delta > 0 {
		entry := models.ProgressEntry{
			ID:        uuid.New().String(),
			HabitID:   habitID,
			Day:       today,
			Delta:     delta,
			Source:    source,
			CreatedAt: now,
		}
		if err := c.ledger.AddProgressEntry(entry); err != nil {
			return 0, false, fmt.Errorf("failed to commit timer progress: %w", err)
		}
		observability.RecordCommitted(delta)
	}

	c.log.Debug("timer stopped", "habit", habitID, "committed", committed, "logged", logged)
	observability.RecordTransition("stop")
	c.endLocked(ctx, habitID)
	return committed, true, nil
}

// Discard destroys a session without committing anything.
func (c *Coordinator) Discard(ctx context.Context, habitID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncLocked(ctx)

	if _, ok := c.sessions[habitID]; !ok {
		return false
	}
	observability.RecordTransition("discard")
	c.endLocked(ctx, habitID)
	return true
}

// LiveProgress returns the uncommitted progress of a session, or false when
// the habit is idle.
func (c *Coordinator) LiveProgress(habitID string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[habitID]
	if !ok {
		return 0, false
	}
	return s.LiveProgress(c.now()), true
}

// Session returns a copy of the habit's session.
func (c *Coordinator) Session(habitID string) (models.TimerSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[habitID]
	return s, ok
}

// Sessions returns every session ordered by habit id.
func (c *Coordinator) Sessions() []models.TimerSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	sessions := make([]models.TimerSession, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].HabitID < sessions[j].HabitID
	})
	return sessions
}

// Limit returns the current session cap.
func (c *Coordinator) Limit() int {
	return c.limit()
}

// Degraded reports whether the shared store has failed during this
// activation.
func (c *Coordinator) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

// Refresh re-stamps every session's snapshot. Long-running activations call it
// periodically so readers keep treating the sessions as live. A session that
// another process changed or ended is taken from the store instead.
func (c *Coordinator) Refresh(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.syncLocked(ctx)
	for habitID := range c.sessions {
		c.restampLocked(ctx, habitID)
	}
}

// restampLocked republishes a session unless the stored revision has moved
// past the one this coordinator last wrote.
func (c *Coordinator) restampLocked(ctx context.Context, habitID string) {
	snap, ok, err := c.store.Get(ctx, habitID)
	if err == nil && ok && snap.Revision > c.revisions[habitID] {
		c.adoptLocked(snap)
		return
	}
	c.publishLocked(ctx, habitID)
}

func (c *Coordinator) publishLocked(ctx context.Context, habitID string) {
	s, ok := c.sessions[habitID]
	if !ok {
		return
	}

	snap := models.NewSnapshot(s, c.now(), c.staleWindow)
	rev, err := c.store.Put(ctx, snap)
	if err != nil {
		c.storeFailedLocked("put", err)
		rev = c.revisions[habitID] + 1
		c.unsynced[habitID] = true
	} else {
		delete(c.unsynced, habitID)
	}
	snap.Revision = rev
	c.revisions[habitID] = rev

	if err := c.publisher.Publish(ctx, snap); err != nil {
		c.log.Debug("live activity update skipped", "habit", habitID, "error", err)
	}
}

func (c *Coordinator) endLocked(ctx context.Context, habitID string) {
	delete(c.sessions, habitID)
	delete(c.revisions, habitID)
	delete(c.unsynced, habitID)
	observability.SetActiveSessions(len(c.sessions))

	if err := c.store.Remove(ctx, habitID); err != nil {
		c.storeFailedLocked("remove", err)
	}
	if err := c.publisher.End(ctx, habitID); err != nil {
		c.log.Debug("live activity end skipped", "habit", habitID, "error", err)
	}
}

// storeFailedLocked warns once per coordinator and keeps going local-only.
func (c *Coordinator) storeFailedLocked(op string, err error) {
	observability.RecordStoreUnavailable()
	if !c.degraded {
		c.degraded = true
		c.log.Warn("shared timer store unavailable, continuing without live sync", "op", op, "error", err)
		return
	}
	if !errors.Is(err, timerstore.ErrStoreUnavailable) {
		c.log.Debug("shared timer store call failed", "op", op, "error", err)
	}
}
