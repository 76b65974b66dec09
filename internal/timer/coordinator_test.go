package timer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/relay"
	"github.com/julianstephens/tally/internal/timerstore"
)

var t0 = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeLedger struct {
	mu      sync.Mutex
	habits  map[string]models.Habit
	entries []models.ProgressEntry
	failAdd error
}

func newLedger(habits ...models.Habit) *fakeLedger {
	l := &fakeLedger{habits: make(map[string]models.Habit)}
	for _, h := range habits {
		l.habits[h.ID] = h
	}
	return l
}

func (l *fakeLedger) GetHabit(id string) (models.Habit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.habits[id]
	if !ok {
		return models.Habit{}, errors.New("habit not found")
	}
	return h, nil
}

func (l *fakeLedger) GetProgressForDay(habitID, day string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, e := range l.entries {
		if e.HabitID == habitID && e.Day == day {
			total += e.Delta
		}
	}
	return total, nil
}

func (l *fakeLedger) AddProgressEntry(entry models.ProgressEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failAdd != nil {
		return l.failAdd
	}
	l.entries = append(l.entries, entry)
	return nil
}

func (l *fakeLedger) Entries() []models.ProgressEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ProgressEntry(nil), l.entries...)
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []models.SharedSnapshot
	ended     []string
}

func (p *recordingPublisher) Publish(_ context.Context, snap models.SharedSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, snap)
	return nil
}

func (p *recordingPublisher) End(_ context.Context, habitID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ended = append(p.ended, habitID)
	return nil
}

func durationHabit(id string, goal int) models.Habit {
	return models.Habit{
		ID:         id,
		Name:       id,
		Type:       models.HabitTypeDuration,
		Goal:       goal,
		ActiveDays: models.EveryDay(),
		StartDate:  "2024-03-01",
	}
}

type fixture struct {
	clock  *clock
	store  *timerstore.MemoryStore
	ledger *fakeLedger
	pub    *recordingPublisher
	coord  *Coordinator
}

func newFixture(t *testing.T, limit int, habits ...models.Habit) *fixture {
	t.Helper()
	f := &fixture{
		clock:  &clock{now: t0},
		ledger: newLedger(habits...),
		pub:    &recordingPublisher{},
	}
	f.store = timerstore.NewMemoryStore(timerstore.WithClock(f.clock.Now))
	f.coord = f.newCoordinator(limit)
	return f
}

// newCoordinator simulates a fresh activation sharing the fixture's store.
func (f *fixture) newCoordinator(limit int) *Coordinator {
	return New(f.store, f.ledger, f.pub,
		WithClock(f.clock.Now),
		WithLocation(time.UTC),
		WithLimit(limit),
		WithStaleWindow(time.Hour),
		WithIncrement(60),
	)
}

func TestStartStopCommitsElapsed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))

	require.NoError(t, f.coord.Start(ctx, "read", 0))
	f.clock.Advance(1800 * time.Second)

	committed, ok, err := f.coord.Stop(ctx, "read")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1800, committed)

	entries := f.ledger.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-03-05", entries[0].Day)
	assert.Equal(t, 1800, entries[0].Delta)
	assert.Equal(t, "timer", entries[0].Source)
	assert.NotEmpty(t, entries[0].ID)

	_, ok, err = f.store.Get(ctx, "read")
	require.NoError(t, err)
	assert.False(t, ok, "snapshot removed on stop")
	assert.Equal(t, []string{"read"}, f.pub.ended)
}

func TestStopTwiceNeverDoubleCommits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))

	require.NoError(t, f.coord.Start(ctx, "read", 0))
	f.clock.Advance(10 * time.Minute)

	_, ok, err := f.coord.Stop(ctx, "read")
	require.NoError(t, err)
	require.True(t, ok)

	committed, ok, err := f.coord.Stop(ctx, "read")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, committed)
	assert.Len(t, f.ledger.Entries(), 1)
}

func TestStopCommitsOnlyTheDelta(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))
	require.NoError(t, f.ledger.AddProgressEntry(models.ProgressEntry{HabitID: "read", Day: "2024-03-05", Delta: 600}))

	require.NoError(t, f.coord.Start(ctx, "read", 600))
	f.clock.Advance(5 * time.Minute)

	committed, ok, err := f.coord.Stop(ctx, "read")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 900, committed)

	entries := f.ledger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 300, entries[1].Delta)
}

func TestStopWithNothingNewCommitsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))
	require.NoError(t, f.ledger.AddProgressEntry(models.ProgressEntry{HabitID: "read", Day: "2024-03-05", Delta: 600}))

	// Seeded with less than is already logged.
	require.NoError(t, f.coord.Start(ctx, "read", 0))
	f.clock.Advance(time.Minute)

	committed, ok, err := f.coord.Stop(ctx, "read")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 60, committed)
	assert.Len(t, f.ledger.Entries(), 1)
}

func TestStopKeepsSessionWhenLedgerFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))
	f.ledger.failAdd = errors.New("disk full")

	require.NoError(t, f.coord.Start(ctx, "read", 0))
	f.clock.Advance(time.Minute)

	_, ok, err := f.coord.Stop(ctx, "read")
	require.Error(t, err)
	assert.False(t, ok)

	live, ok := f.coord.LiveProgress("read")
	assert.True(t, ok, "progress is not lost")
	assert.Equal(t, 60, live)
}

func TestLiveProgressIsMonotoneWhileRunning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))
	require.NoError(t, f.coord.Start(ctx, "read", 42))

	prev, ok := f.coord.LiveProgress("read")
	require.True(t, ok)
	assert.Equal(t, 42, prev)

	for _, step := range []time.Duration{0, 300 * time.Millisecond, time.Second, 59 * time.Second, time.Hour} {
		f.clock.Advance(step)
		cur, ok := f.coord.LiveProgress("read")
		require.True(t, ok)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestLiveProgressIdle(t *testing.T) {
	f := newFixture(t, 1)
	_, ok := f.coord.LiveProgress("nope")
	assert.False(t, ok)
}

func TestConcurrencyLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800), durationHabit("run", 1200))

	require.NoError(t, f.coord.Start(ctx, "read", 0))

	err := f.coord.Start(ctx, "run", 0)
	require.ErrorIs(t, err, ErrConcurrencyLimitExceeded)

	sessions := f.coord.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "read", sessions[0].HabitID)

	_, ok, err := f.store.Get(ctx, "run")
	require.NoError(t, err)
	assert.False(t, ok, "rejected start writes no snapshot")
}

func TestLimitSourceIsConsultedOnEveryStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800), durationHabit("run", 1200))
	limit := 1
	f.coord = New(f.store, f.ledger, f.pub, WithClock(f.clock.Now), WithLimitSource(func() int { return limit }))

	require.NoError(t, f.coord.Start(ctx, "read", 0))
	require.ErrorIs(t, f.coord.Start(ctx, "run", 0), ErrConcurrencyLimitExceeded)

	limit = 3
	require.NoError(t, f.coord.Start(ctx, "run", 0))
	assert.Len(t, f.coord.Sessions(), 2)
	assert.Equal(t, 3, f.coord.Limit())
}

func TestDuplicateStartIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))

	require.NoError(t, f.coord.Start(ctx, "read", 0))
	f.clock.Advance(time.Minute)
	require.NoError(t, f.coord.Start(ctx, "read", 500))

	live, ok := f.coord.LiveProgress("read")
	require.True(t, ok)
	assert.Equal(t, 60, live, "existing session untouched")
}

func TestPauseResume(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))

	assert.ErrorIs(t, f.coord.Pause(ctx, "read"), ErrNoSession)
	assert.ErrorIs(t, f.coord.Resume(ctx, "read"), ErrNoSession)

	require.NoError(t, f.coord.Start(ctx, "read", 0))
	assert.ErrorIs(t, f.coord.Resume(ctx, "read"), ErrNotPaused)

	f.clock.Advance(2 * time.Minute)
	require.NoError(t, f.coord.Pause(ctx, "read"))
	assert.ErrorIs(t, f.coord.Pause(ctx, "read"), ErrNotRunning)

	f.clock.Advance(time.Hour)
	live, _ := f.coord.LiveProgress("read")
	assert.Equal(t, 120, live, "paused progress is frozen")

	require.NoError(t, f.coord.Resume(ctx, "read"))
	f.clock.Advance(30 * time.Second)
	live, _ = f.coord.LiveProgress("read")
	assert.Equal(t, 150, live)

	s, ok := f.coord.Session("read")
	require.True(t, ok)
	assert.Equal(t, models.SessionRunning, s.State)
}

func TestAddFixedIncrement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))

	assert.ErrorIs(t, f.coord.AddFixedIncrement(ctx, "read", 60), ErrNoSession)

	require.NoError(t, f.coord.Start(ctx, "read", 0))
	require.NoError(t, f.coord.Pause(ctx, "read"))
	require.NoError(t, f.coord.AddFixedIncrement(ctx, "read", 300))
	assert.ErrorIs(t, f.coord.AddFixedIncrement(ctx, "read", 0), ErrInvalidIncrement)

	s, _ := f.coord.Session("read")
	assert.Equal(t, models.SessionPaused, s.State, "state unchanged")
	live, _ := f.coord.LiveProgress("read")
	assert.Equal(t, 300, live)
}

func TestSnapshotsTrackEveryMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))

	require.NoError(t, f.coord.Start(ctx, "read", 0))
	snap, ok, err := f.store.Get(ctx, "read")
	require.NoError(t, err)
	require.True(t, ok)
	first := snap.Revision
	assert.Equal(t, models.SessionRunning, snap.State)
	assert.Equal(t, t0.Add(time.Hour), snap.StaleAfter)

	f.clock.Advance(time.Minute)
	require.NoError(t, f.coord.Pause(ctx, "read"))
	snap, ok, err = f.store.Get(ctx, "read")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Greater(t, snap.Revision, first)
	assert.Equal(t, models.SessionPaused, snap.State)
	assert.Equal(t, 60, snap.BaseProgress)

	require.Len(t, f.pub.published, 2)
	assert.Equal(t, snap.Revision, f.pub.published[1].Revision)
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))

	assert.False(t, f.coord.Discard(ctx, "read"))
	require.NoError(t, f.coord.Start(ctx, "read", 0))
	f.clock.Advance(time.Minute)
	assert.True(t, f.coord.Discard(ctx, "read"))

	assert.Empty(t, f.ledger.Entries())
	assert.Empty(t, f.coord.Sessions())
	_, ok, _ := f.store.Get(ctx, "read")
	assert.False(t, ok)
}

func TestStopCommitsToLocalDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))
	zone := time.FixedZone("UTC+2", 2*60*60)
	f.clock.now = time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)
	f.coord = New(f.store, f.ledger, f.pub, WithClock(f.clock.Now), WithLocation(zone))

	require.NoError(t, f.coord.Start(ctx, "read", 0))
	f.clock.Advance(time.Minute)
	_, _, err := f.coord.Stop(ctx, "read")
	require.NoError(t, err)

	entries := f.ledger.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-03-06", entries[0].Day)
}

func TestActivateRehydratesSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))

	require.NoError(t, f.coord.Start(ctx, "read", 100))
	f.clock.Advance(2 * time.Hour)

	// The snapshot is stale for readers but the next activation still owns it.
	_, ok, err := f.store.Get(ctx, "read")
	require.NoError(t, err)
	assert.False(t, ok)

	next := f.newCoordinator(1)
	_, err = next.Activate(ctx)
	require.NoError(t, err)

	live, ok := next.LiveProgress("read")
	require.True(t, ok)
	assert.Equal(t, 100+7200, live)

	_, ok, err = f.store.Get(ctx, "read")
	require.NoError(t, err)
	assert.True(t, ok, "activation re-stamps the snapshot")

	committed, ok, err := next.Stop(ctx, "read")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7300, committed)
}

func TestStoreUnavailableDegradesToLocal(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(durationHabit("read", 1800))
	clk := &clock{now: t0}
	coord := New(timerstore.Unavailable{}, ledger, nil, WithClock(clk.Now), WithLocation(time.UTC))

	_, err := coord.Activate(ctx)
	require.NoError(t, err)
	require.NoError(t, coord.Start(ctx, "read", 0))
	require.NoError(t, coord.Pause(ctx, "read"))
	require.NoError(t, coord.Resume(ctx, "read"))
	clk.Advance(90 * time.Second)

	committed, ok, err := coord.Stop(ctx, "read")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 90, committed)
	assert.True(t, coord.Degraded())
	assert.Len(t, ledger.Entries(), 1)
}

func TestReconcileToggleStartsFromTodaysProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))
	require.NoError(t, f.ledger.AddProgressEntry(models.ProgressEntry{HabitID: "read", Day: "2024-03-05", Delta: 300}))
	require.NoError(t, f.ledger.AddProgressEntry(models.ProgressEntry{HabitID: "read", Day: "2024-03-04", Delta: 999}))

	_, err := relay.Post(ctx, f.store, "read", models.ActionToggle, f.clock.Now())
	require.NoError(t, err)

	result, err := f.coord.Activate(ctx)
	require.NoError(t, err)
	assert.True(t, result.Taken)
	assert.Equal(t, models.ActionToggle, result.Intent.Action)

	s, ok := f.coord.Session("read")
	require.True(t, ok)
	assert.Equal(t, 300, s.BaseProgress)
	assert.Equal(t, models.SessionRunning, s.State)

	// Consumed exactly once.
	result, err = f.coord.ReconcileExternalCommands(ctx)
	require.NoError(t, err)
	assert.False(t, result.Taken)
}

func TestReconcileTogglePausesAndResumes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))
	require.NoError(t, f.coord.Start(ctx, "read", 0))

	_, err := relay.Post(ctx, f.store, "read", models.ActionToggle, f.clock.Now())
	require.NoError(t, err)
	_, err = f.coord.ReconcileExternalCommands(ctx)
	require.NoError(t, err)
	s, _ := f.coord.Session("read")
	assert.Equal(t, models.SessionPaused, s.State)

	_, err = relay.Post(ctx, f.store, "read", models.ActionToggle, f.clock.Now())
	require.NoError(t, err)
	_, err = f.coord.ReconcileExternalCommands(ctx)
	require.NoError(t, err)
	s, _ = f.coord.Session("read")
	assert.Equal(t, models.SessionRunning, s.State)
}

func TestReconcileLastWriteWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))
	require.NoError(t, f.coord.Start(ctx, "read", 0))

	// Two rapid toggles collapse into one.
	_, err := relay.Post(ctx, f.store, "read", models.ActionToggle, f.clock.Now())
	require.NoError(t, err)
	_, err = relay.Post(ctx, f.store, "read", models.ActionToggle, f.clock.Now())
	require.NoError(t, err)

	_, err = f.coord.ReconcileExternalCommands(ctx)
	require.NoError(t, err)
	s, _ := f.coord.Session("read")
	assert.Equal(t, models.SessionPaused, s.State)
}

func TestReconcileAdd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))
	require.NoError(t, f.coord.Start(ctx, "read", 0))

	_, err := relay.Post(ctx, f.store, "read", models.ActionAdd, f.clock.Now())
	require.NoError(t, err)
	_, err = f.coord.ReconcileExternalCommands(ctx)
	require.NoError(t, err)

	live, _ := f.coord.LiveProgress("read")
	assert.Equal(t, 60, live)
}

func TestReconcileCompleteStopsAtGoal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))
	require.NoError(t, f.coord.Start(ctx, "read", 0))
	f.clock.Advance(10 * time.Minute)

	_, err := relay.Post(ctx, f.store, "read", models.ActionComplete, f.clock.Now())
	require.NoError(t, err)
	result, err := f.coord.ReconcileExternalCommands(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1800, result.Committed)

	assert.Empty(t, f.coord.Sessions())
	entries := f.ledger.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 1800, entries[0].Delta)
	assert.Equal(t, "relay", entries[0].Source)
}

func TestCompleteIdleAppendsShortfall(t *testing.T) {
	ctx := context.Background()
	habit := models.Habit{ID: "pushups", Type: models.HabitTypeCount, Goal: 50, ActiveDays: models.EveryDay(), StartDate: "2024-03-01"}
	f := newFixture(t, 1, habit)
	require.NoError(t, f.ledger.AddProgressEntry(models.ProgressEntry{HabitID: "pushups", Day: "2024-03-05", Delta: 20}))

	committed, err := f.coord.Complete(ctx, habit)
	require.NoError(t, err)
	assert.Equal(t, 50, committed)

	entries := f.ledger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 30, entries[1].Delta)

	// Already complete: nothing more is logged.
	_, err = f.coord.Complete(ctx, habit)
	require.NoError(t, err)
	assert.Len(t, f.ledger.Entries(), 2)
}

func TestReconcileToggleRejectsCountHabit(t *testing.T) {
	ctx := context.Background()
	habit := models.Habit{ID: "pushups", Type: models.HabitTypeCount, Goal: 50, ActiveDays: models.EveryDay(), StartDate: "2024-03-01"}
	f := newFixture(t, 1, habit)

	_, err := relay.Post(ctx, f.store, "pushups", models.ActionToggle, f.clock.Now())
	require.NoError(t, err)
	result, err := f.coord.ReconcileExternalCommands(ctx)
	assert.ErrorIs(t, err, ErrNotDurationHabit)
	assert.True(t, result.Taken)
	assert.Empty(t, f.coord.Sessions())
}

func TestReconcileToggleHonorsLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800), durationHabit("run", 1200))
	require.NoError(t, f.coord.Start(ctx, "read", 0))

	_, err := relay.Post(ctx, f.store, "run", models.ActionToggle, f.clock.Now())
	require.NoError(t, err)
	_, err = f.coord.ReconcileExternalCommands(ctx)
	assert.ErrorIs(t, err, ErrConcurrencyLimitExceeded)
	assert.Len(t, f.coord.Sessions(), 1)
}

func TestReconcileUnknownHabit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	_, err := relay.Post(ctx, f.store, "ghost", models.ActionToggle, f.clock.Now())
	require.NoError(t, err)
	_, err = f.coord.ReconcileExternalCommands(ctx)
	assert.Error(t, err)
}

func TestReconcileEmptyMailbox(t *testing.T) {
	f := newFixture(t, 1)
	result, err := f.coord.ReconcileExternalCommands(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Taken)
}

func TestRefreshDoesNotResurrectTimerStoppedElsewhere(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))
	watch := f.coord
	require.NoError(t, watch.Start(ctx, "read", 0))
	f.clock.Advance(10 * time.Minute)

	cli := f.newCoordinator(1)
	_, err := cli.Activate(ctx)
	require.NoError(t, err)
	committed, ok, err := cli.Stop(ctx, "read")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 600, committed)

	f.clock.Advance(2 * time.Second)
	watch.Refresh(ctx)

	_, ok, err = f.store.Get(ctx, "read")
	require.NoError(t, err)
	assert.False(t, ok, "refresh must not republish a stopped timer")
	assert.Empty(t, watch.Sessions())

	_, ok, err = watch.Stop(ctx, "read")
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, f.ledger.Entries(), 1)
	assert.Equal(t, 600, f.ledger.Entries()[0].Delta)
}

func TestRefreshKeepsPauseMadeElsewhere(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))
	watch := f.coord
	require.NoError(t, watch.Start(ctx, "read", 0))
	f.clock.Advance(10 * time.Minute)

	cli := f.newCoordinator(1)
	_, err := cli.Activate(ctx)
	require.NoError(t, err)
	require.NoError(t, cli.Pause(ctx, "read"))

	f.clock.Advance(time.Minute)
	watch.Refresh(ctx)

	snap, ok, err := f.store.Get(ctx, "read")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.SessionPaused, snap.State)
	assert.Equal(t, 600, snap.LiveProgress(f.clock.Now()))

	live, ok := watch.LiveProgress("read")
	require.True(t, ok)
	assert.Equal(t, 600, live)
}

func TestReconcileToggleTargetsTimerStartedElsewhere(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 1800))
	watch := f.coord
	_, err := watch.Activate(ctx)
	require.NoError(t, err)

	cli := f.newCoordinator(1)
	require.NoError(t, cli.Start(ctx, "read", 0))
	f.clock.Advance(10 * time.Minute)

	_, err = relay.Post(ctx, f.store, "read", models.ActionToggle, f.clock.Now())
	require.NoError(t, err)
	result, err := watch.ReconcileExternalCommands(ctx)
	require.NoError(t, err)
	require.True(t, result.Taken)

	snap, ok, err := f.store.Get(ctx, "read")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.SessionPaused, snap.State)
	assert.Equal(t, 600, snap.LiveProgress(f.clock.Now()))
}

func TestStopAcrossMidnightCommitsOnlyTimedProgress(t *testing.T) {
	ctx := context.Background()
	habit := durationHabit("read", 3600)
	f := newFixture(t, 1, habit)
	f.clock.now = time.Date(2024, 3, 5, 23, 50, 0, 0, time.UTC)
	require.NoError(t, f.ledger.AddProgressEntry(models.ProgressEntry{HabitID: "read", Day: "2024-03-05", Delta: 600}))

	require.NoError(t, f.coord.Toggle(ctx, habit))
	s, ok := f.coord.Session("read")
	require.True(t, ok)
	assert.Equal(t, "2024-03-05", s.Day)
	assert.Equal(t, 600, s.Seeded)

	f.clock.Advance(20 * time.Minute)
	committed, ok, err := f.coord.Stop(ctx, "read")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1200, committed)

	entries := f.ledger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-03-06", entries[1].Day)
	assert.Equal(t, 1200, entries[1].Delta)
}

func TestStopAcrossMidnightKeepsIncrements(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, durationHabit("read", 3600))
	f.clock.now = time.Date(2024, 3, 5, 23, 59, 0, 0, time.UTC)

	require.NoError(t, f.coord.Start(ctx, "read", 300))
	require.NoError(t, f.coord.AddFixedIncrement(ctx, "read", 120))
	f.clock.Advance(2 * time.Minute)

	committed, ok, err := f.coord.Stop(ctx, "read")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 240, committed)
}
