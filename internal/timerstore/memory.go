package timerstore

import (
	"context"
	"sort"
	"sync"

	"github.com/julianstephens/tally/internal/models"
)

// MemoryStore is a process-local Store. It backs tests and the local-only
// mode used when the shared region is unavailable.
type MemoryStore struct {
	mu        sync.Mutex
	opts      options
	snapshots map[string]models.SharedSnapshot
	revisions map[string]int64
	command   *models.CommandIntent
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		opts:      buildOptions(opts),
		snapshots: make(map[string]models.SharedSnapshot),
		revisions: make(map[string]int64),
	}
}

func (s *MemoryStore) Put(_ context.Context, snap models.SharedSnapshot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Revisions survive Remove so a recreated session never reuses one.
	s.revisions[snap.HabitID]++
	snap.Revision = s.revisions[snap.HabitID]
	s.snapshots[snap.HabitID] = snap
	return snap.Revision, nil
}

func (s *MemoryStore) Get(_ context.Context, habitID string) (models.SharedSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[habitID]
	if !ok || snap.IsStale(s.opts.now()) {
		return models.SharedSnapshot{}, false, nil
	}
	return snap, true, nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.SharedSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := make([]models.SharedSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].HabitID < snaps[j].HabitID
	})
	return snaps, nil
}

func (s *MemoryStore) Remove(_ context.Context, habitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, habitID)
	return nil
}

func (s *MemoryStore) PostCommand(_ context.Context, intent models.CommandIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.command = &intent
	return nil
}

func (s *MemoryStore) TakeCommand(_ context.Context) (models.CommandIntent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.command == nil {
		return models.CommandIntent{}, false, nil
	}
	intent := *s.command
	s.command = nil
	return intent, true, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
