// Package timerstore is the shared, crash-durable region through which every
// tally process (interactive app, widget renderer, tray intent handler)
// observes running timers and hands control intents to the timer coordinator.
//
// Each method is a single atomic call. Nothing is held across calls because
// the calling process may exit between any two of them.
package timerstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/tally/internal/models"
)

// ErrStoreUnavailable is returned when the shared region cannot be reached.
// Callers degrade to local-only timers instead of failing.
var ErrStoreUnavailable = errors.New("shared timer store unavailable")

// Store holds at most one snapshot per habit plus a single command slot.
type Store interface {
	// Put replaces the snapshot for snap.HabitID and returns its new revision.
	Put(ctx context.Context, snap models.SharedSnapshot) (int64, error)
	// Get returns the snapshot for habitID. A missing or stale snapshot is
	// reported as ok=false.
	Get(ctx context.Context, habitID string) (models.SharedSnapshot, bool, error)
	// List returns every stored snapshot, stale ones included. Only the
	// owner of the sessions should rely on stale entries.
	List(ctx context.Context) ([]models.SharedSnapshot, error)
	Remove(ctx context.Context, habitID string) error
	// PostCommand overwrites any unconsumed command.
	PostCommand(ctx context.Context, intent models.CommandIntent) error
	// TakeCommand reads and clears the command slot atomically.
	TakeCommand(ctx context.Context) (models.CommandIntent, bool, error)
	Close() error
}

type options struct {
	now func() time.Time
}

// Option configures a store.
type Option func(*options)

// WithClock overrides the clock used for read-time staleness checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// Unavailable is a Store that fails every call. It stands in for the shared
// region when it could not be opened so callers never hold a nil Store.
type Unavailable struct {
	Err error
}

func (u Unavailable) fail(op string) error {
	if u.Err == nil {
		return fmt.Errorf("%w: %s", ErrStoreUnavailable, op)
	}
	return unavailable(op, u.Err)
}

func (u Unavailable) Put(context.Context, models.SharedSnapshot) (int64, error) {
	return 0, u.fail("put")
}

func (u Unavailable) Get(context.Context, string) (models.SharedSnapshot, bool, error) {
	return models.SharedSnapshot{}, false, u.fail("get")
}

func (u Unavailable) List(context.Context) ([]models.SharedSnapshot, error) {
	return nil, u.fail("list")
}

func (u Unavailable) Remove(context.Context, string) error {
	return u.fail("remove")
}

func (u Unavailable) PostCommand(context.Context, models.CommandIntent) error {
	return u.fail("post command")
}

func (u Unavailable) TakeCommand(context.Context) (models.CommandIntent, bool, error) {
	return models.CommandIntent{}, false, u.fail("take command")
}

func (u Unavailable) Close() error {
	return nil
}
