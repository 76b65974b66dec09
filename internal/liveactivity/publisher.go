// Package liveactivity pushes running-timer snapshots to system surfaces that
// render them continuously (the companion tray app today).
package liveactivity

import (
	"context"
	"errors"

	"github.com/julianstephens/tally/internal/models"
)

// Publisher receives every snapshot the timer coordinator writes and a final
// End when the session goes away. Implementations must tolerate being called
// when nothing is listening.
type Publisher interface {
	Publish(ctx context.Context, snap models.SharedSnapshot) error
	End(ctx context.Context, habitID string) error
}

// NopPublisher discards everything.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.SharedSnapshot) error { return nil }
func (NopPublisher) End(context.Context, string) error                    { return nil }

// MultiPublisher fans out to several publishers and joins their errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, snap models.SharedSnapshot) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiPublisher) End(ctx context.Context, habitID string) error {
	var errs []error
	for _, p := range m {
		if err := p.End(ctx, habitID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
