package timer

import (
	"time"

	"github.com/julianstephens/tally/internal/constants"
)

// LimitSource reports how many sessions may exist at once. It is consulted on
// every Start so entitlement changes apply without rebuilding the coordinator.
type LimitSource func() int

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithLocation sets the zone used to decide which calendar day progress is
// committed to.
func WithLocation(loc *time.Location) Option {
	return func(c *Coordinator) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithLimitSource(src LimitSource) Option {
	return func(c *Coordinator) {
		if src != nil {
			c.limit = src
		}
	}
}

// WithLimit fixes the session cap.
func WithLimit(n int) Option {
	return WithLimitSource(func() int { return n })
}

// WithStaleWindow sets how long a published snapshot stays authoritative.
func WithStaleWindow(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.staleWindow = d
		}
	}
}

// WithIncrement sets the seconds added by the relay's add action.
func WithIncrement(seconds int) Option {
	return func(c *Coordinator) {
		if seconds > 0 {
			c.increment = seconds
		}
	}
}

func defaultLimit() int {
	return constants.FreeTimerLimit
}
