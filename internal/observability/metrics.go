// Package observability exposes the timer coordinator's Prometheus metrics.
// They are registered on the default registry and served by `tally watch
// --metrics`.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	activeSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tally",
		Subsystem: "timer",
		Name:      "active_sessions",
		Help:      "Number of running or paused timer sessions owned by this process.",
	})

	transitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tally",
		Subsystem: "timer",
		Name:      "transitions_total",
		Help:      "Timer state transitions grouped by operation.",
	}, []string{"op"})

	commandCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tally",
		Subsystem: "relay",
		Name:      "commands_consumed_total",
		Help:      "External command intents consumed, grouped by action and outcome.",
	}, []string{"action", "outcome"})

	storeUnavailableCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tally",
		Subsystem: "timerstore",
		Name:      "unavailable_total",
		Help:      "Shared store calls that failed and fell back to local-only state.",
	})

	limitRejectionCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tally",
		Subsystem: "timer",
		Name:      "limit_rejections_total",
		Help:      "Timer starts refused by the concurrency limit.",
	})

	committedSecondsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tally",
		Subsystem: "timer",
		Name:      "committed_seconds_total",
		Help:      "Seconds of duration progress committed by stopped timers.",
	})
)

func init() {
	prometheus.MustRegister(
		activeSessionsGauge,
		transitionCounter,
		commandCounter,
		storeUnavailableCounter,
		limitRejectionCounter,
		committedSecondsCounter,
	)
}

// SetActiveSessions records the current session count.
func SetActiveSessions(n int) {
	activeSessionsGauge.Set(float64(n))
}

// RecordTransition counts a timer operation such as "start" or "stop".
func RecordTransition(op string) {
	transitionCounter.WithLabelValues(op).Inc()
}

// RecordCommand counts a consumed relay intent.
func RecordCommand(action, outcome string) {
	commandCounter.WithLabelValues(action, outcome).Inc()
}

func RecordStoreUnavailable() {
	storeUnavailableCounter.Inc()
}

func RecordLimitRejection() {
	limitRejectionCounter.Inc()
}

// RecordCommitted adds committed timer seconds. Non-positive values are ignored.
func RecordCommitted(seconds int) {
	if seconds <= 0 {
		return
	}
	committedSecondsCounter.Add(float64(seconds))
}
