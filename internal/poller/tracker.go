package poller

import (
	"time"

	"github.com/leapstack-labs/zeus/pkg/core"
)

// Tracker remembers the previously observed status of a run. The zero
// value starts with no status, which counts as non-terminal.
type Tracker struct {
	previous core.RunStatus
	current  core.RunStatus
}

// NewTracker creates a tracker whose last known status is initial.
func NewTracker(initial core.RunStatus) Tracker {
	return Tracker{current: initial}
}

// Observe records status and reports whether it completes a transition
// from a non-terminal status to a terminal one. A repeated terminal status
// never reports a transition.
func (t *Tracker) Observe(status core.RunStatus) bool {
	t.previous, t.current = t.current, status
	return !t.previous.IsTerminal() && status.IsTerminal()
}

// Accepts reports whether status may follow the current one. Statuses never
// move backwards and a terminal status is final. Anything is accepted before
// the first observation.
func (t *Tracker) Accepts(status core.RunStatus) bool {
	if t.current == "" {
		return true
	}
	return t.current.CanTransition(status)
}

// Previous returns the status before the last observation.
func (t *Tracker) Previous() core.RunStatus { return t.previous }

// Current returns the last observed status.
func (t *Tracker) Current() core.RunStatus { return t.current }

// Stopwatch measures time from the first non-terminal observation until the
// terminal one.
type Stopwatch struct {
	now     func() time.Time
	started time.Time
	stopped time.Time
}

// NewStopwatch creates a stopwatch using now, or time.Now when nil.
func NewStopwatch(now func() time.Time) Stopwatch {
	if now == nil {
		now = time.Now
	}
	return Stopwatch{now: now}
}

// Start starts the clock if it is not running yet.
func (s *Stopwatch) Start() {
	if s.started.IsZero() {
		s.started = s.clock()
	}
}

// Stop freezes the clock. Stopping a clock that never started is a no-op.
func (s *Stopwatch) Stop() {
	if !s.started.IsZero() && s.stopped.IsZero() {
		s.stopped = s.clock()
	}
}

// Running reports whether the clock is ticking.
func (s *Stopwatch) Running() bool {
	return !s.started.IsZero() && s.stopped.IsZero()
}

// Elapsed returns the measured duration.
func (s *Stopwatch) Elapsed() time.Duration {
	switch {
	case s.started.IsZero():
		return 0
	case s.stopped.IsZero():
		return s.clock().Sub(s.started)
	default:
		return s.stopped.Sub(s.started)
	}
}

func (s *Stopwatch) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
