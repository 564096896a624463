package reporting

import (
	"sync"
	"time"
)

// Clock supplies the current time to recorders and stopwatches.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock{}
}

// ManualClock is a Clock that only moves when advanced. Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a manual clock stopped at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now implements Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Stopwatch measures elapsed time against a Clock.
type Stopwatch struct {
	clock   Clock
	started time.Time
	elapsed time.Duration
	running bool
}

// NewStopwatch creates a stopped stopwatch.
func NewStopwatch(clock Clock) *Stopwatch {
	return &Stopwatch{clock: clock}
}

// Restart resets the elapsed time and starts measuring.
func (s *Stopwatch) Restart() {
	s.started = s.clock.Now()
	s.elapsed = 0
	s.running = true
}

// Stop freezes the elapsed time.
func (s *Stopwatch) Stop() {
	if s.running {
		s.elapsed = s.clock.Now().Sub(s.started)
		s.running = false
	}
}

// Elapsed returns the measured time so far.
func (s *Stopwatch) Elapsed() time.Duration {
	if s.running {
		return s.clock.Now().Sub(s.started)
	}
	return s.elapsed
}
