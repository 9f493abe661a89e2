package engine

import (
	"sync"
	"time"
)

// RunningTimer tracks elapsed wall-clock seconds for a display session and
// carries the cooperative running flag the render loop polls.
type RunningTimer struct {
	mu      sync.Mutex
	start   time.Time
	running bool
}

// NewRunningTimer returns a stopped timer.
func NewRunningTimer() *RunningTimer {
	return &RunningTimer{}
}

// Reset restarts the clock and marks the timer running.
func (t *RunningTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = time.Now()
	t.running = true
}

// Passed returns elapsed seconds since the last Reset.
func (t *RunningTimer) Passed() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.start.IsZero() {
		return 0
	}
	return time.Since(t.start).Seconds()
}

// Running reports whether the loop should keep ticking.
func (t *RunningTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Halt clears the running flag; the loop exits on its next poll.
func (t *RunningTimer) Halt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
}
