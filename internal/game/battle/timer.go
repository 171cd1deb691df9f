package battle

import (
	"sync"
	"time"
)

// ActionTimer fires a callback when a turn's submission window lapses.
// Re-arming supersedes any earlier deadline. It is safe for concurrent use.
type ActionTimer struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewActionTimer creates a disarmed timer.
func NewActionTimer() *ActionTimer {
	return &ActionTimer{}
}

// Arm schedules onFire to run after d in a separate goroutine, cancelling
// any previously armed deadline.
//
// Precondition: d > 0; onFire must not be nil.
// Postcondition: only the most recent Arm's callback can fire.
func (t *ActionTimer) Arm(d time.Duration, onFire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		current := t.gen == gen
		t.mu.Unlock()
		if current {
			onFire()
		}
	})
}

// Stop disarms the timer. Safe to call multiple times.
//
// Postcondition: no callback armed before Stop will run after Stop returns,
// unless it had already started.
func (t *ActionTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
