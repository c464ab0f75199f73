package player

import (
	"sync"
	"time"
)

// TimerRegistry tracks every callback a session has scheduled so a stop can
// cancel them all at once. A cancelled timer never fires.
type TimerRegistry struct {
	mu     sync.Mutex
	seq    int
	timers map[int]*time.Timer
}

func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{timers: make(map[int]*time.Timer)}
}

// Schedule runs fn after delay and returns a handle. The handle is removed
// from the registry when the timer fires or is cancelled.
func (r *TimerRegistry) Schedule(delay time.Duration, fn func()) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	handle := r.seq
	r.timers[handle] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.timers, handle)
		r.mu.Unlock()
		fn()
	})
	return handle
}

// CancelAll stops every outstanding timer and clears the bookkeeping.
func (r *TimerRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for handle, t := range r.timers {
		t.Stop()
		delete(r.timers, handle)
	}
}

// Pending reports the number of outstanding timers.
func (r *TimerRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}
