package player

import (
	"sync"
	"sync/atomic"
)

// interrupt is the single cancellation signal a session owns. Stop is
// terminal for the session; skip only trips the current break and is cleared
// again before every item.
type interrupt struct {
	stopOnce sync.Once
	stop     chan struct{}
	skip     atomic.Bool
}

func newInterrupt() *interrupt {
	return &interrupt{stop: make(chan struct{})}
}

func (i *interrupt) RequestStop() {
	i.stopOnce.Do(func() { close(i.stop) })
}

func (i *interrupt) StopRequested() bool {
	select {
	case <-i.stop:
		return true
	default:
		return false
	}
}

// StopC is closed once a stop has been requested.
func (i *interrupt) StopC() <-chan struct{} {
	return i.stop
}

func (i *interrupt) RequestSkip() {
	i.skip.Store(true)
}

func (i *interrupt) SkipRequested() bool {
	return i.skip.Load()
}

func (i *interrupt) ClearSkip() {
	i.skip.Store(false)
}
