package player

import "time"

// Countdown runs the visible per-second countdowns. Both flavors are
// cooperative: nothing blocks between ticks except the tick timer itself.
type Countdown struct {
	sink EventSink
	cues *CueEmitter
	tick time.Duration
}

func NewCountdown(sink EventSink, cues *CueEmitter, tick time.Duration) *Countdown {
	if sink == nil {
		sink = NopSink{}
	}
	if cues == nil {
		cues = NewCueEmitter(sink)
	}
	if tick <= 0 {
		tick = time.Second
	}
	return &Countdown{sink: sink, cues: cues, tick: tick}
}

// Overlay runs the unskippable warning countdown from seconds down to 1,
// then clears the overlay. It returns only after the full duration elapses.
// A zero-second request renders nothing and returns at once.
func (c *Countdown) Overlay(seconds int) {
	if seconds <= 0 {
		return
	}
	for n := seconds; n >= 1; n-- {
		c.sink.Publish(Event{Kind: EventOverlayTick, Remaining: n})
		c.cues.Emit(CueCountdown)
		time.Sleep(c.tick)
	}
	c.sink.Publish(Event{Kind: EventOverlayTick, Remaining: 0})
}

// Break runs the rest countdown, polling the interrupt every tick. It returns
// true when the break completed or was skipped, false when a stop was
// requested. On either trip it shows a final tick of 0 immediately instead of
// waiting out the remaining seconds.
func (c *Countdown) Break(seconds int, intr *interrupt) bool {
	if seconds <= 0 {
		return !intr.StopRequested()
	}
	for n := seconds; n >= 1; n-- {
		if intr.StopRequested() {
			c.sink.Publish(Event{Kind: EventBreakTick, Remaining: 0})
			return false
		}
		if intr.SkipRequested() {
			c.sink.Publish(Event{Kind: EventBreakTick, Remaining: 0})
			return true
		}

		c.sink.Publish(Event{Kind: EventBreakTick, Remaining: n})
		c.cues.Emit(CueBreak)

		select {
		case <-intr.StopC():
			c.sink.Publish(Event{Kind: EventBreakTick, Remaining: 0})
			return false
		case <-time.After(c.tick):
		}
	}
	c.sink.Publish(Event{Kind: EventBreakTick, Remaining: 0})
	return true
}
