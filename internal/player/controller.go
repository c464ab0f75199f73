package player

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrEmptyPlaylist = errors.New("playlist is empty")
	ErrNoSession     = errors.New("no active session")
	ErrNotOnBreak    = errors.New("session is not on a break")
)

// Tracker receives best-effort play-completion events. Implementations must
// not block; failures are telemetry losses, not errors.
type Tracker interface {
	RecordPlay(itemID string, user UserContext)
}

// StartAnchor selects where in the playlist a session begins. When ItemID is
// set it wins; an unknown id falls back to the first item. Index is clamped
// into the playlist bounds.
type StartAnchor struct {
	Index  int
	ItemID string
}

// Controller drives one playlist session at a time through
// load, play, wait, warning, pause, track, break, advance.
type Controller struct {
	surface  Surface
	sink     EventSink
	cues     *CueEmitter
	tracker  Tracker
	defaults Config

	mu      sync.Mutex
	current *session
}

func NewController(surface Surface, sink EventSink, tracker Tracker, defaults Config) *Controller {
	if sink == nil {
		sink = NopSink{}
	}
	return &Controller{
		surface:  surface,
		sink:     sink,
		cues:     NewCueEmitter(sink),
		tracker:  tracker,
		defaults: defaults.withDefaults(),
	}
}

// Start begins a new session. An active session is torn down first; the two
// would otherwise contend for the single playback surface.
func (c *Controller) Start(items []Item, anchor StartAnchor, cfg Config) error {
	if len(items) == 0 {
		return ErrEmptyPlaylist
	}

	if cfg.PlayWindowSeconds <= 0 {
		cfg.PlayWindowSeconds = c.defaults.PlayWindowSeconds
	}
	if cfg.BreakSeconds <= 0 {
		cfg.BreakSeconds = c.defaults.BreakSeconds
	}
	if cfg.Tick <= 0 {
		cfg.Tick = c.defaults.Tick
	}
	cfg = cfg.withDefaults()

	c.mu.Lock()
	previous := c.current
	c.current = nil
	c.mu.Unlock()
	if previous != nil {
		c.stopSession(previous)
	}

	sess := newSession(items, resolveStart(items, anchor), cfg)

	c.mu.Lock()
	c.current = sess
	c.mu.Unlock()

	go c.run(sess)
	return nil
}

func resolveStart(items []Item, anchor StartAnchor) int {
	if anchor.ItemID != "" {
		for i, item := range items {
			if item.ID == anchor.ItemID {
				return i
			}
		}
		return 0
	}
	if anchor.Index < 0 {
		return 0
	}
	if anchor.Index >= len(items) {
		return len(items) - 1
	}
	return anchor.Index
}

// SkipBreak trips the current break countdown so the next item starts
// immediately. It only applies while the session is actually on a break.
func (c *Controller) SkipBreak() error {
	sess := c.getCurrent()
	if sess == nil {
		return ErrNoSession
	}
	if sess.getState() != StateOnBreak {
		return ErrNotOnBreak
	}
	sess.intr.RequestSkip()
	return nil
}

// Stop requests teardown of the active session. The in-flight wait observes
// the request at its next poll. Stopping an idle controller is a no-op.
func (c *Controller) Stop() {
	sess := c.getCurrent()
	if sess == nil {
		return
	}
	sess.intr.RequestStop()

	// The completion acknowledgment has no polling wait, only scheduled
	// timers, so a stop there tears down directly.
	if sess.getState() == StateFinished {
		c.teardown(sess, StateStopped)
	}
}

// Status reports the active session's state, or an idle status.
func (c *Controller) Status() Status {
	sess := c.getCurrent()
	if sess == nil {
		return Status{State: StateIdle}
	}
	return sess.snapshot()
}

// CurrentlyPlayingID is the id of the item currently holding the play window,
// or empty when no item is active.
func (c *Controller) CurrentlyPlayingID() string {
	return c.Status().CurrentlyPlayingID
}

func (c *Controller) getCurrent() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) stopSession(sess *session) {
	sess.intr.RequestStop()
	if sess.getState() == StateFinished {
		c.teardown(sess, StateStopped)
	}
	<-sess.done
}

func (c *Controller) run(sess *session) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("player: session aborted", "panic", r)
			sess.intr.RequestStop()
			c.sink.Publish(Event{Kind: EventSessionError, Message: "session aborted unexpectedly"})
			c.teardown(sess, StateStopped)
		}
	}()

	ctx := context.Background()
	countdown := NewCountdown(c.sink, c.cues, sess.cfg.Tick)

	// Best effort; unsupported presentation modes never affect timing.
	_ = c.surface.RequestImmersive()

	for i := sess.cursor; i < len(sess.items); i++ {
		item := sess.items[i]
		sess.setCursor(i)
		sess.intr.ClearSkip()

		c.setPhase(sess, StateLoading, &item)
		c.surface.SetSource(item.MediaURL)
		if err := c.surface.WaitReady(ctx, sess.cfg.ReadyTimeout); err != nil {
			// Soft continue: playback may still begin opportunistically.
			slog.Debug("player: proceeding without readiness", "item", item.ID, "reason", err)
		}
		if sess.intr.StopRequested() {
			c.teardown(sess, StateStopped)
			return
		}

		sess.setPlaying(item.ID)
		c.setPhase(sess, StatePlaying, &item)
		if err := c.surface.Play(ctx); err != nil {
			// The window elapses on schedule whether or not media advances.
			slog.Debug("player: playback start refused", "item", item.ID, "reason", err)
		}

		window := sess.cfg.PlayWindowSeconds
		if item.PlaySeconds > 0 {
			window = item.PlaySeconds
		}
		mainWait := window - sess.cfg.WarningSeconds
		if mainWait < 0 {
			mainWait = 0
		}

		// The window is fixed: media that ends early is waited out, never
		// replayed and never advanced past.
		if !sess.waitSeconds(mainWait) {
			c.teardown(sess, StateStopped)
			return
		}

		c.setPhase(sess, StateWarning, &item)
		countdown.Overlay(sess.cfg.WarningSeconds)

		c.surface.Pause()
		c.setPhase(sess, StatePaused, &item)

		if c.tracker != nil {
			c.tracker.RecordPlay(item.ID, sess.cfg.User)
		}
		sess.setPlaying("")

		if sess.intr.StopRequested() {
			c.teardown(sess, StateStopped)
			return
		}

		if i == len(sess.items)-1 {
			c.finish(sess)
			return
		}

		c.setPhase(sess, StateOnBreak, nil)
		if !countdown.Break(sess.cfg.BreakSeconds, sess.intr) {
			c.teardown(sess, StateStopped)
			return
		}
	}

	// Unreachable in the normal flow; end the session anyway.
	c.teardown(sess, StateIdle)
}

// finish shows the terminal acknowledgment for a fixed duration, then tears
// down exactly as a stop would. The last item never gets a break.
func (c *Controller) finish(sess *session) {
	sess.setState(StateFinished)
	c.sink.Publish(Event{Kind: EventStateChanged, State: StateFinished})
	c.sink.Publish(Event{Kind: EventCelebration, Message: "routine complete, great work"})

	celebration := time.Duration(sess.cfg.CelebrationTicks) * sess.cfg.Tick
	total := celebration + time.Duration(sess.cfg.FarewellTicks)*sess.cfg.Tick

	sess.timers.Schedule(celebration, func() {
		c.sink.Publish(Event{Kind: EventFarewell, Message: "see you tomorrow"})
	})
	sess.timers.Schedule(total, func() {
		c.teardown(sess, StateIdle)
	})
}

func (c *Controller) setPhase(sess *session, st State, item *Item) {
	sess.setState(st)
	c.sink.Publish(Event{Kind: EventStateChanged, State: st, Item: item})
}

func (c *Controller) teardown(sess *session, final State) {
	sess.teardownOnce.Do(func() {
		sess.timers.CancelAll()
		c.surface.Pause()
		c.surface.Detach()
		c.surface.Release()

		sess.setPlaying("")
		sess.setState(final)

		c.mu.Lock()
		if c.current == sess {
			c.current = nil
		}
		c.mu.Unlock()

		c.sink.Publish(Event{Kind: EventStateChanged, State: final})
		close(sess.done)
	})
}
