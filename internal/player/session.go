package player

import (
	"encoding/json"
	"sync"
	"time"
)

// Item is one playlist entry as seen by the controller. Items are a snapshot:
// the controller never mutates them after Start.
type Item struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	MediaURL        string `json:"mediaUrl"`
	ThumbnailURL    string `json:"thumbnailUrl,omitempty"`
	DurationSeconds int    `json:"durationSeconds"`

	// PlaySeconds overrides the session play window for this item when positive.
	PlaySeconds int `json:"playSeconds,omitempty"`
}

// UserContext identifies who started the session, for play tracking only.
type UserContext struct {
	Name      string
	IP        string
	UserAgent string
}

// Config holds the effective per-session timing rules, captured by value at
// session start. Durations are expressed in "seconds", where one second lasts
// one Tick; tests shrink Tick to run sessions in milliseconds.
type Config struct {
	PlayWindowSeconds int
	BreakSeconds      int
	WarningSeconds    int

	Tick         time.Duration
	ReadyTimeout time.Duration

	// CelebrationTicks and FarewellTicks make up the fixed completion
	// acknowledgment shown after the last item.
	CelebrationTicks int
	FarewellTicks    int

	User UserContext
}

const (
	defaultPlayWindowSeconds = 30
	defaultBreakSeconds      = 15
	defaultWarningSeconds    = 3
	defaultCelebrationTicks  = 2
	defaultFarewellTicks     = 3
)

func (c Config) withDefaults() Config {
	if c.PlayWindowSeconds <= 0 {
		c.PlayWindowSeconds = defaultPlayWindowSeconds
	}
	if c.BreakSeconds <= 0 {
		c.BreakSeconds = defaultBreakSeconds
	}
	if c.WarningSeconds <= 0 {
		c.WarningSeconds = defaultWarningSeconds
	}
	if c.Tick <= 0 {
		c.Tick = time.Second
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = 5 * c.Tick
	}
	if c.CelebrationTicks <= 0 {
		c.CelebrationTicks = defaultCelebrationTicks
	}
	if c.FarewellTicks <= 0 {
		c.FarewellTicks = defaultFarewellTicks
	}
	return c
}

// State is the controller's phase within a session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StateWarning
	StatePaused
	StateOnBreak
	StateFinished
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StateWarning:
		return "warning"
	case StatePaused:
		return "paused"
	case StateOnBreak:
		return "on_break"
	case StateFinished:
		return "finished"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// session is the controller's exclusively owned per-run state. Nothing in it
// survives past teardown.
type session struct {
	items  []Item
	cfg    Config
	intr   *interrupt
	timers *TimerRegistry

	mu        sync.Mutex
	cursor    int
	state     State
	playingID string

	teardownOnce sync.Once
	done         chan struct{}
}

func newSession(items []Item, startIndex int, cfg Config) *session {
	return &session{
		items:  items,
		cfg:    cfg,
		intr:   newInterrupt(),
		timers: NewTimerRegistry(),
		cursor: startIndex,
		state:  StateIdle,
		done:   make(chan struct{}),
	}
}

func (s *session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *session) getState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) setCursor(i int) {
	s.mu.Lock()
	s.cursor = i
	s.mu.Unlock()
}

func (s *session) setPlaying(id string) {
	s.mu.Lock()
	s.playingID = id
	s.mu.Unlock()
}

func (s *session) snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:              s.state,
		Cursor:             s.cursor,
		Total:              len(s.items),
		CurrentlyPlayingID: s.playingID,
	}
}

// waitSeconds suspends for n ticks, polling the stop signal once per tick.
// It reports false as soon as a stop request is observed.
func (s *session) waitSeconds(n int) bool {
	for i := 0; i < n; i++ {
		select {
		case <-s.intr.StopC():
			return false
		case <-time.After(s.cfg.Tick):
		}
	}
	return !s.intr.StopRequested()
}

// Status is a read-only view of the active session for observers.
type Status struct {
	State              State  `json:"state"`
	Cursor             int    `json:"cursor"`
	Total              int    `json:"total"`
	CurrentlyPlayingID string `json:"currentlyPlayingId,omitempty"`
}

func (s Status) Active() bool {
	return s.State != StateIdle && s.State != StateStopped
}
