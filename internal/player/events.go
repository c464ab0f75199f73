package player

import (
	"sync"
	"time"
)

// EventKind labels one entry on the session event stream.
type EventKind string

const (
	EventStateChanged   EventKind = "state"
	EventOverlayTick    EventKind = "overlay_tick"
	EventBreakTick      EventKind = "break_tick"
	EventCue            EventKind = "cue"
	EventSurfaceCommand EventKind = "surface_command"
	EventCelebration    EventKind = "celebration"
	EventFarewell       EventKind = "farewell"
	EventSessionError   EventKind = "session_error"
)

// CueKind distinguishes the sharp countdown tone from the softer break tone.
type CueKind string

const (
	CueCountdown CueKind = "countdown"
	CueBreak     CueKind = "break"
)

// SurfaceCommand is an instruction published to the remote playback surface.
type SurfaceCommand string

const (
	CommandLoad      SurfaceCommand = "load"
	CommandPlay      SurfaceCommand = "play"
	CommandPause     SurfaceCommand = "pause"
	CommandDetach    SurfaceCommand = "detach"
	CommandImmersive SurfaceCommand = "immersive"
	CommandRelease   SurfaceCommand = "release"
)

// Event is one notification on the session stream. Only the fields relevant
// to the kind are populated.
type Event struct {
	Kind      EventKind      `json:"kind"`
	State     State          `json:"state,omitempty"`
	Item      *Item          `json:"item,omitempty"`
	Remaining int            `json:"remaining,omitempty"`
	Cue       CueKind        `json:"cue,omitempty"`
	Command   SurfaceCommand `json:"command,omitempty"`
	MediaURL  string         `json:"mediaUrl,omitempty"`
	Message   string         `json:"message,omitempty"`
	At        time.Time      `json:"at"`
}

// EventSink receives controller notifications. Implementations must never
// block; the controller calls them from its timing loop.
type EventSink interface {
	Publish(ev Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(Event) {}

// Broadcaster fans events out to subscribers over buffered channels. Slow
// subscribers lose events rather than stalling the session.
type Broadcaster struct {
	mu   sync.Mutex
	seq  int
	subs map[int]chan Event
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

const subscriberBuffer = 64

// Subscribe returns a channel of events and a cancel function. The channel is
// closed when cancel is called.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	id := b.seq
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *Broadcaster) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub <- ev:
		default:
		}
	}
}
