package player

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrReadyTimeout means the surface never signalled readiness within the
	// bounded wait. The controller treats it as a soft continue.
	ErrReadyTimeout = errors.New("playback surface readiness timed out")

	// ErrAutoplayRefused means the platform declined to start playback. The
	// play window elapses on schedule regardless.
	ErrAutoplayRefused = errors.New("playback start refused")
)

// Surface owns the single video element on the client. The controller is its
// only writer; observers read playback state through Status snapshots.
type Surface interface {
	SetSource(url string)
	WaitReady(ctx context.Context, timeout time.Duration) error
	Play(ctx context.Context) error
	Pause()
	Detach()
	RequestImmersive() error
	Release()
}

// RemoteSurface drives a browser video element over the session event stream:
// commands go out as events, readiness and ended signals come back through
// HTTP callbacks.
type RemoteSurface struct {
	sink EventSink

	mu      sync.Mutex
	source  string
	ready   chan struct{}
	ended   bool
	blocked bool
}

func NewRemoteSurface(sink EventSink) *RemoteSurface {
	if sink == nil {
		sink = NopSink{}
	}
	return &RemoteSurface{sink: sink, ready: make(chan struct{})}
}

func (s *RemoteSurface) SetSource(url string) {
	s.mu.Lock()
	s.source = url
	s.ready = make(chan struct{})
	s.ended = false
	s.blocked = false
	s.mu.Unlock()

	s.sink.Publish(Event{Kind: EventSurfaceCommand, Command: CommandLoad, MediaURL: url})
}

func (s *RemoteSurface) WaitReady(ctx context.Context, timeout time.Duration) error {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return ErrReadyTimeout
	}
}

func (s *RemoteSurface) Play(ctx context.Context) error {
	s.mu.Lock()
	blocked := s.blocked
	s.mu.Unlock()

	s.sink.Publish(Event{Kind: EventSurfaceCommand, Command: CommandPlay})
	if blocked {
		return ErrAutoplayRefused
	}
	return nil
}

func (s *RemoteSurface) Pause() {
	s.sink.Publish(Event{Kind: EventSurfaceCommand, Command: CommandPause})
}

func (s *RemoteSurface) Detach() {
	s.mu.Lock()
	s.source = ""
	s.mu.Unlock()

	s.sink.Publish(Event{Kind: EventSurfaceCommand, Command: CommandDetach})
}

func (s *RemoteSurface) RequestImmersive() error {
	s.sink.Publish(Event{Kind: EventSurfaceCommand, Command: CommandImmersive})
	return nil
}

func (s *RemoteSurface) Release() {
	s.sink.Publish(Event{Kind: EventSurfaceCommand, Command: CommandRelease})
}

// SignalReady is called by the surface callback endpoint once the client has
// loaded metadata for the current source.
func (s *RemoteSurface) SignalReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.ready:
	default:
		close(s.ready)
	}
}

// SignalBlocked is called by the surface callback endpoint when the client's
// play attempt was rejected by the platform autoplay policy. Play reports the
// refusal for the current source; the window still elapses on schedule.
func (s *RemoteSurface) SignalBlocked() {
	s.mu.Lock()
	s.blocked = true
	s.mu.Unlock()
}

// SignalEnded records that the media ran out before the play window closed.
// The controller deliberately ignores it: the window elapses on schedule.
func (s *RemoteSurface) SignalEnded() {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
}

func (s *RemoteSurface) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *RemoteSurface) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}
