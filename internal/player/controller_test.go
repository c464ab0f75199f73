package player

import (
	"context"
	"sync"
	"testing"
	"time"
)

const testTick = 2 * time.Millisecond

func testConfig() Config {
	return Config{
		PlayWindowSeconds: 3,
		BreakSeconds:      2,
		WarningSeconds:    1,
		Tick:              testTick,
		ReadyTimeout:      testTick,
		CelebrationTicks:  1,
		FarewellTicks:     1,
	}
}

type fakeSurface struct {
	mu       sync.Mutex
	sources  []string
	plays    int
	pauses   int
	detaches int
	releases int
	readyErr error

	playedAt time.Time
	pausedAt time.Time
}

func (f *fakeSurface) SetSource(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, url)
}

func (f *fakeSurface) WaitReady(ctx context.Context, timeout time.Duration) error {
	return f.readyErr
}

func (f *fakeSurface) Play(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	if f.playedAt.IsZero() {
		f.playedAt = time.Now()
	}
	return nil
}

func (f *fakeSurface) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	if f.pausedAt.IsZero() {
		f.pausedAt = time.Now()
	}
}

func (f *fakeSurface) Detach() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detaches++
}

func (f *fakeSurface) RequestImmersive() error { return nil }

func (f *fakeSurface) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
}

func (f *fakeSurface) loadedSources() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sources...)
}

type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordSink) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordSink) countKind(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recordSink) sawState(st State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Kind == EventStateChanged && ev.State == st {
			return true
		}
	}
	return false
}

type fakeTracker struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeTracker) RecordPlay(itemID string, user UserContext) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, itemID)
}

func (f *fakeTracker) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

func testItems(n int) []Item {
	items := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		items = append(items, Item{
			ID:       id,
			Title:    "routine " + id,
			Category: "morning",
			MediaURL: "https://media.test/" + id + ".mp4",
		})
	}
	return items
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartEmptyPlaylist(t *testing.T) {
	surface := &fakeSurface{}
	controller := NewController(surface, &recordSink{}, nil, testConfig())

	err := controller.Start(nil, StartAnchor{}, testConfig())
	if err != ErrEmptyPlaylist {
		t.Fatalf("expected ErrEmptyPlaylist, got %v", err)
	}
	if len(surface.loadedSources()) != 0 {
		t.Error("surface must not be touched for an empty playlist")
	}
	if controller.Status().State != StateIdle {
		t.Errorf("expected idle state, got %v", controller.Status().State)
	}
}

func TestSessionRunsAllItemsInOrder(t *testing.T) {
	surface := &fakeSurface{}
	sink := &recordSink{}
	tracker := &fakeTracker{}
	controller := NewController(surface, sink, tracker, testConfig())

	items := testItems(3)
	if err := controller.Start(items, StartAnchor{}, testConfig()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	waitFor(t, "session completion", func() bool {
		return controller.Status().State == StateIdle && len(tracker.recorded()) == 3
	})

	want := []string{
		"https://media.test/a.mp4",
		"https://media.test/b.mp4",
		"https://media.test/c.mp4",
	}
	got := surface.loadedSources()
	if len(got) != len(want) {
		t.Fatalf("expected %d loads, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("load %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	recorded := tracker.recorded()
	for i, id := range []string{"a", "b", "c"} {
		if recorded[i] != id {
			t.Errorf("play %d: expected %q tracked, got %q", i, id, recorded[i])
		}
	}

	if n := sink.countKind(EventCelebration); n != 1 {
		t.Errorf("expected exactly one celebration, got %d", n)
	}
	if n := sink.countKind(EventFarewell); n != 1 {
		t.Errorf("expected exactly one farewell, got %d", n)
	}
	if surface.pauses < 3 {
		t.Errorf("expected a pause per item, got %d", surface.pauses)
	}
}

func TestPlayWindowIgnoresEarlyEnd(t *testing.T) {
	surface := &fakeSurface{}
	controller := NewController(surface, &recordSink{}, nil, testConfig())

	cfg := testConfig()
	items := []Item{{ID: "a", MediaURL: "https://media.test/a.mp4", PlaySeconds: 6}}
	if err := controller.Start(items, StartAnchor{}, cfg); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	waitFor(t, "session completion", func() bool {
		return controller.Status().State == StateIdle
	})

	// The override window is 6 ticks; even though nothing ever consumed the
	// media, the pause must not arrive before the window elapsed.
	surface.mu.Lock()
	elapsed := surface.pausedAt.Sub(surface.playedAt)
	surface.mu.Unlock()
	if minimum := 5 * testTick; elapsed < minimum {
		t.Errorf("paused after %v; play window must hold at least %v", elapsed, minimum)
	}
}

func TestStartAnchorMidPlaylist(t *testing.T) {
	surface := &fakeSurface{}
	tracker := &fakeTracker{}
	controller := NewController(surface, &recordSink{}, tracker, testConfig())

	items := testItems(5)
	if err := controller.Start(items, StartAnchor{ItemID: "c"}, testConfig()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	waitFor(t, "session completion", func() bool {
		return controller.Status().State == StateIdle && len(tracker.recorded()) == 3
	})

	recorded := tracker.recorded()
	for i, id := range []string{"c", "d", "e"} {
		if recorded[i] != id {
			t.Errorf("play %d: expected %q, got %q", i, id, recorded[i])
		}
	}
	if len(surface.loadedSources()) != 3 {
		t.Errorf("items before the anchor must not be processed, loaded %v", surface.loadedSources())
	}
}

func TestStartAnchorUnknownIDDefaultsToFirst(t *testing.T) {
	items := testItems(3)
	if got := resolveStart(items, StartAnchor{ItemID: "zzz"}); got != 0 {
		t.Errorf("unknown anchor id: expected index 0, got %d", got)
	}
	if got := resolveStart(items, StartAnchor{Index: 99}); got != 2 {
		t.Errorf("out-of-range index: expected clamp to 2, got %d", got)
	}
	if got := resolveStart(items, StartAnchor{Index: -4}); got != 0 {
		t.Errorf("negative index: expected clamp to 0, got %d", got)
	}
}

func TestStopDuringPlayWindow(t *testing.T) {
	surface := &fakeSurface{}
	sink := &recordSink{}
	tracker := &fakeTracker{}
	controller := NewController(surface, sink, tracker, testConfig())

	cfg := testConfig()
	cfg.PlayWindowSeconds = 1000
	if err := controller.Start(testItems(2), StartAnchor{}, cfg); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	waitFor(t, "playing state", func() bool {
		return controller.Status().State == StatePlaying
	})

	controller.Stop()

	waitFor(t, "stopped teardown", func() bool {
		return controller.Status().State == StateIdle
	})

	if !sink.sawState(StateStopped) {
		t.Error("expected a stopped transition")
	}
	if id := controller.CurrentlyPlayingID(); id != "" {
		t.Errorf("currentlyPlayingId must be cleared, got %q", id)
	}
	if len(tracker.recorded()) != 0 {
		t.Error("a stopped item must not be tracked as played")
	}
	if surface.detaches == 0 {
		t.Error("teardown must detach the surface")
	}
}

func TestSkipBreakAdvancesWithoutStop(t *testing.T) {
	surface := &fakeSurface{}
	sink := &recordSink{}
	controller := NewController(surface, sink, nil, testConfig())

	cfg := testConfig()
	cfg.BreakSeconds = 1000
	if err := controller.Start(testItems(2), StartAnchor{}, cfg); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	waitFor(t, "break state", func() bool {
		return controller.Status().State == StateOnBreak
	})

	if err := controller.SkipBreak(); err != nil {
		t.Fatalf("skip failed: %v", err)
	}

	waitFor(t, "second item loading", func() bool {
		return len(surface.loadedSources()) == 2
	})

	if sink.sawState(StateStopped) {
		t.Error("skipping a break must not stop the session")
	}

	controller.Stop()
	waitFor(t, "teardown", func() bool { return controller.Status().State == StateIdle })
}

func TestSkipBreakOutsideBreak(t *testing.T) {
	controller := NewController(&fakeSurface{}, &recordSink{}, nil, testConfig())

	if err := controller.SkipBreak(); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	cfg := testConfig()
	cfg.PlayWindowSeconds = 1000
	if err := controller.Start(testItems(2), StartAnchor{}, cfg); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitFor(t, "playing state", func() bool {
		return controller.Status().State == StatePlaying
	})

	if err := controller.SkipBreak(); err != ErrNotOnBreak {
		t.Errorf("expected ErrNotOnBreak while playing, got %v", err)
	}

	controller.Stop()
	waitFor(t, "teardown", func() bool { return controller.Status().State == StateIdle })
}

func TestStopDuringBreak(t *testing.T) {
	surface := &fakeSurface{}
	sink := &recordSink{}
	controller := NewController(surface, sink, nil, testConfig())

	cfg := testConfig()
	cfg.BreakSeconds = 1000
	if err := controller.Start(testItems(2), StartAnchor{}, cfg); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	waitFor(t, "break state", func() bool {
		return controller.Status().State == StateOnBreak
	})

	controller.Stop()

	waitFor(t, "stopped teardown", func() bool {
		return controller.Status().State == StateIdle
	})

	if !sink.sawState(StateStopped) {
		t.Error("expected a stopped transition")
	}
	if len(surface.loadedSources()) != 1 {
		t.Errorf("the next item must not load after a stop, loaded %v", surface.loadedSources())
	}
}

func TestCompletionSkipsBreakForLastItem(t *testing.T) {
	sink := &recordSink{}
	controller := NewController(&fakeSurface{}, sink, nil, testConfig())

	if err := controller.Start(testItems(1), StartAnchor{}, testConfig()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	waitFor(t, "session completion", func() bool {
		return controller.Status().State == StateIdle && sink.countKind(EventFarewell) == 1
	})

	if n := sink.countKind(EventBreakTick); n != 0 {
		t.Errorf("the last item must not run a break countdown, saw %d break ticks", n)
	}
	if n := sink.countKind(EventCelebration); n != 1 {
		t.Errorf("expected exactly one celebration, got %d", n)
	}
}

func TestStartWhileActiveReplacesSession(t *testing.T) {
	surface := &fakeSurface{}
	controller := NewController(surface, &recordSink{}, nil, testConfig())

	cfg := testConfig()
	cfg.PlayWindowSeconds = 1000
	if err := controller.Start(testItems(2), StartAnchor{}, cfg); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	waitFor(t, "first session playing", func() bool {
		return controller.Status().State == StatePlaying
	})

	second := []Item{{ID: "x", MediaURL: "https://media.test/x.mp4"}}
	if err := controller.Start(second, StartAnchor{}, testConfig()); err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	waitFor(t, "second session completion", func() bool {
		sources := surface.loadedSources()
		return len(sources) == 2 && sources[1] == "https://media.test/x.mp4" &&
			controller.Status().State == StateIdle
	})

	if surface.detaches == 0 {
		t.Error("the first session must be torn down before the second starts")
	}
}
