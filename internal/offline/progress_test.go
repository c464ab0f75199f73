package offline

import (
	"context"
	"testing"
)

func TestSaveAllReportsProgress(t *testing.T) {
	srv := mediaServer(t)
	library := NewLibrary(NewMemoryStore(), newFakeCache(), srv.Client())

	metas := []Meta{
		{MediaURL: srv.URL + "/videos/a.mp4", Title: "a"},
		{MediaURL: srv.URL + "/videos/b.mp4", Title: "b"},
	}

	var events []ProgressEvent
	for ev := range library.SaveAll(context.Background(), metas) {
		events = append(events, ev)
	}

	wantKinds := []ProgressKind{ProgressStarted, ProgressTick, ProgressTick, ProgressComplete}
	if len(events) != len(wantKinds) {
		t.Fatalf("expected %d events, got %d: %+v", len(wantKinds), len(events), events)
	}
	for i, kind := range wantKinds {
		if events[i].Kind != kind {
			t.Errorf("event %d: expected %q, got %q", i, kind, events[i].Kind)
		}
	}
	if events[len(events)-1].Done != 2 {
		t.Errorf("complete event should report done=2, got %d", events[len(events)-1].Done)
	}

	for _, m := range metas {
		if !library.Saved(m.MediaURL) {
			t.Errorf("expected %s saved after bulk run", m.MediaURL)
		}
	}
}

func TestSaveAllStopsOnFirstFailure(t *testing.T) {
	srv := mediaServer(t)
	library := NewLibrary(NewMemoryStore(), newFakeCache(), srv.Client())

	metas := []Meta{
		{MediaURL: srv.URL + "/videos/a.mp4"},
		{MediaURL: srv.URL + "/missing/b.mp4"},
		{MediaURL: srv.URL + "/videos/c.mp4"},
	}

	var events []ProgressEvent
	for ev := range library.SaveAll(context.Background(), metas) {
		events = append(events, ev)
	}

	last := events[len(events)-1]
	if last.Kind != ProgressError {
		t.Fatalf("expected a terminal error event, got %q", last.Kind)
	}
	if last.Done != 1 {
		t.Errorf("error event should report one completed save, got %d", last.Done)
	}
	if library.Saved(metas[0].MediaURL) != true {
		t.Error("items saved before the failure must stay saved")
	}
	if library.Saved(metas[2].MediaURL) {
		t.Error("items after the failure must not be saved")
	}
}
