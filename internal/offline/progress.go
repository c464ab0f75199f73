package offline

import (
	"context"
	"log/slog"
)

// ProgressKind labels one notification on a bulk-save stream.
type ProgressKind string

const (
	ProgressStarted  ProgressKind = "started"
	ProgressTick     ProgressKind = "tick"
	ProgressComplete ProgressKind = "complete"
	ProgressError    ProgressKind = "error"
)

// ProgressEvent is a one-way notification; no response is expected.
type ProgressEvent struct {
	Kind     ProgressKind `json:"kind"`
	Done     int          `json:"done"`
	Total    int          `json:"total"`
	MediaURL string       `json:"mediaUrl,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// SaveAll saves every item in order, reporting progress on the returned
// channel. The channel closes after the complete (or final error) event.
// Individual failures end the run; items already saved stay saved.
func (l *Library) SaveAll(ctx context.Context, metas []Meta) <-chan ProgressEvent {
	events := make(chan ProgressEvent, len(metas)+2)

	go func() {
		defer close(events)

		total := len(metas)
		events <- ProgressEvent{Kind: ProgressStarted, Total: total}

		for i, meta := range metas {
			if err := ctx.Err(); err != nil {
				events <- ProgressEvent{Kind: ProgressError, Done: i, Total: total, Error: "cancelled"}
				return
			}
			if err := l.Save(ctx, meta); err != nil {
				slog.Warn("offline: bulk save failed", "url", meta.MediaURL, "error", err)
				events <- ProgressEvent{Kind: ProgressError, Done: i, Total: total, MediaURL: meta.MediaURL, Error: err.Error()}
				return
			}
			events <- ProgressEvent{Kind: ProgressTick, Done: i + 1, Total: total, MediaURL: meta.MediaURL}
		}

		events <- ProgressEvent{Kind: ProgressComplete, Done: total, Total: total}
	}()

	return events
}
