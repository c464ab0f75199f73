package player

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// CatalogEntry is the slice of a catalog row the indicator sync needs.
type CatalogEntry struct {
	ID       string
	MediaURL string
}

// EntrySource lists the catalog entries currently on display.
type EntrySource interface {
	Entries(ctx context.Context) ([]CatalogEntry, error)
}

// SavedIndex answers whether a media URL is available offline.
type SavedIndex interface {
	Saved(url string) bool
}

// Indicator carries the two independent visual flags for one catalog entry.
type Indicator struct {
	ID      string `json:"id"`
	Saved   bool   `json:"saved"`
	Playing bool   `json:"playing"`
}

// IndicatorSync recomputes saved/playing flags on a fixed interval. It is a
// pure read-side observer; sub-second staleness is acceptable.
type IndicatorSync struct {
	source   EntrySource
	saved    SavedIndex
	player   *Controller
	snapshot atomic.Value // []Indicator
}

func NewIndicatorSync(source EntrySource, saved SavedIndex, player *Controller) *IndicatorSync {
	s := &IndicatorSync{source: source, saved: saved, player: player}
	s.snapshot.Store([]Indicator{})
	return s
}

// Snapshot returns the most recently computed flags.
func (s *IndicatorSync) Snapshot() []Indicator {
	return s.snapshot.Load().([]Indicator)
}

// Refresh recomputes the snapshot once.
func (s *IndicatorSync) Refresh(ctx context.Context) error {
	entries, err := s.source.Entries(ctx)
	if err != nil {
		return err
	}

	playingID := s.player.CurrentlyPlayingID()
	indicators := make([]Indicator, 0, len(entries))
	for _, entry := range entries {
		indicators = append(indicators, Indicator{
			ID:      entry.ID,
			Saved:   s.saved != nil && s.saved.Saved(entry.MediaURL),
			Playing: playingID != "" && entry.ID == playingID,
		})
	}
	s.snapshot.Store(indicators)
	return nil
}

// StartIndicatorSync refreshes the snapshot on interval until ctx is done.
func StartIndicatorSync(ctx context.Context, s *IndicatorSync, interval time.Duration) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Refresh(ctx); err != nil {
					slog.Debug("indicator-sync: refresh failed", "error", err)
				}
			}
		}
	}()
}
