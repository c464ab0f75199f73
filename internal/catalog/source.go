package catalog

import (
	"context"
	"fmt"

	"github.com/voyagertechco/Tomorrow-Exercise/internal/database"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/offline"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/player"
)

// Source exposes the catalog to the player and the offline library, ordered
// the way routines are played (oldest upload first).
type Source struct {
	db database.DBTX
}

func NewSource(db database.DBTX) *Source {
	return &Source{db: db}
}

const sourceColumns = `id, title, category, duration_seconds, play_seconds, video_url, thumbnail_url`

type sourceRow struct {
	id              string
	title           string
	category        string
	durationSeconds int
	playSeconds     *int
	videoURL        string
	thumbnailURL    string
}

func (s *Source) rowsByCategory(ctx context.Context, category string) ([]sourceRow, error) {
	query := `SELECT ` + sourceColumns + ` FROM routines ORDER BY uploaded_at ASC`
	args := []any{}
	if category != "" {
		query = `SELECT ` + sourceColumns + ` FROM routines WHERE category = $1 ORDER BY uploaded_at ASC`
		args = append(args, category)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query routines: %w", err)
	}
	defer rows.Close()

	var out []sourceRow
	for rows.Next() {
		var sr sourceRow
		if err := rows.Scan(&sr.id, &sr.title, &sr.category, &sr.durationSeconds,
			&sr.playSeconds, &sr.videoURL, &sr.thumbnailURL); err != nil {
			return nil, fmt.Errorf("scan routine: %w", err)
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// Items returns the playable items for a category, in playlist order.
func (s *Source) Items(ctx context.Context, category string) ([]player.Item, error) {
	srs, err := s.rowsByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	items := make([]player.Item, 0, len(srs))
	for _, sr := range srs {
		item := player.Item{
			ID:              sr.id,
			Title:           sr.title,
			Category:        sr.category,
			MediaURL:        sr.videoURL,
			ThumbnailURL:    sr.thumbnailURL,
			DurationSeconds: sr.durationSeconds,
		}
		if sr.playSeconds != nil {
			item.PlaySeconds = *sr.playSeconds
		}
		items = append(items, item)
	}
	return items, nil
}

// MetasByCategory returns offline metadata for every routine in a category.
func (s *Source) MetasByCategory(ctx context.Context, category string) ([]offline.Meta, error) {
	srs, err := s.rowsByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	metas := make([]offline.Meta, 0, len(srs))
	for _, sr := range srs {
		metas = append(metas, offline.Meta{
			MediaURL:        sr.videoURL,
			Title:           sr.title,
			Category:        sr.category,
			ThumbnailURL:    sr.thumbnailURL,
			DurationSeconds: sr.durationSeconds,
		})
	}
	return metas, nil
}

// Entries lists catalog entries for the indicator snapshot.
func (s *Source) Entries(ctx context.Context) ([]player.CatalogEntry, error) {
	srs, err := s.rowsByCategory(ctx, "")
	if err != nil {
		return nil, err
	}

	entries := make([]player.CatalogEntry, 0, len(srs))
	for _, sr := range srs {
		entries = append(entries, player.CatalogEntry{ID: sr.id, MediaURL: sr.videoURL})
	}
	return entries, nil
}
