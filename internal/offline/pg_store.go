package offline

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/database"
)

// PGStore persists saved-media metadata in Postgres.
type PGStore struct {
	db database.DBTX
}

func NewPGStore(db database.DBTX) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Put(ctx context.Context, meta Meta) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO saved_media (media_url, title, category, thumbnail_url, duration_seconds, saved_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (media_url) DO UPDATE
		 SET title = EXCLUDED.title, category = EXCLUDED.category,
		     thumbnail_url = EXCLUDED.thumbnail_url,
		     duration_seconds = EXCLUDED.duration_seconds,
		     saved_at = EXCLUDED.saved_at`,
		meta.MediaURL, meta.Title, meta.Category, nullable(meta.ThumbnailURL), meta.DurationSeconds, meta.SavedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, url string) (Meta, bool, error) {
	var meta Meta
	var thumbnail *string
	err := s.db.QueryRow(ctx,
		`SELECT media_url, title, category, thumbnail_url, duration_seconds, saved_at
		 FROM saved_media WHERE media_url = $1`,
		url,
	).Scan(&meta.MediaURL, &meta.Title, &meta.Category, &thumbnail, &meta.DurationSeconds, &meta.SavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Meta{}, false, nil
		}
		return Meta{}, false, err
	}
	if thumbnail != nil {
		meta.ThumbnailURL = *thumbnail
	}
	return meta, true, nil
}

func (s *PGStore) List(ctx context.Context) ([]Meta, error) {
	rows, err := s.db.Query(ctx,
		`SELECT media_url, title, category, thumbnail_url, duration_seconds, saved_at
		 FROM saved_media ORDER BY saved_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metas := make([]Meta, 0)
	for rows.Next() {
		var meta Meta
		var thumbnail *string
		if err := rows.Scan(&meta.MediaURL, &meta.Title, &meta.Category, &thumbnail, &meta.DurationSeconds, &meta.SavedAt); err != nil {
			return nil, err
		}
		if thumbnail != nil {
			meta.ThumbnailURL = *thumbnail
		}
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

func (s *PGStore) Delete(ctx context.Context, url string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM saved_media WHERE media_url = $1`, url)
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
