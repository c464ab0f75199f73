// Package tracking records play completions and viewer profiles. Recording is
// best effort: the playback loop must never block or fail on analytics.
package tracking

import (
	"context"
	"log/slog"
	"time"

	"github.com/voyagertechco/Tomorrow-Exercise/internal/database"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/player"
)

type Recorder struct {
	db  database.DBTX
	geo *GeoResolver
}

func NewRecorder(db database.DBTX, geo *GeoResolver) *Recorder {
	return &Recorder{db: db, geo: geo}
}

// RecordPlay enriches and stores one play completion in the background.
func (r *Recorder) RecordPlay(itemID string, user player.UserContext) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		r.record(ctx, itemID, user)
	}()
}

func (r *Recorder) record(ctx context.Context, itemID string, user player.UserContext) {
	country := ""
	if r.geo != nil {
		country = r.geo.Country(user.IP)
	}
	device := deviceLabel(user.UserAgent)

	if _, err := r.db.Exec(ctx,
		`INSERT INTO plays (routine_id, user_name, country, device) VALUES ($1, $2, $3, $4)`,
		itemID, user.Name, country, device,
	); err != nil {
		slog.Debug("tracking: failed to record play", "routine_id", itemID, "error", err)
		return
	}

	if _, err := r.db.Exec(ctx,
		`UPDATE routines SET views = views + 1 WHERE id = $1`,
		itemID,
	); err != nil {
		slog.Debug("tracking: failed to bump views", "routine_id", itemID, "error", err)
	}
}
