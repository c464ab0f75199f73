// Package catalog serves the exercise routine library: public listing for the
// player UI and admin CRUD for managing routines.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/voyagertechco/Tomorrow-Exercise/internal/database"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/httputil"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/validate"
)

type Routine struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	Difficulty      string    `json:"difficulty"`
	Description     string    `json:"description"`
	DurationSeconds int       `json:"durationSeconds"`
	PlaySeconds     *int      `json:"playSeconds,omitempty"`
	VideoURL        string    `json:"videoUrl"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty"`
	UploadedBy      string    `json:"uploadedBy,omitempty"`
	UploadedAt      time.Time `json:"uploadedAt"`
	Views           int64     `json:"views"`
}

const routineColumns = `id, title, category, difficulty, description, duration_seconds, play_seconds, video_url, thumbnail_url, uploaded_by, uploaded_at, views`

type Handler struct {
	db database.DBTX
}

func NewHandler(db database.DBTX) *Handler {
	return &Handler{db: db}
}

func scanRoutine(row pgx.Row) (Routine, error) {
	var rt Routine
	err := row.Scan(&rt.ID, &rt.Title, &rt.Category, &rt.Difficulty, &rt.Description,
		&rt.DurationSeconds, &rt.PlaySeconds, &rt.VideoURL, &rt.ThumbnailURL,
		&rt.UploadedBy, &rt.UploadedAt, &rt.Views)
	return rt, err
}

func (h *Handler) listRoutines(ctx context.Context, category string) ([]Routine, error) {
	query := `SELECT ` + routineColumns + ` FROM routines ORDER BY uploaded_at DESC`
	args := []any{}
	if category != "" {
		query = `SELECT ` + routineColumns + ` FROM routines WHERE category = $1 ORDER BY uploaded_at DESC`
		args = append(args, category)
	}

	rows, err := h.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list routines: %w", err)
	}
	defer rows.Close()

	routines := []Routine{}
	for rows.Next() {
		rt, err := scanRoutine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan routine: %w", err)
		}
		routines = append(routines, rt)
	}
	return routines, rows.Err()
}

// List returns all routines, optionally filtered by ?category=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	routines, err := h.listRoutines(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not load routines")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, routines)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rt, err := scanRoutine(h.db.QueryRow(r.Context(),
		`SELECT `+routineColumns+` FROM routines WHERE id = $1`, id))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "routine not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rt)
}

type createRequest struct {
	Title           string `json:"title"`
	Category        string `json:"category"`
	Difficulty      string `json:"difficulty"`
	Description     string `json:"description"`
	DurationSeconds int    `json:"durationSeconds"`
	PlaySeconds     *int   `json:"playSeconds"`
	VideoURL        string `json:"videoUrl"`
	ThumbnailURL    string `json:"thumbnailUrl"`
	UploadedBy      string `json:"uploadedBy"`
}

// Create registers a routine pointing at an already-hosted video.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VideoURL == "" {
		httputil.WriteError(w, http.StatusBadRequest, "videoUrl required")
		return
	}
	for _, msg := range []string{
		validate.Title(req.Title),
		validate.Category(req.Category),
		validate.Difficulty(req.Difficulty),
		validate.Description(req.Description),
		validate.MediaURL(req.VideoURL),
	} {
		if msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
	}
	if req.Title == "" {
		req.Title = "Untitled"
	}
	if req.Category == "" {
		req.Category = "Special"
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}

	var id string
	err := h.db.QueryRow(r.Context(),
		`INSERT INTO routines (title, category, difficulty, description, duration_seconds, play_seconds, video_url, thumbnail_url, uploaded_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		req.Title, req.Category, req.Difficulty, req.Description,
		req.DurationSeconds, req.PlaySeconds, req.VideoURL, req.ThumbnailURL, req.UploadedBy,
	).Scan(&id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not create routine")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type updateRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	VideoURL     *string `json:"videoUrl"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	PlaySeconds  *int    `json:"playSeconds"`
}

// Update replaces routine metadata; absent fields keep their value.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tag, err := h.db.Exec(r.Context(),
		`UPDATE routines SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			video_url = COALESCE($4, video_url),
			thumbnail_url = COALESCE($5, thumbnail_url),
			play_seconds = COALESCE($6, play_seconds)
		 WHERE id = $1`,
		id, req.Title, req.Description, req.VideoURL, req.ThumbnailURL, req.PlaySeconds,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not update routine")
		return
	}
	if tag.RowsAffected() == 0 {
		httputil.WriteError(w, http.StatusNotFound, "routine not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tag, err := h.db.Exec(r.Context(), `DELETE FROM routines WHERE id = $1`, id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not delete routine")
		return
	}
	if tag.RowsAffected() == 0 {
		httputil.WriteError(w, http.StatusNotFound, "routine not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ErrNotFound is returned by Source lookups for unknown routines.
var ErrNotFound = errors.New("routine not found")
