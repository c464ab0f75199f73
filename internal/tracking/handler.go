package tracking

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/voyagertechco/Tomorrow-Exercise/internal/database"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/httputil"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/validate"
)

type Handler struct {
	db database.DBTX
}

func NewHandler(db database.DBTX) *Handler {
	return &Handler{db: db}
}

type viewerRequest struct {
	Name       string `json:"name"`
	Country    string `json:"country"`
	Age        int    `json:"age"`
	Occupation string `json:"occupation"`
}

// RegisterViewer upserts a viewer profile keyed by (name, country) and counts
// the visit.
func (h *Handler) RegisterViewer(w http.ResponseWriter, r *http.Request) {
	var req viewerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Country == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name and country required")
		return
	}
	for _, msg := range []string{
		validate.ViewerName(req.Name),
		validate.Country(req.Country),
		validate.Occupation(req.Occupation),
	} {
		if msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
	}

	var id string
	var visits int64
	err := h.db.QueryRow(r.Context(),
		`INSERT INTO viewers (name, country, age, occupation, visits, last_seen)
		 VALUES ($1, $2, $3, $4, 1, now())
		 ON CONFLICT (name, country) DO UPDATE SET
			age = EXCLUDED.age,
			occupation = EXCLUDED.occupation,
			visits = viewers.visits + 1,
			last_seen = now()
		 RETURNING id, visits`,
		req.Name, req.Country, req.Age, req.Occupation,
	).Scan(&id, &visits)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not register viewer")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "visits": visits})
}

type visitRequest struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Visit bumps the visit counter for a known viewer.
func (h *Handler) Visit(w http.ResponseWriter, r *http.Request) {
	var req visitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Country == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name and country required")
		return
	}

	if _, err := h.db.Exec(r.Context(),
		`UPDATE viewers SET visits = visits + 1, last_seen = now() WHERE name = $1 AND country = $2`,
		req.Name, req.Country,
	); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not record visit")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type reminderRequest struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	Enabled bool   `json:"enabled"`
}

func (h *Handler) SetReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Country == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name and country required")
		return
	}

	if _, err := h.db.Exec(r.Context(),
		`UPDATE viewers SET reminders_set = $3 WHERE name = $1 AND country = $2`,
		req.Name, req.Country, req.Enabled,
	); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not set reminder")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type Viewer struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Country      string     `json:"country"`
	Age          int        `json:"age"`
	Occupation   string     `json:"occupation"`
	Visits       int64      `json:"visits"`
	RemindersSet bool       `json:"remindersSet"`
	LastSeen     *time.Time `json:"lastSeen,omitempty"`
}

// ListViewers returns every registered viewer profile for the admin
// dashboard, most recently seen first.
func (h *Handler) ListViewers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(r.Context(),
		`SELECT id, name, country, age, occupation, visits, reminders_set, last_seen
		 FROM viewers ORDER BY last_seen DESC NULLS LAST`)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not load viewers")
		return
	}
	defer rows.Close()

	viewers := []Viewer{}
	for rows.Next() {
		var v Viewer
		if err := rows.Scan(&v.ID, &v.Name, &v.Country, &v.Age, &v.Occupation,
			&v.Visits, &v.RemindersSet, &v.LastSeen); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "could not load viewers")
			return
		}
		viewers = append(viewers, v)
	}
	if rows.Err() != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not load viewers")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, viewers)
}

type metricsResponse struct {
	TotalViewers  int64 `json:"totalViewers"`
	TotalVisits   int64 `json:"totalVisits"`
	TotalRoutines int64 `json:"totalRoutines"`
	TotalPlays    int64 `json:"totalPlays"`
	RemindersSet  int64 `json:"remindersSet"`
}

// Metrics aggregates usage counters for the admin dashboard.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	var m metricsResponse
	err := h.db.QueryRow(r.Context(),
		`SELECT
			(SELECT COUNT(1) FROM viewers),
			(SELECT COALESCE(SUM(visits), 0) FROM viewers),
			(SELECT COUNT(1) FROM routines),
			(SELECT COALESCE(SUM(views), 0) FROM routines),
			(SELECT COUNT(1) FROM viewers WHERE reminders_set)`,
	).Scan(&m.TotalViewers, &m.TotalVisits, &m.TotalRoutines, &m.TotalPlays, &m.RemindersSet)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "could not load metrics")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, m)
}
