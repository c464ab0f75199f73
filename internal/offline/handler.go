package offline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/voyagertechco/Tomorrow-Exercise/internal/httputil"
)

// MetaSource resolves catalog rows into saveable metadata for bulk saves.
type MetaSource interface {
	MetasByCategory(ctx context.Context, category string) ([]Meta, error)
}

type Handler struct {
	library *Library
	source  MetaSource
}

func NewHandler(library *Library, source MetaSource) *Handler {
	return &Handler{library: library, source: source}
}

type saveRequest struct {
	MediaURL        string `json:"mediaUrl"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	ThumbnailURL    string `json:"thumbnailUrl"`
	DurationSeconds int    `json:"durationSeconds"`
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.MediaURL) == "" {
		httputil.WriteError(w, http.StatusBadRequest, "mediaUrl is required")
		return
	}

	err := h.library.Save(r.Context(), Meta{
		MediaURL:        req.MediaURL,
		Title:           req.Title,
		Category:        req.Category,
		ThumbnailURL:    req.ThumbnailURL,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		var fetchErr *FetchError
		var persistErr *PersistenceError
		switch {
		case errors.Is(err, ErrCacheUnavailable):
			httputil.WriteError(w, http.StatusServiceUnavailable, "offline storage is not configured")
		case errors.As(err, &fetchErr):
			httputil.WriteError(w, http.StatusBadGateway, "could not download the video")
		case errors.As(err, &persistErr):
			httputil.WriteError(w, http.StatusInternalServerError, "video downloaded but could not be marked as saved")
		default:
			httputil.WriteError(w, http.StatusInternalServerError, "could not save the video")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		httputil.WriteError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	// Best effort by contract; removing a never-saved URL succeeds.
	_ = h.library.Remove(r.Context(), url)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.library.List())
}

// Media serves cached bytes, or redirects to the origin when the cache has
// no entry so playback can fall back to the network.
func (h *Handler) Media(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		httputil.WriteError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	body, contentType, err := h.library.Open(r.Context(), url)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			http.Redirect(w, r, url, http.StatusFound)
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "could not read cached media")
		return
	}
	defer func() { _ = body.Close() }()

	if contentType == "" {
		contentType = "video/mp4"
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = io.Copy(w, body)
}

// SaveCategory bulk-saves a category, streaming progress as server-sent
// events: started, then a tick per video, then complete or error.
func (h *Handler) SaveCategory(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if h.source == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "routine catalog not configured")
		return
	}

	category := r.URL.Query().Get("category")
	metas, err := h.source.MetasByCategory(r.Context(), category)
	if err != nil {
		httputil.WriteError(w, http.StatusBadGateway, "routine catalog unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range h.library.SaveAll(r.Context(), metas) {
		if err := httputil.WriteSSEvent(w, ev); err != nil {
			return
		}
		flusher.Flush()
	}
}
