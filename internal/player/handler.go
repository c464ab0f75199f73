package player

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/voyagertechco/Tomorrow-Exercise/internal/httputil"
)

// CatalogSource supplies playlist items for a start request. Any failure is
// surfaced to the user as a could-not-start notice.
type CatalogSource interface {
	Items(ctx context.Context, category string) ([]Item, error)
}

type Handler struct {
	catalog     CatalogSource
	controller  *Controller
	surface     *RemoteSurface
	broadcaster *Broadcaster
	indicators  *IndicatorSync
}

func NewHandler(catalog CatalogSource, controller *Controller, surface *RemoteSurface, broadcaster *Broadcaster, indicators *IndicatorSync) *Handler {
	return &Handler{
		catalog:     catalog,
		controller:  controller,
		surface:     surface,
		broadcaster: broadcaster,
		indicators:  indicators,
	}
}

type startRequest struct {
	Category     string `json:"category"`
	RoutineID    string `json:"routineId"`
	StartIndex   int    `json:"startIndex"`
	PlaySeconds  int    `json:"playSeconds"`
	BreakSeconds int    `json:"breakSeconds"`
	User         string `json:"user"`
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := h.catalog.Items(r.Context(), req.Category)
	if err != nil {
		httputil.WriteError(w, http.StatusBadGateway, "could not start: routine catalog unavailable")
		return
	}

	cfg := Config{
		PlayWindowSeconds: req.PlaySeconds,
		BreakSeconds:      req.BreakSeconds,
		User: UserContext{
			Name:      strings.TrimSpace(req.User),
			IP:        remoteIP(r),
			UserAgent: r.UserAgent(),
		},
	}

	anchor := StartAnchor{Index: req.StartIndex, ItemID: req.RoutineID}
	if err := h.controller.Start(items, anchor, cfg); err != nil {
		if errors.Is(err, ErrEmptyPlaylist) {
			httputil.WriteError(w, http.StatusNotFound, "no routines to play")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "could not start playlist")
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, h.controller.Status())
}

func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.controller.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SkipBreak(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.SkipBreak(); err != nil {
		if errors.Is(err, ErrNoSession) {
			httputil.WriteError(w, http.StatusConflict, "no active session")
			return
		}
		httputil.WriteError(w, http.StatusConflict, "not on a break")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.controller.Status())
}

func (h *Handler) Indicators(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.indicators.Snapshot())
}

// SurfaceReady is the client callback for loadedmetadata.
func (h *Handler) SurfaceReady(w http.ResponseWriter, r *http.Request) {
	h.surface.SignalReady()
	w.WriteHeader(http.StatusNoContent)
}

// SurfaceEnded records early media end; the play window is unaffected.
func (h *Handler) SurfaceEnded(w http.ResponseWriter, r *http.Request) {
	h.surface.SignalEnded()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SurfaceBlocked(w http.ResponseWriter, r *http.Request) {
	h.surface.SignalBlocked()
	w.WriteHeader(http.StatusNoContent)
}

// Events streams session events as server-sent events until the client
// disconnects.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.broadcaster.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := httputil.WriteSSEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func remoteIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
