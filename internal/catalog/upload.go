package catalog

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voyagertechco/Tomorrow-Exercise/internal/auth"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/database"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/httputil"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/storage"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/validate"
)

// MediaStore hosts admin-uploaded video files.
type MediaStore interface {
	Upload(ctx context.Context, name, contentType string, body io.Reader) error
	OpenUpload(ctx context.Context, name string) (io.ReadCloser, string, error)
}

// UploadHandler ingests admin-posted video files into object storage and
// registers one routine per file, pointing at the hosted URL.
type UploadHandler struct {
	db    database.DBTX
	store MediaStore
}

func NewUploadHandler(db database.DBTX, store MediaStore) *UploadHandler {
	return &UploadHandler{db: db, store: store}
}

const maxUploadMemory = 32 << 20

// Upload accepts one or more files under "videoFiles" (or a single legacy
// "videoFile"), with shared metadata in the other form fields. Files that
// fail to store or register are skipped; the response lists the hosted URLs
// of the ones that made it.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	files := r.MultipartForm.File["videoFiles"]
	if len(files) == 0 {
		files = r.MultipartForm.File["videoFile"]
	}
	if len(files) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "no video files provided")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	category := strings.TrimSpace(r.FormValue("category"))
	difficulty := strings.TrimSpace(r.FormValue("difficulty"))
	description := strings.TrimSpace(r.FormValue("description"))
	duration, _ := strconv.Atoi(r.FormValue("duration"))

	for _, msg := range []string{
		validate.Title(title),
		validate.Category(category),
		validate.Difficulty(difficulty),
		validate.Description(description),
	} {
		if msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
	}
	if category == "" {
		category = "Special"
	}
	if difficulty == "" {
		difficulty = "medium"
	}

	var hostedURLs []string
	for _, header := range files {
		if header.Filename == "" {
			continue
		}

		file, err := header.Open()
		if err != nil {
			slog.Warn("catalog: could not read uploaded file", "filename", header.Filename, "error", err)
			continue
		}

		name := uploadName(header.Filename)
		if err := h.store.Upload(r.Context(), name, header.Header.Get("Content-Type"), file); err != nil {
			_ = file.Close()
			slog.Warn("catalog: could not store uploaded file", "filename", header.Filename, "error", err)
			continue
		}
		_ = file.Close()

		routineTitle := title
		if routineTitle == "" {
			routineTitle = header.Filename
		}
		videoURL := "/api/media/" + name

		var id string
		err = h.db.QueryRow(r.Context(),
			`INSERT INTO routines (title, category, difficulty, description, duration_seconds, video_url, uploaded_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			routineTitle, category, difficulty, description, duration, videoURL, auth.UserIDFromContext(r.Context()),
		).Scan(&id)
		if err != nil {
			slog.Warn("catalog: could not register uploaded routine", "filename", header.Filename, "error", err)
			continue
		}

		hostedURLs = append(hostedURLs, videoURL)
	}

	if len(hostedURLs) == 0 {
		httputil.WriteError(w, http.StatusInternalServerError, "no files were saved")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string][]string{"videoUrls": hostedURLs})
}

// ServeMedia streams a hosted upload back to the player.
func (h *UploadHandler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, contentType, err := h.store.OpenUpload(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "media not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "could not read media")
		return
	}
	defer func() { _ = body.Close() }()

	if contentType == "" {
		contentType = "video/mp4"
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = io.Copy(w, body)
}

// uploadName builds a collision-free object name from the client filename:
// UTC stamp, random suffix, then the sanitized base name.
func uploadName(filename string) string {
	rnd := make([]byte, 6)
	_, _ = rand.Read(rnd)
	return time.Now().UTC().Format("20060102150405") + "_" + hex.EncodeToString(rnd) + "_" + sanitizeFilename(filename)
}

func sanitizeFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, base)
}
