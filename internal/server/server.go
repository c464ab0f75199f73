package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/voyagertechco/Tomorrow-Exercise/internal/auth"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/catalog"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/httputil"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/offline"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/player"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/ratelimit"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/tracking"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/validate"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Pinger          Pinger
	BaseURL         string
	StorageEndpoint string

	Auth     *auth.Handler
	Catalog  *catalog.Handler
	Uploads  *catalog.UploadHandler
	Tracking *tracking.Handler
	Player   *player.Handler
	Offline  *offline.Handler
}

type Server struct {
	router chi.Router
	pinger Pinger
	cfg    Config
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:         cfg.BaseURL,
		StorageEndpoint: cfg.StorageEndpoint,
	}))

	s := &Server{router: r, pinger: cfg.Pinger, cfg: cfg}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, validate.FieldLimits())
	})

	if s.cfg.Auth != nil {
		authLimiter := ratelimit.NewLimiter(0.5, 5)
		s.router.Route("/api/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Get("/admin/exists", s.cfg.Auth.AdminExists)
			r.Post("/admin/register", s.cfg.Auth.RegisterAdmin)
			r.Post("/login", s.cfg.Auth.Login)
			r.Post("/refresh", s.cfg.Auth.Refresh)
			r.Post("/logout", s.cfg.Auth.Logout)
		})
	}

	if s.cfg.Catalog != nil {
		s.router.Route("/api/routines", func(r chi.Router) {
			r.Get("/", s.cfg.Catalog.List)
			r.Get("/{id}", s.cfg.Catalog.Get)
			if s.cfg.Player != nil {
				r.Get("/indicators", s.cfg.Player.Indicators)
			}
		})
	}

	if s.cfg.Uploads != nil {
		s.router.Get("/api/media/{name}", s.cfg.Uploads.ServeMedia)
	}

	if s.cfg.Tracking != nil {
		s.router.Route("/api/viewers", func(r chi.Router) {
			r.Post("/", s.cfg.Tracking.RegisterViewer)
			r.Post("/visit", s.cfg.Tracking.Visit)
			r.Post("/reminder", s.cfg.Tracking.SetReminder)
		})
	}

	if s.cfg.Player != nil {
		s.router.Route("/api/player", func(r chi.Router) {
			r.Post("/start", s.cfg.Player.Start)
			r.Post("/stop", s.cfg.Player.Stop)
			r.Post("/skip-break", s.cfg.Player.SkipBreak)
			r.Get("/status", s.cfg.Player.Status)
			r.Get("/events", s.cfg.Player.Events)
			r.Post("/surface/ready", s.cfg.Player.SurfaceReady)
			r.Post("/surface/ended", s.cfg.Player.SurfaceEnded)
			r.Post("/surface/blocked", s.cfg.Player.SurfaceBlocked)
		})
	}

	if s.cfg.Offline != nil {
		offlineLimiter := ratelimit.NewLimiter(2, 10)
		s.router.Route("/api/offline", func(r chi.Router) {
			r.Get("/", s.cfg.Offline.List)
			r.Get("/media", s.cfg.Offline.Media)
			r.With(offlineLimiter.Middleware).Post("/save", s.cfg.Offline.Save)
			r.With(offlineLimiter.Middleware).Post("/save-category", s.cfg.Offline.SaveCategory)
			r.Delete("/", s.cfg.Offline.Remove)
		})
	}

	if s.cfg.Auth != nil {
		s.router.Route("/api/admin", func(r chi.Router) {
			r.Use(s.cfg.Auth.Middleware)
			if s.cfg.Catalog != nil {
				r.Post("/routines", s.cfg.Catalog.Create)
				r.Put("/routines/{id}", s.cfg.Catalog.Update)
				r.Delete("/routines/{id}", s.cfg.Catalog.Delete)
			}
			if s.cfg.Uploads != nil {
				r.Post("/routines/upload", s.cfg.Uploads.Upload)
			}
			if s.cfg.Tracking != nil {
				r.Get("/viewers", s.cfg.Tracking.ListViewers)
				r.Get("/metrics", s.cfg.Tracking.Metrics)
			}
			r.Post("/promote", s.cfg.Auth.Promote)
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
