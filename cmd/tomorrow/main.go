package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/voyagertechco/Tomorrow-Exercise/internal/auth"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/catalog"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/database"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/offline"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/player"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/server"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/storage"
	"github.com/voyagertechco/Tomorrow-Exercise/internal/tracking"
)

func main() {
	port := getEnv("PORT", "8080")
	baseURL := getEnv("BASE_URL", "http://localhost:8080")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var db *database.DB
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL != "" {
		var err error
		db, err = database.Connect(ctx, databaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()

		if err := db.Migrate(databaseURL); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
		log.Println("database migrations applied")
	} else {
		log.Println("DATABASE_URL not set, running with in-memory saved-media store only")
	}

	var cache offline.ContentCache
	var mediaStore *storage.Cache
	if os.Getenv("S3_ACCESS_KEY") != "" {
		store, err := storage.New(ctx, storage.Config{
			Endpoint:  getEnv("S3_ENDPOINT", "http://localhost:3900"),
			Bucket:    getEnv("S3_BUCKET", "tomorrow-exercise"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Region:    getEnv("S3_REGION", "eu-central-1"),
		})
		if err != nil {
			log.Fatalf("storage initialization failed: %v", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			slog.Warn("media cache bucket unavailable, saved playback degrades to network", "error", err)
		} else {
			cache = cacheAdapter{store}
			mediaStore = store
			log.Println("media cache bucket ready")
		}
	} else {
		log.Println("S3_ACCESS_KEY not set, offline saving disabled")
	}

	var metaStore offline.MetaStore
	if db != nil {
		metaStore = offline.NewPGStore(db.Pool)
	} else {
		metaStore = offline.NewMemoryStore()
	}

	library := offline.NewLibrary(metaStore, cache, nil)
	if err := library.Refresh(ctx); err != nil {
		slog.Warn("saved-media index load failed", "error", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	cfg := server.Config{
		BaseURL:         baseURL,
		StorageEndpoint: os.Getenv("S3_ENDPOINT"),
	}

	if db != nil {
		jwtSecret := os.Getenv("JWT_SECRET")
		if jwtSecret == "" {
			log.Fatal("JWT_SECRET is required when a database is configured")
		}

		geo, err := tracking.NewGeoResolver(os.Getenv("GEOIP_DB_PATH"))
		if err != nil {
			log.Fatalf("geoip initialization failed: %v", err)
		}
		defer func() { _ = geo.Close() }()

		source := catalog.NewSource(db.Pool)
		recorder := tracking.NewRecorder(db.Pool, geo)

		broadcaster := player.NewBroadcaster()
		surface := player.NewRemoteSurface(broadcaster)
		controller := player.NewController(surface, broadcaster, recorder, player.Config{
			PlayWindowSeconds: int(getEnvInt64("PLAY_WINDOW_SECONDS", 30)),
			BreakSeconds:      int(getEnvInt64("BREAK_SECONDS", 15)),
			WarningSeconds:    int(getEnvInt64("WARNING_SECONDS", 3)),
		})

		indicators := player.NewIndicatorSync(source, library, controller)
		player.StartIndicatorSync(workerCtx, indicators, 500*time.Millisecond)

		secureCookies := len(baseURL) >= 8 && baseURL[:8] == "https://"

		cfg.Pinger = db
		cfg.Auth = auth.NewHandler(db.Pool, jwtSecret, secureCookies)
		cfg.Catalog = catalog.NewHandler(db.Pool)
		if mediaStore != nil {
			cfg.Uploads = catalog.NewUploadHandler(db.Pool, mediaStore)
		}
		cfg.Tracking = tracking.NewHandler(db.Pool)
		cfg.Player = player.NewHandler(source, controller, surface, broadcaster, indicators)
		cfg.Offline = offline.NewHandler(library, source)
	} else {
		cfg.Offline = offline.NewHandler(library, nil)
	}

	srv := server.New(cfg)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      0, // SSE streams stay open indefinitely
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("tomorrow-exercise listening on :%s", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
	log.Println("shutdown complete")
}

// cacheAdapter maps the storage layer's not-found sentinel onto the
// saved-media library's cache-miss contract.
type cacheAdapter struct {
	*storage.Cache
}

func (a cacheAdapter) Match(ctx context.Context, url string) (io.ReadCloser, string, error) {
	body, contentType, err := a.Cache.Match(ctx, url)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", offline.ErrCacheMiss
	}
	return body, contentType, err
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
