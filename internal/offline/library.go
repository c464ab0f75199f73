// Package offline maintains the saved-for-offline media library: a content
// cache for the bytes, a metadata store for the catalog entry, and an
// in-memory index mirroring the store. The metadata store is authoritative
// for "is saved"; cache entries are disposable.
package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Meta describes one saved video, keyed by its media URL.
type Meta struct {
	MediaURL        string    `json:"mediaUrl"`
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty"`
	DurationSeconds int       `json:"durationSeconds"`
	SavedAt         time.Time `json:"savedAt"`
}

// MetaStore persists saved-media metadata. Put overwrites, Delete of an
// absent URL succeeds.
type MetaStore interface {
	Put(ctx context.Context, meta Meta) error
	Get(ctx context.Context, url string) (Meta, bool, error)
	List(ctx context.Context) ([]Meta, error)
	Delete(ctx context.Context, url string) error
}

// ContentCache stores the media bytes. Match reports ErrCacheMiss for absent
// entries.
type ContentCache interface {
	Put(ctx context.Context, url string, contentType string, body io.Reader) error
	Delete(ctx context.Context, url string) error
	Match(ctx context.Context, url string) (io.ReadCloser, string, error)
}

var (
	ErrCacheMiss        = errors.New("media not in cache")
	ErrCacheUnavailable = errors.New("content cache not configured")
)

// FetchError means the media download itself failed; nothing was saved.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistenceError means the media was cached but its metadata could not be
// recorded, so the item does not count as saved.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("saved-media store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Library is the saved-media index plus the save/remove pipeline.
type Library struct {
	meta   MetaStore
	cache  ContentCache
	client *http.Client

	mu    sync.RWMutex
	index map[string]Meta
}

func NewLibrary(meta MetaStore, cache ContentCache, client *http.Client) *Library {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Library{
		meta:   meta,
		cache:  cache,
		client: client,
		index:  make(map[string]Meta),
	}
}

// Refresh reloads the in-memory index from the metadata store.
func (l *Library) Refresh(ctx context.Context) error {
	metas, err := l.meta.List(ctx)
	if err != nil {
		return &PersistenceError{Op: "list", Err: err}
	}

	index := make(map[string]Meta, len(metas))
	for _, m := range metas {
		index[m.MediaURL] = m
	}

	l.mu.Lock()
	l.index = index
	l.mu.Unlock()
	return nil
}

// Save downloads the media, caches the bytes, then persists the metadata.
// The index is updated only after both succeed. Saving an already-saved URL
// overwrites its metadata.
func (l *Library) Save(ctx context.Context, meta Meta) error {
	if l.cache == nil {
		return ErrCacheUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.MediaURL, nil)
	if err != nil {
		return &FetchError{URL: meta.MediaURL, Err: err}
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return &FetchError{URL: meta.MediaURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &FetchError{URL: meta.MediaURL, StatusCode: resp.StatusCode}
	}

	if err := l.cache.Put(ctx, meta.MediaURL, resp.Header.Get("Content-Type"), resp.Body); err != nil {
		return fmt.Errorf("cache media %s: %w", meta.MediaURL, err)
	}

	meta.SavedAt = time.Now().UTC()
	if err := l.meta.Put(ctx, meta); err != nil {
		// The cache stays populated; the metadata store decides "saved".
		return &PersistenceError{Op: "put", Err: err}
	}

	return l.Refresh(ctx)
}

// Remove deletes the media from cache and store. The index entry goes away
// even when the cache delete fails; removing a never-saved URL is a no-op.
func (l *Library) Remove(ctx context.Context, url string) error {
	if l.cache != nil {
		if err := l.cache.Delete(ctx, url); err != nil {
			slog.Warn("offline: cache delete failed, entry is orphaned", "url", url, "error", err)
		}
	}

	if err := l.meta.Delete(ctx, url); err != nil {
		slog.Warn("offline: metadata delete failed", "url", url, "error", err)
	}

	l.mu.Lock()
	delete(l.index, url)
	l.mu.Unlock()
	return nil
}

// Saved reports whether the URL is in the index.
func (l *Library) Saved(url string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.index[url]
	return ok
}

// List returns the indexed metadata, newest first.
func (l *Library) List() []Meta {
	l.mu.RLock()
	metas := make([]Meta, 0, len(l.index))
	for _, m := range l.index {
		metas = append(metas, m)
	}
	l.mu.RUnlock()

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].SavedAt.After(metas[j].SavedAt)
	})
	return metas
}

// Open returns a reader over the cached media, or ErrCacheMiss when the
// caller should fall back to the network.
func (l *Library) Open(ctx context.Context, url string) (io.ReadCloser, string, error) {
	if l.cache == nil {
		return nil, "", ErrCacheMiss
	}
	return l.cache.Match(ctx, url)
}
