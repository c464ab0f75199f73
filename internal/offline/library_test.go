package offline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type fakeCache struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	putErr    error
	deleteErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeCache) Put(ctx context.Context, url string, contentType string, body io.Reader) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[url] = data
	f.types[url] = contentType
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, url string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, url)
	return nil
}

func (f *fakeCache) Match(ctx context.Context, url string) (io.ReadCloser, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[url]
	if !ok {
		return nil, "", ErrCacheMiss
	}
	return io.NopCloser(bytes.NewReader(data)), f.types[url], nil
}

func (f *fakeCache) has(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[url]
	return ok
}

type failingMetaStore struct {
	MetaStore
	putErr error
}

func (f *failingMetaStore) Put(ctx context.Context, meta Meta) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.MetaStore.Put(ctx, meta)
}

func mediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/videos/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("fake mp4 payload"))
	})
	mux.HandleFunc("/missing/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSaveThenListIncludesURL(t *testing.T) {
	srv := mediaServer(t)
	cache := newFakeCache()
	library := NewLibrary(NewMemoryStore(), cache, srv.Client())

	url := srv.URL + "/videos/a.mp4"
	meta := Meta{MediaURL: url, Title: "Morning stretch", Category: "morning", DurationSeconds: 30}
	if err := library.Save(context.Background(), meta); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if !library.Saved(url) {
		t.Error("index must report the URL as saved")
	}
	found := false
	for _, m := range library.List() {
		if m.MediaURL == url {
			found = true
			if m.Title != "Morning stretch" {
				t.Errorf("expected title preserved, got %q", m.Title)
			}
			if m.SavedAt.IsZero() {
				t.Error("save must stamp SavedAt")
			}
		}
	}
	if !found {
		t.Error("list must include the saved URL")
	}
	if !cache.has(url) {
		t.Error("media bytes must be cached")
	}
}

func TestSaveOverwritesExistingMetadata(t *testing.T) {
	srv := mediaServer(t)
	library := NewLibrary(NewMemoryStore(), newFakeCache(), srv.Client())

	url := srv.URL + "/videos/a.mp4"
	if err := library.Save(context.Background(), Meta{MediaURL: url, Title: "old"}); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := library.Save(context.Background(), Meta{MediaURL: url, Title: "new"}); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	metas := library.List()
	if len(metas) != 1 {
		t.Fatalf("idempotent save must keep one entry, got %d", len(metas))
	}
	if metas[0].Title != "new" {
		t.Errorf("expected overwritten title, got %q", metas[0].Title)
	}
}

func TestSaveFetchFailureLeavesIndexUnchanged(t *testing.T) {
	srv := mediaServer(t)
	cache := newFakeCache()
	library := NewLibrary(NewMemoryStore(), cache, srv.Client())

	url := srv.URL + "/missing/a.mp4"
	err := library.Save(context.Background(), Meta{MediaURL: url})

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404 in error, got %d", fetchErr.StatusCode)
	}
	if library.Saved(url) {
		t.Error("a failed fetch must not mark the URL saved")
	}
	if cache.has(url) {
		t.Error("a failed fetch must not populate the cache")
	}
}

func TestSavePersistenceFailureLeavesCachePopulated(t *testing.T) {
	srv := mediaServer(t)
	cache := newFakeCache()
	store := &failingMetaStore{MetaStore: NewMemoryStore(), putErr: errors.New("store down")}
	library := NewLibrary(store, cache, srv.Client())

	url := srv.URL + "/videos/a.mp4"
	err := library.Save(context.Background(), Meta{MediaURL: url})

	var persistErr *PersistenceError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	// Accepted inconsistency: bytes cached, but the URL does not count as saved.
	if !cache.has(url) {
		t.Error("the cache should keep the fetched media")
	}
	if library.Saved(url) {
		t.Error("the index must not report the URL as saved")
	}
}

func TestRemoveClearsIndexEvenWhenCacheDeleteFails(t *testing.T) {
	srv := mediaServer(t)
	cache := newFakeCache()
	library := NewLibrary(NewMemoryStore(), cache, srv.Client())

	url := srv.URL + "/videos/a.mp4"
	if err := library.Save(context.Background(), Meta{MediaURL: url}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	cache.deleteErr = errors.New("cache down")
	if err := library.Remove(context.Background(), url); err != nil {
		t.Fatalf("remove must be best-effort, got %v", err)
	}
	if library.Saved(url) {
		t.Error("the index entry must be cleared regardless of the cache delete")
	}
}

func TestRemoveNeverSavedURLSucceeds(t *testing.T) {
	library := NewLibrary(NewMemoryStore(), newFakeCache(), nil)

	if err := library.Remove(context.Background(), "https://media.test/unknown.mp4"); err != nil {
		t.Fatalf("removing an unsaved URL must be a no-op success, got %v", err)
	}
}

func TestSaveWithoutCacheIsRejected(t *testing.T) {
	library := NewLibrary(NewMemoryStore(), nil, nil)

	err := library.Save(context.Background(), Meta{MediaURL: "https://media.test/a.mp4"})
	if !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
}

func TestOpenFallsBackOnCacheMiss(t *testing.T) {
	library := NewLibrary(NewMemoryStore(), newFakeCache(), nil)

	_, _, err := library.Open(context.Background(), "https://media.test/a.mp4")
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}
