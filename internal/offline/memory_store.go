package offline

import (
	"context"
	"sync"
)

// MemoryStore is the stand-in metadata store selected at startup when no
// database is configured. Same contract as PGStore, nothing persists.
type MemoryStore struct {
	mu    sync.RWMutex
	metas map[string]Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{metas: make(map[string]Meta)}
}

func (s *MemoryStore) Put(ctx context.Context, meta Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metas[meta.MediaURL] = meta
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, url string) (Meta, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.metas[url]
	return meta, ok, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	metas := make([]Meta, 0, len(s.metas))
	for _, m := range s.metas {
		metas = append(metas, m)
	}
	return metas, nil
}

func (s *MemoryStore) Delete(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.metas, url)
	return nil
}
