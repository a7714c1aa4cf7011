package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/fetcher"
)

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]byte{}} }

func (f *fakeCache) set(key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = b
}

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.store[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}
func (f *fakeCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = val
	return nil
}
func (f *fakeCache) Keys(ctx context.Context, pattern string) ([]string, error) { return nil, nil }
func (f *fakeCache) Pipeline(ctx context.Context, writes map[string][]byte, ttl time.Duration) error {
	return nil
}
func (f *fakeCache) Ping(ctx context.Context) error { return nil }

func newTestServer(c *fakeCache) *Server {
	return NewServer(c, fetcher.New(http.DefaultClient, nil), zerolog.Nop(), "test-key")
}
