package cacheaside

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
)

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]byte{}} }

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

func (f *fakeCache) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.store[key]
	return ok
}

var _ cache.Interface = (*fakeCache)(nil)

func TestGet_CacheHit_NeverCallsFetch(t *testing.T) {
	c := newFakeCache()
	c.store["kaos:weather:current:38.7:-9.1"] = []byte(`{"temp":21}`)

	called := false
	res, err := Get(context.Background(), c, zerolog.Nop(), "kaos:weather:current:38.7:-9.1", time.Minute, func(ctx context.Context) ([]byte, error) {
		called = true
		return []byte("should not be used"), nil
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if called {
		t.Fatal("fetch should not be called on cache hit")
	}
	if res.Source != SourceCache {
		t.Fatalf("Source = %v want cache", res.Source)
	}
	if string(res.Data) != `{"temp":21}` {
		t.Fatalf("Data = %q", res.Data)
	}
}

func TestGet_CacheMiss_CallsFetchAndPopulates(t *testing.T) {
	c := newFakeCache()
	calls := 0
	res, err := Get(context.Background(), c, zerolog.Nop(), "kaos:weather:current:38.7:-9.1", time.Minute, func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte(`{"temp":22}`), nil
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls != 1 {
		t.Fatalf("fetch called %d times want 1", calls)
	}
	if res.Source != SourceFetch {
		t.Fatalf("Source = %v want fetch", res.Source)
	}

	deadline := time.Now().Add(time.Second)
	for !c.has("kaos:weather:current:38.7:-9.1") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !c.has("kaos:weather:current:38.7:-9.1") {
		t.Fatal("background write never populated the cache")
	}
}

func TestGet_NilCache_DegradesToFetch(t *testing.T) {
	calls := 0
	res, err := Get(context.Background(), nil, zerolog.Nop(), "kaos:weather:current:0:0", time.Minute, func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte("x"), nil
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls != 1 || res.Source != SourceFetch {
		t.Fatalf("calls=%d source=%v", calls, res.Source)
	}
}

func TestGet_FetchError_Propagates(t *testing.T) {
	c := newFakeCache()
	wantErr := errors.New("upstream unavailable")
	_, err := Get(context.Background(), c, zerolog.Nop(), "kaos:weather:current:1:1", time.Minute, func(ctx context.Context) ([]byte, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v want %v", err, wantErr)
	}
}
