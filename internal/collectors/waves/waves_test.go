package waves

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/clock"
	"github.com/kaos-observability/ingest/internal/collectors/common"
	"github.com/kaos-observability/ingest/internal/fetcher"
)

type fakeCache struct{ store map[string][]byte }

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]byte{}} }
func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := f.store[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}
func (f *fakeCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	f.store[key] = val
	return nil
}
func (f *fakeCache) Keys(ctx context.Context, pattern string) ([]string, error) { return nil, nil }
func (f *fakeCache) Pipeline(ctx context.Context, writes map[string][]byte, ttl time.Duration) error {
	return nil
}
func (f *fakeCache) Ping(ctx context.Context) error { return nil }

func TestCollect_ValidRaster_Cached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(common.Raster{
			Header: common.RasterHeader{NX: 2, NY: 1, Lo1: 0, La1: 0, Dx: 1, Dy: 1},
			Data:   []*float64{common.F64(0.5), common.F64(1.2)},
			Unit:   "m",
		})
	}))
	defer srv.Close()

	c := newFakeCache()
	col := New(srv.URL, c, fetcher.New(srv.Client(), clock.New()), zerolog.Nop())

	if err := col.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if _, ok := c.store[cacheKey]; !ok {
		t.Fatal("expected kaos:waves:global to be written")
	}
}

func TestCollect_ShapeMismatch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(common.Raster{
			Header: common.RasterHeader{NX: 4, NY: 4, Lo1: 0, La1: 0, Dx: 1, Dy: 1},
			Data:   []*float64{common.F64(1)},
		})
	}))
	defer srv.Close()

	c := newFakeCache()
	col := New(srv.URL, c, fetcher.New(srv.Client(), clock.New()), zerolog.Nop())

	if err := col.Collect(context.Background()); err == nil {
		t.Fatal("want error on nx*ny != len(data)")
	}
}
