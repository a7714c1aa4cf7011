package airquality

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
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

func TestCollect_MissingAPIKey_Errors(t *testing.T) {
	c := newFakeCache()
	col := New("http://unused", "", c, fetcher.New(http.DefaultClient, clock.New()), zerolog.Nop())
	err := col.Collect(context.Background())
	if err == nil || !strings.Contains(err.Error(), "AIR_QUALITY_API_KEY") {
		t.Fatalf("err = %v want AIR_QUALITY_API_KEY error", err)
	}
}

func TestCollect_SendsAPIKeyHeader_AndCaches(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		_ = json.NewEncoder(w).Encode(common.Raster{
			Header: common.RasterHeader{NX: 1, NY: 1, Lo1: 0, La1: 0, Dx: 1, Dy: 1},
			Data:   []*float64{common.F64(42)},
		})
	}))
	defer srv.Close()

	c := newFakeCache()
	col := New(srv.URL, "secret-key", c, fetcher.New(srv.Client(), clock.New()), zerolog.Nop())

	if err := col.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if gotKey != "secret-key" {
		t.Fatalf("X-API-Key = %q want secret-key", gotKey)
	}
	if _, ok := c.store[cacheKey]; !ok {
		t.Fatal("expected kaos:air-quality:global to be written")
	}
}
