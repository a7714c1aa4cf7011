package gfs

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

func rasterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(common.Raster{
			Header: common.RasterHeader{NX: 1, NY: 1, Lo1: 0, La1: 0, Dx: 1, Dy: 1},
			Data:   []*float64{common.F64(300)},
		})
	}
}

func TestCollect_WritesEachScalarLayerAndWind(t *testing.T) {
	rasterSrv := httptest.NewServer(rasterHandler())
	defer rasterSrv.Close()
	windSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(common.Vector{
			Header: common.RasterHeader{NX: 1, NY: 1, Lo1: 0, La1: 0, Dx: 1, Dy: 1},
			U:      []*float64{common.F64(1)},
			V:      []*float64{common.F64(2)},
		})
	}))
	defer windSrv.Close()

	c := newFakeCache()
	layers := []Layer{{Name: "temp-2m", URL: rasterSrv.URL}, {Name: "precip", URL: rasterSrv.URL}}
	col := New(layers, windSrv.URL, c, fetcher.New(http.DefaultClient, clock.New()), zerolog.Nop())

	if err := col.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, key := range []string{"kaos:gfs:temp-2m", "kaos:gfs:precip", "kaos:gfs:wind"} {
		if _, ok := c.store[key]; !ok {
			t.Fatalf("expected %s to be written", key)
		}
	}
}

func TestCollect_NoWindURL_SkipsWindLayer(t *testing.T) {
	rasterSrv := httptest.NewServer(rasterHandler())
	defer rasterSrv.Close()

	c := newFakeCache()
	col := New([]Layer{{Name: "temp-2m", URL: rasterSrv.URL}}, "", c, fetcher.New(http.DefaultClient, clock.New()), zerolog.Nop())

	if err := col.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if _, ok := c.store["kaos:gfs:wind"]; ok {
		t.Fatal("must not write wind key when windURL is empty")
	}
}

func TestCollect_LayerShapeMismatch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(common.Raster{
			Header: common.RasterHeader{NX: 3, NY: 3, Lo1: 0, La1: 0, Dx: 1, Dy: 1},
			Data:   []*float64{common.F64(1)},
		})
	}))
	defer srv.Close()

	c := newFakeCache()
	col := New([]Layer{{Name: "bad", URL: srv.URL}}, "", c, fetcher.New(http.DefaultClient, clock.New()), zerolog.Nop())

	if err := col.Collect(context.Background()); err == nil {
		t.Fatal("want error on raster shape mismatch")
	}
}
